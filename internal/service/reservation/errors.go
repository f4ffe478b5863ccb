package reservation

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
)

var (
	ErrNoCapacity        = errors.New("no capacity for the requested slot")
	ErrInvalidSlotRange  = errors.New("invalid slot range")
	ErrInvalidDuration   = errors.New("invalid duration")
	ErrInvalidCapacity   = errors.New("invalid capacity")
	ErrInvalidRequest    = errors.New("invalid booking request")
	ErrBookingInPast     = errors.New("booking starts in the past")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("booking belongs to another user")
	// ErrPersistenceConflict is returned only once regenerating booking numbers or
	// retrying a contended ledger row has been exhausted.
	ErrPersistenceConflict = errors.New("could not persist booking")
)

// TransitionError describes a refused state change. It matches ErrInvalidTransition.
type TransitionError struct {
	From   domain.BookingStatus
	To     domain.BookingStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot move booking from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
