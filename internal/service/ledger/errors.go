package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
)

var (
	ErrExhausted = errors.New("capacity exhausted")
	ErrBlocked   = errors.New("space is blocked")
	ErrClosedDay = errors.New("space is closed on this day")
)

type CapacityKind string

const (
	KindExhausted CapacityKind = "exhausted"
	KindBlocked   CapacityKind = "blocked"
	KindClosedDay CapacityKind = "closed_day"
)

// CapacityError is returned when the ledger refuses a reservation.
// It matches ErrExhausted, ErrBlocked or ErrClosedDay with errors.Is.
type CapacityError struct {
	Kind      CapacityKind
	SpaceType domain.SpaceType
	Date      time.Time
	// Slot is the first unit that failed, empty for whole-day refusals.
	Slot      string
	Requested int
	Available int
	Reason    string
}

func (e *CapacityError) Error() string {
	date := e.Date.Format(domain.DateLayout)
	switch e.Kind {
	case KindExhausted:
		return fmt.Sprintf("capacity exhausted for %s on %s at %s: requested %d, available %d",
			e.SpaceType, date, e.Slot, e.Requested, e.Available)
	case KindBlocked:
		if e.Reason != "" {
			return fmt.Sprintf("%s is blocked on %s: %s", e.SpaceType, date, e.Reason)
		}
		return fmt.Sprintf("%s is blocked on %s", e.SpaceType, date)
	default:
		if e.Reason != "" {
			return fmt.Sprintf("%s is closed on %s: %s", e.SpaceType, date, e.Reason)
		}
		return fmt.Sprintf("%s is closed on %s", e.SpaceType, date)
	}
}

func (e *CapacityError) Is(target error) bool {
	switch target {
	case ErrExhausted:
		return e.Kind == KindExhausted
	case ErrBlocked:
		return e.Kind == KindBlocked
	case ErrClosedDay:
		return e.Kind == KindClosedDay
	}
	return false
}
