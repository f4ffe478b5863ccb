package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
)

type RecurringRequest struct {
	CreateRequest
	Pattern domain.RecurringPattern
	EndDate time.Time
}

// Occurrence is the outcome of one date of a recurring series.
type Occurrence struct {
	Index   int
	Date    time.Time
	Booking *domain.Booking
	Err     error
}

type RecurringResult struct {
	// ParentID is the first occurrence that succeeded, nil when none did.
	ParentID *uuid.UUID
	// EndDate is the date of the last enumerated occurrence. It is earlier than the
	// requested end when the series hit MaxOccurrences, and Truncated is then set.
	EndDate     time.Time
	Truncated   bool
	Occurrences []Occurrence
}

func (r *RecurringResult) Succeeded() int {
	n := 0
	for _, o := range r.Occurrences {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// CreateRecurring books every occurrence of a series independently. A refused occurrence
// does not undo the others; each outcome is reported in order.
//
// Returns:
//   - error: only for problems shared by the whole series (bad pattern, dates or request shape).
func (s *Service) CreateRecurring(ctx context.Context, req RecurringRequest) (*RecurringResult, error) {
	const op = "service.reservation.CreateRecurring"

	if req.UserID <= 0 {
		return nil, fmt.Errorf("%s: %w: user id is required", op, ErrInvalidRequest)
	}

	dates, truncated, err := s.occurrences(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.allow(ctx, req.RateKey); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Shape errors fail the series up front; date-dependent ones are per occurrence.
	first := req.CreateRequest
	first.Date = dates[0]
	if _, err := s.check(ctx, first); err != nil && !isDateDependent(err) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pattern := req.Pattern
	endDate := domain.DateOnly(req.EndDate)
	if truncated {
		endDate = dates[len(dates)-1]
	}

	res := &RecurringResult{
		EndDate:     endDate,
		Truncated:   truncated,
		Occurrences: make([]Occurrence, 0, len(dates)),
	}
	for i, d := range dates {
		occ := Occurrence{Index: i + 1, Date: d}

		one := req.CreateRequest
		one.Date = d

		c, err := s.check(ctx, one)
		if err == nil {
			occ.Booking, err = s.create(ctx, c, series{
				parentID: res.ParentID,
				pattern:  &pattern,
				endDate:  &endDate,
			})
		}
		occ.Err = err

		if err == nil && res.ParentID == nil {
			id := occ.Booking.ID
			res.ParentID = &id
		}

		res.Occurrences = append(res.Occurrences, occ)
	}

	slog.Info("recurring series booked",
		"space_type", req.SpaceType,
		"pattern", req.Pattern,
		"occurrences", len(dates),
		"succeeded", res.Succeeded(),
		"truncated", truncated,
	)

	return res, nil
}

// occurrences enumerates the series dates; truncated reports that MaxOccurrences cut
// off dates still within the requested end.
func (s *Service) occurrences(req RecurringRequest) (dates []time.Time, truncated bool, err error) {
	start := domain.DateOnly(req.Date)
	end := domain.DateOnly(req.EndDate)

	if req.Date.IsZero() || req.EndDate.IsZero() {
		return nil, false, fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	if end.Before(start) {
		return nil, false, fmt.Errorf("%w: recurring end date precedes the first date", ErrInvalidRequest)
	}
	if !req.Pattern.Valid() {
		return nil, false, fmt.Errorf("%w: unknown recurring pattern %q", ErrInvalidRequest, req.Pattern)
	}

	for k := 0; ; k++ {
		d := req.Pattern.Nth(start, k)
		if d.After(end) {
			return dates, false, nil
		}
		if len(dates) == s.cfg.MaxOccurrences {
			return dates, true, nil
		}
		dates = append(dates, d)
	}
}

func isDateDependent(err error) bool {
	return errors.Is(err, ErrBookingInPast)
}
