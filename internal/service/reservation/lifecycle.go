package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/repository"
	"github.com/kirinyoku/spacebook/internal/uow"
)

// ReasonPaymentTimeout is recorded on pending bookings cancelled by ExpirePending.
const ReasonPaymentTimeout = "payment_timeout"

// PaymentConfirmation carries the references handed over by the order/payment service.
type PaymentConfirmation struct {
	OrderID             *string
	WalletTransactionID *string
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.reservation.GetBooking"

	b, err := s.repos.Bookings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return b, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	const op = "service.reservation.GetByNumber"

	b, err := s.repos.Bookings.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return b, nil
}

// ListUserBookings returns a page of the user's bookings, newest first.
func (s *Service) ListUserBookings(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	const op = "service.reservation.ListUserBookings"

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	out, err := s.repos.Bookings.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ConfirmPayment moves a pending booking to confirmed and marks it paid.
// Confirming an already paid booking returns it unchanged.
//
// Returns:
//   - error: ErrBookingNotFound, or ErrInvalidTransition when the booking is no longer pending.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID, pc PaymentConfirmation) (*domain.Booking, error) {
	const op = "service.reservation.ConfirmPayment"

	b, err := s.transition(ctx, id, func(_ context.Context, _ repository.Repos, b *domain.Booking, _ func(uow.AfterCommit)) (bool, error) {
		if b.PaymentStatus == domain.PaymentPaid &&
			(b.Status == domain.BookingConfirmed || b.Status == domain.BookingCheckedIn || b.Status == domain.BookingCompleted) {
			return false, nil
		}

		if !b.Status.CanTransitionTo(domain.BookingConfirmed) {
			return false, &TransitionError{From: b.Status, To: domain.BookingConfirmed}
		}

		b.Status = domain.BookingConfirmed
		b.PaymentStatus = domain.PaymentPaid
		if pc.OrderID != nil {
			b.OrderID = pc.OrderID
		}
		if pc.WalletTransactionID != nil {
			b.WalletTransactionID = pc.WalletTransactionID
		}

		return true, nil
	}, domain.EventBookingConfirmed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// RecordPaymentFailure marks the payment of a pending booking as failed. The booking keeps
// its capacity until it is paid, cancelled or expired.
func (s *Service) RecordPaymentFailure(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.reservation.RecordPaymentFailure"

	b, err := s.transition(ctx, id, func(_ context.Context, _ repository.Repos, b *domain.Booking, _ func(uow.AfterCommit)) (bool, error) {
		if b.Status != domain.BookingPending || b.PaymentStatus == domain.PaymentPaid {
			return false, &TransitionError{From: b.Status, To: b.Status, Reason: "payment is no longer pending"}
		}
		if b.PaymentStatus == domain.PaymentFailed {
			return false, nil
		}

		b.PaymentStatus = domain.PaymentFailed

		return true, nil
	}, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// CancelBooking cancels a pending or confirmed booking before it starts, releases exactly
// the capacity it reserved and refunds a paid booking per the refund policy.
// userID 0 skips the ownership check (admin and system callers).
//
// Returns:
//   - error: ErrForbidden, ErrBookingNotFound or ErrInvalidTransition.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID, userID int64, reason string) (*domain.Booking, error) {
	const op = "service.reservation.CancelBooking"

	b, err := s.cancel(ctx, id, userID, reason, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("booking cancelled",
		"booking_number", b.Number,
		"reason", reason,
		"refund", b.RefundAmount,
		"fee", b.CancellationFee,
	)

	return b, nil
}

func (s *Service) cancel(ctx context.Context, id uuid.UUID, userID int64, reason string, expiring bool) (*domain.Booking, error) {
	return s.transition(ctx, id, func(ctx context.Context, repos repository.Repos, b *domain.Booking, after func(uow.AfterCommit)) (bool, error) {
		if userID != 0 && b.UserID != userID {
			return false, ErrForbidden
		}

		if !b.Status.CanTransitionTo(domain.BookingCancelled) {
			return false, &TransitionError{From: b.Status, To: domain.BookingCancelled}
		}

		now := s.cfg.Now()
		start := b.StartsAt(s.cfg.Location)
		if !expiring && !now.Before(start) {
			return false, &TransitionError{From: b.Status, To: domain.BookingCancelled, Reason: "booking has already started"}
		}

		rng, err := b.SlotRange()
		if err != nil {
			return false, err
		}

		sp, err := repos.Spaces.Get(ctx, b.SpaceType)
		if err != nil {
			return false, err
		}

		if err := s.ledger.Release(ctx, repos, after, sp, b.Date, rng, b.CapacityRequested); err != nil {
			return false, err
		}

		if b.PaymentStatus == domain.PaymentPaid {
			refund, fee := s.cfg.Refunds.Split(b.Price.TotalPrice, start.Sub(now).Hours())
			b.RefundAmount = refund
			b.CancellationFee = fee
			if refund == b.Price.TotalPrice {
				b.PaymentStatus = domain.PaymentRefunded
			} else {
				b.PaymentStatus = domain.PaymentPartialRefund
			}
		}

		ts := now.UTC()
		b.Status = domain.BookingCancelled
		b.CancellationReason = reason
		b.CancelledAt = &ts

		return true, nil
	}, domain.EventBookingCancelled)
}

// CheckIn admits a confirmed booking on its booking date.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.reservation.CheckIn"

	b, err := s.transition(ctx, id, func(_ context.Context, _ repository.Repos, b *domain.Booking, _ func(uow.AfterCommit)) (bool, error) {
		if !b.Status.CanTransitionTo(domain.BookingCheckedIn) {
			return false, &TransitionError{From: b.Status, To: domain.BookingCheckedIn}
		}

		now := s.cfg.Now()
		if !sameDay(now.In(s.cfg.Location), b.Date) {
			return false, &TransitionError{From: b.Status, To: domain.BookingCheckedIn, Reason: "check-in is only possible on the booking date"}
		}
		if !now.Before(b.EndsAt(s.cfg.Location)) {
			return false, &TransitionError{From: b.Status, To: domain.BookingCheckedIn, Reason: "booking has ended"}
		}

		ts := now.UTC()
		b.Status = domain.BookingCheckedIn
		b.CheckedInAt = &ts

		return true, nil
	}, domain.EventBookingCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.reservation.Complete"

	b, err := s.transition(ctx, id, func(_ context.Context, _ repository.Repos, b *domain.Booking, _ func(uow.AfterCommit)) (bool, error) {
		if !b.Status.CanTransitionTo(domain.BookingCompleted) {
			return false, &TransitionError{From: b.Status, To: domain.BookingCompleted}
		}

		ts := s.cfg.Now().UTC()
		b.Status = domain.BookingCompleted
		b.CompletedAt = &ts

		return true, nil
	}, domain.EventBookingCompleted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// MarkNoShow closes a confirmed booking whose start time has passed without a check-in.
// The capacity stays consumed.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.reservation.MarkNoShow"

	b, err := s.transition(ctx, id, func(_ context.Context, _ repository.Repos, b *domain.Booking, _ func(uow.AfterCommit)) (bool, error) {
		if !b.Status.CanTransitionTo(domain.BookingNoShow) {
			return false, &TransitionError{From: b.Status, To: domain.BookingNoShow}
		}

		if s.cfg.Now().Before(b.StartsAt(s.cfg.Location)) {
			return false, &TransitionError{From: b.Status, To: domain.BookingNoShow, Reason: "booking has not started yet"}
		}

		b.Status = domain.BookingNoShow

		return true, nil
	}, domain.EventBookingNoShow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// ExpirePending cancels unpaid pending bookings older than the pending TTL and releases
// their capacity.
//
// Returns:
//   - int: the number of expired bookings.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	const op = "service.reservation.ExpirePending"

	cutoff := s.cfg.Now().Add(-s.cfg.PendingTTL).UTC()

	stale, err := s.repos.Bookings.ListPendingCreatedBefore(ctx, cutoff, 200)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	expired := 0
	for _, b := range stale {
		if _, err := s.cancel(ctx, b.ID, 0, ReasonPaymentTimeout, true); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			slog.Warn("pending booking expiry failed", "booking_number", b.Number, "err", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		slog.Info("pending bookings expired", "count", expired)
	}

	return expired, nil
}

// mutation changes b in place. It reports false when there is nothing to write.
type mutation func(ctx context.Context, repos repository.Repos, b *domain.Booking, after func(uow.AfterCommit)) (bool, error)

// transition loads a booking in a unit of work, applies fn and writes it back guarded
// by the status it was read with.
func (s *Service) transition(ctx context.Context, id uuid.UUID, fn mutation, event string) (*domain.Booking, error) {
	var out *domain.Booking

	err := s.uow.DoRetry(ctx, s.cfg.Attempts, func(
		ctx context.Context,
		repos repository.Repos,
		after func(uow.AfterCommit),
	) error {
		b, err := repos.Bookings.Get(ctx, id)
		if err != nil {
			return notFound(err)
		}

		prev := b.Status

		changed, err := fn(ctx, repos, b, after)
		if err != nil {
			return err
		}

		if changed {
			if err := repos.Bookings.Update(ctx, b, prev); err != nil {
				return err
			}

			if event != "" {
				after(func(ctx context.Context) {
					s.publish(ctx, event, b)
				})
			}
		}

		out = b

		return nil
	})
	if err != nil {
		if repository.IsRetryable(err) {
			return nil, fmt.Errorf("%w: %w", ErrPersistenceConflict, err)
		}
		return nil, err
	}

	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrBookingNotFound
	}
	return err
}

func sameDay(t, date time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
