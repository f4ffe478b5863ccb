package gormrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/repository"
	"gorm.io/gorm"
)

type BookingRepo struct {
	db *gorm.DB
}

// Create inserts a new booking.
//
// Returns:
//   - error: repository.ErrConflict if the booking number is already taken.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "gormrepo.BookingRepo.Create"

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	m := bookingToModel(b)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return wrapErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "gormrepo.BookingRepo.Get"

	return r.take(ctx, op, "id = ?", id.String())
}

func (r *BookingRepo) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	const op = "gormrepo.BookingRepo.GetByNumber"

	return r.take(ctx, op, "booking_number = ?", number)
}

// Update persists the mutable part of a booking, guarded by its previous status.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrStaleVersion if its status moved on concurrently.
func (r *BookingRepo) Update(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	const op = "gormrepo.BookingRepo.Update"

	b.UpdatedAt = time.Now().UTC()
	m := bookingToModel(b)

	res := r.db.WithContext(ctx).
		Model(&bookingModel{}).
		Where("id = ? AND status = ?", m.ID, string(expected)).
		Updates(map[string]any{
			"status":                m.Status,
			"payment_status":        m.PaymentStatus,
			"order_id":              m.OrderID,
			"wallet_transaction_id": m.WalletTransactionID,
			"cancellation_reason":   m.CancellationReason,
			"cancellation_fee":      m.CancellationFee,
			"refund_amount":         m.RefundAmount,
			"cancelled_at":          m.CancelledAt,
			"checked_in_at":         m.CheckedInAt,
			"completed_at":          m.CompletedAt,
			"parent_booking_id":     m.ParentBookingID,
			"updated_at":            m.UpdatedAt,
		})
	if res.Error != nil {
		return wrapErr(op, res.Error)
	}

	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&bookingModel{}).Where("id = ?", m.ID).Count(&n).Error; err != nil {
			return wrapErr(op, err)
		}
		if n == 0 {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, repository.ErrStaleVersion)
	}

	return nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	const op = "gormrepo.BookingRepo.ListByUser"

	return r.find(op, r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset),
	)
}

func (r *BookingRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	const op = "gormrepo.BookingRepo.ListPendingCreatedBefore"

	pending, err := r.find(op, r.db.WithContext(ctx).
		Where("status = ? AND payment_status <> ?", string(domain.BookingPending), string(domain.PaymentPaid)).
		Order("created_at"),
	)
	if err != nil {
		return nil, err
	}

	// sqlite stores timestamps as text, so the cutoff is applied here.
	out := make([]domain.Booking, 0, len(pending))
	for _, b := range pending {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, b)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (r *BookingRepo) ListHoldingCapacity(ctx context.Context, t domain.SpaceType, date time.Time) ([]domain.Booking, error) {
	const op = "gormrepo.BookingRepo.ListHoldingCapacity"

	return r.find(op, r.db.WithContext(ctx).
		Where("space_type = ? AND date = ?", string(t), date.Format(domain.DateLayout)).
		Where("status <> ?", string(domain.BookingCancelled)).
		Order("start_time"),
	)
}

func (r *BookingRepo) take(ctx context.Context, op, query string, args ...any) (*domain.Booking, error) {
	var m bookingModel
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&m).Error; err != nil {
		return nil, wrapErr(op, err)
	}

	b, err := m.toDomain()
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) find(op string, q *gorm.DB) ([]domain.Booking, error) {
	var models []bookingModel
	if err := q.Find(&models).Error; err != nil {
		return nil, wrapErr(op, err)
	}

	out := make([]domain.Booking, 0, len(models))
	for i := range models {
		b, err := models[i].toDomain()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, *b)
	}

	return out, nil
}
