package gormrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/repository"
	"gorm.io/gorm"
)

type LedgerRepo struct {
	db *gorm.DB
}

func (r *LedgerRepo) Get(
	ctx context.Context,
	t domain.SpaceType,
	date time.Time,
) (*domain.AvailabilityRecord, error) {
	const op = "gormrepo.LedgerRepo.Get"

	var m ledgerModel
	err := r.db.WithContext(ctx).
		Where("space_type = ? AND date = ?", string(t), date.Format(domain.DateLayout)).
		Take(&m).Error
	if err != nil {
		return nil, wrapErr(op, err)
	}

	rec, err := m.toDomain()
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return rec, nil
}

// Insert stores a freshly synthesized record.
//
// Returns:
//   - error: repository.ErrConflict if a record for (date, space_type) already exists.
func (r *LedgerRepo) Insert(ctx context.Context, rec *domain.AvailabilityRecord) error {
	const op = "gormrepo.LedgerRepo.Insert"

	if rec.Version == 0 {
		rec.Version = 1
	}

	m := ledgerToModel(rec)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return wrapErr(op, err)
	}

	rec.ID = m.ID
	rec.CreatedAt = m.CreatedAt
	rec.UpdatedAt = m.UpdatedAt

	return nil
}

// Update writes rec only if the stored version still equals expectedVersion.
//
// Returns:
//   - error: repository.ErrStaleVersion if the row changed since it was read.
func (r *LedgerRepo) Update(
	ctx context.Context,
	rec *domain.AvailabilityRecord,
	expectedVersion int64,
) error {
	const op = "gormrepo.LedgerRepo.Update"

	m := ledgerToModel(rec)
	now := time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&ledgerModel{}).
		Where("space_type = ? AND date = ? AND version = ?", m.SpaceType, m.Date, expectedVersion).
		Updates(map[string]any{
			"total_capacity":       m.TotalCapacity,
			"booked_capacity":      m.BookedCapacity,
			"available_capacity":   m.AvailableCapacity,
			"overall_status":       m.OverallStatus,
			"operating_day":        m.OperatingDay,
			"slots":                m.Slots,
			"maintenance_start":    m.MaintenanceStart,
			"maintenance_end":      m.MaintenanceEnd,
			"maintenance_reason":   m.MaintenanceReason,
			"manually_blocked":     m.ManuallyBlocked,
			"block_reason":         m.BlockReason,
			"blocked_until":        m.BlockedUntil,
			"last_booking_at":      m.LastBookingAt,
			"last_cancellation_at": m.LastCancellationAt,
			"last_calculated_at":   m.LastCalculatedAt,
			"cache_expires_at":     m.CacheExpiresAt,
			"version":              expectedVersion + 1,
			"updated_at":           now,
		})
	if res.Error != nil {
		return wrapErr(op, res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrStaleVersion)
	}

	rec.Version = expectedVersion + 1
	rec.UpdatedAt = now

	return nil
}

func (r *LedgerRepo) ListRange(ctx context.Context, from, to time.Time) ([]domain.AvailabilityRecord, error) {
	const op = "gormrepo.LedgerRepo.ListRange"

	var models []ledgerModel
	err := r.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", from.Format(domain.DateLayout), to.Format(domain.DateLayout)).
		Order("date, space_type").
		Find(&models).Error
	if err != nil {
		return nil, wrapErr(op, err)
	}

	out := make([]domain.AvailabilityRecord, 0, len(models))
	for i := range models {
		rec, err := models[i].toDomain()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, *rec)
	}

	return out, nil
}
