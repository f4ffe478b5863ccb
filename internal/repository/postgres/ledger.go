package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/repository"
)

type LedgerRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LedgerRepo) With(db DB) *LedgerRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LedgerRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const ledgerColumns = `id, space_type, date, total_capacity, booked_capacity, available_capacity,
	overall_status, operating_day, slots, maintenance_start, maintenance_end, maintenance_reason,
	manually_blocked, block_reason, blocked_until, last_booking_at, last_cancellation_at,
	last_calculated_at, cache_expires_at, version, created_at, updated_at`

// Get retrieves the availability record of a space type for a date.
//
// Returns:
//   - *domain.AvailabilityRecord: the record when found.
//   - error: repository.ErrNotFound if the record was never created.
func (r *LedgerRepo) Get(
	ctx context.Context,
	t domain.SpaceType,
	date time.Time,
) (*domain.AvailabilityRecord, error) {
	const op = "postgresrepo.LedgerRepo.Get"

	db := r.handle()

	rec, err := scanRecord(db.QueryRow(ctx,
		`SELECT `+ledgerColumns+`
		 FROM availability_records
		 WHERE space_type = $1 AND date = $2`,
		string(t), domain.DateOnly(date),
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rec, nil
}

// Insert stores a freshly synthesized record.
//
// Returns:
//   - error: repository.ErrConflict if a record for (date, space_type) already exists.
func (r *LedgerRepo) Insert(ctx context.Context, rec *domain.AvailabilityRecord) error {
	const op = "postgresrepo.LedgerRepo.Insert"

	db := r.handle()

	slots, err := json.Marshal(rec.Slots)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rec.Version == 0 {
		rec.Version = 1
	}

	err = db.QueryRow(ctx,
		`INSERT INTO availability_records(
			space_type, date, total_capacity, booked_capacity, available_capacity,
			overall_status, operating_day, slots, maintenance_start, maintenance_end,
			maintenance_reason, manually_blocked, block_reason, blocked_until,
			last_booking_at, last_cancellation_at, last_calculated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING id, created_at, updated_at`,
		string(rec.SpaceType), domain.DateOnly(rec.Date), rec.TotalCapacity, rec.BookedCapacity,
		rec.AvailableCapacity, string(rec.OverallStatus), rec.OperatingDay, slots,
		rec.MaintenanceStart, rec.MaintenanceEnd, rec.MaintenanceReason, rec.ManuallyBlocked,
		rec.BlockReason, rec.BlockedUntil, rec.LastBookingAt, rec.LastCancellationAt,
		rec.LastCalculatedAt, rec.Version,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Update writes rec only if the stored version still equals expectedVersion.
// This is the compare-and-swap every capacity change goes through.
//
// Returns:
//   - error: repository.ErrStaleVersion if the row changed since it was read.
func (r *LedgerRepo) Update(
	ctx context.Context,
	rec *domain.AvailabilityRecord,
	expectedVersion int64,
) error {
	const op = "postgresrepo.LedgerRepo.Update"

	db := r.handle()

	slots, err := json.Marshal(rec.Slots)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := db.Exec(ctx,
		`UPDATE availability_records
		 SET total_capacity = $4,
			 booked_capacity = $5,
			 available_capacity = $6,
			 overall_status = $7,
			 operating_day = $8,
			 slots = $9,
			 maintenance_start = $10,
			 maintenance_end = $11,
			 maintenance_reason = $12,
			 manually_blocked = $13,
			 block_reason = $14,
			 blocked_until = $15,
			 last_booking_at = $16,
			 last_cancellation_at = $17,
			 last_calculated_at = $18,
			 cache_expires_at = $19,
			 version = version + 1,
			 updated_at = now()
		 WHERE space_type = $1 AND date = $2 AND version = $3`,
		string(rec.SpaceType), domain.DateOnly(rec.Date), expectedVersion,
		rec.TotalCapacity, rec.BookedCapacity, rec.AvailableCapacity, string(rec.OverallStatus),
		rec.OperatingDay, slots, rec.MaintenanceStart, rec.MaintenanceEnd, rec.MaintenanceReason,
		rec.ManuallyBlocked, rec.BlockReason, rec.BlockedUntil, rec.LastBookingAt,
		rec.LastCancellationAt, rec.LastCalculatedAt, rec.CacheExpiresAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrStaleVersion)
	}

	rec.Version = expectedVersion + 1

	return nil
}

// ListRange lists every record whose date lies in [from, to].
func (r *LedgerRepo) ListRange(ctx context.Context, from, to time.Time) ([]domain.AvailabilityRecord, error) {
	const op = "postgresrepo.LedgerRepo.ListRange"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+ledgerColumns+`
		 FROM availability_records
		 WHERE date BETWEEN $1 AND $2
		 ORDER BY date, space_type`,
		domain.DateOnly(from), domain.DateOnly(to),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.AvailabilityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanRecord(row pgx.Row) (*domain.AvailabilityRecord, error) {
	var (
		rec    domain.AvailabilityRecord
		typ    string
		status string
		slots  []byte
	)

	if err := row.Scan(
		&rec.ID, &typ, &rec.Date, &rec.TotalCapacity, &rec.BookedCapacity, &rec.AvailableCapacity,
		&status, &rec.OperatingDay, &slots, &rec.MaintenanceStart, &rec.MaintenanceEnd,
		&rec.MaintenanceReason, &rec.ManuallyBlocked, &rec.BlockReason, &rec.BlockedUntil,
		&rec.LastBookingAt, &rec.LastCancellationAt, &rec.LastCalculatedAt, &rec.CacheExpiresAt,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rec.SpaceType = domain.SpaceType(typ)
	rec.OverallStatus = domain.AvailabilityStatus(status)
	rec.Date = domain.DateOnly(rec.Date)

	if err := unmarshalAll(slots, &rec.Slots); err != nil {
		return nil, err
	}

	return &rec, nil
}
