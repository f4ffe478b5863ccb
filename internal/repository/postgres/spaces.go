package postgresrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/spacebook/internal/domain"
)

type SpaceRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SpaceRepo) With(db DB) *SpaceRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SpaceRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const spaceColumns = `type, name_fa, name_en, total_capacity, open_slot, close_slot, operating_days,
	base_hourly_rate, peak_hourly_rate, peak_windows, price_per_seat, services, active, updated_at`

// Get retrieves a space definition by its type.
//
// Returns:
//   - *domain.Space: the space when found.
//   - error: repository.ErrNotFound if no such space exists.
func (r *SpaceRepo) Get(ctx context.Context, t domain.SpaceType) (*domain.Space, error) {
	const op = "postgresrepo.SpaceRepo.Get"

	db := r.handle()

	s, err := scanSpace(db.QueryRow(ctx,
		`SELECT `+spaceColumns+` FROM spaces WHERE type = $1`,
		string(t),
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

func (r *SpaceRepo) List(ctx context.Context) ([]domain.Space, error) {
	const op = "postgresrepo.SpaceRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx, `SELECT `+spaceColumns+` FROM spaces ORDER BY type`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Upsert inserts the space or replaces the stored definition of the same type.
func (r *SpaceRepo) Upsert(ctx context.Context, s *domain.Space) error {
	const op = "postgresrepo.SpaceRepo.Upsert"

	db := r.handle()

	days, _ := json.Marshal(s.OperatingDays)
	peaks, _ := json.Marshal(s.PeakWindows)
	services, _ := json.Marshal(s.Services)

	s.UpdatedAt = time.Now().UTC()

	_, err := db.Exec(ctx,
		`INSERT INTO spaces(`+spaceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (type) DO UPDATE SET
			name_fa = EXCLUDED.name_fa,
			name_en = EXCLUDED.name_en,
			total_capacity = EXCLUDED.total_capacity,
			open_slot = EXCLUDED.open_slot,
			close_slot = EXCLUDED.close_slot,
			operating_days = EXCLUDED.operating_days,
			base_hourly_rate = EXCLUDED.base_hourly_rate,
			peak_hourly_rate = EXCLUDED.peak_hourly_rate,
			peak_windows = EXCLUDED.peak_windows,
			price_per_seat = EXCLUDED.price_per_seat,
			services = EXCLUDED.services,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`,
		string(s.Type), s.NameFa, s.NameEn, s.TotalCapacity, s.OpenSlot, s.CloseSlot, days,
		s.BaseHourlyRate, s.PeakHourlyRate, peaks, s.PricePerSeat, services, s.Active, s.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func scanSpace(row pgx.Row) (*domain.Space, error) {
	var (
		s                      domain.Space
		typ                    string
		days, peaks, services []byte
	)

	if err := row.Scan(
		&typ, &s.NameFa, &s.NameEn, &s.TotalCapacity, &s.OpenSlot, &s.CloseSlot, &days,
		&s.BaseHourlyRate, &s.PeakHourlyRate, &peaks, &s.PricePerSeat, &services, &s.Active, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.Type = domain.SpaceType(typ)
	if err := unmarshalAll(
		days, &s.OperatingDays,
		peaks, &s.PeakWindows,
		services, &s.Services,
	); err != nil {
		return nil, err
	}

	return &s, nil
}

// unmarshalAll decodes (raw, target) pairs, skipping empty payloads.
func unmarshalAll(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		raw, _ := pairs[i].([]byte)
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}
