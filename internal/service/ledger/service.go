package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
	redisx "github.com/kirinyoku/spacebook/internal/redis"
	"github.com/kirinyoku/spacebook/internal/repository"
	rediscache "github.com/kirinyoku/spacebook/internal/repository/redis"
	"github.com/kirinyoku/spacebook/internal/uow"
)

// SpaceSource resolves space definitions, normally the catalog service.
type SpaceSource interface {
	GetSpace(ctx context.Context, t domain.SpaceType) (*domain.Space, error)
}

// Notifier announces committed ledger changes, normally redis pub/sub.
type Notifier interface {
	PublishAvailabilityChanged(ctx context.Context, spaceType string, date time.Time) error
}

type Config struct {
	ViewTTL time.Duration
	// Attempts bounds the optimistic retries of admin commands.
	Attempts int
	Now      func() time.Time
}

// Reservation is the capacity taken by one successful Reserve.
type Reservation struct {
	SpaceType domain.SpaceType
	Date      time.Time
	Range     domain.SlotRange
	Capacity  int
	Version   int64
}

type Service struct {
	repos  repository.Repos
	uow    *uow.UoW
	spaces SpaceSource
	cache  *rediscache.Cache
	notify Notifier
	cfg    Config
}

// New builds the ledger. cache and notify may be nil.
func New(
	repos repository.Repos,
	tx uow.Transactor,
	spaces SpaceSource,
	cache *rediscache.Cache,
	notify Notifier,
	cfg Config,
) *Service {
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = 15 * time.Second
	}

	if cfg.Attempts <= 0 {
		cfg.Attempts = 5
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		repos:  repos,
		uow:    uow.NewUoW(tx),
		spaces: spaces,
		cache:  cache,
		notify: notify,
		cfg:    cfg,
	}
}

// GetOrCreate returns the stored record for (sp, date) or persists a fresh one built from sp.
// It runs on the given repositories so the engine can call it inside its unit of work.
//
// Returns:
//   - error: repository.ErrStaleVersion when a concurrent writer created the row first; the
//     surrounding unit of work should be retried.
func (s *Service) GetOrCreate(
	ctx context.Context,
	repos repository.Repos,
	sp *domain.Space,
	date time.Time,
) (*domain.AvailabilityRecord, error) {
	const op = "service.ledger.GetOrCreate"

	date = domain.DateOnly(date)

	rec, err := repos.Ledger.Get(ctx, sp.Type, date)
	if err == nil {
		return rec, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec = NewRecord(sp, date, s.cfg.Now())
	if err := repos.Ledger.Insert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A failed insert aborts a postgres transaction; the whole unit must be retried.
			return nil, fmt.Errorf("%s: concurrent create: %w", op, repository.ErrStaleVersion)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// Reserve is the only place booked capacity grows. It must run inside a unit of work; the
// conditional write fails with repository.ErrStaleVersion if another writer got there first.
//
// Returns:
//   - *Reservation: what was taken.
//   - error: *CapacityError when the ledger refuses the request.
func (s *Service) Reserve(
	ctx context.Context,
	repos repository.Repos,
	after func(uow.AfterCommit),
	sp *domain.Space,
	date time.Time,
	rng domain.SlotRange,
	capacity int,
) (*Reservation, error) {
	const op = "service.ledger.Reserve"

	rec, err := s.GetOrCreate(ctx, repos, sp, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expected := rec.Version
	if err := Reserve(rec, rng, capacity, s.cfg.Now()); err != nil {
		return nil, err
	}

	if err := repos.Ledger.Update(ctx, rec, expected); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.afterChange(after, sp.Type, rec.Date)

	return &Reservation{
		SpaceType: sp.Type,
		Date:      rec.Date,
		Range:     rng,
		Capacity:  capacity,
		Version:   rec.Version,
	}, nil
}

// Release gives back exactly what a Reserve took. Same transactional rules as Reserve.
func (s *Service) Release(
	ctx context.Context,
	repos repository.Repos,
	after func(uow.AfterCommit),
	sp *domain.Space,
	date time.Time,
	rng domain.SlotRange,
	capacity int,
) error {
	const op = "service.ledger.Release"

	rec, err := s.GetOrCreate(ctx, repos, sp, date)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	expected := rec.Version
	Release(rec, rng, capacity, s.cfg.Now())

	if err := repos.Ledger.Update(ctx, rec, expected); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.afterChange(after, sp.Type, rec.Date)

	return nil
}

// View returns the availability of a space for a date, reading through the cache.
// The record is created on first access.
func (s *Service) View(ctx context.Context, t domain.SpaceType, date time.Time) (*domain.AvailabilityRecord, error) {
	const op = "service.ledger.View"

	date = domain.DateOnly(date)

	load := func(ctx context.Context) (domain.AvailabilityRecord, error) {
		sp, err := s.spaces.GetSpace(ctx, t)
		if err != nil {
			return domain.AvailabilityRecord{}, err
		}

		var rec *domain.AvailabilityRecord
		err = s.uow.DoRetry(ctx, s.cfg.Attempts, func(
			ctx context.Context,
			repos repository.Repos,
			_ func(uow.AfterCommit),
		) error {
			r, err := s.GetOrCreate(ctx, repos, sp, date)
			if err != nil {
				return err
			}
			rec = r
			return nil
		})
		if err != nil {
			return domain.AvailabilityRecord{}, err
		}

		exp := s.cfg.Now().Add(s.cfg.ViewTTL).UTC()
		rec.CacheExpiresAt = &exp

		return *rec, nil
	}

	var (
		rec domain.AvailabilityRecord
		err error
	)
	if s.cache != nil {
		rec, err = rediscache.GetOrSetJSON(ctx, s.cache, redisx.KeyAvailability(string(t), date), s.cfg.ViewTTL, load)
	} else {
		rec, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := rec.Clone()
	RefreshStatus(out, s.cfg.Now())

	return out, nil
}

// Records lists the stored ledger rows with dates in [from, to].
func (s *Service) Records(ctx context.Context, from, to time.Time) ([]domain.AvailabilityRecord, error) {
	const op = "service.ledger.Records"

	recs, err := s.repos.Ledger.ListRange(ctx, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return recs, nil
}

// Block closes a space for a date until until (nil means indefinitely).
func (s *Service) Block(
	ctx context.Context,
	t domain.SpaceType,
	date time.Time,
	reason string,
	until *time.Time,
) (*domain.AvailabilityRecord, error) {
	const op = "service.ledger.Block"

	rec, err := s.mutate(ctx, t, date, func(_ context.Context, _ repository.Repos, rec *domain.AvailabilityRecord) error {
		rec.ManuallyBlocked = true
		rec.BlockReason = reason
		rec.BlockedUntil = until
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("availability blocked", "space_type", t, "date", rec.Date.Format(domain.DateLayout), "reason", reason)

	return rec, nil
}

func (s *Service) Unblock(ctx context.Context, t domain.SpaceType, date time.Time) (*domain.AvailabilityRecord, error) {
	const op = "service.ledger.Unblock"

	rec, err := s.mutate(ctx, t, date, func(_ context.Context, _ repository.Repos, rec *domain.AvailabilityRecord) error {
		rec.ManuallyBlocked = false
		rec.BlockReason = ""
		rec.BlockedUntil = nil
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// SetMaintenance marks a window as unavailable. Bookings already inside it are kept.
func (s *Service) SetMaintenance(
	ctx context.Context,
	t domain.SpaceType,
	date time.Time,
	window domain.SlotRange,
	reason string,
) (*domain.AvailabilityRecord, error) {
	const op = "service.ledger.SetMaintenance"

	rec, err := s.mutate(ctx, t, date, func(_ context.Context, _ repository.Repos, rec *domain.AvailabilityRecord) error {
		rec.MaintenanceStart = window.StartLabel()
		rec.MaintenanceEnd = window.EndLabel()
		rec.MaintenanceReason = reason
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("maintenance scheduled", "space_type", t, "date", rec.Date.Format(domain.DateLayout), "window", window.String())

	return rec, nil
}

func (s *Service) ClearMaintenance(ctx context.Context, t domain.SpaceType, date time.Time) (*domain.AvailabilityRecord, error) {
	const op = "service.ledger.ClearMaintenance"

	rec, err := s.mutate(ctx, t, date, func(_ context.Context, _ repository.Repos, rec *domain.AvailabilityRecord) error {
		rec.MaintenanceStart = ""
		rec.MaintenanceEnd = ""
		rec.MaintenanceReason = ""
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// LoadFunc computes unit loads inside the unit of work that will write them.
type LoadFunc func(ctx context.Context, repos repository.Repos) (map[int]int, error)

// Overwrite replaces the unit loads of a record; the reconciliation sweep uses it to repair drift.
func (s *Service) Overwrite(
	ctx context.Context,
	t domain.SpaceType,
	date time.Time,
	loads LoadFunc,
) (*domain.AvailabilityRecord, error) {
	const op = "service.ledger.Overwrite"

	rec, err := s.mutate(ctx, t, date, func(ctx context.Context, repos repository.Repos, rec *domain.AvailabilityRecord) error {
		l, err := loads(ctx, repos)
		if err != nil {
			return err
		}
		SetLoads(rec, l, s.cfg.Now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// mutate applies fn to a fresh copy of the record and writes it back through the
// version check, retrying on contention.
func (s *Service) mutate(
	ctx context.Context,
	t domain.SpaceType,
	date time.Time,
	fn func(ctx context.Context, repos repository.Repos, rec *domain.AvailabilityRecord) error,
) (*domain.AvailabilityRecord, error) {
	sp, err := s.spaces.GetSpace(ctx, t)
	if err != nil {
		return nil, err
	}

	var out *domain.AvailabilityRecord

	err = s.uow.DoRetry(ctx, s.cfg.Attempts, func(
		ctx context.Context,
		repos repository.Repos,
		after func(uow.AfterCommit),
	) error {
		rec, err := s.GetOrCreate(ctx, repos, sp, date)
		if err != nil {
			return err
		}

		expected := rec.Version
		if err := fn(ctx, repos, rec); err != nil {
			return err
		}
		Recalculate(rec, s.cfg.Now())

		if err := repos.Ledger.Update(ctx, rec, expected); err != nil {
			return err
		}

		s.afterChange(after, t, rec.Date)
		out = rec

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) afterChange(after func(uow.AfterCommit), t domain.SpaceType, date time.Time) {
	if after == nil {
		return
	}

	after(func(ctx context.Context) {
		if s.cache != nil {
			if err := s.cache.InvalidateAvailability(ctx, string(t), date); err != nil {
				slog.Warn("availability cache invalidation failed", "space_type", t, "err", err)
			}
		}
		if s.notify != nil {
			if err := s.notify.PublishAvailabilityChanged(ctx, string(t), date); err != nil {
				slog.Warn("availability publish failed", "space_type", t, "err", err)
			}
		}
	})
}
