package catalog

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
)

type Config struct {
	SpaceTTL time.Duration
}

type Service struct {
	repo  repository.SpaceRepo
	cache *rediscache.Cache
	cfg   Config
}

// New builds the catalog. cache may be nil, reads then go straight to the repository.
func New(repo repository.SpaceRepo, cache *rediscache.Cache, cfg Config) *Service {
	if cfg.SpaceTTL <= 0 {
		cfg.SpaceTTL = 5 * time.Minute
	}

	return &Service{
		repo:  repo,
		cache: cache,
		cfg:   cfg,
	}
}

// GetSpace retrieves a space definition by type, reading through the cache.
//
// Returns:
//   - *domain.Space: the space.
//   - error: catalog.ErrSpaceNotFound if the type is unknown or was never seeded.
func (s *Service) GetSpace(ctx context.Context, t domain.SpaceType) (*domain.Space, error) {
	const op = "service.catalog.GetSpace"

	if !t.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrSpaceNotFound)
	}

	load := func(ctx context.Context) (domain.Space, error) {
		sp, err := s.repo.Get(ctx, t)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Space{}, ErrSpaceNotFound
			}
			return domain.Space{}, err
		}
		return *sp, nil
	}

	var (
		sp  domain.Space
		err error
	)
	if s.cache != nil {
		sp, err = rediscache.GetOrSetJSON(ctx, s.cache, redisx.KeySpace(string(t)), s.cfg.SpaceTTL, load)
	} else {
		sp, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &sp, nil
}

func (s *Service) ListSpaces(ctx context.Context) ([]domain.Space, error) {
	const op = "service.catalog.ListSpaces"

	load := func(ctx context.Context) ([]domain.Space, error) {
		return s.repo.List(ctx)
	}

	var (
		spaces []domain.Space
		err    error
	)
	if s.cache != nil {
		spaces, err = rediscache.GetOrSetJSON(ctx, s.cache, redisx.KeySpaces(), s.cfg.SpaceTTL, load)
	} else {
		spaces, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return spaces, nil
}

// UpsertSpace validates and stores a space definition.
func (s *Service) UpsertSpace(ctx context.Context, sp *domain.Space) error {
	const op = "service.catalog.UpsertSpace"

	if err := Validate(sp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.Upsert(ctx, sp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSpace(ctx, string(sp.Type)); err != nil {
			slog.Warn("space cache invalidation failed", "space_type", sp.Type, "err", err)
		}
	}

	return nil
}

// Validate checks a space definition before it is stored.
func Validate(sp *domain.Space) error {
	switch {
	case sp == nil:
		return fmt.Errorf("%w: nil space", ErrInvalidSpace)
	case !sp.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSpace, sp.Type)
	case sp.TotalCapacity <= 0:
		return fmt.Errorf("%w: total capacity must be positive", ErrInvalidSpace)
	case sp.BaseHourlyRate < 0 || sp.PeakHourlyRate < 0:
		return fmt.Errorf("%w: negative rate", ErrInvalidSpace)
	}

	if _, err := sp.OperatingRange(); err != nil {
		return fmt.Errorf("%w: operating hours: %w", ErrInvalidSpace, err)
	}

	for _, w := range sp.PeakWindows {
		if _, err := domain.ParseSlotRange(w.Start, w.End); err != nil {
			return fmt.Errorf("%w: peak window %s-%s: %w", ErrInvalidSpace, w.Start, w.End, err)
		}
	}

	for _, svc := range sp.Services {
		if svc.Code == "" || svc.UnitPrice < 0 {
			return fmt.Errorf("%w: service %q", ErrInvalidSpace, svc.Code)
		}
	}

	return nil
}
