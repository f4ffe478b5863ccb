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
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
	"github.com/kirinyoku/spacebook/internal/service/pricing"
	"github.com/kirinyoku/spacebook/internal/uow"
)

const (
	MinCapacity = 1
	MaxCapacity = 50

	minDurationHours = 0.5
	maxDurationHours = 12
)

// EventPublisher forwards booking lifecycle events to the broker.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, eventType string, b *domain.Booking) error
}

// Limiter is a per-key request limiter, e.g. the redis sliding window.
type Limiter interface {
	Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type Config struct {
	// Location is the wall clock of the center; booking dates and slots are local to it.
	Location *time.Location
	// PendingTTL is how long an unpaid booking keeps its capacity.
	PendingTTL     time.Duration
	Refunds        RefundPolicy
	MaxOccurrences int
	// NumberAttempts bounds booking number regeneration after a collision.
	NumberAttempts int
	// Attempts bounds optimistic retries of one unit of work.
	Attempts     int
	DefaultLimit int
	MaxLimit     int

	Now       func() time.Time
	NewNumber func(now time.Time) string
}

type Deps struct {
	Repos   repository.Repos
	Tx      uow.Transactor
	Spaces  ledger.SpaceSource
	Ledger  *ledger.Service
	Pricing *pricing.Calculator
	// Events and Limiter are optional.
	Events  EventPublisher
	Limiter Limiter
}

type Service struct {
	repos   repository.Repos
	uow     *uow.UoW
	spaces  ledger.SpaceSource
	ledger  *ledger.Service
	pricing *pricing.Calculator
	events  EventPublisher
	limiter Limiter
	cfg     Config
}

func New(deps Deps, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 30 * time.Minute
	}

	if len(cfg.Refunds) == 0 {
		cfg.Refunds = DefaultRefundPolicy()
	}

	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = 12
	}

	if cfg.NumberAttempts <= 0 {
		cfg.NumberAttempts = 5
	}

	if cfg.Attempts <= 0 {
		cfg.Attempts = 8
	}

	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}

	if cfg.MaxLimit <= 0 || cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = 100
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.NewNumber == nil {
		cfg.NewNumber = NewBookingNumber
	}

	pc := deps.Pricing
	if pc == nil {
		pc = pricing.New(pricing.Config{})
	}

	return &Service{
		repos:   deps.Repos,
		uow:     uow.NewUoW(deps.Tx),
		spaces:  deps.Spaces,
		ledger:  deps.Ledger,
		pricing: pc,
		events:  deps.Events,
		limiter: deps.Limiter,
		cfg:     cfg,
	}
}

// CreateRequest is a validated-at-the-edge booking request.
type CreateRequest struct {
	UserID            int64
	SpaceType         domain.SpaceType
	Date              time.Time
	StartTime         string
	EndTime           string
	Capacity          int
	Attendees         int
	Services          []string
	PromoCode         string
	Discounts         []pricing.Discount
	Contact           domain.ContactInfo
	WorkshopSessionID *string
	Notes             string
	// RateKey identifies the caller for the limiter; empty skips limiting.
	RateKey string
}

// checked is a request that passed every check that does not need the ledger.
type checked struct {
	req   CreateRequest
	space *domain.Space
	rng   domain.SlotRange
	price domain.PriceBreakdown
}

// CreateBooking validates the request, prices it and reserves capacity. The ledger
// reservation and the booking insert commit together or not at all.
//
// Returns:
//   - *domain.Booking: the new booking in status pending.
//   - error: ErrInvalidSlotRange, ErrInvalidDuration, ErrInvalidCapacity, ErrBookingInPast before
//     anything is written.
//   - error: ErrNoCapacity wrapping a *ledger.CapacityError when the ledger refuses.
//   - error: ErrPersistenceConflict if retries were exhausted.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*domain.Booking, error) {
	const op = "service.reservation.CreateBooking"

	if req.UserID <= 0 {
		return nil, fmt.Errorf("%s: %w: user id is required", op, ErrInvalidRequest)
	}

	if err := s.allow(ctx, req.RateKey); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := s.check(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	b, err := s.create(ctx, c, series{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("booking created",
		"booking_number", b.Number,
		"space_type", b.SpaceType,
		"date", b.Date.Format(domain.DateLayout),
		"slots", c.rng.String(),
		"capacity", b.CapacityRequested,
	)

	return b, nil
}

func (s *Service) check(ctx context.Context, req CreateRequest) (*checked, error) {
	rng, err := domain.ParseSlotRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSlotRange, err)
	}

	if h := rng.DurationHours(); h < minDurationHours || h > maxDurationHours {
		return nil, fmt.Errorf("%w: %.1fh is outside %.1f-%.0fh", ErrInvalidDuration, h, minDurationHours, float64(maxDurationHours))
	}

	if req.Capacity < MinCapacity || req.Capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidCapacity, req.Capacity, MinCapacity, MaxCapacity)
	}

	if req.Attendees < 0 {
		return nil, fmt.Errorf("%w: negative attendee count", ErrInvalidCapacity)
	}
	if req.Attendees == 0 {
		req.Attendees = req.Capacity
	}

	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	req.Date = domain.DateOnly(req.Date)

	sp, err := s.spaces.GetSpace(ctx, req.SpaceType)
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return nil, catalog.ErrSpaceNotFound
	}

	if req.Capacity > sp.TotalCapacity {
		return nil, fmt.Errorf("%w: %s holds at most %d", ErrInvalidCapacity, sp.Type, sp.TotalCapacity)
	}
	if req.Attendees > max(sp.TotalCapacity, req.Capacity) {
		return nil, fmt.Errorf("%w: %d attendees exceed %s capacity", ErrInvalidCapacity, req.Attendees, sp.Type)
	}

	open, err := sp.OperatingRange()
	if err != nil {
		return nil, err
	}
	if !rng.Within(open) {
		return nil, fmt.Errorf("%w: %s is outside opening hours %s", ErrInvalidSlotRange, rng, open)
	}

	if start := domain.AtSlot(req.Date, req.StartTime, s.cfg.Location); start.Before(s.cfg.Now()) {
		return nil, fmt.Errorf("%w: %s", ErrBookingInPast, start.Format(time.RFC3339))
	}

	price, err := s.pricing.Compute(pricing.Request{
		Space:     sp,
		Date:      req.Date,
		Range:     rng,
		Capacity:  req.Capacity,
		Attendees: req.Attendees,
		Services:  req.Services,
		PromoCode: req.PromoCode,
		Discounts: req.Discounts,
	})
	if err != nil {
		return nil, err
	}

	return &checked{req: req, space: sp, rng: rng, price: price}, nil
}

// series links an occurrence to its recurring parent.
type series struct {
	parentID *uuid.UUID
	pattern  *domain.RecurringPattern
	endDate  *time.Time
}

func (s *Service) create(ctx context.Context, c *checked, sr series) (*domain.Booking, error) {
	now := s.cfg.Now()
	req := c.req

	b := &domain.Booking{
		ID:                uuid.New(),
		UserID:            req.UserID,
		SpaceType:         c.space.Type,
		Date:              req.Date,
		StartTime:         c.rng.StartLabel(),
		EndTime:           c.rng.EndLabel(),
		DurationHours:     c.rng.DurationHours(),
		CapacityRequested: req.Capacity,
		AttendeeCount:     req.Attendees,
		Status:            domain.BookingPending,
		PaymentStatus:     domain.PaymentPending,
		Price:             c.price,
		Services:          req.Services,
		Contact:           req.Contact,
		WorkshopSessionID: req.WorkshopSessionID,
		ParentBookingID:   sr.parentID,
		IsRecurring:       sr.pattern != nil,
		RecurringPattern:  sr.pattern,
		RecurringEndDate:  sr.endDate,
		Notes:             req.Notes,
		CreatedAt:         now.UTC(),
	}

	for attempt := 0; attempt < s.cfg.NumberAttempts; attempt++ {
		b.Number = s.cfg.NewNumber(now.In(s.cfg.Location))

		err := s.uow.DoRetry(ctx, s.cfg.Attempts, func(
			ctx context.Context,
			repos repository.Repos,
			after func(uow.AfterCommit),
		) error {
			if _, err := s.ledger.Reserve(ctx, repos, after, c.space, b.Date, c.rng, b.CapacityRequested); err != nil {
				return err
			}

			if err := repos.Bookings.Create(ctx, b); err != nil {
				return err
			}

			after(func(ctx context.Context) {
				s.publish(ctx, domain.EventBookingCreated, b)
			})

			return nil
		})
		if err == nil {
			return b, nil
		}

		var capErr *ledger.CapacityError
		if errors.As(err, &capErr) {
			return nil, fmt.Errorf("%w: %w", ErrNoCapacity, capErr)
		}

		if errors.Is(err, repository.ErrConflict) {
			slog.Warn("booking number collision, regenerating", "booking_number", b.Number, "attempt", attempt+1)
			continue
		}

		if repository.IsRetryable(err) {
			return nil, fmt.Errorf("%w: %w", ErrPersistenceConflict, err)
		}

		return nil, err
	}

	return nil, fmt.Errorf("%w: booking number retries exhausted", ErrPersistenceConflict)
}

func (s *Service) allow(ctx context.Context, key string) error {
	if s.limiter == nil || key == "" {
		return nil
	}

	ok, _, retry, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// Fail open when redis is unavailable.
		slog.Warn("rate limiter unavailable", "err", err)
		return nil
	}
	if !ok {
		return &RateLimitedError{RetryAfter: retry}
	}

	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.events == nil {
		return
	}

	if err := s.events.PublishBookingEvent(ctx, eventType, b); err != nil {
		slog.Warn("booking event publish failed", "event", eventType, "booking_number", b.Number, "err", err)
	}
}
