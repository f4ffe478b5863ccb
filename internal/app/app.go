package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/spacebook/internal/config"
	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/postgres"
	"github.com/kirinyoku/spacebook/internal/queue"
	redisx "github.com/kirinyoku/spacebook/internal/redis"
	gormrepo "github.com/kirinyoku/spacebook/internal/repository/gorm"
	postgresrepo "github.com/kirinyoku/spacebook/internal/repository/postgres"
	rediscache "github.com/kirinyoku/spacebook/internal/repository/redis"
	"github.com/kirinyoku/spacebook/internal/service"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
	"github.com/kirinyoku/spacebook/internal/service/pricing"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	httpgin "github.com/kirinyoku/spacebook/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	services  *service.Services
	hub       *httpgin.Hub
	pubsub    *redisx.AvailabilityPubSub
	consumer  *queue.PaymentConsumer
	publisher *queue.Publisher
	closers   []func()
}

// Storage is a backend the services can run on.
type Storage interface {
	service.Store
	Migrate(ctx context.Context) error
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	// Initialize storage
	store, err := a.openStorage(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.Storage.Migrate {
		if err := store.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to migrate storage: %w", err)
		}
	}

	refunds, err := reservation.ParseRefundPolicy(cfg.Booking.RefundTiers)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("invalid refund tiers: %w", err)
	}

	a.hub = httpgin.NewHub()
	infra := service.Infra{Notify: localNotifier{hub: a.hub}}

	// Redis is optional
	var idem *rediscache.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		a.pubsub = redisx.NewAvailabilityPubSub(rdb)
		infra.Cache = rediscache.New(rdb)
		infra.Notify = a.pubsub
		infra.Limiter = rediscache.NewSlidingWindowLimiter(rdb, "bookings", cfg.Booking.RateLimit, cfg.Booking.RateWindow)
		idem = rediscache.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)
	}

	// RabbitMQ is optional
	if cfg.AMQP.URL != "" {
		a.publisher = queue.NewPublisher(cfg.AMQP.URL)
		a.closers = append(a.closers, func() { _ = a.publisher.Close() })
		infra.Events = a.publisher
	}

	now := time.Now
	a.services = service.NewServices(store, infra, service.Config{
		Ledger: ledger.Config{Now: now},
		Pricing: pricing.Config{
			GroupThreshold: cfg.Booking.GroupThreshold,
			GroupPercent:   cfg.Booking.GroupPercent,
			PromoCodes:     cfg.Booking.PromoCodes,
		},
		Reservation: reservation.Config{
			Location:       cfg.Booking.Location,
			PendingTTL:     cfg.Booking.PendingTTL,
			Refunds:        refunds,
			MaxOccurrences: cfg.Booking.MaxOccurrences,
			NumberAttempts: cfg.Booking.NumberAttempts,
			Now:            now,
		},
	})

	if cfg.AMQP.URL != "" {
		a.consumer = queue.NewPaymentConsumer(cfg.AMQP.URL, a.services.Reservation)
	}

	if err := SeedDefaults(ctx, a.services.Catalog, false); err != nil {
		a.close()
		return nil, err
	}

	// Initialize Gin router
	router := httpgin.NewRouter(a.services, idem, a.hub, httpgin.NewAuthenticator(cfg.Auth.JWTSecret), logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (Storage, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverGorm:
		st, err := gormrepo.Open(gormrepo.Config{DSN: a.cfg.Storage.GormDSN})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gorm storage: %w", err)
		}
		a.closers = append(a.closers, func() { _ = st.Close() })
		return st, nil
	default:
		pool, err := postgres.New(ctx, postgres.Config{DSN: a.cfg.Postgres.DSN(), MaxConns: a.cfg.Postgres.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return postgresrepo.NewStore(pool), nil
	}
}

// SeedDefaults stores the built-in space definitions. Unless overwrite is set it only
// does so when the catalog is empty.
func SeedDefaults(ctx context.Context, cat *catalog.Service, overwrite bool) error {
	const op = "app.SeedDefaults"

	if !overwrite {
		existing, err := cat.ListSpaces(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if len(existing) > 0 {
			return nil
		}
	}

	for _, sp := range catalog.DefaultSpaces() {
		if err := cat.UpsertSpace(ctx, &sp); err != nil {
			return fmt.Errorf("%s: %s: %w", op, sp.Type, err)
		}
	}

	slog.Info("space catalog seeded", "spaces", len(catalog.DefaultSpaces()))

	return nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		a.hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	g.Go(func() error {
		return every(gCtx, a.cfg.Workers.ExpireInterval, a.expirePending)
	})

	g.Go(func() error {
		return every(gCtx, a.cfg.Workers.ReconcileInterval, a.reconcile)
	})

	if a.consumer != nil {
		g.Go(func() error {
			return ignoreCanceled(a.consumer.Run(gCtx))
		})
	}

	if a.pubsub != nil {
		g.Go(func() error {
			return ignoreCanceled(a.pubsub.Subscribe(gCtx, a.hub.OnAvailabilityChanged))
		})
	}

	return g.Wait()
}

func (a *App) expirePending(ctx context.Context) {
	n, err := a.services.Reservation.ExpirePending(ctx)
	if err != nil {
		a.logger.Error("pending expiry failed", "error", err)
		return
	}
	if n > 0 {
		a.logger.Info("pending bookings expired", "count", n)
	}
}

func (a *App) reconcile(ctx context.Context) {
	from := domain.DateOnly(time.Now().In(a.cfg.Booking.Location))
	to := from.AddDate(0, 0, a.cfg.Workers.ReconcileDays)

	rep, err := a.services.Reconcile.Run(ctx, from, to, true)
	if err != nil {
		a.logger.Error("reconciliation failed", "error", err)
		return
	}
	if len(rep.Drifts) > 0 {
		a.logger.Warn("ledger drift repaired", "drifts", len(rep.Drifts), "records_fixed", rep.Fixed)
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// every runs fn on each tick until ctx is done. A non-positive interval disables it.
func every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return nil
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn(ctx)
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// localNotifier feeds the websocket hub directly when there is no redis to fan out through.
type localNotifier struct {
	hub *httpgin.Hub
}

func (n localNotifier) PublishAvailabilityChanged(_ context.Context, spaceType string, date time.Time) error {
	n.hub.Broadcast(redisx.AvailabilityChanged{
		Type:      "availability_changed",
		SpaceType: spaceType,
		Date:      date.Format(domain.DateLayout),
		TsUnix:    time.Now().Unix(),
	})
	return nil
}
