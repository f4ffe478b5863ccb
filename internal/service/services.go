package service

import (
	"github.com/kirinyoku/spacebook/internal/repository"
	rediscache "github.com/kirinyoku/spacebook/internal/repository/redis"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
	"github.com/kirinyoku/spacebook/internal/service/pricing"
	"github.com/kirinyoku/spacebook/internal/service/reconcile"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	"github.com/kirinyoku/spacebook/internal/uow"
)

type Services struct {
	Catalog     *catalog.Service
	Ledger      *ledger.Service
	Pricing     *pricing.Calculator
	Reservation *reservation.Service
	Reconcile   *reconcile.Service
}

type Config struct {
	Catalog     catalog.Config
	Ledger      ledger.Config
	Pricing     pricing.Config
	Reservation reservation.Config
}

// Store is what the services need from a storage backend.
type Store interface {
	uow.Transactor
	Repos() repository.Repos
}

// Infra holds the optional collaborators; any of them may be nil.
type Infra struct {
	Cache   *rediscache.Cache
	Notify  ledger.Notifier
	Events  reservation.EventPublisher
	Limiter reservation.Limiter
}

func NewServices(store Store, infra Infra, cfg Config) *Services {
	repos := store.Repos()

	cat := catalog.New(repos.Spaces, infra.Cache, cfg.Catalog)
	led := ledger.New(repos, store, cat, infra.Cache, infra.Notify, cfg.Ledger)
	calc := pricing.New(cfg.Pricing)

	res := reservation.New(reservation.Deps{
		Repos:   repos,
		Tx:      store,
		Spaces:  cat,
		Ledger:  led,
		Pricing: calc,
		Events:  infra.Events,
		Limiter: infra.Limiter,
	}, cfg.Reservation)

	return &Services{
		Catalog:     cat,
		Ledger:      led,
		Pricing:     calc,
		Reservation: res,
		Reconcile:   reconcile.New(repos, led),
	}
}
