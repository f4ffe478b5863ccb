package gormrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirinyoku/spacebook/internal/repository"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

type Config struct {
	// DSN selects the dialect: postgres:// and postgresql:// open PostgreSQL,
	// anything else is handed to the pure-Go sqlite driver.
	DSN    string
	Silent bool
}

type Store struct {
	db *gorm.DB
}

func Open(cfg Config) (*Store, error) {
	const op = "gormrepo.Open"

	gcfg := &gorm.Config{TranslateError: true}
	if cfg.Silent {
		gcfg.Logger = logger.Default.LogMode(logger.Silent)
	} else {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	var (
		db  *gorm.DB
		err error
	)

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	} else {
		db, err = gorm.Open(gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        cfg.DSN,
		}), gcfg)
		if err == nil {
			// sqlite allows one writer; a single connection serializes transactions.
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{db: db}, nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Migrate(ctx context.Context) error {
	const op = "gormrepo.Store.Migrate"

	if err := s.db.WithContext(ctx).AutoMigrate(&spaceModel{}, &ledgerModel{}, &bookingModel{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InTx runs fn in a transaction with every repository bound to it.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, bind(tx))
	})
}

func (s *Store) Repos() repository.Repos {
	return bind(s.db)
}

func (s *Store) Spaces() *SpaceRepo     { return &SpaceRepo{db: s.db} }
func (s *Store) Ledger() *LedgerRepo    { return &LedgerRepo{db: s.db} }
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{db: s.db} }

func bind(db *gorm.DB) repository.Repos {
	return repository.Repos{
		Spaces:   &SpaceRepo{db: db},
		Ledger:   &LedgerRepo{db: db},
		Bookings: &BookingRepo{db: db},
	}
}
