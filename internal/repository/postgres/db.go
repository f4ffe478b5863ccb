package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/spacebook/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn in a serializable transaction with every repository bound to it.
// Serialization failures surface as repository.ErrSerialization for the unit of work to retry.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	const op = "postgresrepo.Store.InTx"

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return wrapDBErr(op, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, s.bind(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op+" commit", err)
	}

	return nil
}

// Repos returns repositories that run each statement on the pool.
func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Spaces:   s.Spaces(),
		Ledger:   s.Ledger(),
		Bookings: s.Bookings(),
	}
}

func (s *Store) bind(tx DB) repository.Repos {
	return repository.Repos{
		Spaces:   s.Spaces().With(tx),
		Ledger:   s.Ledger().With(tx),
		Bookings: s.Bookings().With(tx),
	}
}

func (s *Store) Spaces() *SpaceRepo     { return &SpaceRepo{pool: s.pool} }
func (s *Store) Ledger() *LedgerRepo    { return &LedgerRepo{pool: s.pool} }
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{pool: s.pool} }
