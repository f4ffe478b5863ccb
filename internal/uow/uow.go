package uow

import (
	"context"
	"time"

	"github.com/kirinyoku/spacebook/internal/repository"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// Transactor opens a transaction and hands fn repositories bound to it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error
}

// Work is the body of a unit of work.
type Work func(ctx context.Context, repos repository.Repos, after func(AfterCommit)) error

// UoW represents a unit of work.
type UoW struct {
	tx Transactor
}

func NewUoW(tx Transactor) *UoW {
	return &UoW{tx: tx}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(ctx context.Context, fn Work) error {
	var hooks []AfterCommit

	err := u.tx.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		hooks = hooks[:0]
		return fn(ctx, repos, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

// DoRetry runs Do up to attempts times while the failure is retryable
// (stale version or serialization failure). Hooks of failed attempts are dropped.
func (u *UoW) DoRetry(ctx context.Context, attempts int, fn Work) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = u.Do(ctx, fn)
		if err == nil || !repository.IsRetryable(err) {
			return err
		}

		if i+1 < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
	}

	return err
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * 5 * time.Millisecond
	if d > 50*time.Millisecond {
		d = 50 * time.Millisecond
	}
	return d
}
