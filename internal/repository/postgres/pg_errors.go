package postgresrepo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/spacebook/internal/repository"
)

// SQLSTATE codes the store reacts to.
var sqlStates = map[string]error{
	"23505": repository.ErrConflict,      // unique_violation: booking number, (date, space_type)
	"40001": repository.ErrSerialization, // serialization_failure
	"40P01": repository.ErrSerialization, // deadlock_detected
	"55P03": repository.ErrSerialization, // lock_not_available
}

// wrapDBErr maps driver errors onto repository sentinels and prefixes op.
// The driver error stays in the chain for logging.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		if sentinel, ok := sqlStates[pge.Code]; ok {
			return fmt.Errorf("%s: %w: %s (%s)", op, sentinel, pge.Message, pge.ConstraintName)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
