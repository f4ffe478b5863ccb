package gormrepo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/spacebook/internal/repository"
	"gorm.io/gorm"
)

func translateErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrConflict
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case "23505":
			return repository.ErrConflict
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", repository.ErrSerialization, err)
		}
	}

	// modernc errors carry no code gorm can translate.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return repository.ErrConflict
	}

	return err
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, translateErr(err))
}
