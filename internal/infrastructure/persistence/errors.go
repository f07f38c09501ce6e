package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rentals/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that mean "this row already exists"
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// translateError maps driver errors onto domain errors. GORM's TranslateError
// covers unique violations but not exclusion constraints, so those are
// detected on the raw pgconn error.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation:
			return shared.ErrAlreadyExists
		}
	}
	return err
}
