package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lims/lims/internal/platform/apperr"
)

const uniqueViolation = "23505"

// MapError translates driver errors into typed failures: a missing row
// becomes NotFound and a unique violation becomes Conflict. what names the
// entity in the message, e.g. "specimen".
func MapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, err, what+" not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Wrap(apperr.KindConflict, err, what+" already exists")
	}
	return fmt.Errorf("%s: %w", what, err)
}
