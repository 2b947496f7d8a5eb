package persistence

import (
	"errors"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognises duplicate keys whether or not the dialector
// translated the driver error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// translateError maps storage errors onto domain errors. what names the
// missing or duplicated thing in the message.
func translateError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NewNotFoundError("%s not found", what)
	case isUniqueViolation(err):
		return shared.NewConflictError("%s already exists", what)
	default:
		return err
	}
}
