package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsPermanent reports whether a postgres error will fail the same way when retried.
func IsPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "23502", "23503", "23514": // not_null, foreign_key, check
		return true
	}
	return strings.HasPrefix(pgErr.Code, "22") // data exceptions
}
