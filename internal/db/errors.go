package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrWriteConflict reports that a concurrent writer won the race for the
// same room and interval. Callers may retry the whole allocation.
var ErrWriteConflict = errors.New("reservation write conflict")

var ErrNotFound = errors.New("record not found")

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgExclusionViolation   = "23P01"
)

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isWriteConflict(err) {
		return errors.Join(ErrWriteConflict, err)
	}
	return err
}

func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgExclusionViolation:
			return true
		}
		return false
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "reservation overlap") ||
		strings.Contains(message, "database is locked") ||
		strings.Contains(message, "sqlite_busy")
}
