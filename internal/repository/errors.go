package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"docspace/internal/domain"
)

// errNoRowsAffected маркирует UPDATE/DELETE, не нашедшие целевую строку.
var errNoRowsAffected = domain.ErrNotFound

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// wrapErr переводит ошибки драйвера в типизированные ошибки домена.
// Ошибки хранилища всегда поднимаются наверх, никогда не проглатываются.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%s: %w", op, domain.ErrStorageUnavailable)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505": // unique_violation
			return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, domain.ErrConflict)
		case pqErr.Code == "23503": // foreign_key_violation
			return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, domain.ErrNotFound)
		case pqErr.Code.Class() == "08", // connection exceptions
			pqErr.Code.Class() == "57", // operator intervention (shutdown)
			pqErr.Code == "40001",      // serialization_failure
			pqErr.Code == "40P01",      // deadlock_detected
			pqErr.Code == "55P03":      // lock_not_available
			return fmt.Errorf("%s: %s: %w", op, pqErr.Message, domain.ErrStorageUnavailable)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
