package persistence

import (
	"context"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"storefront/internal/service/order/domain"
)

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// storageError wraps a driver failure as a domain StorageError.
// Deadlocks, lock wait timeouts and expired contexts are marked transient.
func storageError(op string, err error) error {
	if err == nil || domain.IsValidationError(err) || errors.Is(err, domain.ErrStorage) {
		return err
	}
	return &domain.StorageError{Op: op, Err: errors.WithStack(err), Transient: isTransient(err)}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
	}
	return false
}
