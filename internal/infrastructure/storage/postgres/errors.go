package postgres

import (
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
)

// PostgreSQL error codes the store reacts to.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgClassConnection      = "08"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// Classify maps driver errors onto the ledger error taxonomy.
// AppErrors and nil pass through unchanged; unknown errors are returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgSerializationFailure, pgErr.Code == pgDeadlockDetected:
			return apperror.NewConflict(pgErr.TableName, pgErr.Code).WithCause(err)
		case pgErr.Code == pgUniqueViolation:
			return apperror.NewConflict(pgErr.TableName, pgErr.ConstraintName).WithCause(err)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgClassConnection,
			pgErr.Code == pgAdminShutdown, pgErr.Code == pgCannotConnectNow:
			return apperror.NewStorageUnavailable(err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return apperror.NewStorageUnavailable(err)
	}
	return err
}
