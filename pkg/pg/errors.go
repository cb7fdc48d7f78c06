package pg

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("pg: failed to open connection")
	ErrEmptyConnectionString    = errors.New("pg: empty connection string, set PG_CONN_URL")
	ErrHealthcheckFailed        = errors.New("pg: healthcheck failed")
	ErrFailedToParseDBConfig    = errors.New("pg: failed to parse config")
	ErrFailedToApplyMigrations  = errors.New("pg: failed to apply migrations")
	ErrMigrationsNotProvided    = errors.New("pg: migrations filesystem not provided")
)

// IsNotFoundError reports whether err is pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsCheckViolationError reports a CHECK constraint violation (SQLSTATE 23514),
// such as a negative daily counter.
func IsCheckViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// IsUnavailableError reports errors that mean the database could not be
// reached, as opposed to a query the database rejected.
func IsUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
