package store

import (
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a conditional write loses to another writer.
	ErrConflict = errors.New("store: conflict")
	// ErrTransient wraps upstream failures that may succeed on retry.
	ErrTransient = errors.New("store: transient failure")
)

// transientCodes are Postgres SQLSTATEs worth retrying.
var transientCodes = map[string]bool{
	"53300": true, // too_many_connections
	"57P03": true, // cannot_connect_now
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
