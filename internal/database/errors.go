package database

import "errors"

// Failure kinds for the connection lifecycle. Components wrap these with
// context via fmt.Errorf("...: %w") and callers branch with errors.Is.
var (
	// ErrConfigurationMissing means no connection string was configured.
	ErrConfigurationMissing = errors.New("missing configuration")
	// ErrDependencyUnavailable means the driver for the dialect is not usable in this binary.
	ErrDependencyUnavailable = errors.New("driver unavailable")
	// ErrUnsupportedDialect means the connection string names a store we cannot talk to.
	ErrUnsupportedDialect = errors.New("unsupported dialect")
	// ErrNetworkUnreachable means DNS resolution or the TCP handshake failed.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrAuthOrProtocol means the store rejected credentials, TLS or the query itself.
	ErrAuthOrProtocol = errors.New("auth or protocol failure")
	// ErrNoRows is returned by Row.Scan when the query matched nothing.
	ErrNoRows = errors.New("no rows in result set")
)
