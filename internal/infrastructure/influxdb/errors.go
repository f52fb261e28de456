package influxdb

import "errors"

// Sentinel errors returned by Connect and HealthCheck.
// Write errors are asynchronous; see Client.WriteErrors.
var (
	// ErrNotConnected indicates the client has been closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the server did not answer the initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates Connect was called with influxdb.enabled false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
