package serialport

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrAlreadyOpen      = errors.New("serial port is already open")
	ErrPortClosed       = errors.New("serial port is closed")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrConfigRejected   = errors.New("serial configuration rejected by device")
	ErrIOTimeout        = errors.New("serial I/O operation timed out")
	ErrIOFailure        = errors.New("serial I/O failure")
	ErrOutOfMemory      = errors.New("read buffer growth failed")

	// Bridge-layer errors
	ErrInvalidHandle = errors.New("invalid session handle")
)

// Status is the advisory {code, origin} pair recorded by every failing
// operation. Code is the raw errno reported by the OS (0 when the failure
// was not errno-backed) and Origin names the operation that recorded it.
// The pair is last-write-wins across the reader, writer and event-monitor
// roles of a session; only the most recent failure is retained.
type Status struct {
	Code   int
	Origin string
}

// Origin tokens recorded in Status.
const (
	originDiscovery = "discovery"
	originOpen      = "open"
	originConfigure = "configure"
	originRead      = "read"
	originWrite     = "write"
	originQueue     = "queue"
	originEvents    = "events"
	originSignals   = "signals"
	originClose     = "close"
)
