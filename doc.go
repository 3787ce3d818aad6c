// Package serialport provides a registry-backed serial port library for
// Linux: device discovery that survives hot-plug churn, exclusive I/O
// sessions with four distinct read-timeout disciplines, typed event
// monitoring and modem pin control.
//
// # Port Registry
//
// All known devices live in a Registry keyed by device path. Refreshing the
// registry merges a fresh OS enumeration into the existing records instead of
// rebuilding them, so a port that is open keeps its record even if the
// hardware momentarily disappears from the device tree, and display metadata
// captured when a device was first seen is never clobbered by a later pass:
//
//	reg := serialport.NewRegistry()
//	ports, err := reg.Ports()
//	for _, p := range ports {
//	    fmt.Printf("%s: %s (%s) at %s\n", p.Path, p.FriendlyName, p.Description, p.Location)
//	}
//
// # Opening and Configuring
//
// Open a port with functional options. Paths the registry has never seen are
// admitted as user-specified ports:
//
//	port, err := reg.Open("/dev/ttyUSB0",
//	    serialport.WithBaudRate(115200),
//	    serialport.WithFlowControl(serialport.FlowControlCTS|serialport.FlowControlRTS),
//	    serialport.WithTimeouts(serialport.TimeoutSemiBlocking, 500*time.Millisecond, 0),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
// Reconfiguration of an open session uses the same options:
//
//	err = port.Configure(serialport.WithBaudRate(9600))
//
// # Timeout Modes
//
// Read behavior is selected by TimeoutMode:
//
//   - TimeoutNonBlocking: return immediately with whatever is buffered
//   - TimeoutSemiBlocking: wait for the first byte, then drain what arrived
//   - TimeoutBlocking: wait out the full timeout window
//   - TimeoutScanner: wait for the first byte, stop after a 100ms idle gap
//
// A zero-byte return from Read is a clean timeout, never an error.
//
// # Event Monitoring
//
// Arm a mask of events and block on WaitForEvent. Waits run in short
// increments so clearing the listener flag cancels them promptly:
//
//	port.ArmEvents(serialport.EventDataAvailable | serialport.EventCTS)
//	port.SetListening(true)
//	for port.Listening() {
//	    ev := port.WaitForEvent()
//	    if ev&serialport.EventDataAvailable != 0 {
//	        // read...
//	    }
//	}
//
// # Modem Signals
//
// Read and drive the modem control lines:
//
//	signals, _ := port.ModemSignals()
//	port.SetRTS(true)
//	port.SetDTR(false)
//	port.SetBreak()
//
// Pins claimed by hardware handshake or RS-485 toggling refuse manual
// control until the configuration releases them.
//
// # Error Reporting
//
// Failing operations return sentinel errors usable with errors.Is
// (ErrDeviceNotFound, ErrAlreadyOpen, ErrPortClosed, ErrConfigRejected, ...)
// and additionally record an advisory {errno, origin} pair retrievable with
// LastError for callers that want the raw OS code.
//
// # Handle Table
//
// The Table type maps sessions to opaque integer handles with grow-only
// per-handle read buffers, for embedders that cannot hold Go pointers across
// a foreign-function boundary.
package serialport
