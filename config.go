package serialport

import "time"

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// StopBits represents the number of stop bits
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

// FlowControl is a bitmask of handshake modes. Hardware handshake modes take
// an RTS/DTR line under driver control; enabling one silently supersedes a
// manually requested level for that signal.
type FlowControl int

const (
	FlowControlNone    FlowControl = 0
	FlowControlCTS     FlowControl = 1 << iota // output gated on CTS
	FlowControlRTS                             // RTS driven by receive buffer state
	FlowControlDSR                             // output gated on DSR
	FlowControlDTR                             // DTR driven by receive buffer state
	FlowControlXonXoffIn
	FlowControlXonXoffOut
)

// TimeoutMode selects how Read waits for data (see Config.ReadTimeout).
type TimeoutMode int

const (
	// TimeoutNonBlocking returns immediately with whatever is buffered.
	TimeoutNonBlocking TimeoutMode = iota
	// TimeoutSemiBlocking waits up to ReadTimeout for the first byte
	// (indefinitely if zero), then drains what is available.
	TimeoutSemiBlocking
	// TimeoutBlocking waits the full ReadTimeout, returning whatever
	// arrived by then. A zero-byte return is not an error.
	TimeoutBlocking
	// TimeoutScanner waits indefinitely for the first byte, then keeps
	// consuming until the line goes idle for scannerQuiescence.
	TimeoutScanner
)

// scannerQuiescence is the inter-byte idle gap that ends a Scanner-mode read.
const scannerQuiescence = 100 * time.Millisecond

// listenerReadTimeout caps reads while data-received event delivery is armed,
// so a reader can never starve the notification loop.
const listenerReadTimeout = time.Second

// Config holds the line, flow-control and timeout configuration of a port
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    StopBits
	Parity      Parity
	FlowControl FlowControl

	// Manually requested output pin levels, applied only when the signal
	// is not claimed by a handshake mode or RS-485 toggling.
	RTS bool
	DTR bool

	// RS-485 transceiver control. When enabled the RTS line toggles
	// automatically around transmission and cannot be driven manually.
	RS485            bool
	RS485DelayBefore time.Duration
	RS485DelayAfter  time.Duration

	XonChar  byte
	XoffChar byte

	TimeoutMode  TimeoutMode
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AutoFlush discards both device queues right after open, dropping any
	// boot-time line noise.
	AutoFlush bool
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults (9600 8N1,
// no flow control, semi-blocking reads).
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		DataBits:    8,
		StopBits:    StopBitsOne,
		Parity:      ParityNone,
		FlowControl: FlowControlNone,
		DTR:         true,
		RTS:         true,
		XonChar:     0x11,
		XoffChar:    0x13,
		TimeoutMode: TimeoutSemiBlocking,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := baudConstant(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits
func WithStopBits(bits StopBits) Option {
	return func(c *Config) error {
		if bits < StopBitsOne || bits > StopBitsTwo {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		c.FlowControl = fc
		return nil
	}
}

// WithRTS requests a manual RTS level. Ignored while RTS is claimed by
// handshake flow control or RS-485 toggling.
func WithRTS(state bool) Option {
	return func(c *Config) error {
		c.RTS = state
		return nil
	}
}

// WithDTR requests a manual DTR level. Ignored while DTR is claimed by
// handshake flow control.
func WithDTR(state bool) Option {
	return func(c *Config) error {
		c.DTR = state
		return nil
	}
}

// WithRS485 enables RS-485 transceiver control with the given pre/post
// transmit delays.
func WithRS485(delayBefore, delayAfter time.Duration) Option {
	return func(c *Config) error {
		if delayBefore < 0 || delayAfter < 0 {
			return ErrInvalidConfig
		}
		c.RS485 = true
		c.RS485DelayBefore = delayBefore
		c.RS485DelayAfter = delayAfter
		return nil
	}
}

// WithXonXoffChars overrides the XON/XOFF control characters used by
// software flow control.
func WithXonXoffChars(xon, xoff byte) Option {
	return func(c *Config) error {
		c.XonChar = xon
		c.XoffChar = xoff
		return nil
	}
}

// WithTimeouts sets the timeout mode and the read/write timeouts
func WithTimeouts(mode TimeoutMode, read, write time.Duration) Option {
	return func(c *Config) error {
		if mode < TimeoutNonBlocking || mode > TimeoutScanner {
			return ErrInvalidConfig
		}
		if read < 0 || write < 0 {
			return ErrInvalidConfig
		}
		c.TimeoutMode = mode
		c.ReadTimeout = read
		c.WriteTimeout = write
		return nil
	}
}

// WithAutoFlush discards any queued bytes right after the port opens
func WithAutoFlush() Option {
	return func(c *Config) error {
		c.AutoFlush = true
		return nil
	}
}

// pinMode describes who drives an output pin after configuration.
type pinMode int

const (
	pinLow       pinMode = iota // manually held low
	pinHigh                     // manually held high
	pinHandshake                // level driven by the OS handshake logic
	pinToggle                   // RS-485 automatic transmit toggling
)

// lineControl is the resolved flow-control plan for a configuration.
// Handshake modes supersede manual pin requests, and RS-485 toggling
// supersedes both for RTS.
type lineControl struct {
	rts        pinMode
	dtr        pinMode
	ctsFlow    bool
	dsrFlow    bool
	xonXoffIn  bool
	xonXoffOut bool
}

// deriveLineControl resolves the requested flow control and manual pin levels
// into a single, conflict-free plan.
func deriveLineControl(c Config) lineControl {
	lc := lineControl{
		ctsFlow:    c.FlowControl&(FlowControlCTS|FlowControlRTS) != 0,
		dsrFlow:    c.FlowControl&(FlowControlDSR|FlowControlDTR) != 0,
		xonXoffIn:  c.FlowControl&FlowControlXonXoffIn != 0,
		xonXoffOut: c.FlowControl&FlowControlXonXoffOut != 0,
	}

	switch {
	case c.RS485:
		lc.rts = pinToggle
	case c.FlowControl&FlowControlRTS != 0:
		lc.rts = pinHandshake
	case c.RTS:
		lc.rts = pinHigh
	default:
		lc.rts = pinLow
	}

	switch {
	case c.FlowControl&FlowControlDTR != 0:
		lc.dtr = pinHandshake
	case c.DTR:
		lc.dtr = pinHigh
	default:
		lc.dtr = pinLow
	}

	return lc
}

// readPolicy is the poll-level translation of a timeout mode: how long to
// wait for the first byte, how long an idle gap may last once data has
// started flowing, and an overall deadline. A negative duration means
// "unbounded".
type readPolicy struct {
	first time.Duration
	inter time.Duration
	total time.Duration
}

// readPolicyFor translates the configured timeout mode into poll deadlines.
// While data-received event delivery is armed the configured mode is
// overridden with a fixed one-second total timeout.
func (c Config) readPolicyFor(listening bool) readPolicy {
	if listening {
		return readPolicy{first: -1, inter: 0, total: listenerReadTimeout}
	}
	switch c.TimeoutMode {
	case TimeoutScanner:
		return readPolicy{first: -1, inter: scannerQuiescence, total: -1}
	case TimeoutSemiBlocking:
		first := c.ReadTimeout
		if first == 0 {
			first = -1
		}
		return readPolicy{first: first, inter: 0, total: -1}
	case TimeoutBlocking:
		return readPolicy{first: c.ReadTimeout, inter: 0, total: c.ReadTimeout}
	default: // TimeoutNonBlocking
		return readPolicy{first: 0, inter: 0, total: 0}
	}
}
