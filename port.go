package serialport

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Port is one registry record: the identity of a serial endpoint plus, while
// open, the live session bound to it (file descriptor, configuration, armed
// event mask). A Port is created by discovery or by opening an unknown path
// directly; it persists in its Registry until a merge pass finds it gone and
// it is not open.
//
// At most three goroutines may use an open session concurrently: one reader,
// one writer and one event monitor. Open, Configure and Close serialize
// against each other and against in-flight I/O via the session lock; blocking
// waits never hold it.
type Port struct {
	registry *Registry
	path     string

	// Display metadata, owned by the registry and authoritative at first
	// sight. Only location is updated by later merge passes.
	friendlyName string
	description  string
	location     string
	serialNumber string
	enumerated   bool // transient merge-pass mark

	mu        sync.RWMutex
	fd        int
	pipeR     int // close wakeup pipe, read end
	pipeW     int
	cfg       Config
	line      lineControl
	eventMask EventFlag
	icount    serialCounters

	listening atomic.Bool

	statusMu sync.Mutex
	status   Status
}

func newRecord(r *Registry, d DeviceDescriptor) *Port {
	return &Port{
		registry:     r,
		path:         d.Path,
		friendlyName: d.FriendlyName,
		description:  d.Description,
		location:     d.Location,
		serialNumber: d.SerialNumber,
		enumerated:   true,
		fd:           -1,
		cfg:          DefaultConfig(),
	}
}

// Path returns the device path identifying this port.
func (p *Port) Path() string { return p.path }

// Config returns the active configuration of the session.
func (p *Port) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// IsOpen reports whether the port currently owns an OS handle.
func (p *Port) IsOpen() bool { return p.isOpen() }

func (p *Port) isOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fd >= 0
}

func (p *Port) details() PortDetails {
	return PortDetails{
		Path:         p.path,
		FriendlyName: p.friendlyName,
		Description:  p.description,
		Location:     p.location,
	}
}

// LastError returns the advisory status of the most recent failing operation
// on this session. The value is last-write-wins across the reader, writer
// and event-monitor roles.
func (p *Port) LastError() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

func (p *Port) recordStatus(origin string, err error) {
	p.statusMu.Lock()
	p.status = Status{Code: errnoOf(err), Origin: origin}
	p.statusMu.Unlock()
}

// Open opens the device at path into an exclusive I/O session. Unknown paths
// are admitted as user-specified ports with placeholder metadata. Opening an
// already-open path fails with ErrAlreadyOpen and leaves the existing session
// untouched. A configuration failure during open releases the handle again.
func (r *Registry) Open(path string, opts ...Option) (*Port, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	p, ok := r.ports[path]
	if !ok {
		p = newRecord(r, DeviceDescriptor{
			Path:         path,
			FriendlyName: "User-Specified Port",
			Description:  "User-Specified Port",
			Location:     "0-0.0",
		})
		r.ports[path] = p
	}
	r.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fd >= 0 {
		p.recordStatus(originOpen, unix.EBUSY)
		return nil, ErrAlreadyOpen
	}

	// Best effort; only improves USB adapter latency.
	reduceLatency(path)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		p.recordStatus(originOpen, err)
		return nil, fmt.Errorf("failed to open %s: %w", path, openError(err))
	}

	// Exclusive access; failure is tolerated on devices without TIOCEXCL.
	unix.IoctlSetInt(fd, unix.TIOCEXCL, 0)

	var pipeFds [2]int
	if err := unix.Pipe(pipeFds[:]); err != nil {
		unix.Close(fd)
		p.recordStatus(originOpen, err)
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	p.fd = fd
	p.pipeR = pipeFds[0]
	p.pipeW = pipeFds[1]

	if err := p.applyConfigLocked(cfg); err != nil {
		// Open-time policy: a session that cannot be configured is not
		// handed to the caller.
		p.teardownLocked()
		return nil, err
	}

	if cfg.AutoFlush {
		unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH)
	}
	p.icount, _ = readCounters(p.fd)

	return p, nil
}

// Configure applies a new line, flow-control or timeout configuration to an
// open session. On failure the session stays open with its previous device
// state; closing it is the caller's decision.
func (p *Port) Configure(opts ...Option) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fd < 0 {
		p.recordStatus(originConfigure, unix.EBADF)
		return ErrPortClosed
	}

	cfg := p.cfg
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return err
		}
	}
	return p.applyConfigLocked(cfg)
}

func (p *Port) applyConfigLocked(cfg Config) error {
	lc := deriveLineControl(cfg)
	if err := applyTermios(p.fd, cfg, lc); err != nil {
		p.recordStatus(originConfigure, err)
		return err
	}
	if cfg.RS485 {
		if err := applyRS485(p.fd, cfg); err != nil {
			p.recordStatus(originConfigure, err)
			return err
		}
	}
	// Manual pin levels apply only when the signal is not under handshake
	// or RS-485 toggle control.
	if lc.rts == pinHigh || lc.rts == pinLow {
		setModemBit(p.fd, unix.TIOCM_RTS, lc.rts == pinHigh)
	}
	if lc.dtr == pinHigh || lc.dtr == pinLow {
		setModemBit(p.fd, unix.TIOCM_DTR, lc.dtr == pinHigh)
	}

	p.cfg = cfg
	p.line = lc
	return nil
}

// Close tears the session down: wakes any blocked read, discards unread and
// unsent bytes, disarms event monitoring and releases the handle. The release
// outcome is always recorded, but the session is considered closed either
// way; close is not retryable.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fd < 0 {
		return ErrPortClosed
	}

	p.listening.Store(false)
	p.eventMask = 0

	// Wake pollers before invalidating the descriptor so in-flight reads
	// return promptly instead of blocking out their full timeout.
	unix.Write(p.pipeW, []byte{0})
	unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH)

	err := p.teardownLocked()
	if err != nil {
		p.recordStatus(originClose, err)
		return fmt.Errorf("failed to close %s: %w", p.path, err)
	}
	p.recordStatus(originClose, nil)
	return nil
}

func (p *Port) teardownLocked() error {
	err := unix.Close(p.fd)
	unix.Close(p.pipeR)
	unix.Close(p.pipeW)
	p.fd = -1
	p.pipeR = 0
	p.pipeW = 0
	return err
}

// ioFds snapshots the descriptors needed by a blocking operation without
// holding the session lock across the wait.
func (p *Port) ioFds() (fd, pipeR int, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fd, p.pipeR, p.fd >= 0
}

// applyTermios programs the device line discipline for raw binary I/O with
// the requested framing and flow control.
func applyTermios(fd int, cfg Config, lc lineControl) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigRejected, err)
	}

	baud, err := baudConstant(cfg.BaudRate)
	if err != nil {
		return err
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	switch cfg.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	// The line driver has no 1.5-stop-bit framing; two stop bits is the
	// closest conforming setting.
	if cfg.StopBits != StopBitsOne {
		termios.Cflag |= unix.CSTOPB
	}

	switch cfg.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
		termios.Iflag |= unix.INPCK
	case ParityEven:
		termios.Cflag |= unix.PARENB
		termios.Iflag |= unix.INPCK
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.CMSPAR | unix.PARODD
		termios.Iflag |= unix.INPCK
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
		termios.Iflag |= unix.INPCK
	}

	if lc.ctsFlow {
		termios.Cflag |= unix.CRTSCTS
	}
	if lc.dsrFlow {
		// No direct DSR handshake control; treat the line as modem
		// controlled so a dropped DSR surfaces as carrier loss.
		termios.Cflag &^= unix.CLOCAL
	}
	if lc.xonXoffIn {
		termios.Iflag |= unix.IXOFF
	}
	if lc.xonXoffOut {
		termios.Iflag |= unix.IXON
	}
	termios.Cc[unix.VSTART] = cfg.XonChar
	termios.Cc[unix.VSTOP] = cfg.XoffChar

	// Reads are driven by poll deadlines, never by the line discipline.
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigRejected, err)
	}
	return nil
}

func openError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %w", ErrAlreadyOpen, err)
	default:
		return err
	}
}

func errnoOf(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

// baudConstant converts an integer baud rate to the termios constant
func baudConstant(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}
