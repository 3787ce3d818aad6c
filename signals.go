package serialport

import (
	"golang.org/x/sys/unix"
)

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

func modemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

func setModemBit(fd int, bit int, state bool) error {
	if state {
		return unix.IoctlSetInt(fd, unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetInt(fd, unix.TIOCMBIC, bit)
}

// ModemSignals returns the current state of all modem control signals.
func (p *Port) ModemSignals() (ModemSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.fd < 0 {
		return ModemSignals{}, ErrPortClosed
	}

	status, err := modemStatus(p.fd)
	if err != nil {
		p.recordStatus(originSignals, err)
		return ModemSignals{}, err
	}
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}, nil
}

// SetRTS drives the RTS line to the given level. Refused while RTS is under
// handshake or RS-485 toggle control.
func (p *Port) SetRTS(state bool) error {
	return p.setOutputPin(unix.TIOCM_RTS, state)
}

// SetDTR drives the DTR line to the given level. Refused while DTR is under
// handshake control.
func (p *Port) SetDTR(state bool) error {
	return p.setOutputPin(unix.TIOCM_DTR, state)
}

func (p *Port) setOutputPin(bit int, state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fd < 0 {
		return ErrPortClosed
	}

	mode := p.line.dtr
	if bit == unix.TIOCM_RTS {
		mode = p.line.rts
	}
	if mode == pinHandshake || mode == pinToggle {
		p.recordStatus(originSignals, unix.EBUSY)
		return ErrInvalidConfig
	}

	if err := setModemBit(p.fd, bit, state); err != nil {
		p.recordStatus(originSignals, err)
		return err
	}
	if bit == unix.TIOCM_RTS {
		p.line.rts = pinLow
		p.cfg.RTS = state
		if state {
			p.line.rts = pinHigh
		}
	} else {
		p.line.dtr = pinLow
		p.cfg.DTR = state
		if state {
			p.line.dtr = pinHigh
		}
	}
	return nil
}

// CTS reports the current level of the CTS input line.
func (p *Port) CTS() (bool, error) { return p.inputPin(unix.TIOCM_CTS) }

// DSR reports the current level of the DSR input line.
func (p *Port) DSR() (bool, error) { return p.inputPin(unix.TIOCM_DSR) }

// DCD reports the current level of the carrier-detect input line.
func (p *Port) DCD() (bool, error) { return p.inputPin(unix.TIOCM_CAR) }

// RI reports the current level of the ring-indicator input line.
func (p *Port) RI() (bool, error) { return p.inputPin(unix.TIOCM_RI) }

func (p *Port) inputPin(bit int) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.fd < 0 {
		return false, ErrPortClosed
	}
	status, err := modemStatus(p.fd)
	if err != nil {
		p.recordStatus(originSignals, err)
		return false, err
	}
	return status&bit != 0, nil
}

// SetBreak holds the transmit line in the break condition until ClearBreak.
func (p *Port) SetBreak() error {
	return p.breakIoctl(unix.TIOCSBRK)
}

// ClearBreak releases a break condition set by SetBreak.
func (p *Port) ClearBreak() error {
	return p.breakIoctl(unix.TIOCCBRK)
}

func (p *Port) breakIoctl(req uint) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.fd < 0 {
		return ErrPortClosed
	}
	if err := unix.IoctlSetInt(p.fd, req, 0); err != nil {
		p.recordStatus(originSignals, err)
		return err
	}
	return nil
}
