package serialport

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// EventFlag is a set of typed serial events decoded by WaitForEvent.
type EventFlag int

const (
	EventDataAvailable EventFlag = 1 << iota
	EventDataReceived
	EventDataWritten
	EventBreak
	EventFramingError
	EventFirmwareOverrun
	EventSoftwareOverrun
	EventParityError
	EventCTS
	EventDSR
	EventRing
	EventCarrierDetect
	EventPortDisconnected
	EventTimedOut
)

// eventTick bounds each blocking increment of WaitForEvent so the listener
// stop flag is observed at least twice a second.
const eventTick = 500 * time.Millisecond

// serial_icounter_struct ioctl payload (linux/serial.h).
type serialCounters struct {
	Cts        int32
	Dsr        int32
	Rng        int32
	Dcd        int32
	Rx         int32
	Tx         int32
	Frame      int32
	Overrun    int32
	Parity     int32
	Brk        int32
	BufOverrun int32
	Reserved   [9]int32
}

func readCounters(fd int) (serialCounters, error) {
	var c serialCounters
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.TIOCGICOUNT, uintptr(unsafe.Pointer(&c)))
	if errno != 0 {
		return serialCounters{}, errno
	}
	return c, nil
}

func (c serialCounters) delta(prev serialCounters) serialCounters {
	return serialCounters{
		Cts:        c.Cts - prev.Cts,
		Dsr:        c.Dsr - prev.Dsr,
		Rng:        c.Rng - prev.Rng,
		Dcd:        c.Dcd - prev.Dcd,
		Rx:         c.Rx - prev.Rx,
		Tx:         c.Tx - prev.Tx,
		Frame:      c.Frame - prev.Frame,
		Overrun:    c.Overrun - prev.Overrun,
		Parity:     c.Parity - prev.Parity,
		Brk:        c.Brk - prev.Brk,
		BufOverrun: c.BufOverrun - prev.BufOverrun,
	}
}

// ArmEvents selects which signal transitions WaitForEvent reports. Line
// errors are always classified; the mask only gates signal events. Arming
// resets the session's transition baseline.
func (p *Port) ArmEvents(mask EventFlag) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fd < 0 {
		return ErrPortClosed
	}
	p.eventMask = mask
	p.icount, _ = readCounters(p.fd)
	return nil
}

// EventMask returns the currently armed event mask.
func (p *Port) EventMask() EventFlag {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.eventMask
}

// SetListening flips the listener-running flag observed by WaitForEvent.
// Clearing it makes any blocked WaitForEvent return a timeout result within
// one tick. While set together with an armed EventDataReceived, read
// timeouts are overridden so readers cannot starve the notification loop.
func (p *Port) SetListening(on bool) {
	p.listening.Store(on)
}

// Listening reports whether the listener-running flag is set.
func (p *Port) Listening() bool {
	return p.listening.Load()
}

// WaitForEvent blocks until one of the armed events (or any line error)
// occurs, the listener flag is cleared, or the session closes. Waits happen
// in short increments so cancellation is observed promptly. A hard I/O
// failure during the wait reports EventPortDisconnected alongside the
// timeout classification, since such failures usually mean physical removal.
func (p *Port) WaitForEvent() EventFlag {
	p.mu.RLock()
	fd, pipeR, mask := p.fd, p.pipeR, p.eventMask
	p.mu.RUnlock()

	if fd < 0 {
		return EventTimedOut
	}

	// Poll the descriptor for readability only when data events are armed;
	// modem and error transitions are detected from counter deltas each
	// tick either way.
	watchData := mask&(EventDataAvailable|EventDataReceived) != 0

	for p.listening.Load() {
		var woken bool
		var err error
		if watchData {
			_, woken, err = pollRead(fd, pipeR, eventTick)
		} else {
			_, woken, err = pollRead(pipeR, pipeR, eventTick)
		}
		if woken {
			return EventTimedOut
		}
		if err != nil {
			p.recordStatus(originEvents, err)
			return EventTimedOut | EventPortDisconnected
		}

		ev := p.collectEvents(fd, mask)
		if ev != 0 {
			return ev
		}
	}
	return EventTimedOut
}

// collectEvents snapshots the counter deltas and queue depths and classifies
// them against the armed mask.
func (p *Port) collectEvents(fd int, mask EventFlag) EventFlag {
	var delta serialCounters
	if counters, err := readCounters(fd); err == nil {
		p.mu.Lock()
		delta = counters.delta(p.icount)
		p.icount = counters
		p.mu.Unlock()
	}

	inQueued, _ := unix.IoctlGetInt(fd, unix.TIOCINQ)
	outQueued := 0
	if mask&EventDataWritten != 0 {
		outQueued, _ = unix.IoctlGetInt(fd, unix.TIOCOUTQ)
	}
	modem, _ := modemStatus(fd)

	return decodeEvents(mask, delta, inQueued, outQueued, modem)
}

// decodeEvents turns raw transition counts and queue depths into the typed
// event set. Line errors are reported unconditionally; signal events require
// both an armed mask bit and, for level-qualified signals, the line being
// asserted at decode time. Data availability is reported only when bytes are
// actually queued, so a stale receive wakeup never produces a spurious
// data-available event.
func decodeEvents(mask EventFlag, delta serialCounters, inQueued, outQueued, modem int) EventFlag {
	var ev EventFlag

	if delta.Brk > 0 {
		ev |= EventBreak
	}
	if delta.Frame > 0 {
		ev |= EventFramingError
	}
	if delta.Overrun > 0 {
		ev |= EventFirmwareOverrun
	}
	if delta.BufOverrun > 0 {
		ev |= EventSoftwareOverrun
	}
	if delta.Parity > 0 {
		ev |= EventParityError
	}

	if mask&(EventDataAvailable|EventDataReceived) != 0 && inQueued > 0 {
		ev |= EventDataAvailable
	}
	if mask&EventDataWritten != 0 && delta.Tx > 0 && outQueued == 0 {
		ev |= EventDataWritten
	}
	if mask&EventCTS != 0 && delta.Cts > 0 && modem&unix.TIOCM_CTS != 0 {
		ev |= EventCTS
	}
	if mask&EventDSR != 0 && delta.Dsr > 0 && modem&unix.TIOCM_DSR != 0 {
		ev |= EventDSR
	}
	if mask&EventRing != 0 && delta.Rng > 0 && modem&unix.TIOCM_RI != 0 {
		ev |= EventRing
	}
	if mask&EventCarrierDetect != 0 && delta.Dcd > 0 && modem&unix.TIOCM_CAR != 0 {
		ev |= EventCarrierDetect
	}

	return ev
}
