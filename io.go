package serialport

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Read fills buf with received bytes according to the active timeout policy
// and returns the number of bytes transferred. A zero count is a clean
// timeout, not an error; Read fails only when the OS reports a real I/O
// error or the session is closed mid-wait.
func (p *Port) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	fd, pipeR, policy, ok := p.readContext()
	if !ok {
		return 0, ErrPortClosed
	}

	var totalDeadline time.Time
	if policy.total >= 0 {
		totalDeadline = time.Now().Add(policy.total)
	}

	n := 0
	wait := policy.first
	for attempt := 0; ; attempt++ {
		if policy.total >= 0 {
			remaining := time.Until(totalDeadline)
			if remaining <= 0 {
				// An expired window still gets one zero-wait drain pass,
				// so a zero total timeout returns already-buffered bytes
				// instead of nothing.
				if attempt > 0 {
					return n, nil
				}
				remaining = 0
			}
			if wait < 0 || wait > remaining {
				wait = remaining
			}
		}

		readable, woken, err := pollRead(fd, pipeR, wait)
		if err != nil {
			p.recordStatus(originRead, err)
			return n, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		if woken {
			return n, ErrPortClosed
		}
		if !readable {
			// Timeout. Under Blocking mode keep waiting out the total
			// window; every other mode returns what it has.
			if policy.total >= 0 && n > 0 {
				wait = -1
				continue
			}
			return n, nil
		}

		m, err := unix.Read(fd, buf[n:])
		switch {
		case err == nil:
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EBADF):
			return n, ErrPortClosed
		default:
			p.recordStatus(originRead, err)
			return n, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		n += m
		if n == len(buf) {
			return n, nil
		}

		// First byte seen: switch to the post-data wait for this mode.
		switch {
		case policy.total >= 0:
			wait = -1 // bounded by the total deadline above
		default:
			wait = policy.inter
		}
	}
}

func (p *Port) readContext() (fd, pipeR int, policy readPolicy, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.fd < 0 {
		return 0, 0, readPolicy{}, false
	}
	listening := p.listening.Load() && p.eventMask&EventDataReceived != 0
	return p.fd, p.pipeR, p.cfg.readPolicyFor(listening), true
}

// pollRead waits until the device is readable, the session's wake pipe fires
// (close in progress), or the wait expires. A negative wait blocks
// indefinitely.
func pollRead(fd, pipeR int, wait time.Duration) (readable, woken bool, err error) {
	for {
		pfds := []unix.PollFd{
			{Fd: int32(fd), Events: unix.POLLIN},
			{Fd: int32(pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfds, pollTimeout(wait))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return false, false, err
		}
		if pfds[1].Revents != 0 {
			return false, true, nil
		}
		if n == 0 {
			return false, false, nil
		}
		if pfds[0].Revents&unix.POLLIN != 0 {
			return true, false, nil
		}
		if pfds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return false, false, unix.EIO
		}
	}
}

func pollTimeout(wait time.Duration) int {
	if wait < 0 {
		return -1
	}
	ms := int(wait / time.Millisecond)
	if wait > 0 && ms == 0 {
		ms = 1
	}
	return ms
}

// Write transmits data and returns the number of bytes accepted by the
// device. Writes blocked by flow control return their partial count once the
// configured write timeout expires; retrying is the caller's responsibility.
func (p *Port) Write(data []byte) (int, error) {
	fd, pipeR, ok := p.ioFds()
	if !ok {
		return 0, ErrPortClosed
	}

	writeTimeout := p.Config().WriteTimeout
	var deadline time.Time
	if writeTimeout > 0 {
		deadline = time.Now().Add(writeTimeout)
	}

	n := 0
	for n < len(data) {
		m, err := unix.Write(fd, data[n:])
		if m > 0 {
			n += m
			continue
		}
		switch {
		case err == nil:
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EBADF):
			return n, ErrPortClosed
		default:
			p.recordStatus(originWrite, err)
			return n, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}

		wait := time.Duration(-1)
		if writeTimeout > 0 {
			wait = time.Until(deadline)
			if wait <= 0 {
				return n, nil
			}
		}
		writable, woken, err := pollWrite(fd, pipeR, wait)
		if err != nil {
			p.recordStatus(originWrite, err)
			return n, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		if woken {
			return n, ErrPortClosed
		}
		if !writable {
			return n, nil
		}
	}
	return n, nil
}

func pollWrite(fd, pipeR int, wait time.Duration) (writable, woken bool, err error) {
	for {
		pfds := []unix.PollFd{
			{Fd: int32(fd), Events: unix.POLLOUT},
			{Fd: int32(pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfds, pollTimeout(wait))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return false, false, err
		}
		if pfds[1].Revents != 0 {
			return false, true, nil
		}
		if n == 0 {
			return false, false, nil
		}
		if pfds[0].Revents&unix.POLLOUT != 0 {
			return true, false, nil
		}
		if pfds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return false, false, unix.EIO
		}
	}
}

// InputWaiting returns the number of received bytes queued by the OS, or -1
// if the query fails (with the failure recorded on the session).
func (p *Port) InputWaiting() int {
	return p.queueDepth(unix.TIOCINQ)
}

// OutputPending returns the number of bytes still awaiting transmission, or
// -1 if the query fails (with the failure recorded on the session).
func (p *Port) OutputPending() int {
	return p.queueDepth(unix.TIOCOUTQ)
}

func (p *Port) queueDepth(req uint) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.fd < 0 {
		p.recordStatus(originQueue, unix.EBADF)
		return -1
	}
	n, err := unix.IoctlGetInt(p.fd, req)
	if err != nil {
		p.recordStatus(originQueue, err)
		return -1
	}
	return n
}

// Purge discards both device queues and any in-flight bytes. Useful right
// after open to drop boot-time line noise.
func (p *Port) Purge() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.fd < 0 {
		return ErrPortClosed
	}
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		p.recordStatus(originQueue, err)
		return err
	}
	return nil
}
