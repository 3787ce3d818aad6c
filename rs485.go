package serialport

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// serial_rs485 ioctl payload (linux/serial.h).
type rs485Settings struct {
	Flags              uint32
	DelayRtsBeforeSend uint32
	DelayRtsAfterSend  uint32
	Padding            [5]uint32
}

const (
	rs485Enabled   = 1 << 0 // SER_RS485_ENABLED
	rs485RtsOnSend = 1 << 1 // SER_RS485_RTS_ON_SEND
)

// applyRS485 places the RTS line under automatic transmit toggling with the
// configured pre/post delays. Drivers without RS-485 support reject this,
// which surfaces as a configuration rejection.
func applyRS485(fd int, cfg Config) error {
	settings := rs485Settings{
		Flags:              rs485Enabled | rs485RtsOnSend,
		DelayRtsBeforeSend: uint32(cfg.RS485DelayBefore / time.Millisecond),
		DelayRtsAfterSend:  uint32(cfg.RS485DelayAfter / time.Millisecond),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.TIOCSRS485, uintptr(unsafe.Pointer(&settings)))
	if errno != 0 {
		return fmt.Errorf("%w: rs485 mode: %w", ErrConfigRejected, errno)
	}
	return nil
}
