package serialport

import (
	"errors"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openLoopback opens a pty pair and a session on its slave end. Writes to the
// returned master show up as received data on the session.
func openLoopback(t *testing.T, opts ...Option) (*Registry, *Port, *ptyMaster) {
	t.Helper()

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() { ptmx.Close() })
	t.Cleanup(func() { tty.Close() })

	r := NewRegistry(withScanSource(func() ([]DeviceDescriptor, error) { return nil, nil }))
	port, err := r.Open(tty.Name(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	return r, port, &ptyMaster{ptmx: ptmx}
}

type ptyMaster struct {
	ptmx interface {
		Write([]byte) (int, error)
		Read([]byte) (int, error)
	}
}

func (m *ptyMaster) WriteString(t *testing.T, s string) {
	t.Helper()
	_, err := m.ptmx.Write([]byte(s))
	require.NoError(t, err)
}

func TestOpenAndClose(t *testing.T) {
	_, port, _ := openLoopback(t)

	assert.True(t, port.IsOpen())
	require.NoError(t, port.Close())
	assert.False(t, port.IsOpen())

	// Closing twice reports the port as closed.
	assert.ErrorIs(t, port.Close(), ErrPortClosed)
}

func TestOpenTwiceFails(t *testing.T) {
	r, port, _ := openLoopback(t)

	_, err := r.Open(port.Path())
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	// The original session is untouched.
	assert.True(t, port.IsOpen())
	status := port.LastError()
	assert.Equal(t, originOpen, status.Origin)
}

func TestOpenMissingDevice(t *testing.T) {
	r := NewRegistry(withScanSource(func() ([]DeviceDescriptor, error) { return nil, nil }))
	_, err := r.Open("/dev/ttyUSB987")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestOpenRejectsBadOption(t *testing.T) {
	r := NewRegistry(withScanSource(func() ([]DeviceDescriptor, error) { return nil, nil }))
	_, err := r.Open("/dev/ttyUSB0", WithBaudRate(12345))
	assert.ErrorIs(t, err, ErrInvalidBaudRate)
}

func TestSemiBlockingRead(t *testing.T) {
	_, port, master := openLoopback(t,
		WithTimeouts(TimeoutSemiBlocking, time.Second, 0))

	master.WriteString(t, "PING")

	buf := make([]byte, 64)
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "PING", string(buf[:n]))
}

func TestSemiBlockingReadTimesOutClean(t *testing.T) {
	_, port, _ := openLoopback(t,
		WithTimeouts(TimeoutSemiBlocking, 100*time.Millisecond, 0))

	start := time.Now()
	n, err := port.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestBlockingReadWaitsFullWindow(t *testing.T) {
	_, port, master := openLoopback(t,
		WithTimeouts(TimeoutBlocking, 300*time.Millisecond, 0))

	master.WriteString(t, "AB")

	// Blocking mode does not return early on partial data; it holds the
	// window open in case more arrives.
	start := time.Now()
	buf := make([]byte, 16)
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(buf[:n]))
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestNonBlockingReadReturnsImmediately(t *testing.T) {
	_, port, _ := openLoopback(t,
		WithTimeouts(TimeoutNonBlocking, 0, 0))

	start := time.Now()
	n, err := port.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestNonBlockingReadReturnsBufferedBytes(t *testing.T) {
	_, port, master := openLoopback(t,
		WithTimeouts(TimeoutNonBlocking, 0, 0))

	master.WriteString(t, "DATA")

	// Wait for the line discipline to absorb the bytes so they are queued
	// before the read starts.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if port.InputWaiting() >= 4 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.GreaterOrEqual(t, port.InputWaiting(), 4)

	start := time.Now()
	buf := make([]byte, 64)
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "DATA", string(buf[:n]))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestScannerReadStopsOnIdleGap(t *testing.T) {
	_, port, master := openLoopback(t,
		WithTimeouts(TimeoutScanner, 0, 0))

	master.WriteString(t, "SCAN")

	buf := make([]byte, 64)
	n, err := port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "SCAN", string(buf[:n]))
}

func TestCloseWakesBlockedRead(t *testing.T) {
	_, port, _ := openLoopback(t,
		WithTimeouts(TimeoutSemiBlocking, 0, 0)) // wait forever

	done := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 16))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, port.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked read did not wake on close")
	}
}

func TestWriteLoopback(t *testing.T) {
	_, port, master := openLoopback(t)

	n, err := port.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	m, err := master.ptmx.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:m]))
}

func TestWriteAfterClose(t *testing.T) {
	_, port, _ := openLoopback(t)
	require.NoError(t, port.Close())

	_, err := port.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrPortClosed)

	_, err = port.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrPortClosed)
}

func TestConfigureOnOpenSession(t *testing.T) {
	_, port, _ := openLoopback(t)

	require.NoError(t, port.Configure(WithBaudRate(19200), WithParity(ParityEven)))
	cfg := port.Config()
	assert.Equal(t, 19200, cfg.BaudRate)
	assert.Equal(t, ParityEven, cfg.Parity)

	// A rejected option leaves the session open with its old settings.
	assert.ErrorIs(t, port.Configure(WithBaudRate(12345)), ErrInvalidBaudRate)
	assert.True(t, port.IsOpen())
	assert.Equal(t, 19200, port.Config().BaudRate)
}

func TestConfigureClosedSession(t *testing.T) {
	_, port, _ := openLoopback(t)
	require.NoError(t, port.Close())
	assert.ErrorIs(t, port.Configure(WithBaudRate(9600)), ErrPortClosed)
}

func TestInputWaiting(t *testing.T) {
	_, port, master := openLoopback(t)

	master.WriteString(t, "1234")

	// Queue depth becomes visible once the line discipline absorbs the
	// bytes.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if port.InputWaiting() >= 4 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, port.InputWaiting(), 4)

	require.NoError(t, port.Purge())
	assert.Zero(t, port.InputWaiting())
}

func TestQueueDepthOnClosedSession(t *testing.T) {
	_, port, _ := openLoopback(t)
	require.NoError(t, port.Close())

	assert.Equal(t, -1, port.InputWaiting())
	assert.Equal(t, -1, port.OutputPending())
	assert.Equal(t, originQueue, port.LastError().Origin)
}

func TestManualPinRefusedUnderHandshake(t *testing.T) {
	_, port, _ := openLoopback(t,
		WithFlowControl(FlowControlCTS|FlowControlRTS))

	err := port.SetRTS(true)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, originSignals, port.LastError().Origin)

	// DTR is not claimed by RTS/CTS handshake; pty may not support modem
	// ioctls, so only the refusal path is asserted strictly.
	_ = port.SetDTR(true)
}

func TestLastErrorIsPerSession(t *testing.T) {
	_, port, _ := openLoopback(t)

	assert.Equal(t, Status{}, port.LastError())
	require.NoError(t, port.Close())
	assert.Equal(t, originClose, port.LastError().Origin)
	assert.Zero(t, port.LastError().Code)
}

func TestBaudConstantCoverage(t *testing.T) {
	for _, rate := range []int{50, 300, 9600, 115200, 921600, 4000000} {
		if _, err := baudConstant(rate); err != nil {
			t.Errorf("baudConstant(%d) failed: %v", rate, err)
		}
	}
	if _, err := baudConstant(123); !errors.Is(err, ErrInvalidBaudRate) {
		t.Errorf("baudConstant(123) = %v, want ErrInvalidBaudRate", err)
	}
}
