package serialport

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestTable(t *testing.T, opts ...TableOption) (*Table, string) {
	t.Helper()

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() { ptmx.Close() })
	t.Cleanup(func() { tty.Close() })

	r := NewRegistry(withScanSource(func() ([]DeviceDescriptor, error) {
		return []DeviceDescriptor{{
			Path:         tty.Name(),
			FriendlyName: "Bridge Adapter",
			Description:  "USB Serial Port",
			Location:     "1-0.1",
		}}, nil
	}))
	return NewTable(r, opts...), tty.Name()
}

func TestTableHandleLifecycle(t *testing.T) {
	table, path := newTestTable(t)

	ports, err := table.ListPorts()
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, path, ports[0].Path)

	h, err := table.Open(path)
	require.NoError(t, err)
	assert.Positive(t, h)

	port, err := table.Port(h)
	require.NoError(t, err)
	assert.True(t, port.IsOpen())

	require.NoError(t, table.Close(h))

	// The handle is dead after close; the integer is never reused.
	_, err = table.Port(h)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, table.Close(h), ErrInvalidHandle)

	h2, err := table.Open(path)
	require.NoError(t, err)
	defer table.Close(h2)
	assert.Greater(t, h2, h)
}

func TestTableInvalidHandleOperations(t *testing.T) {
	table, _ := newTestTable(t)

	_, err := table.Read(99, 16)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	_, err = table.Write(99, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, table.Configure(99), ErrInvalidHandle)
	assert.ErrorIs(t, table.ArmEvents(99, EventCTS), ErrInvalidHandle)
	assert.ErrorIs(t, table.SetRTS(99, true), ErrInvalidHandle)

	assert.Equal(t, -1, table.BytesAvailable(99))
	assert.Equal(t, -1, table.BytesAwaitingWrite(99))
	assert.Equal(t, EventTimedOut, table.WaitForEvent(99))
	assert.Zero(t, table.LastErrorCode(99))
	assert.Empty(t, table.LastErrorOrigin(99))
}

func TestTableReadWrite(t *testing.T) {
	table, _ := newTestTable(t)

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	h, err := table.Open(tty.Name(),
		WithTimeouts(TimeoutSemiBlocking, time.Second, 0))
	require.NoError(t, err)
	defer table.Close(h)

	_, err = ptmx.Write([]byte("BRIDGE"))
	require.NoError(t, err)

	data, err := table.Read(h, 64)
	require.NoError(t, err)
	assert.Equal(t, "BRIDGE", string(data))

	n, err := table.Write(h, []byte("OK"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	buf := make([]byte, 8)
	m, err := ptmx.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(buf[:m]))
}

func TestTableReadBufferGrowsMonotonically(t *testing.T) {
	table, path := newTestTable(t)

	h, err := table.Open(path, WithTimeouts(TimeoutNonBlocking, 0, 0))
	require.NoError(t, err)
	defer table.Close(h)

	small, err := table.Read(h, 16)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cap(small), 16)

	large, err := table.Read(h, 1024)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cap(large), 1024)

	// A smaller request reuses the grown buffer instead of shrinking it.
	again, err := table.Read(h, 16)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cap(again), 1024)
}

func TestTableReadBeyondBufferCap(t *testing.T) {
	table, path := newTestTable(t, WithMaxReadBuffer(64))

	h, err := table.Open(path, WithTimeouts(TimeoutNonBlocking, 0, 0))
	require.NoError(t, err)
	defer table.Close(h)

	_, err = table.Read(h, 65)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, int(unix.ENOMEM), table.LastErrorCode(h))
	assert.Equal(t, originRead, table.LastErrorOrigin(h))

	// Requests within the cap still work.
	_, err = table.Read(h, 64)
	assert.NoError(t, err)
}

func TestTableNegativeReadSize(t *testing.T) {
	table, path := newTestTable(t)

	h, err := table.Open(path, WithTimeouts(TimeoutNonBlocking, 0, 0))
	require.NoError(t, err)
	defer table.Close(h)

	_, err = table.Read(h, -1)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestTableConfigure(t *testing.T) {
	table, path := newTestTable(t)

	h, err := table.Open(path)
	require.NoError(t, err)
	defer table.Close(h)

	require.NoError(t, table.Configure(h, WithBaudRate(19200)))

	port, err := table.Port(h)
	require.NoError(t, err)
	assert.Equal(t, 19200, port.Config().BaudRate)
}
