package serialport

import (
	"sync"

	"golang.org/x/sys/unix"
)

// defaultMaxReadBuffer caps the per-handle scratch buffer growth. Callers
// asking for more in a single read get ErrOutOfMemory instead of an
// unbounded allocation.
const defaultMaxReadBuffer = 16 << 20

// Table maps opaque integer handles to open sessions for embedders that
// cannot hold Go pointers across a boundary. Each handle owns a grow-only
// scratch buffer so repeated reads of similar sizes allocate once.
type Table struct {
	registry *Registry

	mu      sync.Mutex
	next    int
	entries map[int]*tableEntry
	maxRead int
}

type tableEntry struct {
	port *Port
	buf  []byte
}

// NewTable creates a handle table backed by the given registry.
func NewTable(r *Registry, opts ...TableOption) *Table {
	t := &Table{
		registry: r,
		next:     1,
		entries:  make(map[int]*tableEntry),
		maxRead:  defaultMaxReadBuffer,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TableOption adjusts handle table construction.
type TableOption func(*Table)

// WithMaxReadBuffer overrides the per-handle read buffer growth limit.
func WithMaxReadBuffer(n int) TableOption {
	return func(t *Table) { t.maxRead = n }
}

// ListPorts refreshes the registry and returns the merged port view.
func (t *Table) ListPorts() ([]PortDetails, error) {
	return t.registry.Ports()
}

// Describe returns the registry record for path without forcing a rescan
// when one has already happened.
func (t *Table) Describe(path string) (PortDetails, error) {
	return t.registry.Describe(path)
}

// Open opens path and returns an integer handle for the session. Handles are
// never reused within the lifetime of the table.
func (t *Table) Open(path string, opts ...Option) (int, error) {
	p, err := t.registry.Open(path, opts...)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	h := t.next
	t.next++
	t.entries[h] = &tableEntry{port: p}
	t.mu.Unlock()
	return h, nil
}

func (t *Table) lookup(h int) (*tableEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return e, nil
}

// Port resolves a handle to its session.
func (t *Table) Port(h int) (*Port, error) {
	e, err := t.lookup(h)
	if err != nil {
		return nil, err
	}
	return e.port, nil
}

// Configure applies options to the session behind h.
func (t *Table) Configure(h int, opts ...Option) error {
	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	return e.port.Configure(opts...)
}

// Close tears down the session behind h and invalidates the handle. The
// handle is removed even when the underlying release fails.
func (t *Table) Close(h int) error {
	t.mu.Lock()
	e, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	t.mu.Unlock()

	if !ok {
		return ErrInvalidHandle
	}
	return e.port.Close()
}

// Read returns up to max received bytes, honoring the session's timeout
// policy. The returned slice aliases the handle's scratch buffer and is valid
// until the next Read on the same handle. Requests beyond the table's buffer
// cap fail with ErrOutOfMemory.
func (t *Table) Read(h, max int) ([]byte, error) {
	e, err := t.lookup(h)
	if err != nil {
		return nil, err
	}
	if max < 0 || max > t.maxRead {
		e.port.recordStatus(originRead, unix.ENOMEM)
		return nil, ErrOutOfMemory
	}
	if cap(e.buf) < max {
		e.buf = make([]byte, max)
	}

	n, err := e.port.Read(e.buf[:max])
	if err != nil {
		return e.buf[:n], err
	}
	return e.buf[:n], nil
}

// Write transmits data on the session behind h and returns the accepted
// byte count, which may be short under flow control.
func (t *Table) Write(h int, data []byte) (int, error) {
	e, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	return e.port.Write(data)
}

// BytesAvailable returns the receive queue depth for h, or -1 when the
// handle is invalid or the query fails.
func (t *Table) BytesAvailable(h int) int {
	e, err := t.lookup(h)
	if err != nil {
		return -1
	}
	return e.port.InputWaiting()
}

// BytesAwaitingWrite returns the transmit queue depth for h, or -1 when the
// handle is invalid or the query fails.
func (t *Table) BytesAwaitingWrite(h int) int {
	e, err := t.lookup(h)
	if err != nil {
		return -1
	}
	return e.port.OutputPending()
}

// ArmEvents arms the event mask on the session behind h.
func (t *Table) ArmEvents(h int, mask EventFlag) error {
	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	return e.port.ArmEvents(mask)
}

// SetListening flips the listener flag on the session behind h.
func (t *Table) SetListening(h int, on bool) error {
	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	e.port.SetListening(on)
	return nil
}

// WaitForEvent blocks on the session behind h. An invalid handle reports a
// plain timeout, matching the behavior of a session closed mid-wait.
func (t *Table) WaitForEvent(h int) EventFlag {
	e, err := t.lookup(h)
	if err != nil {
		return EventTimedOut
	}
	return e.port.WaitForEvent()
}

// SetRTS drives the RTS line on the session behind h.
func (t *Table) SetRTS(h int, state bool) error {
	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	return e.port.SetRTS(state)
}

// SetDTR drives the DTR line on the session behind h.
func (t *Table) SetDTR(h int, state bool) error {
	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	return e.port.SetDTR(state)
}

// SetBreak asserts the break condition on the session behind h.
func (t *Table) SetBreak(h int) error {
	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	return e.port.SetBreak()
}

// ClearBreak releases the break condition on the session behind h.
func (t *Table) ClearBreak(h int) error {
	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	return e.port.ClearBreak()
}

// ModemSignals returns the signal snapshot for the session behind h.
func (t *Table) ModemSignals(h int) (ModemSignals, error) {
	e, err := t.lookup(h)
	if err != nil {
		return ModemSignals{}, err
	}
	return e.port.ModemSignals()
}

// LastErrorCode returns the OS error code of the most recent failure on the
// session behind h, or 0 for an invalid handle.
func (t *Table) LastErrorCode(h int) int {
	e, err := t.lookup(h)
	if err != nil {
		return 0
	}
	return e.port.LastError().Code
}

// LastErrorOrigin returns the operation origin of the most recent failure on
// the session behind h, or the empty string for an invalid handle.
func (t *Table) LastErrorOrigin(h int) string {
	e, err := t.lookup(h)
	if err != nil {
		return ""
	}
	return e.port.LastError().Origin
}
