package serialport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDecodeEvents(t *testing.T) {
	tests := []struct {
		name      string
		mask      EventFlag
		delta     serialCounters
		inQueued  int
		outQueued int
		modem     int
		want      EventFlag
	}{
		{
			name: "nothing happened",
			mask: EventDataAvailable | EventCTS,
			want: 0,
		},
		{
			name:     "data available when bytes are queued",
			mask:     EventDataAvailable,
			delta:    serialCounters{Rx: 4},
			inQueued: 4,
			want:     EventDataAvailable,
		},
		{
			name:     "stale receive wakeup with empty queue reports nothing",
			mask:     EventDataAvailable,
			delta:    serialCounters{Rx: 4},
			inQueued: 0,
			want:     0,
		},
		{
			name:     "data received arming also reports availability",
			mask:     EventDataReceived,
			inQueued: 1,
			want:     EventDataAvailable,
		},
		{
			name:     "unarmed data is not reported",
			mask:     EventCTS,
			inQueued: 16,
			want:     0,
		},
		{
			name:      "transmit drained",
			mask:      EventDataWritten,
			delta:     serialCounters{Tx: 10},
			outQueued: 0,
			want:      EventDataWritten,
		},
		{
			name:      "transmit still pending",
			mask:      EventDataWritten,
			delta:     serialCounters{Tx: 10},
			outQueued: 3,
			want:      0,
		},
		{
			name:  "cts transition with line asserted",
			mask:  EventCTS,
			delta: serialCounters{Cts: 1},
			modem: unix.TIOCM_CTS,
			want:  EventCTS,
		},
		{
			name:  "cts transition with line low is suppressed",
			mask:  EventCTS,
			delta: serialCounters{Cts: 1},
			modem: 0,
			want:  0,
		},
		{
			name:  "unarmed cts transition is suppressed",
			mask:  EventDSR,
			delta: serialCounters{Cts: 1},
			modem: unix.TIOCM_CTS,
			want:  0,
		},
		{
			name:  "line errors are reported regardless of mask",
			mask:  0,
			delta: serialCounters{Frame: 1, Parity: 2, Brk: 1, Overrun: 1, BufOverrun: 3},
			want:  EventFramingError | EventParityError | EventBreak | EventFirmwareOverrun | EventSoftwareOverrun,
		},
		{
			name:     "combined data and signal events",
			mask:     EventDataAvailable | EventDSR | EventRing | EventCarrierDetect,
			delta:    serialCounters{Dsr: 1, Rng: 2, Dcd: 1},
			inQueued: 8,
			modem:    unix.TIOCM_DSR | unix.TIOCM_RI | unix.TIOCM_CAR,
			want:     EventDataAvailable | EventDSR | EventRing | EventCarrierDetect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeEvents(tt.mask, tt.delta, tt.inQueued, tt.outQueued, tt.modem)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCounterDelta(t *testing.T) {
	prev := serialCounters{Rx: 100, Tx: 50, Cts: 3}
	curr := serialCounters{Rx: 110, Tx: 50, Cts: 5, Frame: 1}

	delta := curr.delta(prev)
	assert.Equal(t, int32(10), delta.Rx)
	assert.Equal(t, int32(0), delta.Tx)
	assert.Equal(t, int32(2), delta.Cts)
	assert.Equal(t, int32(1), delta.Frame)
}

func TestArmEventsRequiresOpenSession(t *testing.T) {
	_, port, _ := openLoopback(t)
	require.NoError(t, port.Close())
	assert.ErrorIs(t, port.ArmEvents(EventDataAvailable), ErrPortClosed)
}

func TestWaitForEventWithoutListening(t *testing.T) {
	_, port, _ := openLoopback(t)
	require.NoError(t, port.ArmEvents(EventCTS))

	// The listener flag is down, so the wait degenerates to a timeout.
	assert.Equal(t, EventTimedOut, port.WaitForEvent())
}

func TestWaitForEventStopsWhenListeningCleared(t *testing.T) {
	_, port, _ := openLoopback(t)
	require.NoError(t, port.ArmEvents(EventCTS))
	port.SetListening(true)

	done := make(chan EventFlag, 1)
	go func() { done <- port.WaitForEvent() }()

	time.Sleep(100 * time.Millisecond)
	port.SetListening(false)

	select {
	case ev := <-done:
		assert.Equal(t, EventTimedOut, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForEvent did not observe the cleared listener flag")
	}
}

func TestWaitForEventSeesQueuedData(t *testing.T) {
	_, port, master := openLoopback(t)
	require.NoError(t, port.ArmEvents(EventDataAvailable))
	port.SetListening(true)
	defer port.SetListening(false)

	done := make(chan EventFlag, 1)
	go func() { done <- port.WaitForEvent() }()

	time.Sleep(50 * time.Millisecond)
	master.WriteString(t, "EVENT")

	select {
	case ev := <-done:
		assert.NotZero(t, ev&EventDataAvailable)
	case <-time.After(3 * time.Second):
		t.Fatal("WaitForEvent did not report queued data")
	}
}

func TestCloseCancelsEventWait(t *testing.T) {
	_, port, _ := openLoopback(t)
	require.NoError(t, port.ArmEvents(EventDataAvailable))
	port.SetListening(true)

	done := make(chan EventFlag, 1)
	go func() { done <- port.WaitForEvent() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, port.Close())

	select {
	case ev := <-done:
		assert.Equal(t, EventTimedOut, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForEvent did not wake on close")
	}
}

func TestListenerOverrideCapsReadPolicy(t *testing.T) {
	_, port, _ := openLoopback(t,
		WithTimeouts(TimeoutSemiBlocking, 0, 0)) // would otherwise wait forever
	require.NoError(t, port.ArmEvents(EventDataReceived))
	port.SetListening(true)
	defer port.SetListening(false)

	start := time.Now()
	n, err := port.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
}
