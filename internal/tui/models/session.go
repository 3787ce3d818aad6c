package models

import (
	"context"
	"sync"

	"github.com/jackarian/serialport"
)

// InputMode is the vim-like mode of the interactive commands.
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// ConnectionStatusMsg reports the outcome of the background open.
type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}

// Session is the shared state behind the streaming TUI commands: the open
// port, connection status and the cancellation context for the reader
// goroutine.
type Session struct {
	portPath string

	mu        sync.RWMutex
	port      *serialport.Port
	connected bool
	err       error
	ready     bool
	inputMode InputMode

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(portPath string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		portPath: portPath,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Session) PortPath() string { return s.portPath }

func (s *Session) Port() *serialport.Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

func (s *Session) SetPort(port *serialport.Port) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.port = port
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Session) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Session) InputMode() InputMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputMode
}

func (s *Session) SetInputMode(mode InputMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputMode = mode
}

func (s *Session) Context() context.Context { return s.ctx }

// Cancel stops the reader goroutine without closing the port.
func (s *Session) Cancel() {
	s.cancel()
}

// Cleanup stops the reader and closes the port.
func (s *Session) Cleanup() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
}
