// Package segment provides recording id generation and the session
// lifecycle state machine.
package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a session.
type State int

const (
	// StateIdle - Created, no recording started yet.
	StateIdle State = iota
	// StateRecording - Accepting fragments.
	StateRecording
	// StateStopped - Recording ended; a new one may start.
	StateStopped
	// StateClosed - Terminal. The session accepts nothing.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRecording:
		return "RECORDING"
	case StateStopped:
		return "STOPPED"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for CLOSED.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// Errors for invalid state transitions.
var (
	ErrSessionClosed    = errors.New("session is closed")
	ErrAlreadyRecording = errors.New("session is already recording")
	ErrNotRecording     = errors.New("session is not recording")
)

// Lifecycle manages the state machine for a single session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE ──Start()──→ RECORDING ──Stop()──→ STOPPED
//	                      ↑                    │
//	                      └──────Start()───────┘
//
//	any ──Close()──→ CLOSED
//
// Every Start increments the generation. Work started for one recording
// compares its generation with Generation() before publishing results, so
// a late result from an earlier recording is discarded.
type Lifecycle struct {
	mu          sync.RWMutex
	sessionId   string
	recordingId string
	generation  uint64
	state       State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{
		sessionId: sessionId,
		state:     StateIdle,
	}
}

func (l *Lifecycle) SessionId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionId
}

// RecordingId returns the id passed to the last successful Start.
func (l *Lifecycle) RecordingId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.recordingId
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Generation returns the number of recordings started so far.
func (l *Lifecycle) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}

// IsCurrent reports whether gen is the latest recording's generation.
func (l *Lifecycle) IsCurrent(gen uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation == gen && l.state != StateClosed
}

// IsRecording returns true if fragments are accepted.
func (l *Lifecycle) IsRecording() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRecording
}

func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Start begins a new recording and returns its generation.
func (l *Lifecycle) Start(recordingId string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateIdle, StateStopped:
		l.state = StateRecording
		l.recordingId = recordingId
		l.generation++
		return l.generation, nil
	case StateRecording:
		return 0, ErrAlreadyRecording
	case StateClosed:
		return 0, ErrSessionClosed
	default:
		return 0, fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Stop ends the current recording.
func (l *Lifecycle) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateRecording:
		l.state = StateStopped
		return nil
	case StateIdle, StateStopped:
		return ErrNotRecording
	case StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close transitions to CLOSED from any state. It returns the state it
// left, so callers can tell whether a recording was cut short.
func (l *Lifecycle) Close() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.state
	l.state = StateClosed
	return prev
}
