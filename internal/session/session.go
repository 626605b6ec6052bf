// Package session tracks the authenticated user's work session. The session
// survives restarts: elapsed time is derived from the persisted start
// timestamp, never from an in-memory counter.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/localstate"
)

var (
	ErrAlreadyActive = errors.New("a work session is already active")
	ErrNotActive     = errors.New("no active work session")
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Manager owns the active session and its durable snapshot.
type Manager struct {
	state *localstate.Store
	clock Clock

	mu      sync.Mutex
	current *entity.Session
}

// NewManager restores any persisted session so a restart mid-shift resumes
// where the user left off.
func NewManager(ctx context.Context, state *localstate.Store, clock Clock) (*Manager, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	m := &Manager{state: state, clock: clock}

	var persisted entity.Session
	err := state.GetJSON(ctx, localstate.KeySession, &persisted)
	switch {
	case errors.Is(err, localstate.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to restore session: %w", err)
	case persisted.IsActive:
		m.current = &persisted
	}
	return m, nil
}

// Start begins a new work session.
func (m *Manager) Start(ctx context.Context) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.IsActive {
		return nil, ErrAlreadyActive
	}

	s := &entity.Session{
		IsActive:  true,
		StartTime: m.clock.Now(),
	}
	if err := m.state.PutJSON(ctx, localstate.KeySession, s); err != nil {
		return nil, err
	}
	m.current = s
	return m.snapshotLocked(), nil
}

// AddBreak records break minutes against the active session.
func (m *Manager) AddBreak(ctx context.Context, minutes int) (*entity.Session, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("break minutes must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.IsActive {
		return nil, ErrNotActive
	}

	m.current.BreakMinutes += minutes
	if err := m.state.PutJSON(ctx, localstate.KeySession, m.current); err != nil {
		return nil, err
	}
	return m.snapshotLocked(), nil
}

// Elapsed is the worked minutes so far: wall time since start minus breaks,
// clamped at zero.
func (m *Manager) Elapsed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.IsActive {
		return 0
	}
	return m.elapsedLocked()
}

func (m *Manager) elapsedLocked() int {
	worked := int(m.clock.Now().Sub(m.current.StartTime).Minutes()) - m.current.BreakMinutes
	if worked < 0 {
		worked = 0
	}
	return worked
}

// Complete ends the active session, freezing its total.
func (m *Manager) Complete(ctx context.Context) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.IsActive {
		return nil, ErrNotActive
	}

	m.current.TotalMinutes = m.elapsedLocked()
	m.current.IsActive = false
	if err := m.state.PutJSON(ctx, localstate.KeySession, m.current); err != nil {
		return nil, err
	}
	done := m.snapshotLocked()
	m.current = nil
	return done, nil
}

// Current returns the active session snapshot with a live elapsed total, or
// nil when no session is active.
func (m *Manager) Current() *entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || !m.current.IsActive {
		return nil
	}
	s := m.snapshotLocked()
	s.TotalMinutes = m.elapsedLocked()
	return s
}

func (m *Manager) snapshotLocked() *entity.Session {
	s := *m.current
	return &s
}

// AllFinished reports whether every room assigned to the given group is in a
// finished state, the condition for offering session completion.
func AllFinished(rooms []entity.Room, group string) bool {
	any := false
	for _, r := range rooms {
		if group != "" && r.AssignedGroup != group {
			continue
		}
		if r.Status == entity.RoomMaintenance {
			continue
		}
		any = true
		if !r.Status.Terminal() {
			return false
		}
	}
	return any
}
