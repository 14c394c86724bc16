// Package sessions keeps one view state machine per browser session.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"loanpredictor/internal/services/flow"
)

const (
	// CookieName is the session cookie set on every browser
	CookieName = "loan_session"

	DefaultIdleTimeout = 30 * time.Minute
	cleanupInterval    = time.Minute
)

// Factory builds the controller for a new session id
type Factory func(id string) *flow.Controller

type entry struct {
	ctrl     *flow.Controller
	lastSeen time.Time
}

// Manager is the session registry. Idle sessions are evicted in the background.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	idle     time.Duration
	factory  Factory
	now      func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// New starts a Manager whose sessions expire after idle without a request
func New(idle time.Duration, factory Factory) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	m := &Manager{
		sessions:    make(map[string]*entry),
		idle:        idle,
		factory:     factory,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// NewID returns a fresh session identifier
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID produced
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the controller for id, creating the session when it is unknown
func (m *Manager) Get(id string) (ctrl *flow.Controller, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.sessions[id]; ok {
		e.lastSeen = now
		return e.ctrl, false
	}

	e := &entry{ctrl: m.factory(id), lastSeen: now}
	m.sessions[id] = e
	return e.ctrl, true
}

// Remove drops a session
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	evicted := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.idle {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}
