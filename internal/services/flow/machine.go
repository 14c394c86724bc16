package flow

import (
	"context"
	"sync"

	"loanpredictor/internal/logger"
)

// Change describes one committed transition
type Change struct {
	From  View
	To    View
	Event Event
}

// Hook observes committed transitions. Hooks run after the lock is released,
// in the order they were given to New.
type Hook func(ctx context.Context, c Change)

// Machine holds one session's view
type Machine struct {
	mu    sync.Mutex
	view  View
	hooks []Hook
}

// New creates a machine in the initial Form view with a fixed hook chain
func New(hooks ...Hook) *Machine {
	chain := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			chain = append(chain, h)
		}
	}
	return &Machine{view: Initial(), hooks: chain}
}

// View returns the current view
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Dispatch applies e to the current view. On error the view is unchanged and
// returned alongside the error.
func (m *Machine) Dispatch(ctx context.Context, e Event) (View, error) {
	m.mu.Lock()
	from := m.view
	to, err := Transition(from, e)
	if err != nil {
		m.mu.Unlock()
		return from, err
	}
	m.view = to
	m.mu.Unlock()

	c := Change{From: from, To: to, Event: e}
	for _, h := range m.hooks {
		h(ctx, c)
	}
	return to, nil
}

// LogHook logs every transition at debug level and every error view at warn
func LogHook(log logger.Logger) Hook {
	return func(_ context.Context, c Change) {
		fields := map[string]interface{}{
			"event": EventName(c.Event),
			"from":  c.From.State.String(),
			"to":    c.To.State.String(),
		}
		if c.To.State == StateError {
			l := log
			if c.To.Err != nil {
				l = log.WithError(c.To.Err)
			}
			l.Warn("Request ended in error view", fields)
			return
		}
		log.Debug("View transition", fields)
	}
}
