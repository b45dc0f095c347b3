package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Manager coordinates graceful teardown of the supervisor: API server,
// tap listeners and the submission queue register hooks that run in
// reverse registration order.
type Manager struct {
	hooks    []func(context.Context) error
	mu       sync.Mutex
	timeout  time.Duration
	doneChan chan struct{}
	once     sync.Once
	onError  func(error)
}

// New creates a shutdown manager with the given per-shutdown timeout
func New(timeout time.Duration) *Manager {
	return &Manager{
		hooks:    make([]func(context.Context) error, 0),
		timeout:  timeout,
		doneChan: make(chan struct{}),
	}
}

// OnError installs a callback for hook failures; by default they are dropped
func (m *Manager) OnError(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// Register adds a shutdown hook. Hooks run in reverse order (LIFO).
func (m *Manager) Register(fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Wait blocks until SIGTERM or SIGINT is received, or until Trigger
// initiates shutdown from inside the process
func (m *Manager) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-m.doneChan:
		return
	}

	m.once.Do(func() {
		close(m.doneChan)
	})
}

// Trigger initiates shutdown without a signal (used by tests and by the
// serve command when the API server fails)
func (m *Manager) Trigger() {
	m.once.Do(func() {
		close(m.doneChan)
	})
}

// Done returns a channel closed when shutdown has been initiated
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

// Shutdown executes all registered hooks in reverse order
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	for i := len(m.hooks) - 1; i >= 0; i-- {
		if err := m.hooks[i](ctx); err != nil && m.onError != nil {
			m.onError(err)
		}
	}
}
