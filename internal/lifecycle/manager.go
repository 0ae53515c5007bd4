package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moolen/medidesk/internal/logging"
)

// Manager starts registered components after their dependencies and stops
// them in reverse start order, each under its own shutdown deadline.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	dependencies    map[Component][]Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager creates a manager with a 30 second per-component shutdown
// timeout.
func NewManager() *Manager {
	return &Manager{
		dependencies:    make(map[Component][]Component),
		shutdownTimeout: 30 * time.Second,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register adds component. Every dependency must already be registered,
// which also rules out cycles.
func (m *Manager) Register(component Component, dependsOn ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if component.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	if m.registeredLocked(component) {
		return fmt.Errorf("component %s is already registered", component.Name())
	}
	for _, dep := range dependsOn {
		if !m.registeredLocked(dep) {
			return fmt.Errorf("dependency %s of %s is not registered", dep.Name(), component.Name())
		}
	}

	m.components = append(m.components, component)
	m.dependencies[component] = dependsOn
	m.logger.Debug("Registered %s with %d dependencies", component.Name(), len(dependsOn))
	return nil
}

func (m *Manager) registeredLocked(c Component) bool {
	for _, r := range m.components {
		if r == c {
			return true
		}
	}
	return false
}

// Start starts every component in dependency order. On failure the
// components already started are stopped again and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = nil
	for _, component := range m.orderLocked() {
		m.logger.Info("Starting %s", component.Name())
		begin := time.Now()

		if err := component.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", component.Name(), err)
			m.stopStartedLocked(context.Background(), 5*time.Second)
			return fmt.Errorf("initialization failed for %s: %w", component.Name(), err)
		}
		m.started = append(m.started, component)
		m.logger.Info("%s started (took %dms)", component.Name(), time.Since(begin).Milliseconds())
	}
	return nil
}

// orderLocked returns dependencies before dependents, otherwise keeping
// registration order.
func (m *Manager) orderLocked() []Component {
	visited := make(map[Component]bool, len(m.components))
	order := make([]Component, 0, len(m.components))

	var visit func(Component)
	visit = func(c Component) {
		if visited[c] {
			return
		}
		visited[c] = true
		for _, dep := range m.dependencies[c] {
			visit(dep)
		}
		order = append(order, c)
	}
	for _, c := range m.components {
		visit(c)
	}
	return order
}

// Stop stops all started components in reverse order. Errors are logged and
// do not prevent the remaining components from stopping.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping all components")
	m.stopStartedLocked(ctx, m.shutdownTimeout)
	m.logger.Info("All components stopped")
	return nil
}

func (m *Manager) stopStartedLocked(ctx context.Context, timeout time.Duration) {
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		begin := time.Now()

		componentCtx, cancel := context.WithTimeout(ctx, timeout)
		err := component.Stop(componentCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("%s exceeded its %dms shutdown grace period", component.Name(), timeout.Milliseconds())
		case err != nil:
			m.logger.Error("Error stopping %s: %v", component.Name(), err)
		default:
			m.logger.Info("%s stopped (took %dms)", component.Name(), time.Since(begin).Milliseconds())
		}
	}
	m.started = nil
}

// IsRunning reports whether component has started and not yet stopped.
func (m *Manager) IsRunning(component Component) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.started {
		if c == component {
			return true
		}
	}
	return false
}

// SetShutdownTimeout sets the per-component grace period used by Stop.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}
