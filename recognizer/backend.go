package recognizer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/speechbridge/logger"
)

// Factory creates a backend from its configuration map.
type Factory func(cfg map[string]any) (Backend, error)

// Registry manages named backend factories and cached instances.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Backend
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Backend),
	}
}

// RegisterFactory registers a named factory.
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates a backend using the named factory and config.
func (r *Registry) Create(name string, cfg map[string]any) (Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backend factory %q not registered", name)
	}
	return factory(cfg)
}

// Get returns a cached backend by name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.instances[name]
	return b, ok
}

// Set caches a backend by name.
func (r *Registry) Set(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[name] = b
}

// List returns sorted names of all registered factories.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selector picks a backend from the initialized ones.
type Selector interface {
	Select(ctx context.Context, backends map[string]Backend) (Backend, error)
}

// PrioritySelector returns the first available backend in Priority order.
type PrioritySelector struct {
	Priority []string
}

// Select implements Selector.
func (s *PrioritySelector) Select(ctx context.Context, backends map[string]Backend) (Backend, error) {
	for _, name := range s.Priority {
		if b, ok := backends[name]; ok && b.IsAvailable(ctx) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no available backend in priority list: %w", ErrUnavailable)
}

// HealthCheckSelector returns the first available backend by name order.
type HealthCheckSelector struct{}

// Select implements Selector.
func (s *HealthCheckSelector) Select(ctx context.Context, backends map[string]Backend) (Backend, error) {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if b := backends[name]; b.IsAvailable(ctx) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no available backend: %w", ErrUnavailable)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSelector sets the backend selection strategy.
func WithSelector(s Selector) ManagerOption {
	return func(m *Manager) { m.selector = s }
}

// WithRegistry uses an existing registry instead of a fresh one.
func WithRegistry(r *Registry) ManagerOption {
	return func(m *Manager) { m.registry = r }
}

// Manager combines a Registry with a Selector and tracks initialized backends.
type Manager struct {
	mu          sync.RWMutex
	registry    *Registry
	selector    Selector
	backends    map[string]Backend
	defaultName string
	log         *logger.Logger
}

// NewManager creates a Manager using HealthCheckSelector unless overridden.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: NewRegistry(),
		selector: &HealthCheckSelector{},
		backends: make(map[string]Backend),
		log:      logger.Get("recognizer"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Register adds a factory to the underlying registry.
func (m *Manager) Register(name string, factory Factory) {
	m.registry.RegisterFactory(name, factory)
	m.log.Debug("backend factory registered", map[string]interface{}{logger.FieldBackend: name})
}

// Initialize creates a backend from its factory and stores it for use.
func (m *Manager) Initialize(name string, cfg map[string]any) error {
	b, err := m.registry.Create(name, cfg)
	if err != nil {
		return fmt.Errorf("initialize backend %q: %w", name, err)
	}
	m.mu.Lock()
	m.backends[name] = b
	m.mu.Unlock()
	m.registry.Set(name, b)
	m.log.Info("backend initialized", map[string]interface{}{logger.FieldBackend: name})
	return nil
}

// Get returns the default backend if one is set, otherwise the selector's pick.
func (m *Manager) Get(ctx context.Context) (Backend, error) {
	m.mu.RLock()
	defaultName := m.defaultName
	backends := m.snapshotLocked()
	m.mu.RUnlock()

	if defaultName != "" {
		if b, ok := backends[defaultName]; ok {
			return b, nil
		}
		return nil, fmt.Errorf("default backend %q not found", defaultName)
	}
	return m.selector.Select(ctx, backends)
}

// GetByName returns a specific initialized backend.
func (m *Manager) GetByName(name string) (Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.backends[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("backend %q not found", name)
}

// SetDefault pins Get to the named backend.
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.backends[name]; !ok {
		return fmt.Errorf("backend %q not initialized", name)
	}
	m.defaultName = name
	m.log.Info("default backend set", map[string]interface{}{logger.FieldBackend: name})
	return nil
}

// Available returns the sorted names of all initialized backends.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.backends))
	for name := range m.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshotLocked must be called with at least a read lock held.
func (m *Manager) snapshotLocked() map[string]Backend {
	cp := make(map[string]Backend, len(m.backends))
	for k, v := range m.backends {
		cp[k] = v
	}
	return cp
}
