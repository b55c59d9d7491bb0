// Package service implements the orchestration core on top of ports.
package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tbellamy/maestro/internal/domain"
	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/port/taskhandler"
)

// CapabilityRegistry holds the registered task handlers and answers which of
// them can service a task type. Registration order is significant: FindCapable
// returns handlers in the order they were registered, and the engine always
// selects the first. Overlapping capabilities are allowed, not an error.
type CapabilityRegistry struct {
	mu       sync.RWMutex
	handlers []taskhandler.Handler
	byName   map[string]int // handler name -> index into handlers
}

// NewCapabilityRegistry creates an empty registry.
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{byName: make(map[string]int)}
}

// Register adds a handler. Re-registering an existing name replaces that
// handler in place, keeping its position in the selection order.
func (r *CapabilityRegistry) Register(h taskhandler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	if i, ok := r.byName[name]; ok {
		r.handlers[i] = h
		slog.Info("handler replaced", "handler", name, "position", i)
		return
	}
	r.byName[name] = len(r.handlers)
	r.handlers = append(r.handlers, h)
	slog.Info("handler registered", "handler", name, "capabilities", h.Capabilities())
}

// FindCapable returns every handler whose CanHandle accepts taskType, in
// registration order.
func (r *CapabilityRegistry) FindCapable(taskType plan.TaskType) []taskhandler.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var capable []taskhandler.Handler
	for _, h := range r.handlers {
		if h.CanHandle(taskType) {
			capable = append(capable, h)
		}
	}
	return capable
}

// Get returns the handler registered under name.
func (r *CapabilityRegistry) Get(name string) (taskhandler.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, ok := r.byName[name]; ok {
		return r.handlers[i], nil
	}
	return nil, fmt.Errorf("handler %s: %w", name, domain.ErrNotFound)
}

// Names returns the registered handler names in registration order.
func (r *CapabilityRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		names[i] = h.Name()
	}
	return names
}

// ListCapabilities returns each handler's declared task types keyed by
// handler name, for diagnostics and the capabilities endpoint.
func (r *CapabilityRegistry) ListCapabilities() map[string][]plan.TaskType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]plan.TaskType, len(r.handlers))
	for _, h := range r.handlers {
		out[h.Name()] = h.Capabilities()
	}
	return out
}
