package providers

import (
	"fmt"
	"sync"

	"github.com/updateme/engine/internal/core/ports"
)

// DefaultProvider is used when a subscriber has no usable preference.
const DefaultProvider = Groq

// Registry maps provider names to instances and remembers registration order.
// It is built once at startup and injected where needed.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]ports.CompletionProvider
	def    string
}

var _ ports.ProviderRegistry = (*Registry)(nil)

// NewRegistry creates an empty registry whose default is defaultName, or
// DefaultProvider when empty.
func NewRegistry(defaultName string) *Registry {
	if defaultName == "" {
		defaultName = DefaultProvider
	}
	return &Registry{byName: make(map[string]ports.CompletionProvider), def: defaultName}
}

// Register adds p. Registering the same name twice is an error.
func (r *Registry) Register(p ports.CompletionProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[p.Name()]; dup {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	r.byName[p.Name()] = p
	r.order = append(r.order, p.Name())
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (ports.CompletionProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Default returns the configured default if registered, otherwise the first
// registered provider.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byName[r.def]; ok || len(r.order) == 0 {
		return r.def
	}
	return r.order[0]
}

// Names lists registered providers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Candidates returns preferred first, when registered, then every other
// provider in registration order.
func (r *Registry) Candidates(preferred string) []ports.CompletionProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.CompletionProvider, 0, len(r.order))
	if p, ok := r.byName[preferred]; ok {
		out = append(out, p)
	}
	for _, name := range r.order {
		if name == preferred {
			continue
		}
		out = append(out, r.byName[name])
	}
	return out
}
