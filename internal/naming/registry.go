package naming

import (
	"sync"

	"github.com/mark3labs/endpointgen/internal/errors"
)

// Registry detects identifier collisions across a whole run. Claims are
// serialized so the check stays global even if callers run concurrently.
type Registry struct {
	mu     sync.Mutex
	claims map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{claims: make(map[string]string)}
}

// Claim records that source resolved to identifier. Claiming the same pair
// twice is a no-op; a second, distinct source yields a NamingConflict naming
// both.
func (r *Registry) Claim(identifier, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.claims[identifier]; ok {
		if prev == source {
			return nil
		}
		return errors.NewNamingConflict(identifier, prev, source)
	}
	r.claims[identifier] = source
	return nil
}

// Owner returns the source that claimed identifier.
func (r *Registry) Owner(identifier string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.claims[identifier]
	return src, ok
}

// Len returns the number of claimed identifiers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}
