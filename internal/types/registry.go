package types

import (
	"sort"
	"strconv"
	"sync"

	"github.com/mark3labs/endpointgen/internal/naming"
	"github.com/mark3labs/endpointgen/internal/spec"
)

type slotState int

const (
	pending slotState = iota
	inProgress
	done
)

type slot struct {
	node        *spec.TypeNode
	state       slotState
	placeholder *Descriptor
	final       *Descriptor
}

// Registry is the per-run arena of named types keyed by canonical name.
// Declarations are registered up front; descriptors are filled in as the
// chain resolves them.
type Registry struct {
	mu       sync.RWMutex
	slots    map[string]*slot
	aliases  map[string]string
	parents  map[string][]string
	claims   *naming.Registry
	inlineNo int
}

// NewRegistry registers the declared types. Two declarations that map to the
// same canonical name are a naming conflict.
func NewRegistry(decls map[string]*spec.TypeNode) (*Registry, error) {
	r := &Registry{
		slots:   make(map[string]*slot, len(decls)),
		aliases: make(map[string]string, len(decls)),
		parents: map[string][]string{},
		claims:  naming.NewRegistry(),
	}
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.declare(naming.TypeName(name), "#/types/"+name, decls[name]); err != nil {
			return nil, err
		}
		r.aliases[name] = naming.TypeName(name)
	}
	return r, nil
}

func (r *Registry) declare(canonical, source string, node *spec.TypeNode) error {
	if err := r.claims.Claim(canonical, source); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[canonical]; !ok {
		r.slots[canonical] = &slot{node: node}
	}
	return nil
}

// declareInline registers an anonymous declaration under a derived name.
// Declaring the same name twice from the same source is a no-op.
func (r *Registry) declareInline(hint, source string, node *spec.TypeNode) (string, error) {
	if hint == "" {
		r.mu.Lock()
		r.inlineNo++
		hint = "InlineType" + strconv.Itoa(r.inlineNo)
		r.mu.Unlock()
	}
	canonical := naming.TypeName(hint)
	if source == "" {
		source = "inline:" + canonical
	}
	if err := r.declare(canonical, source, node); err != nil {
		return "", err
	}
	return canonical, nil
}

func (r *Registry) canonical(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.aliases[name]; ok {
		return c, true
	}
	c := naming.TypeName(name)
	_, ok := r.slots[c]
	return c, ok
}

func (r *Registry) slot(canonical string) *slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slots[canonical]
}

// begin moves a pending slot to in-progress and registers its placeholder.
// For in-progress slots the placeholder is returned, for done slots the final
// descriptor.
func (r *Registry) begin(canonical string) (existing *Descriptor, started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[canonical]
	switch s.state {
	case done:
		return s.final, false
	case inProgress:
		return s.placeholder, false
	}
	s.state = inProgress
	s.placeholder = &Descriptor{Kind: KindReference, Name: canonical}
	return nil, true
}

func (r *Registry) complete(canonical string, d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[canonical]
	s.placeholder.Target = d
	s.final = d
	s.state = done
}

func (r *Registry) abort(canonical string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[canonical]
	s.state = pending
	s.placeholder = nil
}

func (r *Registry) claimParent(branch, union string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.parents[branch] {
		if p == union {
			return
		}
	}
	r.parents[branch] = append(r.parents[branch], union)
}

// Lookup returns the resolved descriptor of a named type.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	canonical, ok := r.canonical(name)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.slots[canonical]
	if s == nil || s.state != done {
		return nil, false
	}
	return s.final, true
}

// Declared reports whether name is a registered declaration.
func (r *Registry) Declared(name string) bool {
	_, ok := r.canonical(name)
	return ok
}

// Names returns the canonical names of all resolved types, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.slots))
	for name, s := range r.slots {
		if s.state == done {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// DeclaredNames returns the declared (pre-canonical) names, sorted.
func (r *Registry) DeclaredNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.aliases))
	for name := range r.aliases {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UnionParent returns the union a named branch extends. Branches shared by
// several unions have no single parent.
func (r *Registry) UnionParent(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ps := r.parents[name]
	if len(ps) != 1 {
		return "", false
	}
	return ps[0], true
}

// Len returns the number of registered declarations, inline ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}
