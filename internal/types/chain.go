package types

import (
	"fmt"

	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/spec"
)

// Context carries the naming hint for inline declarations and the reference
// chain leading to the node being interpreted.
type Context struct {
	// Hint is the derived name an anonymous object, union or enum is
	// registered under.
	Hint string
	// Source identifies where the node was declared; used for conflicts.
	Source string

	chain []string
	// named is set while interpreting the body of a registered declaration.
	named bool
}

// Chain returns the reference chain recorded so far.
func (c Context) Chain() []string { return append([]string(nil), c.chain...) }

func (c Context) child(hint, source string) Context {
	return Context{Hint: hint, Source: source, chain: c.chain}
}

// Interpreter handles one family of type constructs.
type Interpreter interface {
	Name() string
	Handles(node *spec.TypeNode) bool
	Interpret(node *spec.TypeNode, c *Chain, ctx Context) (*Descriptor, error)
}

// Chain tries interpreters in order; the first whose predicate matches wins.
type Chain struct {
	reg          *Registry
	interpreters []Interpreter

	// depth counts nested resolve calls; fixups run when it returns to zero.
	depth  int
	fixups map[*Descriptor]func() error
	order  []*Descriptor
}

// DefaultInterpreters returns the fixed order union, enum, array, object,
// primitive.
func DefaultInterpreters() []Interpreter {
	return []Interpreter{unionInterpreter{}, enumInterpreter{}, arrayInterpreter{}, objectInterpreter{}, primitiveInterpreter{}}
}

// NewChain builds a chain over reg. With no interpreters the default order is
// used.
func NewChain(reg *Registry, interpreters ...Interpreter) *Chain {
	if len(interpreters) == 0 {
		interpreters = DefaultInterpreters()
	}
	return &Chain{reg: reg, interpreters: interpreters}
}

// Registry returns the arena the chain resolves into.
func (c *Chain) Registry() *Registry { return c.reg }

// Interpret resolves node. References go through the registry first.
func (c *Chain) Interpret(node *spec.TypeNode, ctx Context) (*Descriptor, error) {
	if node == nil {
		return nil, errors.AssertionFailedf("interpret: nil type node (hint %q)", ctx.Hint)
	}
	if node.IsRef() {
		return c.resolve(node.Ref, ctx)
	}
	for _, in := range c.interpreters {
		if in.Handles(node) {
			return in.Interpret(node, c, ctx)
		}
	}
	construct := node.Type
	if construct == "" {
		construct = "untyped node"
	}
	return nil, errors.NewUnsupported(fmt.Sprintf("type %q", construct), ctx.Hint)
}

// Resolve returns the descriptor of a declared type by name.
func (c *Chain) Resolve(name string) (*Descriptor, error) {
	return c.resolve(name, Context{})
}

// ResolveAll resolves every declared type in name order.
func (c *Chain) ResolveAll() error {
	for _, name := range c.reg.DeclaredNames() {
		if _, err := c.Resolve(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) resolve(name string, ctx Context) (*Descriptor, error) {
	c.depth++
	d, err := c.resolveNamed(name, ctx)
	c.depth--
	if c.depth > 0 {
		return d, err
	}
	if err != nil {
		c.fixups, c.order = nil, nil
		return nil, err
	}
	if err := c.runFixups(); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Chain) resolveNamed(name string, ctx Context) (*Descriptor, error) {
	canonical, ok := c.reg.canonical(name)
	if !ok {
		return nil, errors.NewUnresolvedType(name, ctx.chain, nil)
	}
	if existing, started := c.reg.begin(canonical); !started {
		return existing, nil
	}
	node := c.reg.slot(canonical).node
	inner := Context{Hint: canonical, Source: ctx.Source, chain: appendChain(ctx.chain, canonical), named: true}
	var d *Descriptor
	var err error
	if node == nil {
		err = errors.NewUnresolvedType(canonical, ctx.chain, nil)
	} else {
		d, err = c.Interpret(node, inner)
	}
	if err != nil {
		c.reg.abort(canonical)
		return nil, err
	}
	if node.IsRef() {
		// alias of another declaration; share its descriptor
		c.reg.complete(canonical, d)
		return d, nil
	}
	switch d.Kind {
	case KindObject, KindUnion, KindEnum:
		d.Name = canonical
	}
	if d.Description == "" {
		d.Description = node.Description
	}
	c.reg.complete(canonical, d)
	return d, nil
}

// declareAndResolve registers an anonymous node under ctx.Hint and resolves
// it as a named type.
func (c *Chain) declareAndResolve(node *spec.TypeNode, ctx Context) (*Descriptor, error) {
	source := ctx.Source
	if source == "" {
		source = "inline:" + ctx.Hint
	}
	canonical, err := c.reg.declareInline(ctx.Hint, source, node)
	if err != nil {
		return nil, err
	}
	return c.resolve(canonical, Context{Source: source, chain: ctx.chain})
}

func appendChain(chain []string, name string) []string {
	out := make([]string, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, name)
}

// deferFixup registers work on d that needs an in-progress type to complete.
func (c *Chain) deferFixup(d *Descriptor, fn func() error) {
	if c.fixups == nil {
		c.fixups = map[*Descriptor]func() error{}
	}
	if _, ok := c.fixups[d]; !ok {
		c.order = append(c.order, d)
	}
	c.fixups[d] = fn
}

func (c *Chain) runFixups() error {
	for len(c.order) > 0 {
		order := c.order
		c.order = nil
		for _, d := range order {
			if err := c.settle(d); err != nil {
				c.fixups, c.order = nil, nil
				return err
			}
		}
	}
	c.fixups = nil
	return nil
}

// settle runs the pending fixup of d, if any.
func (c *Chain) settle(d *Descriptor) error {
	fn, ok := c.fixups[d]
	if !ok {
		return nil
	}
	delete(c.fixups, d)
	return fn()
}

// pending reports whether the shape behind d is not final yet.
func (c *Chain) pending(d *Descriptor) bool {
	shape, ok := shapeOf(d)
	if !ok {
		return true
	}
	_, deferred := c.fixups[shape]
	return deferred
}

// kindOf reports the kind d will have once resolved. For a type that is still
// in progress the kind is taken from its declaration.
func (c *Chain) kindOf(d *Descriptor) Kind {
	shape, ok := shapeOf(d)
	if ok {
		return shape.Kind
	}
	return c.declaredKind(shape.Name)
}

func (c *Chain) declaredKind(name string) Kind {
	seen := map[string]bool{}
	for !seen[name] {
		seen[name] = true
		s := c.reg.slot(name)
		if s == nil || s.node == nil {
			return KindReference
		}
		if s.node.IsRef() {
			target, ok := c.reg.canonical(s.node.Ref)
			if !ok {
				return KindReference
			}
			name = target
			continue
		}
		for _, in := range c.interpreters {
			if in.Handles(s.node) {
				return interpreterKind(in)
			}
		}
		return KindReference
	}
	return KindReference
}

func interpreterKind(in Interpreter) Kind {
	switch in.(type) {
	case unionInterpreter:
		return KindUnion
	case enumInterpreter:
		return KindEnum
	case arrayInterpreter:
		return KindArray
	case objectInterpreter:
		return KindObject
	case primitiveInterpreter:
		return KindPrimitive
	}
	return KindReference
}

// shapeOf follows references to the descriptor carrying the shape. It
// reports false, with the last reference, while a target is still missing.
func shapeOf(d *Descriptor) (*Descriptor, bool) {
	seen := map[*Descriptor]bool{}
	for d != nil && d.Kind == KindReference {
		if d.Target == nil || seen[d] {
			return d, false
		}
		seen[d] = true
		d = d.Target
	}
	return d, true
}
