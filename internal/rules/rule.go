// Package rules turns metadata entries into code model classes. Each target
// is an ordered list of rules; a rule either handles an entry or declines it
// with errors.ErrRuleNotApplicable.
package rules

import (
	"fmt"

	"github.com/mark3labs/endpointgen/internal/codemodel"
	"github.com/mark3labs/endpointgen/internal/config"
	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/metadata"
	"github.com/mark3labs/endpointgen/internal/types"
)

type EntryKind int

const (
	EntryResource EntryKind = iota + 1
	EntryAction
	EntryParam
	EntryType
)

func (k EntryKind) String() string {
	switch k {
	case EntryResource:
		return "resource"
	case EntryAction:
		return "action"
	case EntryParam:
		return "param"
	case EntryType:
		return "type"
	}
	return "unknown"
}

// Entry is one metadata element offered to the rules. Only the members
// matching Kind are set; Resource is set for actions and params too.
type Entry struct {
	Kind     EntryKind
	Resource *metadata.ResourceMetadata
	Action   *metadata.ActionMetadata
	Param    *metadata.ParamMetadata
	Type     *types.Descriptor
}

// Path locates the entry in diagnostics.
func (e Entry) Path() string {
	switch e.Kind {
	case EntryAction, EntryParam:
		return e.Action.Label()
	case EntryResource:
		return e.Resource.Path
	case EntryType:
		return "#/types/" + e.Type.Name
	}
	return ""
}

// ResourceEntries lists a resource and its actions and parameters in the
// order the controller rules expect.
func ResourceEntries(r *metadata.ResourceMetadata) []Entry {
	out := []Entry{{Kind: EntryResource, Resource: r}}
	for _, a := range r.Actions {
		out = append(out, Entry{Kind: EntryAction, Resource: r, Action: a})
		for _, p := range a.Params {
			out = append(out, Entry{Kind: EntryParam, Resource: r, Action: a, Param: p})
		}
	}
	return out
}

// TypeEntries lists the named types that become data classes, by name.
func TypeEntries(reg *types.Registry) []Entry {
	var out []Entry
	for _, name := range reg.Names() {
		d, _ := reg.Lookup(name)
		if d.Name != name {
			// alias of another declaration
			continue
		}
		switch d.Kind {
		case types.KindObject, types.KindUnion, types.KindEnum:
			out = append(out, Entry{Kind: EntryType, Type: d})
		}
	}
	return out
}

// Rule contributes one aspect of a class.
type Rule interface {
	Name() string
	Apply(e Entry, ctx *Context) error
}

// Target is an ordered rule list producing one kind of class.
type Target struct {
	Name  string
	Rules []Rule
}

// Apply runs the rules rule-major over entries: every entry sees rule N
// before any entry sees rule N+1.
func (t Target) Apply(entries []Entry, ctx *Context) error {
	for _, r := range t.Rules {
		for _, e := range entries {
			err := r.Apply(e, ctx)
			if err == nil || errors.IsRuleNotApplicable(err) {
				continue
			}
			if errors.CodeOf(err) == "" {
				err = &errors.GenError{
					Code:    errors.RuleProcessingFailure,
					Message: "rule failed",
					Path:    e.Path(),
					Rule:    r.Name(),
					Cause:   err,
				}
			}
			return errors.Wrapf(err, "%s target", t.Name)
		}
	}
	return nil
}

// Context is the shared state of one subtree's rule application. Classes are
// staged here and only reach the model on Commit.
type Context struct {
	Config config.GenerationConfig
	Model  *codemodel.Model
	Types  *types.Registry
	// Class is the current insertion point.
	Class *codemodel.ClassNode

	staged  []*codemodel.ClassNode
	methods map[*metadata.ActionMetadata]*codemodel.MethodNode
}

func NewContext(cfg config.GenerationConfig, model *codemodel.Model, reg *types.Registry) *Context {
	return &Context{
		Config:  cfg,
		Model:   model,
		Types:   reg,
		methods: map[*metadata.ActionMetadata]*codemodel.MethodNode{},
	}
}

// Stage records cls for commit and makes it the insertion point.
func (c *Context) Stage(cls *codemodel.ClassNode) {
	c.staged = append(c.staged, cls)
	c.Class = cls
	c.methods = map[*metadata.ActionMetadata]*codemodel.MethodNode{}
}

func (c *Context) Staged() []*codemodel.ClassNode { return c.staged }

// Method returns the method built for an action in the current class.
func (c *Context) Method(a *metadata.ActionMetadata) (*codemodel.MethodNode, bool) {
	m, ok := c.methods[a]
	return m, ok
}

func (c *Context) SetMethod(a *metadata.ActionMetadata, m *codemodel.MethodNode) {
	c.methods[a] = m
}

// Commit adds the staged classes to the model and resets the context.
func (c *Context) Commit() error {
	for _, cls := range c.staged {
		if existing, ok := c.Model.Class(cls.QualifiedName()); ok {
			return errors.NewNamingConflict(cls.QualifiedName(), string(existing.Kind), string(cls.Kind))
		}
	}
	for _, cls := range c.staged {
		if err := c.Model.AddClass(cls); err != nil {
			return err
		}
	}
	c.Discard()
	return nil
}

// Discard drops the staged classes.
func (c *Context) Discard() {
	c.staged = nil
	c.Class = nil
	c.methods = map[*metadata.ActionMetadata]*codemodel.MethodNode{}
}

func notApplicable() error { return errors.ErrRuleNotApplicable }

func failure(rule string, e Entry, format string, args ...any) error {
	return errors.NewRuleFailure(rule, e.Path(), fmt.Sprintf(format, args...))
}
