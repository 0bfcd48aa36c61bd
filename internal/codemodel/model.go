// Package codemodel is the in-memory tree of generated classes produced by
// the rule engine and handed to an emitter.
package codemodel

import (
	"sort"
	"strings"

	"github.com/mark3labs/endpointgen/internal/errors"
)

type ClassKind string

const (
	ControllerInterface      ClassKind = "controller-interface"
	ControllerImplementation ClassKind = "controller-implementation"
	DataClass                ClassKind = "data-class"
	EnumClass                ClassKind = "enum"
)

type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

// TypeRef names a target-language type, with type arguments for generics.
type TypeRef struct {
	Name string    `json:"name"`
	Args []TypeRef `json:"args,omitempty"`
}

// Ref builds a TypeRef.
func Ref(name string, args ...TypeRef) TypeRef { return TypeRef{Name: name, Args: args} }

func (t TypeRef) IsZero() bool { return t.Name == "" }

func (t TypeRef) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, 0, len(t.Args))
	for _, a := range t.Args {
		args = append(args, a.String())
	}
	return t.Name + "<" + strings.Join(args, ", ") + ">"
}

// AnnotationParam is one key/value member of an annotation. Values are kept
// as source literals.
type AnnotationParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Annotation struct {
	Name   string            `json:"name"`
	Params []AnnotationParam `json:"params,omitempty"`
}

// NewAnnotation builds an annotation from alternating key, value pairs.
func NewAnnotation(name string, kv ...string) Annotation {
	a := Annotation{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		a.Params = append(a.Params, AnnotationParam{Key: kv[i], Value: kv[i+1]})
	}
	return a
}

// Param returns the value recorded for key.
func (a Annotation) Param(key string) (string, bool) {
	for _, p := range a.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (a Annotation) String() string {
	if len(a.Params) == 0 {
		return "@" + a.Name
	}
	parts := make([]string, 0, len(a.Params))
	for _, p := range a.Params {
		parts = append(parts, p.Key+" = "+p.Value)
	}
	return "@" + a.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Annotations is an ordered annotation list.
type Annotations []Annotation

// Has reports whether an annotation called name is present.
func (as Annotations) Has(name string) bool {
	_, ok := as.Get(name)
	return ok
}

func (as Annotations) Get(name string) (Annotation, bool) {
	for _, a := range as {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// Put replaces an annotation of the same name in place or appends it.
func (as *Annotations) Put(a Annotation) {
	for i := range *as {
		if (*as)[i].Name == a.Name {
			(*as)[i] = a
			return
		}
	}
	*as = append(*as, a)
}

type FieldNode struct {
	Name        string      `json:"name"`
	Type        TypeRef     `json:"type"`
	Visibility  Visibility  `json:"visibility"`
	Annotations Annotations `json:"annotations,omitempty"`
	Doc         string      `json:"doc,omitempty"`
	Initializer string      `json:"initializer,omitempty"`
}

type ParamNode struct {
	Name        string      `json:"name"`
	Type        TypeRef     `json:"type"`
	Annotations Annotations `json:"annotations,omitempty"`
	Doc         string      `json:"doc,omitempty"`
}

type MethodNode struct {
	Name        string      `json:"name"`
	Visibility  Visibility  `json:"visibility"`
	Params      []ParamNode `json:"params,omitempty"`
	ReturnType  TypeRef     `json:"returnType"`
	Annotations Annotations `json:"annotations,omitempty"`
	Doc         string      `json:"doc,omitempty"`
	Abstract    bool        `json:"abstract,omitempty"`
	// Stub marks a generated body that only signals "not implemented".
	Stub bool `json:"stub,omitempty"`
}

// Param returns the parameter called name.
func (m *MethodNode) Param(name string) (*ParamNode, bool) {
	for i := range m.Params {
		if m.Params[i].Name == name {
			return &m.Params[i], true
		}
	}
	return nil, false
}

// AddParam appends p unless a parameter of that name exists.
func (m *MethodNode) AddParam(p ParamNode) bool {
	if _, ok := m.Param(p.Name); ok {
		return false
	}
	m.Params = append(m.Params, p)
	return true
}

type ClassNode struct {
	Package       string        `json:"package"`
	SimpleName    string        `json:"name"`
	Kind          ClassKind     `json:"kind"`
	Visibility    Visibility    `json:"visibility"`
	Extends       string        `json:"extends,omitempty"`
	Implements    []string      `json:"implements,omitempty"`
	Annotations   Annotations   `json:"annotations,omitempty"`
	Doc           string        `json:"doc,omitempty"`
	Abstract      bool          `json:"abstract,omitempty"`
	Fields        []*FieldNode  `json:"fields,omitempty"`
	Methods       []*MethodNode `json:"methods,omitempty"`
	EnumConstants []string      `json:"enumConstants,omitempty"`
}

// QualifiedName is the class's identity in a Model.
func (c *ClassNode) QualifiedName() string {
	if c.Package == "" {
		return c.SimpleName
	}
	return c.Package + "." + c.SimpleName
}

func (c *ClassNode) Field(name string) (*FieldNode, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (c *ClassNode) Method(name string) (*MethodNode, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// AddField appends f unless a field of that name exists.
func (c *ClassNode) AddField(f *FieldNode) bool {
	if _, ok := c.Field(f.Name); ok {
		return false
	}
	c.Fields = append(c.Fields, f)
	return true
}

// AddMethod appends m unless a method of that name exists.
func (c *ClassNode) AddMethod(m *MethodNode) bool {
	if _, ok := c.Method(m.Name); ok {
		return false
	}
	c.Methods = append(c.Methods, m)
	return true
}

// Model maps qualified class names to classes. Classes are written once.
type Model struct {
	classes   map[string]*ClassNode
	finalized bool
}

func New() *Model {
	return &Model{classes: map[string]*ClassNode{}}
}

// AddClass inserts c. Redefining a class or writing to a finalized model is
// an error.
func (m *Model) AddClass(c *ClassNode) error {
	if m.finalized {
		return errors.AssertionFailedf("code model is finalized; cannot add %s", c.QualifiedName())
	}
	name := c.QualifiedName()
	if existing, ok := m.classes[name]; ok {
		return errors.NewNamingConflict(name, string(existing.Kind)+" "+name, string(c.Kind)+" "+name)
	}
	m.classes[name] = c
	return nil
}

// Class looks up a class by qualified name.
func (m *Model) Class(qualified string) (*ClassNode, bool) {
	c, ok := m.classes[qualified]
	return c, ok
}

// Classes returns all classes sorted by qualified name.
func (m *Model) Classes() []*ClassNode {
	names := make([]string, 0, len(m.classes))
	for name := range m.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*ClassNode, 0, len(names))
	for _, name := range names {
		out = append(out, m.classes[name])
	}
	return out
}

func (m *Model) Len() int { return len(m.classes) }

// Finalize freezes the model.
func (m *Model) Finalize() { m.finalized = true }

func (m *Model) Finalized() bool { return m.finalized }
