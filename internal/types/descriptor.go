// Package types resolves declared API types into descriptors that the rule
// engine turns into data classes.
package types

import (
	"fmt"
	"strings"
)

// Kind tags the descriptor variant.
type Kind int

const (
	KindPrimitive Kind = iota + 1
	KindArray
	KindObject
	KindUnion
	KindEnum
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindReference:
		return "reference"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// PrimitiveKind is the scalar family of a primitive descriptor.
type PrimitiveKind string

const (
	String   PrimitiveKind = "string"
	Integer  PrimitiveKind = "integer"
	Number   PrimitiveKind = "number"
	Boolean  PrimitiveKind = "boolean"
	Date     PrimitiveKind = "date"
	Time     PrimitiveKind = "time"
	DateTime PrimitiveKind = "date-time"
	Binary   PrimitiveKind = "binary"
	Any      PrimitiveKind = "any"
)

// Constraints are validation bounds; nil or empty members are unconstrained.
type Constraints struct {
	Pattern   string
	Minimum   *float64
	Maximum   *float64
	MinLength *uint64
	MaxLength *uint64
	MinItems  *uint64
	MaxItems  *uint64
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.Pattern == "" && c.Minimum == nil && c.Maximum == nil &&
		c.MinLength == nil && c.MaxLength == nil && c.MinItems == nil && c.MaxItems == nil
}

// Field is one member of an object shape.
type Field struct {
	Name        string
	Type        *Descriptor
	Required    bool
	Nullable    bool
	Description string
	Default     any
}

// Alternative is one branch of an all-object union with the fields that are
// not part of the union's base shape.
type Alternative struct {
	Name   string
	Branch *Descriptor
	Fields []Field
}

// Descriptor is the resolved shape of a type. Which members are meaningful
// depends on Kind.
type Descriptor struct {
	Kind Kind
	// Name is the canonical type name of named objects, unions and enums, and
	// the target name of a Reference.
	Name        string
	Description string

	// Primitive
	Primitive   PrimitiveKind
	Format      string
	Constraints Constraints
	Default     any

	// Array
	Elem     *Descriptor
	IsRepeat bool

	// Object
	Fields []Field
	Parent string

	// Union
	Branches       []*Descriptor
	Base           []Field
	Alternatives   []Alternative
	PrimitiveKinds []PrimitiveKind

	// Enum
	Values []any

	// Reference; backfilled once the named type completes.
	Target *Descriptor
}

// Resolved follows backfilled References to their target.
func (d *Descriptor) Resolved() *Descriptor {
	shape, _ := shapeOf(d)
	return shape
}

// IsNamed reports whether the descriptor becomes its own generated class.
func (d *Descriptor) IsNamed() bool {
	if d == nil || d.Name == "" {
		return false
	}
	switch d.Kind {
	case KindObject, KindUnion, KindEnum, KindReference:
		return true
	}
	return false
}

// IsObjectUnion reports whether d is a union whose branches are all objects.
func (d *Descriptor) IsObjectUnion() bool {
	return d != nil && d.Kind == KindUnion && len(d.Alternatives) > 0
}

// Field returns the field called name.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Signature is a structural key used to compare descriptors. Named types
// compare by name, so recursion never needs to enter them.
func (d *Descriptor) Signature() string {
	if d == nil {
		return "nil"
	}
	if d.IsNamed() {
		return "#" + d.Name
	}
	switch d.Kind {
	case KindPrimitive:
		if d.Format != "" {
			return string(d.Primitive) + "/" + d.Format
		}
		return string(d.Primitive)
	case KindArray:
		return "[]" + d.Elem.Signature()
	case KindObject:
		parts := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			parts = append(parts, f.Name+":"+f.Type.Signature())
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindUnion:
		parts := make([]string, 0, len(d.Branches))
		for _, b := range d.Branches {
			parts = append(parts, b.Signature())
		}
		return "(" + strings.Join(parts, "|") + ")"
	case KindEnum:
		return fmt.Sprintf("enum%v", d.Values)
	}
	return d.Kind.String()
}

func (d *Descriptor) String() string { return d.Signature() }
