package types

import (
	"fmt"
	"strconv"

	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/naming"
	"github.com/mark3labs/endpointgen/internal/spec"
)

type unionInterpreter struct{}

func (unionInterpreter) Name() string { return "union" }

func (unionInterpreter) Handles(node *spec.TypeNode) bool {
	return len(node.OneOf) > 0 || len(node.AnyOf) > 0
}

func (unionInterpreter) Interpret(node *spec.TypeNode, c *Chain, ctx Context) (*Descriptor, error) {
	if !ctx.named {
		return c.declareAndResolve(node, ctx)
	}
	name := ctx.Hint
	members := node.OneOf
	if len(members) == 0 {
		members = node.AnyOf
	}

	d := &Descriptor{Kind: KindUnion, Description: node.Description}
	for i, member := range members {
		hint := name + "Option" + strconv.Itoa(i+1)
		label := hint
		if member.IsRef() {
			label = member.Ref
		}
		bd, err := c.Interpret(member, Context{Hint: hint, Source: name + "/oneOf/" + strconv.Itoa(i), chain: ctx.chain})
		if err != nil {
			if errors.IsUnresolvedType(err) {
				return nil, errors.NewUnresolvedType(label, ctx.chain, err)
			}
			return nil, err
		}
		d.Branches = append(d.Branches, bd)
	}

	switch {
	case c.allKind(d.Branches, KindObject):
		finish := func() error { return c.finishObjectUnion(d, name) }
		if c.anyPending(d.Branches) {
			c.deferFixup(d, finish)
		} else if err := finish(); err != nil {
			return nil, err
		}
	case c.allKind(d.Branches, KindPrimitive):
		seen := map[PrimitiveKind]bool{}
		for _, b := range d.Branches {
			p := shapeOfBranch(b).Primitive
			if !seen[p] {
				seen[p] = true
				d.PrimitiveKinds = append(d.PrimitiveKinds, p)
			}
		}
	}
	return d, nil
}

func (c *Chain) allKind(ds []*Descriptor, k Kind) bool {
	for _, d := range ds {
		if c.kindOf(d) != k {
			return false
		}
	}
	return len(ds) > 0
}

func (c *Chain) anyPending(ds []*Descriptor) bool {
	for _, d := range ds {
		if c.pending(d) {
			return true
		}
	}
	return false
}

func (c *Chain) finishObjectUnion(d *Descriptor, union string) error {
	for _, b := range d.Branches {
		shape, ok := shapeOf(b)
		if !ok {
			return errors.NewUnresolvedType(shape.Name, []string{union}, nil)
		}
		if err := c.settle(shape); err != nil {
			return err
		}
	}
	if err := mergeObjectBranches(d, union); err != nil {
		return err
	}
	for _, alt := range d.Alternatives {
		if alt.Name != "" {
			c.reg.claimParent(alt.Name, union)
		}
	}
	return nil
}

// mergeObjectBranches computes the base shape of an all-object union: the
// fields every branch requires. The remaining fields stay on their branch.
func mergeObjectBranches(d *Descriptor, union string) error {
	sigs := map[string]string{}
	for _, b := range d.Branches {
		for _, f := range shapeOfBranch(b).Fields {
			sig := f.Type.Signature()
			if prev, ok := sigs[f.Name]; ok && prev != sig {
				return errors.NewUnsupported(
					fmt.Sprintf("union branches declare field %q with conflicting types %s and %s", f.Name, prev, sig),
					union)
			}
			sigs[f.Name] = sig
		}
	}

	inBase := map[string]bool{}
	first := shapeOfBranch(d.Branches[0])
	for _, f := range first.Fields {
		if !f.Required {
			continue
		}
		common := true
		for _, b := range d.Branches[1:] {
			other, ok := shapeOfBranch(b).Field(f.Name)
			if !ok || !other.Required {
				common = false
				break
			}
		}
		if common {
			inBase[f.Name] = true
			d.Base = append(d.Base, f)
		}
	}

	for _, b := range d.Branches {
		shape := shapeOfBranch(b)
		alt := Alternative{Name: shape.Name, Branch: b}
		for _, f := range shape.Fields {
			if !inBase[f.Name] {
				alt.Fields = append(alt.Fields, f)
			}
		}
		d.Alternatives = append(d.Alternatives, alt)
	}
	return nil
}

func shapeOfBranch(b *Descriptor) *Descriptor {
	shape, _ := shapeOf(b)
	return shape
}

type enumInterpreter struct{}

func (enumInterpreter) Name() string { return "enum" }

func (enumInterpreter) Handles(node *spec.TypeNode) bool { return len(node.Enum) > 0 }

func (enumInterpreter) Interpret(node *spec.TypeNode, c *Chain, ctx Context) (*Descriptor, error) {
	if !ctx.named {
		return c.declareAndResolve(node, ctx)
	}
	kind := primitiveKind(node.Type, node.Format)
	if kind == Any {
		kind = String
	}
	return &Descriptor{
		Kind:        KindEnum,
		Primitive:   kind,
		Format:      node.Format,
		Description: node.Description,
		Default:     node.Default,
		Values:      append([]any(nil), node.Enum...),
	}, nil
}

type arrayInterpreter struct{}

func (arrayInterpreter) Name() string { return "array" }

func (arrayInterpreter) Handles(node *spec.TypeNode) bool {
	return node.Type == "array" || node.Items != nil
}

func (arrayInterpreter) Interpret(node *spec.TypeNode, c *Chain, ctx Context) (*Descriptor, error) {
	d := &Descriptor{
		Kind:        KindArray,
		IsRepeat:    true,
		Description: node.Description,
		Constraints: Constraints{MinItems: node.MinItems, MaxItems: node.MaxItems},
	}
	if node.Items == nil {
		d.Elem = &Descriptor{Kind: KindPrimitive, Primitive: Any}
		return d, nil
	}
	elem, err := c.Interpret(node.Items, ctx.child(ctx.Hint+"Item", ctx.Source+"/items"))
	if err != nil {
		return nil, err
	}
	d.Elem = elem
	return d, nil
}

type objectInterpreter struct{}

func (objectInterpreter) Name() string { return "object" }

func (objectInterpreter) Handles(node *spec.TypeNode) bool {
	return len(node.Properties) > 0 || len(node.AllOf) > 0
}

func (objectInterpreter) Interpret(node *spec.TypeNode, c *Chain, ctx Context) (*Descriptor, error) {
	if !ctx.named {
		return c.declareAndResolve(node, ctx)
	}
	owner := ctx.Hint
	d := &Descriptor{Kind: KindObject, Description: node.Description}

	var members []*Descriptor
	deferred := false
	for _, member := range node.AllOf {
		var md *Descriptor
		var err error
		if member.IsRef() {
			md, err = c.Interpret(member, ctx)
		} else {
			// inline members contribute fields without becoming a type
			md, err = c.Interpret(member, Context{Hint: owner, Source: ctx.Source, chain: ctx.chain, named: true})
		}
		if err != nil {
			return nil, err
		}
		if kind := c.kindOf(md); kind != KindObject {
			return nil, errors.NewUnsupported(fmt.Sprintf("allOf member of kind %s", kind), owner)
		}
		if member.IsRef() && d.Parent == "" {
			d.Parent = shapeOfBranch(md).Name
		}
		deferred = deferred || c.pending(md)
		members = append(members, md)
	}

	required := make(map[string]bool, len(node.Required))
	for _, r := range node.Required {
		required[r] = true
	}
	own := make([]Field, 0, len(node.Properties))
	for _, prop := range node.Properties {
		if prop.Type == nil {
			return nil, errors.NewUnresolvedType(owner+"."+prop.Name, ctx.chain, nil)
		}
		ft, err := c.Interpret(prop.Type, ctx.child(owner+naming.Pascal(prop.Name), owner+"."+prop.Name))
		if err != nil {
			return nil, err
		}
		own = append(own, Field{
			Name:        prop.Name,
			Type:        ft,
			Required:    required[prop.Name],
			Nullable:    !required[prop.Name] || prop.Type.Nullable,
			Description: prop.Type.Description,
			Default:     prop.Type.Default,
		})
	}

	flatten := func() error { return c.flattenFields(d, members, own, owner) }
	if deferred {
		c.deferFixup(d, flatten)
		return d, nil
	}
	if err := flatten(); err != nil {
		return nil, err
	}
	return d, nil
}

// flattenFields sets the fields of d: inherited members first, then its own.
func (c *Chain) flattenFields(d *Descriptor, members []*Descriptor, own []Field, owner string) error {
	d.Fields = nil
	for _, md := range members {
		shape, ok := shapeOf(md)
		if !ok {
			return errors.NewUnresolvedType(shape.Name, []string{owner}, nil)
		}
		if shape == d {
			return errors.NewUnsupported("allOf cycle", owner)
		}
		if err := c.settle(shape); err != nil {
			return err
		}
		for _, f := range shape.Fields {
			if err := addField(d, f, owner); err != nil {
				return err
			}
		}
	}
	for _, f := range own {
		if err := addField(d, f, owner); err != nil {
			return err
		}
	}
	return nil
}

// addField appends f, or merges it into an inherited field of the same name.
func addField(d *Descriptor, f Field, owner string) error {
	for i, existing := range d.Fields {
		if existing.Name != f.Name {
			continue
		}
		if a, b := existing.Type.Signature(), f.Type.Signature(); a != b {
			return errors.NewUnsupported(
				fmt.Sprintf("field %q redeclared with conflicting types %s and %s", f.Name, a, b), owner)
		}
		f.Required = f.Required || existing.Required
		f.Nullable = !f.Required && (f.Nullable || existing.Nullable)
		d.Fields[i] = f
		return nil
	}
	d.Fields = append(d.Fields, f)
	return nil
}

type primitiveInterpreter struct{}

func (primitiveInterpreter) Name() string { return "primitive" }

func (primitiveInterpreter) Handles(node *spec.TypeNode) bool {
	switch node.Type {
	case "", "string", "integer", "number", "boolean", "file", "object":
		return true
	}
	return false
}

func (primitiveInterpreter) Interpret(node *spec.TypeNode, _ *Chain, _ Context) (*Descriptor, error) {
	return &Descriptor{
		Kind:        KindPrimitive,
		Primitive:   primitiveKind(node.Type, node.Format),
		Format:      node.Format,
		Description: node.Description,
		Default:     node.Default,
		Constraints: Constraints{
			Pattern:   node.Pattern,
			Minimum:   node.Minimum,
			Maximum:   node.Maximum,
			MinLength: node.MinLength,
			MaxLength: node.MaxLength,
		},
	}, nil
}

func primitiveKind(typ, format string) PrimitiveKind {
	switch typ {
	case "string":
		switch format {
		case "date-time":
			return DateTime
		case "date":
			return Date
		case "time":
			return Time
		case "binary", "byte":
			return Binary
		}
		return String
	case "integer":
		return Integer
	case "number":
		return Number
	case "boolean":
		return Boolean
	case "file":
		return Binary
	}
	return Any
}
