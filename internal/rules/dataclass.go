package rules

import (
	"strconv"
	"strings"

	"github.com/mark3labs/endpointgen/internal/codemodel"
	"github.com/mark3labs/endpointgen/internal/naming"
	"github.com/mark3labs/endpointgen/internal/types"
)

// DataClassTarget builds one class per named object, union or enum type.
func DataClassTarget() Target {
	return Target{Name: "data-class", Rules: []Rule{
		dataShellRule{},
		fieldRule{},
		constraintAnnotationRule{},
		accessorRule{},
	}}
}

// superclass returns the class a type extends: its allOf parent, else the
// single all-object union it is a branch of.
func superclass(d *types.Descriptor, reg *types.Registry) (*types.Descriptor, bool) {
	if d.Kind != types.KindObject {
		return nil, false
	}
	if d.Parent != "" {
		if p, ok := reg.Lookup(d.Parent); ok {
			return p, true
		}
	}
	if u, ok := reg.UnionParent(d.Name); ok {
		if p, ok := reg.Lookup(u); ok && p.IsObjectUnion() {
			return p, true
		}
	}
	return nil, false
}

// classFields returns the fields declared on d's own class; inherited fields
// stay on the superclass.
func classFields(d *types.Descriptor, reg *types.Registry) []types.Field {
	switch d.Kind {
	case types.KindObject:
		parent, ok := superclass(d, reg)
		if !ok {
			return d.Fields
		}
		inherited := map[string]bool{}
		for _, f := range inheritedFields(parent) {
			inherited[f.Name] = true
		}
		var own []types.Field
		for _, f := range d.Fields {
			if !inherited[f.Name] {
				own = append(own, f)
			}
		}
		return own
	case types.KindUnion:
		if d.IsObjectUnion() {
			return d.Base
		}
		return []types.Field{{
			Name:        "value",
			Type:        &types.Descriptor{Kind: types.KindPrimitive, Primitive: types.Any},
			Nullable:    true,
			Description: "One of: " + branchList(d) + ".",
		}}
	}
	return nil
}

func inheritedFields(parent *types.Descriptor) []types.Field {
	if parent.Kind == types.KindUnion {
		return parent.Base
	}
	return parent.Fields
}

func branchList(d *types.Descriptor) string {
	var names []string
	if len(d.PrimitiveKinds) > 0 {
		for _, k := range d.PrimitiveKinds {
			names = append(names, string(k))
		}
	} else {
		for _, b := range d.Branches {
			names = append(names, b.Signature())
		}
	}
	return strings.Join(names, ", ")
}

type dataShellRule struct{}

func (dataShellRule) Name() string { return "class-shell" }

func (r dataShellRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryType {
		return notApplicable()
	}
	d := e.Type
	if d.Name == "" {
		return failure(r.Name(), e, "type has no name")
	}
	cls := &codemodel.ClassNode{
		Package:    ctx.Config.ModelPackage(),
		SimpleName: d.Name,
		Visibility: codemodel.Public,
		Doc:        strings.TrimSpace(d.Description),
	}
	cls.Annotations.Put(generated(ctx))

	switch d.Kind {
	case types.KindEnum:
		cls.Kind = codemodel.EnumClass
		seen := map[string]any{}
		for _, v := range d.Values {
			c := enumConstant(v)
			if prev, dup := seen[c]; dup {
				return failure(r.Name(), e, "enum values %s and %s map to the same constant %s", literal(prev), literal(v), c)
			}
			seen[c] = v
			cls.EnumConstants = append(cls.EnumConstants, c)
		}
	case types.KindObject:
		cls.Kind = codemodel.DataClass
		if parent, ok := superclass(d, ctx.Types); ok {
			cls.Extends = parent.Name
		}
	case types.KindUnion:
		cls.Kind = codemodel.DataClass
		if d.IsObjectUnion() {
			cls.Abstract = true
			var subtypes []string
			for _, alt := range d.Alternatives {
				if alt.Name != "" {
					subtypes = append(subtypes, "@JsonSubTypes.Type("+alt.Name+".class)")
				}
			}
			cls.Annotations.Put(codemodel.NewAnnotation("JsonTypeInfo", "use", "JsonTypeInfo.Id.DEDUCTION"))
			cls.Annotations.Put(codemodel.NewAnnotation("JsonSubTypes", "value", "{"+strings.Join(subtypes, ", ")+"}"))
		}
	default:
		return notApplicable()
	}
	ctx.Stage(cls)
	return nil
}

type fieldRule struct{}

func (fieldRule) Name() string { return "field" }

func (r fieldRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryType || e.Type.Kind == types.KindEnum || ctx.Class == nil {
		return notApplicable()
	}
	for _, f := range classFields(e.Type, ctx.Types) {
		if f.Type == nil {
			return failure(r.Name(), e, "field %q has no type", f.Name)
		}
		node := &codemodel.FieldNode{
			Name:       naming.FieldName(f.Name),
			Type:       TypeRef(f.Type, ctx.Config),
			Visibility: codemodel.Private,
			Doc:        strings.TrimSpace(f.Description),
		}
		node.Annotations.Put(codemodel.NewAnnotation("JsonProperty", "value", strconv.Quote(f.Name)))
		if ctx.Config.InitializeCollections && isCollection(f.Type) {
			node.Initializer = "new ArrayList<>()"
		}
		if !ctx.Class.AddField(node) {
			return failure(r.Name(), e, "properties of %s collide on field name %s", e.Type.Name, node.Name)
		}
	}
	return nil
}

type constraintAnnotationRule struct{}

func (constraintAnnotationRule) Name() string { return "constraint-annotation" }

func (r constraintAnnotationRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryType || e.Type.Kind == types.KindEnum || !ctx.Config.IncludeConstraintAnnotations || ctx.Class == nil {
		return notApplicable()
	}
	for _, f := range classFields(e.Type, ctx.Types) {
		node, ok := ctx.Class.Field(naming.FieldName(f.Name))
		if !ok {
			return failure(r.Name(), e, "field %q was not generated", f.Name)
		}
		for _, an := range constraintAnnotations(f.Type, f.Type.Resolved().Constraints, f.Required && !f.Nullable) {
			node.Annotations.Put(an)
		}
	}
	return nil
}

type accessorRule struct{}

func (accessorRule) Name() string { return "accessor" }

func (r accessorRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryType || e.Type.Kind == types.KindEnum || ctx.Class == nil {
		return notApplicable()
	}
	for _, f := range ctx.Class.Fields {
		suffix := naming.Pascal(f.Name)
		getter := &codemodel.MethodNode{Name: "get" + suffix, Visibility: codemodel.Public, ReturnType: f.Type}
		setter := &codemodel.MethodNode{
			Name:       "set" + suffix,
			Visibility: codemodel.Public,
			ReturnType: codemodel.Ref("void"),
			Params:     []codemodel.ParamNode{{Name: f.Name, Type: f.Type}},
		}
		for _, m := range []*codemodel.MethodNode{getter, setter} {
			if !ctx.Class.AddMethod(m) {
				return failure(r.Name(), e, "accessor %s collides with an existing method", m.Name)
			}
		}
	}
	return nil
}
