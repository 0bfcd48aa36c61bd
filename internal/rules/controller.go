package rules

import (
	"strconv"
	"strings"

	"github.com/mark3labs/endpointgen/internal/codemodel"
	"github.com/mark3labs/endpointgen/internal/metadata"
	"github.com/mark3labs/endpointgen/internal/naming"
	"github.com/mark3labs/endpointgen/internal/spec"
	"github.com/mark3labs/endpointgen/internal/types"
)

const (
	responseEntity = "ResponseEntity"
	requestMapping = "RequestMapping"
)

// ControllerTarget builds one controller interface per resource with actions.
func ControllerTarget() Target {
	return Target{Name: "controller", Rules: []Rule{
		classShellRule{},
		methodSignatureRule{},
		parameterRule{},
		injectedParameterRule{},
		responseTypeRule{},
		documentationRule{},
	}}
}

// ImplementationTarget builds the stub class implementing the controller
// interface.
func ImplementationTarget() Target {
	return Target{Name: "controller-implementation", Rules: []Rule{
		classShellRule{impl: true},
		methodSignatureRule{impl: true},
		parameterRule{impl: true},
		injectedParameterRule{impl: true},
		responseTypeRule{impl: true},
		documentationRule{},
	}}
}

// ControllerName is the interface name for a resource identifier.
func ControllerName(identifier string) string { return identifier + "Controller" }

type classShellRule struct{ impl bool }

func (r classShellRule) Name() string {
	if r.impl {
		return "implementation-class-shell"
	}
	return "class-shell"
}

func (r classShellRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryResource || !e.Resource.HasActions() {
		return notApplicable()
	}
	if e.Resource.Identifier == "" {
		return failure(r.Name(), e, "resource has no identifier")
	}
	cfg := ctx.Config
	iface := ControllerName(e.Resource.Identifier)
	cls := &codemodel.ClassNode{
		Package:    cfg.ControllerPackage(),
		Visibility: codemodel.Public,
	}
	cls.Annotations.Put(generated(ctx))
	if r.impl {
		cls.SimpleName = iface + "Impl"
		cls.Kind = codemodel.ControllerImplementation
		cls.Implements = []string{cfg.ControllerPackage() + "." + iface}
		cls.Annotations.Put(codemodel.NewAnnotation("RestController"))
	} else {
		cls.SimpleName = iface
		cls.Kind = codemodel.ControllerInterface
		cls.Abstract = true
		cls.Annotations.Put(codemodel.NewAnnotation(requestMapping, "value", strconv.Quote(e.Resource.Path)))
		if cfg.IncludeConstraintAnnotations {
			cls.Annotations.Put(codemodel.NewAnnotation("Validated"))
		}
	}
	ctx.Stage(cls)
	return nil
}

type methodSignatureRule struct{ impl bool }

func (r methodSignatureRule) Name() string {
	if r.impl {
		return "implementation-method-signature"
	}
	return "method-signature"
}

func (r methodSignatureRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryAction {
		return notApplicable()
	}
	if ctx.Class == nil {
		return failure(r.Name(), e, "no controller class staged for resource %s", e.Resource.Path)
	}
	a := e.Action
	if a.MethodName == "" {
		return failure(r.Name(), e, "action has no method name")
	}
	m := &codemodel.MethodNode{
		Name:       a.MethodName,
		Visibility: codemodel.Public,
		ReturnType: codemodel.Ref(responseEntity, codemodel.Ref(voidType)),
	}
	if r.impl {
		m.Stub = true
		m.Annotations.Put(codemodel.NewAnnotation("Override"))
	} else {
		m.Abstract = true
		mapping := codemodel.NewAnnotation(requestMapping, "method", "RequestMethod."+strings.ToUpper(string(a.Verb)))
		if body := a.Body(); body != nil && body.Mime != "" {
			mapping.Params = append(mapping.Params, codemodel.AnnotationParam{Key: "consumes", Value: strconv.Quote(body.Mime)})
		}
		m.Annotations.Put(mapping)
	}
	if !ctx.Class.AddMethod(m) {
		return failure(r.Name(), e, "method %s is declared twice on %s", m.Name, ctx.Class.SimpleName)
	}
	ctx.SetMethod(a, m)
	return nil
}

type parameterRule struct{ impl bool }

func (parameterRule) Name() string { return "parameter" }

func (r parameterRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryParam {
		return notApplicable()
	}
	m, ok := ctx.Method(e.Action)
	if !ok {
		return failure(r.Name(), e, "no method for action")
	}
	p := e.Param
	if p.Type == nil {
		return failure(r.Name(), e, "%s parameter %q has no resolvable type", p.Location, p.Name)
	}
	node := codemodel.ParamNode{
		Name: ParamName(p),
		Type: TypeRef(p.Type, ctx.Config),
	}
	if !r.impl {
		node.Annotations = bindingAnnotations(p)
		if ctx.Config.IncludeConstraintAnnotations {
			for _, an := range constraintAnnotations(p.Type, p.Constraints, p.Required && p.Location != spec.InPath) {
				node.Annotations.Put(an)
			}
		}
	}
	if !m.AddParam(node) {
		return failure(r.Name(), e, "parameter name %q is used twice in %s", node.Name, m.Name)
	}
	return nil
}

// ParamName is the method parameter name for p. Bodies are named after
// their type.
func ParamName(p *metadata.ParamMetadata) string {
	if p.Location == spec.InBody {
		if p.Type.IsNamed() {
			return naming.Camel(p.Type.Name)
		}
		return "body"
	}
	return naming.FieldName(p.Name)
}

func bindingAnnotations(p *metadata.ParamMetadata) codemodel.Annotations {
	var as codemodel.Annotations
	required := strconv.FormatBool(p.Required)
	switch p.Location {
	case spec.InPath:
		as.Put(codemodel.NewAnnotation("PathVariable", "value", strconv.Quote(p.Name)))
	case spec.InQuery, spec.InHeader, spec.InCookie:
		name := map[spec.ParamLocation]string{
			spec.InQuery:  "RequestParam",
			spec.InHeader: "RequestHeader",
			spec.InCookie: "CookieValue",
		}[p.Location]
		an := codemodel.NewAnnotation(name, "value", strconv.Quote(p.Name), "required", required)
		if p.Default != nil {
			an.Params = append(an.Params, codemodel.AnnotationParam{Key: "defaultValue", Value: strconv.Quote(defaultString(p.Default))})
		}
		as.Put(an)
	case spec.InBody:
		as.Put(codemodel.NewAnnotation("RequestBody", "required", required))
	}
	return as
}

type injectedParameterRule struct{ impl bool }

func (injectedParameterRule) Name() string { return "injected-parameter" }

func (r injectedParameterRule) Apply(e Entry, ctx *Context) error {
	cfg := ctx.Config
	if e.Kind != EntryAction || (!cfg.InjectHTTPHeadersParameter && !cfg.InjectHTTPRequestParameter) {
		return notApplicable()
	}
	m, ok := ctx.Method(e.Action)
	if !ok {
		return failure(r.Name(), e, "no method for action")
	}
	var injected []codemodel.ParamNode
	if cfg.InjectHTTPHeadersParameter {
		p := codemodel.ParamNode{Name: "httpHeaders", Type: codemodel.Ref("HttpHeaders")}
		if !r.impl {
			p.Annotations.Put(codemodel.NewAnnotation("RequestHeader"))
		}
		injected = append(injected, p)
	}
	if cfg.InjectHTTPRequestParameter {
		injected = append(injected, codemodel.ParamNode{Name: "httpRequest", Type: codemodel.Ref("HttpServletRequest")})
	}
	for _, p := range injected {
		if !m.AddParam(p) {
			return failure(r.Name(), e, "injected parameter %q clashes with a declared parameter", p.Name)
		}
	}
	return nil
}

type responseTypeRule struct{ impl bool }

func (responseTypeRule) Name() string { return "response-type" }

func (r responseTypeRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryAction {
		return notApplicable()
	}
	m, ok := ctx.Method(e.Action)
	if !ok {
		return failure(r.Name(), e, "no method for action")
	}
	resp := e.Action.SuccessResponse()
	body := codemodel.Ref(voidType)
	if resp != nil && resp.Type != nil {
		body = TypeRef(resp.Type, ctx.Config)
	}
	m.ReturnType = codemodel.Ref(responseEntity, body)
	if !r.impl && resp != nil && resp.Mime != "" {
		if mapping, ok := m.Annotations.Get(requestMapping); ok {
			if _, ok := mapping.Param("produces"); !ok {
				mapping.Params = append(mapping.Params, codemodel.AnnotationParam{Key: "produces", Value: strconv.Quote(resp.Mime)})
			}
			m.Annotations.Put(mapping)
		}
	}
	return nil
}

type documentationRule struct{}

func (documentationRule) Name() string { return "documentation" }

func (r documentationRule) Apply(e Entry, ctx *Context) error {
	if ctx.Class == nil {
		return notApplicable()
	}
	switch e.Kind {
	case EntryResource:
		doc := firstNonEmpty(e.Resource.Description, e.Resource.DisplayName)
		if doc == "" {
			doc = "Handles " + e.Resource.Path + "."
		}
		ctx.Class.Doc = doc
	case EntryAction:
		m, ok := ctx.Method(e.Action)
		if !ok {
			return failure(r.Name(), e, "no method for action")
		}
		m.Doc = actionDoc(e.Action)
	case EntryParam:
		m, ok := ctx.Method(e.Action)
		if !ok {
			return failure(r.Name(), e, "no method for action")
		}
		if p, ok := m.Param(ParamName(e.Param)); ok {
			p.Doc = e.Param.Description
		}
	default:
		return notApplicable()
	}
	return nil
}

func actionDoc(a *metadata.ActionMetadata) string {
	var parts []string
	for _, s := range []string{a.Summary, a.Description} {
		if s = strings.TrimSpace(s); s != "" && (len(parts) == 0 || parts[0] != s) {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, strings.ToUpper(string(a.Verb))+" "+a.ResourcePath)
	}
	if len(a.Security) > 0 {
		parts = append(parts, "Secured by: "+strings.Join(a.Security, ", "))
	}
	if resp := a.SuccessResponse(); resp != nil && resp.Description != "" {
		parts = append(parts, "@return "+resp.Description)
	}
	return strings.Join(parts, "\n\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func generated(ctx *Context) codemodel.Annotation {
	return codemodel.NewAnnotation(generatedAn, "value", strconv.Quote(ctx.Config.GeneratorName))
}

func defaultString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strings.Trim(literal(v), `"`)
}

// constraintAnnotations renders validation bounds for a value of type d.
func constraintAnnotations(d *types.Descriptor, c types.Constraints, notNull bool) codemodel.Annotations {
	var as codemodel.Annotations
	if notNull {
		as.Put(codemodel.NewAnnotation("NotNull"))
	}
	shape := d.Resolved()
	if c.Pattern != "" {
		as.Put(codemodel.NewAnnotation("Pattern", "regexp", strconv.Quote(c.Pattern)))
	}
	min, max := c.MinLength, c.MaxLength
	if shape != nil && shape.Kind == types.KindArray {
		min, max = c.MinItems, c.MaxItems
	}
	if min != nil || max != nil {
		var kv []string
		if min != nil {
			kv = append(kv, "min", strconv.FormatUint(*min, 10))
		}
		if max != nil {
			kv = append(kv, "max", strconv.FormatUint(*max, 10))
		}
		as.Put(codemodel.NewAnnotation("Size", kv...))
	}
	integral := shape != nil && shape.Kind == types.KindPrimitive && shape.Primitive == types.Integer
	if c.Minimum != nil {
		if integral {
			as.Put(codemodel.NewAnnotation("Min", "value", numberLiteral(*c.Minimum)))
		} else {
			as.Put(codemodel.NewAnnotation("DecimalMin", "value", strconv.Quote(numberLiteral(*c.Minimum))))
		}
	}
	if c.Maximum != nil {
		if integral {
			as.Put(codemodel.NewAnnotation("Max", "value", numberLiteral(*c.Maximum)))
		} else {
			as.Put(codemodel.NewAnnotation("DecimalMax", "value", strconv.Quote(numberLiteral(*c.Maximum))))
		}
	}
	if cascades(d) {
		as.Put(codemodel.NewAnnotation("Valid"))
	}
	return as
}

// cascades reports whether validation must descend into d.
func cascades(d *types.Descriptor) bool {
	if d == nil {
		return false
	}
	if d.Kind == types.KindArray {
		return cascades(d.Elem)
	}
	switch d.Resolved().Kind {
	case types.KindObject, types.KindUnion:
		return d.Resolved().Name != ""
	}
	return false
}
