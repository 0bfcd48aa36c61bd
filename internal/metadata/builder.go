package metadata

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mark3labs/endpointgen/internal/config"
	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/logger"
	"github.com/mark3labs/endpointgen/internal/naming"
	"github.com/mark3labs/endpointgen/internal/spec"
	"github.com/mark3labs/endpointgen/internal/types"
)

// Build canonicalizes parsed. Declared types are resolved first, in name
// order, then the resource tree is walked depth-first. A nil registry is
// created from parsed.Types.
func Build(parsed *spec.ParsedSpec, reg *types.Registry, cfg config.GenerationConfig) (*Model, error) {
	if parsed == nil {
		return nil, errors.New("metadata: nil parsed spec")
	}
	if reg == nil {
		var err error
		if reg, err = types.NewRegistry(parsed.Types); err != nil {
			return nil, err
		}
	}
	b := &builder{
		cfg:     cfg,
		chain:   types.NewChain(reg),
		names:   naming.NewRegistry(),
		schemes: map[string]bool{},
		log:     logger.Named("metadata"),
	}
	if err := b.chain.ResolveAll(); err != nil {
		return nil, err
	}

	m := &Model{
		Title:   parsed.Title,
		Version: parsed.Version,
		BaseURI: parsed.BaseURI,
		Root:    &ResourceMetadata{Path: "/"},
		Types:   reg,
	}
	for _, s := range parsed.SecuritySchemes {
		b.schemes[s.Name] = true
		m.Security = append(m.Security, SecurityScheme{
			Name:   s.Name,
			Type:   s.Type,
			Scheme: s.Scheme,
			Grants: append([]string(nil), s.Grants...),
		})
	}

	for _, node := range parsed.Resources {
		r, err := b.resource(node, nil)
		if err != nil {
			return nil, err
		}
		if r != nil {
			m.Root.Children = append(m.Root.Children, r)
		}
	}
	b.log.Debugw("metadata built", "resources", len(m.Resources()), "types", reg.Len())
	return m, nil
}

type builder struct {
	cfg     config.GenerationConfig
	chain   *types.Chain
	names   *naming.Registry
	schemes map[string]bool
	log     *zap.SugaredLogger
}

func (b *builder) omitted(annotations []string) bool {
	return spec.HasAnnotation(annotations, b.cfg.DontGenerateForAnnotation)
}

func (b *builder) resource(node *spec.ResourceNode, parent []string) (*ResourceMetadata, error) {
	segments := append(append([]string(nil), parent...), naming.Segments(node.Segment)...)
	path := "/" + strings.Join(segments, "/")
	if b.omitted(node.Annotations) {
		b.log.Debugw("resource omitted by marker", "path", path, "marker", b.cfg.DontGenerateForAnnotation)
		return nil, nil
	}

	r := &ResourceMetadata{
		Path:        path,
		Segments:    segments,
		DisplayName: node.DisplayName,
		Description: node.Description,
		Identifier:  naming.Resolve(segments, b.cfg),
		Annotations: append([]string(nil), node.Annotations...),
	}
	for _, an := range node.Actions {
		if b.omitted(an.Annotations) {
			b.log.Debugw("action omitted by marker", "path", path, "verb", an.Method)
			continue
		}
		a, err := b.action(r, an)
		if err != nil {
			return nil, err
		}
		r.Actions = append(r.Actions, a)
	}
	// only resources that produce a controller compete for identifiers
	if r.HasActions() {
		if err := b.names.Claim(r.Identifier, path); err != nil {
			return nil, err
		}
	}

	for _, child := range node.Children {
		c, err := b.resource(child, segments)
		if err != nil {
			return nil, err
		}
		if c != nil {
			r.Children = append(r.Children, c)
		}
	}
	return r, nil
}

func (b *builder) action(r *ResourceMetadata, node *spec.ActionNode) (*ActionMetadata, error) {
	verb := spec.HttpMethod(strings.ToLower(string(node.Method)))
	a := &ActionMetadata{
		Verb:         verb,
		ResourcePath: r.Path,
		OperationID:  node.OperationID,
		Summary:      node.Summary,
		Description:  node.Description,
		Tags:         append([]string(nil), node.Tags...),
		Annotations:  append([]string(nil), node.Annotations...),
	}
	stem := r.Identifier + naming.Pascal(string(verb))

	params := append([]*spec.ParamNode(nil), node.Params...)
	sort.SliceStable(params, func(i, j int) bool {
		return locationRank(params[i].In) < locationRank(params[j].In)
	})
	for _, p := range params {
		pm, err := b.param(a, p, stem+naming.Pascal(p.Name))
		if err != nil {
			return nil, err
		}
		a.Params = append(a.Params, pm)
	}
	if node.Body != nil {
		body := &spec.ParamNode{Name: "body", In: spec.InBody, Required: node.Body.Required, Type: node.Body.Type, Example: node.Body.Example}
		pm, err := b.param(a, body, stem+"Request")
		if err != nil {
			return nil, err
		}
		pm.Mime = node.Body.Mime
		a.RequestExample = node.Body.Example
		a.Params = append(a.Params, pm)
	}

	for _, rn := range node.Responses {
		resp := &Response{Status: rn.Status, Description: rn.Description, Mime: rn.Mime, Example: rn.Example}
		if rn.Type != nil {
			d, err := b.chain.Interpret(rn.Type, types.Context{
				Hint:   stem + naming.Pascal(rn.Status) + "Response",
				Source: a.Label() + " response " + rn.Status,
			})
			if err != nil {
				return nil, err
			}
			resp.Type = d
		}
		a.Responses = append(a.Responses, resp)
	}
	sort.SliceStable(a.Responses, func(i, j int) bool {
		return statusRank(a.Responses[i].Status) < statusRank(a.Responses[j].Status)
	})

	for _, name := range node.SecuredBy {
		if !b.schemes[name] {
			b.log.Warnw("action references unknown security scheme", "action", a.Label(), "scheme", name)
			continue
		}
		a.Security = append(a.Security, name)
	}

	a.MethodName = naming.MethodName(string(verb), r.Segments, objectName(a), b.cfg)
	return a, nil
}

func (b *builder) param(a *ActionMetadata, node *spec.ParamNode, hint string) (*ParamMetadata, error) {
	pm := &ParamMetadata{
		Name:        node.Name,
		Location:    node.In,
		Required:    node.Required || node.In == spec.InPath,
		Description: node.Description,
		Example:     node.Example,
	}
	if node.Type == nil {
		return pm, nil
	}
	d, err := b.chain.Interpret(node.Type, types.Context{Hint: hint, Source: a.Label() + " " + string(node.In) + " " + node.Name})
	if err != nil {
		return nil, err
	}
	pm.Type = d
	shape := d.Resolved()
	pm.Constraints = shape.Constraints
	pm.Format = shape.Format
	pm.Repeat = shape.Kind == types.KindArray
	pm.Default = node.Type.Default
	if pm.Description == "" {
		pm.Description = node.Type.Description
	}
	return pm, nil
}

// objectName is the type name the objects naming logic builds method names
// from: the request body type, else the success response type.
func objectName(a *ActionMetadata) string {
	if body := a.Body(); body != nil && body.Type.IsNamed() {
		return body.Type.Name
	}
	if resp := a.SuccessResponse(); resp != nil && resp.Type != nil {
		t := resp.Type
		if t.Kind == types.KindArray && t.Elem.IsNamed() {
			return t.Elem.Name + "List"
		}
		if t.IsNamed() {
			return t.Name
		}
	}
	return ""
}

func locationRank(l spec.ParamLocation) int {
	switch l {
	case spec.InPath:
		return 0
	case spec.InQuery:
		return 1
	case spec.InHeader:
		return 2
	case spec.InCookie:
		return 3
	}
	return 4
}

// statusRank orders explicit codes numerically, then wildcard classes like
// 2XX, then default.
func statusRank(status string) int {
	if n, err := strconv.Atoi(status); err == nil {
		return n * 10
	}
	if len(status) == 3 && status[0] >= '1' && status[0] <= '5' {
		return int(status[0]-'0')*1000 + 9999
	}
	return 1 << 20
}
