package spec

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/logger"
)

const (
	// ExtAnnotations lists marker annotations on a path item or operation,
	// as a YAML list or a comma separated string.
	ExtAnnotations = "x-annotations"
	// ExtDisplayName overrides the display name of a path item.
	ExtDisplayName = "x-display-name"

	componentSchemaPrefix = "#/components/schemas/"
)

// BuildOption configures how the ParsedSpec is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			if t = strings.TrimSpace(t); t == "" {
				continue
			}
			if c.includeTags == nil {
				c.includeTags = make(map[string]struct{}, len(tags))
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			if t = strings.TrimSpace(t); t == "" {
				continue
			}
			if c.excludeTags == nil {
				c.excludeTags = make(map[string]struct{}, len(tags))
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[HttpMethod]struct{}, len(methods))
			}
			c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the provided regular expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				logger.Named("spec").Warnw("invalid path pattern ignored", "pattern", p, "error", err)
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

func (c *buildConfig) allowPath(path string) bool {
	if len(c.pathRes) == 0 {
		return true
	}
	for _, re := range c.pathRes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (c *buildConfig) allowMethod(m HttpMethod) bool {
	if len(c.methods) == 0 {
		return true
	}
	_, ok := c.methods[m]
	return ok
}

func (c *buildConfig) allowTags(tags []string) bool {
	if len(c.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := c.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := c.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

// BuildParsedSpec converts an OpenAPI v3 document into the resource tree and
// type declarations the generator consumes. Paths are split into segments
// and merged into a tree; intermediate segments without a path item become
// resources without actions.
func BuildParsedSpec(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*ParsedSpec, error) {
	_ = ctx
	if doc == nil {
		return nil, errors.New("spec: nil document")
	}
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	ps := &ParsedSpec{Types: map[string]*TypeNode{}}
	if doc.Info != nil {
		ps.Title = safeStr(doc.Info.Title)
		ps.Version = safeStr(doc.Info.Version)
		ps.Description = safeStr(doc.Info.Description)
	}
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		ps.BaseURI = safeStr(doc.Servers[0].URL)
	}

	if doc.Components != nil {
		for _, name := range sortedKeys(doc.Components.Schemas) {
			if t := toTypeNode(doc.Components.Schemas[name]); t != nil {
				ps.Types[name] = t
			}
		}
		for _, name := range sortedKeys(doc.Components.SecuritySchemes) {
			ref := doc.Components.SecuritySchemes[name]
			if ref == nil || ref.Value == nil {
				continue
			}
			ps.SecuritySchemes = append(ps.SecuritySchemes, toSecurityScheme(name, ref.Value))
		}
	}

	tree := &trie{}
	for _, path := range sortedKeys(doc.Paths) {
		item := doc.Paths[path]
		if item == nil || !cfg.allowPath(path) {
			continue
		}
		var actions []*ActionNode
		for _, pair := range operations(item) {
			if !cfg.allowMethod(pair.method) {
				continue
			}
			tags := trimmed(pair.op.Tags)
			if !cfg.allowTags(tags) {
				continue
			}
			actions = append(actions, toAction(pair.method, pair.op, item, doc, tags))
		}
		if len(actions) == 0 {
			continue
		}
		node := tree.insert(path)
		node.Actions = append(node.Actions, actions...)
		node.Annotations = annotations(item.Extensions)
		node.DisplayName = stringExt(item.Extensions, ExtDisplayName)
		node.Description = firstNonEmpty(item.Description, item.Summary)
	}
	ps.Resources = tree.roots()
	return ps, nil
}

type opPair struct {
	method HttpMethod
	op     *openapi3.Operation
}

// operations returns the operations of item in a stable order.
func operations(item *openapi3.PathItem) []opPair {
	all := []opPair{
		{GET, item.Get},
		{POST, item.Post},
		{PUT, item.Put},
		{DELETE, item.Delete},
		{PATCH, item.Patch},
		{HEAD, item.Head},
		{OPTIONS, item.Options},
		{TRACE, item.Trace},
	}
	out := all[:0]
	for _, p := range all {
		if p.op != nil {
			out = append(out, p)
		}
	}
	return out
}

func toAction(method HttpMethod, op *openapi3.Operation, item *openapi3.PathItem, doc *openapi3.T, tags []string) *ActionNode {
	a := &ActionNode{
		Method:      method,
		OperationID: safeStr(op.OperationID),
		Summary:     safeStr(op.Summary),
		Description: safeStr(op.Description),
		Tags:        tags,
		Annotations: annotations(op.Extensions),
		Params:      mergeParams(item.Parameters, op.Parameters),
		SecuredBy:   securedBy(op, doc),
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		rb := op.RequestBody.Value
		mime, mt := pickMedia(rb.Content)
		body := &BodyNode{Mime: mime, Required: rb.Required}
		if mt != nil {
			body.Type = toTypeNode(mt.Schema)
			body.Example = mediaExample(mt)
		}
		a.Body = body
	}

	for _, status := range sortedKeys(op.Responses) {
		rref := op.Responses[status]
		if rref == nil || rref.Value == nil {
			continue
		}
		resp := &ResponseNode{Status: status}
		if rref.Value.Description != nil {
			resp.Description = safeStr(*rref.Value.Description)
		}
		if mime, mt := pickMedia(rref.Value.Content); mt != nil {
			resp.Mime = mime
			resp.Type = toTypeNode(mt.Schema)
			resp.Example = mediaExample(mt)
		}
		a.Responses = append(a.Responses, resp)
	}
	return a
}

// mergeParams combines path-level and operation-level parameters. An
// operation parameter replaces the path-level one with the same location
// and name in place; declaration order is kept otherwise.
func mergeParams(pathLevel, opLevel openapi3.Parameters) []*ParamNode {
	var out []*ParamNode
	index := map[string]int{}
	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			p := toParam(ref)
			if p == nil {
				continue
			}
			key := string(p.In) + ":" + p.Name
			if i, ok := index[key]; ok {
				out[i] = p
				continue
			}
			index[key] = len(out)
			out = append(out, p)
		}
	}
	add(pathLevel)
	add(opLevel)
	return out
}

func toParam(ref *openapi3.ParameterRef) *ParamNode {
	if ref == nil || ref.Value == nil {
		return nil
	}
	p := ref.Value
	pn := &ParamNode{
		Name:        safeStr(p.Name),
		In:          ParamLocation(strings.ToLower(safeStr(p.In))),
		Required:    p.Required,
		Description: safeStr(p.Description),
		Example:     p.Example,
	}
	switch {
	case p.Schema != nil:
		pn.Type = toTypeNode(p.Schema)
	case len(p.Content) > 0:
		if _, mt := pickMedia(p.Content); mt != nil {
			pn.Type = toTypeNode(mt.Schema)
		}
	}
	return pn
}

// securedBy returns the scheme names an operation requires. An operation
// level requirement list, even an empty one, overrides the global one.
func securedBy(op *openapi3.Operation, doc *openapi3.T) []string {
	reqs := doc.Security
	if op.Security != nil {
		reqs = *op.Security
	}
	seen := map[string]bool{}
	var out []string
	for _, req := range reqs {
		for _, name := range sortedKeys(req) {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

func toSecurityScheme(name string, s *openapi3.SecurityScheme) SecuritySchemeNode {
	node := SecuritySchemeNode{Name: name, Type: safeStr(s.Type), Scheme: safeStr(s.Scheme)}
	if f := s.Flows; f != nil {
		if f.AuthorizationCode != nil {
			node.Grants = append(node.Grants, "authorizationCode")
		}
		if f.ClientCredentials != nil {
			node.Grants = append(node.Grants, "clientCredentials")
		}
		if f.Implicit != nil {
			node.Grants = append(node.Grants, "implicit")
		}
		if f.Password != nil {
			node.Grants = append(node.Grants, "password")
		}
	}
	return node
}

// pickMedia prefers JSON content and otherwise takes the first media type by
// name.
func pickMedia(content openapi3.Content) (string, *openapi3.MediaType) {
	if len(content) == 0 {
		return "", nil
	}
	if mt := content["application/json"]; mt != nil {
		return "application/json", mt
	}
	for _, mime := range sortedKeys(content) {
		if mt := content[mime]; mt != nil {
			return mime, mt
		}
	}
	return "", nil
}

func mediaExample(mt *openapi3.MediaType) any {
	if mt.Example != nil {
		return mt.Example
	}
	names := sortedKeys(mt.Examples)
	if len(names) == 0 {
		return nil
	}
	if ref := mt.Examples[names[0]]; ref != nil && ref.Value != nil {
		return ref.Value.Value
	}
	return nil
}

// toTypeNode converts a schema. References keep only the declaration name;
// properties are ordered by name since the document does not preserve order.
func toTypeNode(ref *openapi3.SchemaRef) *TypeNode {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		return Ref(refName(ref.Ref))
	}
	if ref.Value == nil {
		return &TypeNode{}
	}
	v := ref.Value
	t := &TypeNode{
		Type:        safeStr(v.Type),
		Format:      safeStr(v.Format),
		Description: safeStr(v.Description),
		Nullable:    v.Nullable,
		Default:     v.Default,
		Example:     v.Example,
		Required:    append([]string(nil), v.Required...),
		Items:       toTypeNode(v.Items),
		Pattern:     v.Pattern,
		Minimum:     v.Min,
		Maximum:     v.Max,
		MaxLength:   v.MaxLength,
		MaxItems:    v.MaxItems,
	}
	if v.MinLength > 0 {
		n := v.MinLength
		t.MinLength = &n
	}
	if v.MinItems > 0 {
		n := v.MinItems
		t.MinItems = &n
	}
	if len(v.Enum) > 0 {
		t.Enum = append([]any(nil), v.Enum...)
	}
	for _, name := range sortedKeys(v.Properties) {
		t.Properties = append(t.Properties, PropertyNode{Name: name, Type: toTypeNode(v.Properties[name])})
	}
	for _, r := range v.AllOf {
		t.AllOf = append(t.AllOf, toTypeNode(r))
	}
	for _, r := range v.AnyOf {
		t.AnyOf = append(t.AnyOf, toTypeNode(r))
	}
	for _, r := range v.OneOf {
		t.OneOf = append(t.OneOf, toTypeNode(r))
	}
	return t
}

// refName returns the declaration name a reference points at.
func refName(ref string) string {
	if strings.HasPrefix(ref, componentSchemaPrefix) {
		return strings.TrimPrefix(ref, componentSchemaPrefix)
	}
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// annotations reads the marker extension. YAML lists, JSON arrays and comma
// separated strings are accepted.
func annotations(ext map[string]any) []string {
	raw, ok := ext[ExtAnnotations]
	if !ok {
		return nil
	}
	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, x := range v {
			if s, ok := x.(string); ok {
				items = append(items, s)
			}
		}
	case string:
		items = strings.Split(v, ",")
	case json.RawMessage:
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			items = list
		} else {
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				items = strings.Split(s, ",")
			}
		}
	}
	return trimmed(items)
}

func stringExt(ext map[string]any, key string) string {
	switch v := ext[key].(type) {
	case string:
		return safeStr(v)
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return safeStr(s)
		}
	}
	return ""
}

type trie struct {
	children []*trieNode
}

type trieNode struct {
	seg      string
	res      *ResourceNode
	children []*trieNode
}

// insert returns the resource for path, creating missing ancestors.
func (t *trie) insert(path string) *ResourceNode {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		segs = []string{""}
	}
	level := &t.children
	var node *trieNode
	for _, seg := range segs {
		node = nil
		for _, c := range *level {
			if c.seg == seg {
				node = c
				break
			}
		}
		if node == nil {
			node = &trieNode{seg: seg, res: &ResourceNode{Segment: "/" + seg}}
			*level = append(*level, node)
		}
		level = &node.children
	}
	return node.res
}

func (t *trie) roots() []*ResourceNode {
	var build func(nodes []*trieNode) []*ResourceNode
	build = func(nodes []*trieNode) []*ResourceNode {
		out := make([]*ResourceNode, 0, len(nodes))
		for _, n := range nodes {
			n.res.Children = build(n.children)
			out = append(out, n.res)
		}
		return out
	}
	return build(t.children)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimmed(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func safeStr(s string) string { return strings.TrimSpace(s) }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = safeStr(v); v != "" {
			return v
		}
	}
	return ""
}
