// Package metadata builds the canonical, name-resolved snapshot of a parsed
// API description that the rule engine consumes.
package metadata

import (
	"strings"

	"github.com/mark3labs/endpointgen/internal/spec"
	"github.com/mark3labs/endpointgen/internal/types"
)

// Model is the result of one Build. Root is a synthetic container whose
// children are the top-level resources.
type Model struct {
	Title    string
	Version  string
	BaseURI  string
	Root     *ResourceMetadata
	Security []SecurityScheme
	Types    *types.Registry
}

type ResourceMetadata struct {
	// Path is the full URI template, e.g. "/pets/{id}".
	Path        string
	Segments    []string
	DisplayName string
	Description string
	// Identifier is the collision-free class name stem.
	Identifier  string
	Annotations []string
	Actions     []*ActionMetadata
	Children    []*ResourceMetadata
}

// HasActions reports whether any action survived filtering.
func (r *ResourceMetadata) HasActions() bool { return len(r.Actions) > 0 }

type ActionMetadata struct {
	Verb         spec.HttpMethod
	MethodName   string
	ResourcePath string
	OperationID  string
	Summary      string
	Description  string
	Tags         []string
	Annotations  []string
	// Params are ordered path, query, header, cookie, body.
	Params []*ParamMetadata
	// Responses are ordered by status code; wildcard and default come last.
	Responses      []*Response
	Security       []string
	RequestExample any
}

// Label identifies the action in diagnostics, e.g. "/pets/{id} GET".
func (a *ActionMetadata) Label() string {
	return a.ResourcePath + " " + strings.ToUpper(string(a.Verb))
}

// Body returns the request body parameter, if any.
func (a *ActionMetadata) Body() *ParamMetadata {
	for _, p := range a.Params {
		if p.Location == spec.InBody {
			return p
		}
	}
	return nil
}

// SuccessResponse returns the first 2xx response, falling back to default.
func (a *ActionMetadata) SuccessResponse() *Response {
	var fallback *Response
	for _, r := range a.Responses {
		if strings.HasPrefix(r.Status, "2") {
			return r
		}
		if r.Status == "default" {
			fallback = r
		}
	}
	return fallback
}

type ParamMetadata struct {
	Name        string
	Location    spec.ParamLocation
	Required    bool
	Type        *types.Descriptor
	Constraints types.Constraints
	Format      string
	Default     any
	// Repeat is set for array parameters.
	Repeat      bool
	Description string
	Example     any
	Mime        string
}

type Response struct {
	Status      string
	Description string
	Mime        string
	Type        *types.Descriptor
	Example     any
}

type SecurityScheme struct {
	Name   string
	Type   string
	Scheme string
	Grants []string
}

// Walk visits resources depth-first, parents before children. The synthetic
// root is not visited.
func (m *Model) Walk(fn func(*ResourceMetadata) error) error {
	var visit func(rs []*ResourceMetadata) error
	visit = func(rs []*ResourceMetadata) error {
		for _, r := range rs {
			if err := fn(r); err != nil {
				return err
			}
			if err := visit(r.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if m.Root == nil {
		return nil
	}
	return visit(m.Root.Children)
}

// Resources returns every resource in Walk order.
func (m *Model) Resources() []*ResourceMetadata {
	var out []*ResourceMetadata
	_ = m.Walk(func(r *ResourceMetadata) error {
		out = append(out, r)
		return nil
	})
	return out
}

// Find returns the resource at path.
func (m *Model) Find(path string) (*ResourceMetadata, bool) {
	for _, r := range m.Resources() {
		if r.Path == path {
			return r, true
		}
	}
	return nil, false
}

// TypeNames returns the canonical names of all resolved types.
func (m *Model) TypeNames() []string {
	if m.Types == nil {
		return nil
	}
	return m.Types.Names()
}
