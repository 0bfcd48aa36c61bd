package spec

// Parsed input model. It mirrors the API description before any name or type
// resolution and is what the metadata builder consumes.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// ParamLocation is where a parameter is carried in a request.
type ParamLocation string

const (
	InPath   ParamLocation = "path"
	InQuery  ParamLocation = "query"
	InHeader ParamLocation = "header"
	InCookie ParamLocation = "cookie"
	InBody   ParamLocation = "body"
)

// ParsedSpec is the parser's output: a resource tree plus the declared types.
type ParsedSpec struct {
	Title       string
	Version     string
	Description string
	BaseURI     string
	// Resources are the top-level resources; deeper ones hang off Children.
	Resources []*ResourceNode
	// Types holds type declarations keyed by declared name.
	Types map[string]*TypeNode
	// SecuritySchemes in declaration order (sorted by name for OpenAPI input).
	SecuritySchemes []SecuritySchemeNode
}

type ResourceNode struct {
	// Segment is the relative URI of this node, e.g. "/pets" or "/{id}".
	Segment     string
	DisplayName string
	Description string
	// Annotations lists marker annotation names attached to the resource.
	Annotations []string
	Actions     []*ActionNode
	Children    []*ResourceNode
}

type ActionNode struct {
	Method      HttpMethod
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Annotations []string
	Params      []*ParamNode
	Body        *BodyNode
	Responses   []*ResponseNode
	// SecuredBy references security schemes by name.
	SecuredBy []string
}

type ParamNode struct {
	Name        string
	In          ParamLocation
	Required    bool
	Description string
	Type        *TypeNode
	Example     any
}

type BodyNode struct {
	Mime     string
	Required bool
	Type     *TypeNode
	Example  any
}

type ResponseNode struct {
	Status      string // 200, 4xx, default
	Description string
	Mime        string
	Type        *TypeNode
	Example     any
}

// TypeNode is a declared or inline type before interpretation. A node with
// Ref set only points at a named declaration.
type TypeNode struct {
	Ref string

	Type        string // object, array, string, integer, number, boolean, file; "" when untyped
	Format      string
	Description string
	Nullable    bool
	Default     any
	Example     any

	Properties []PropertyNode
	Required   []string
	Items      *TypeNode

	AllOf []*TypeNode
	AnyOf []*TypeNode
	OneOf []*TypeNode

	Enum []any

	Pattern   string
	Minimum   *float64
	Maximum   *float64
	MinLength *uint64
	MaxLength *uint64
	MinItems  *uint64
	MaxItems  *uint64
}

// PropertyNode is one object property; order is preserved.
type PropertyNode struct {
	Name string
	Type *TypeNode
}

type SecuritySchemeNode struct {
	Name string
	Type string // apiKey, http, oauth2, openIdConnect
	// Scheme is the http auth scheme (basic, bearer) when Type is http.
	Scheme string
	// Grants lists the OAuth 2 flows declared by the scheme.
	Grants []string
}

// Ref returns a TypeNode referencing the declaration name.
func Ref(name string) *TypeNode { return &TypeNode{Ref: name} }

// IsRef reports whether t only references a named declaration.
func (t *TypeNode) IsRef() bool { return t != nil && t.Ref != "" }

// HasAnnotation reports whether marker is among annotations.
func HasAnnotation(annotations []string, marker string) bool {
	if marker == "" {
		return false
	}
	for _, a := range annotations {
		if a == marker {
			return true
		}
	}
	return false
}
