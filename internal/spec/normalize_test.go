package spec

import (
	"context"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

const sampleSpec = `openapi: 3.0.0
info:
  title: Sample API
  version: "1.0.0"
  description: Demo
servers:
  - url: https://api.example.com/v1
security:
  - apiKey: []
paths:
  /pets:
    x-display-name: Pets
    parameters:
      - in: query
        name: limit
        required: false
        schema:
          type: integer
      - in: header
        name: X-Trace
        schema:
          type: string
    get:
      summary: List pets
      description: Returns all pets
      tags: [read, animal]
      parameters:
        - in: query
          name: limit
          required: true
          schema:
            type: integer
            maximum: 100
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: '#/components/schemas/Pet'
    post:
      summary: Create pet
      tags: [write, animal]
      x-annotations: [audited]
      security:
        - oauth: [write]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
            example:
              id: 1
              name: Fluffy
      responses:
        "201":
          description: created
  /pets/{id}:
    get:
      parameters:
        - in: path
          name: id
          required: true
          schema:
            type: string
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
  /admin:
    x-annotations: "internal, ops"
    get:
      summary: Admin only
      tags: [admin]
      security: []
      responses:
        "200": { description: ok }
components:
  securitySchemes:
    apiKey:
      type: apiKey
      in: header
      name: X-Key
    oauth:
      type: oauth2
      flows:
        authorizationCode:
          authorizationUrl: https://auth.example.com/authorize
          tokenUrl: https://auth.example.com/token
          scopes:
            write: write access
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        name:
          type: string
          minLength: 1
        id:
          type: integer
          format: int64
        kind:
          oneOf:
            - $ref: '#/components/schemas/Cat'
            - type: string
    Animal:
      type: object
      properties:
        legs:
          type: integer
    Cat:
      allOf:
        - $ref: '#/components/schemas/Animal'
        - type: object
          properties:
            indoor:
              type: boolean
`

func loadDoc(t *testing.T, spec string) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(strings.TrimSpace(spec)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return doc
}

func findResource(nodes []*ResourceNode, path string) *ResourceNode {
	var walk func(prefix string, nodes []*ResourceNode) *ResourceNode
	walk = func(prefix string, nodes []*ResourceNode) *ResourceNode {
		for _, n := range nodes {
			p := strings.TrimSuffix(prefix, "/") + n.Segment
			if p == path {
				return n
			}
			if found := walk(p, n.Children); found != nil {
				return found
			}
		}
		return nil
	}
	return walk("", nodes)
}

func TestBuildParsedSpec_Tree(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, sampleSpec)

	ps, err := BuildParsedSpec(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ps.Title != "Sample API" || ps.BaseURI != "https://api.example.com/v1" {
		t.Errorf("info: got %q %q", ps.Title, ps.BaseURI)
	}
	if len(ps.Resources) != 2 {
		t.Fatalf("top-level resources: got %d", len(ps.Resources))
	}
	if ps.Resources[0].Segment != "/admin" || ps.Resources[1].Segment != "/pets" {
		t.Errorf("resource order: got %s, %s", ps.Resources[0].Segment, ps.Resources[1].Segment)
	}

	pets := findResource(ps.Resources, "/pets")
	if pets.DisplayName != "Pets" {
		t.Errorf("display name: got %q", pets.DisplayName)
	}
	if len(pets.Actions) != 2 || pets.Actions[0].Method != GET || pets.Actions[1].Method != POST {
		t.Fatalf("pets actions: %+v", pets.Actions)
	}
	if len(pets.Children) != 1 || pets.Children[0].Segment != "/{id}" {
		t.Fatalf("pets children: %+v", pets.Children)
	}

	admin := findResource(ps.Resources, "/admin")
	if got := strings.Join(admin.Annotations, ","); got != "internal,ops" {
		t.Errorf("admin annotations: got %q", got)
	}
	if len(admin.Actions[0].SecuredBy) != 0 {
		t.Errorf("explicit empty security must override the global one, got %v", admin.Actions[0].SecuredBy)
	}
}

func TestBuildParsedSpec_ParamsAndBodies(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, sampleSpec)
	ps, err := BuildParsedSpec(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pets := findResource(ps.Resources, "/pets")

	list := pets.Actions[0]
	if len(list.Params) != 2 {
		t.Fatalf("params: got %d", len(list.Params))
	}
	limit := list.Params[0]
	if limit.Name != "limit" || !limit.Required || limit.Type.Maximum == nil || *limit.Type.Maximum != 100 {
		t.Errorf("operation parameter should override the path-level one: %+v", limit)
	}
	if list.Params[1].In != InHeader {
		t.Errorf("path-level header kept: %+v", list.Params[1])
	}
	if got := strings.Join(list.SecuredBy, ","); got != "apiKey" {
		t.Errorf("global security: got %q", got)
	}
	if len(list.Responses) != 1 || list.Responses[0].Type.Items.Ref != "Pet" {
		t.Errorf("list response: %+v", list.Responses)
	}

	create := pets.Actions[1]
	if create.Body == nil || create.Body.Mime != "application/json" || create.Body.Type.Ref != "Pet" || !create.Body.Required {
		t.Fatalf("body: %+v", create.Body)
	}
	if create.Body.Example == nil {
		t.Errorf("body example missing")
	}
	if !HasAnnotation(create.Annotations, "audited") {
		t.Errorf("operation annotations: %v", create.Annotations)
	}
	if got := strings.Join(create.SecuredBy, ","); got != "oauth" {
		t.Errorf("operation security: got %q", got)
	}
}

func TestBuildParsedSpec_TypesAndSecurity(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, sampleSpec)
	ps, err := BuildParsedSpec(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	pet, ok := ps.Types["Pet"]
	if !ok {
		t.Fatalf("types: missing Pet")
	}
	var names []string
	for _, p := range pet.Properties {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, ","); got != "id,kind,name" {
		t.Errorf("properties sorted by name: got %q", got)
	}
	if pet.Properties[2].Type.MinLength == nil || *pet.Properties[2].Type.MinLength != 1 {
		t.Errorf("minLength not carried: %+v", pet.Properties[2].Type)
	}
	kind := pet.Properties[1].Type
	if len(kind.OneOf) != 2 || kind.OneOf[0].Ref != "Cat" || kind.OneOf[1].Type != "string" {
		t.Errorf("oneOf: %+v", kind.OneOf)
	}

	cat := ps.Types["Cat"]
	if len(cat.AllOf) != 2 || cat.AllOf[0].Ref != "Animal" {
		t.Errorf("allOf: %+v", cat.AllOf)
	}

	if len(ps.SecuritySchemes) != 2 {
		t.Fatalf("security schemes: %+v", ps.SecuritySchemes)
	}
	oauth := ps.SecuritySchemes[1]
	if oauth.Name != "oauth" || oauth.Type != "oauth2" || strings.Join(oauth.Grants, ",") != "authorizationCode" {
		t.Errorf("oauth scheme: %+v", oauth)
	}
}

func TestBuildParsedSpec_Filters(t *testing.T) {
	t.Parallel()
	doc := loadDoc(t, sampleSpec)

	cases := []struct {
		name string
		opts []BuildOption
		want []string
	}{
		{"include", []BuildOption{WithIncludeTags([]string{"animal"})}, []string{"/pets GET", "/pets POST"}},
		{"exclude", []BuildOption{WithExcludeTags([]string{"admin", "write"})}, []string{"/pets GET", "/pets/{id} GET"}},
		{"methods", []BuildOption{WithMethods([]HttpMethod{"POST"})}, []string{"/pets POST"}},
		{"paths", []BuildOption{WithPathPatterns([]string{`^/pets/`})}, []string{"/pets/{id} GET"}},
		{"bad pattern", []BuildOption{WithPathPatterns([]string{`(`})}, nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ps, err := BuildParsedSpec(context.Background(), doc, tc.opts...)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			var got []string
			for _, path := range []string{"/admin", "/pets", "/pets/{id}"} {
				r := findResource(ps.Resources, path)
				if r == nil {
					continue
				}
				for _, a := range r.Actions {
					got = append(got, path+" "+strings.ToUpper(string(a.Method)))
				}
			}
			if strings.Join(got, ";") != strings.Join(tc.want, ";") {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuildParsedSpec_NilDoc(t *testing.T) {
	t.Parallel()
	if _, err := BuildParsedSpec(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestRefName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"#/components/schemas/Pet": "Pet",
		"other.yaml#/Pet":          "Pet",
		"Pet":                      "Pet",
	}
	for in, want := range cases {
		if got := refName(in); got != want {
			t.Errorf("refName(%q) = %q, want %q", in, got, want)
		}
	}
}
