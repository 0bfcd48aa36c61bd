package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/endpointgen/internal/codemodel"
	"github.com/mark3labs/endpointgen/internal/config"
	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/metadata"
	"github.com/mark3labs/endpointgen/internal/spec"
)

func str() *spec.TypeNode { return &spec.TypeNode{Type: "string"} }

func f64(v float64) *float64 { return &v }
func u64(v uint64) *uint64   { return &v }

func petStore() *spec.ParsedSpec {
	return &spec.ParsedSpec{
		Types: map[string]*spec.TypeNode{
			"Cat": {Type: "object", Required: []string{"name"}, Properties: []spec.PropertyNode{
				{Name: "name", Type: str()},
				{Name: "indoor", Type: &spec.TypeNode{Type: "boolean"}},
			}},
			"Dog": {Type: "object", Required: []string{"name"}, Properties: []spec.PropertyNode{
				{Name: "name", Type: str()},
				{Name: "barks", Type: &spec.TypeNode{Type: "boolean"}},
			}},
			"Pet": {OneOf: []*spec.TypeNode{spec.Ref("Cat"), spec.Ref("Dog")}},
			"Owner": {Type: "object", Required: []string{"name", "age"}, Properties: []spec.PropertyNode{
				{Name: "name", Type: &spec.TypeNode{Type: "string", Pattern: "^[A-Z]", MinLength: u64(1), MaxLength: u64(40)}},
				{Name: "age", Type: &spec.TypeNode{Type: "integer", Minimum: f64(0), Maximum: f64(150)}},
				{Name: "weight", Type: &spec.TypeNode{Type: "number", Minimum: f64(0.5)}},
				{Name: "pets", Type: &spec.TypeNode{Type: "array", Items: spec.Ref("Pet"), MaxItems: u64(5)}},
				{Name: "status", Type: &spec.TypeNode{Type: "string", Enum: []any{"active", "on-hold"}}},
			}},
		},
		Resources: []*spec.ResourceNode{{
			Segment: "/pets",
			Actions: []*spec.ActionNode{{
				Method:    spec.POST,
				Summary:   "Create a pet",
				Body:      &spec.BodyNode{Mime: "application/json", Required: true, Type: spec.Ref("Pet")},
				Responses: []*spec.ResponseNode{{Status: "201", Mime: "application/json", Type: spec.Ref("Pet"), Description: "the created pet"}},
			}},
			Children: []*spec.ResourceNode{{
				Segment: "/{id}",
				Actions: []*spec.ActionNode{{
					Method:    spec.GET,
					Params:    []*spec.ParamNode{{Name: "id", In: spec.InPath, Required: true, Type: str()}},
					Responses: []*spec.ResponseNode{{Status: "200", Type: spec.Ref("Pet")}},
				}},
			}},
		}},
	}
}

// generate runs every target the way the engine does, without staging
// across subtrees.
func generate(t *testing.T, parsed *spec.ParsedSpec, cfg config.GenerationConfig) (*codemodel.Model, error) {
	t.Helper()
	meta, err := metadata.Build(parsed, nil, cfg)
	require.NoError(t, err)

	model := codemodel.New()
	ctx := NewContext(cfg, model, meta.Types)
	for _, e := range TypeEntries(meta.Types) {
		if err := DataClassTarget().Apply([]Entry{e}, ctx); err != nil {
			return nil, err
		}
		require.NoError(t, ctx.Commit())
	}
	for _, r := range meta.Resources() {
		entries := ResourceEntries(r)
		if err := ControllerTarget().Apply(entries, ctx); err != nil {
			return nil, err
		}
		if cfg.GenerateImplementation {
			if err := ImplementationTarget().Apply(entries, ctx); err != nil {
				return nil, err
			}
		}
		require.NoError(t, ctx.Commit())
	}
	return model, nil
}

func class(t *testing.T, m *codemodel.Model, name string) *codemodel.ClassNode {
	t.Helper()
	c, ok := m.Class(name)
	require.True(t, ok, "class %s not generated", name)
	return c
}

func TestController_GetPetsByID(t *testing.T) {
	t.Parallel()
	m, err := generate(t, petStore(), config.MustNew(config.WithResourceDepth(2)))
	require.NoError(t, err)

	c := class(t, m, "com.example.api.PetsIdController")
	assert.Equal(t, codemodel.ControllerInterface, c.Kind)
	mapping, ok := c.Annotations.Get("RequestMapping")
	require.True(t, ok)
	assert.Equal(t, `@RequestMapping(value = "/pets/{id}")`, mapping.String())

	method, ok := c.Method("getPetsById")
	require.True(t, ok)
	assert.True(t, method.Abstract)
	assert.Equal(t, "ResponseEntity<Pet>", method.ReturnType.String())
	require.Len(t, method.Params, 1)
	id := method.Params[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "String", id.Type.String())
	pv, ok := id.Annotations.Get("PathVariable")
	require.True(t, ok)
	assert.Equal(t, `@PathVariable(value = "id")`, pv.String())
	assert.False(t, id.Annotations.Has("NotNull"), "path variables are always bound")
}

func TestController_BodyAndProduces(t *testing.T) {
	t.Parallel()
	m, err := generate(t, petStore(), config.MustNew())
	require.NoError(t, err)

	method, ok := class(t, m, "com.example.api.PetsController").Method("createPets")
	require.True(t, ok)
	require.Len(t, method.Params, 1)
	body := method.Params[0]
	assert.Equal(t, "pet", body.Name)
	assert.True(t, body.Annotations.Has("RequestBody"))
	assert.True(t, body.Annotations.Has("Valid"))

	mapping, _ := method.Annotations.Get("RequestMapping")
	assert.Equal(t, `@RequestMapping(method = RequestMethod.POST, consumes = "application/json", produces = "application/json")`, mapping.String())
	assert.Equal(t, "Create a pet\n\n@return the created pet", method.Doc)
}

func TestImplementationTarget(t *testing.T) {
	t.Parallel()
	cfg := config.MustNew(config.WithImplementation(true), config.WithInjectHTTPHeaders(true), config.WithInjectHTTPRequest(true))
	m, err := generate(t, petStore(), cfg)
	require.NoError(t, err)

	impl := class(t, m, "com.example.api.PetsIdControllerImpl")
	assert.Equal(t, codemodel.ControllerImplementation, impl.Kind)
	assert.Equal(t, []string{"com.example.api.PetsIdController"}, impl.Implements)
	method, ok := impl.Method("getPetsById")
	require.True(t, ok)
	assert.True(t, method.Stub)
	assert.False(t, method.Abstract)
	assert.True(t, method.Annotations.Has("Override"))

	var names []string
	for _, p := range method.Params {
		names = append(names, p.Name)
		assert.Empty(t, p.Annotations, "implementation parameters carry no bindings")
	}
	assert.Equal(t, []string{"id", "httpHeaders", "httpRequest"}, names)
}

func TestDataClasses_Union(t *testing.T) {
	t.Parallel()
	m, err := generate(t, petStore(), config.MustNew())
	require.NoError(t, err)

	pet := class(t, m, "com.example.api.model.Pet")
	assert.True(t, pet.Abstract)
	sub, ok := pet.Annotations.Get("JsonSubTypes")
	require.True(t, ok)
	v, _ := sub.Param("value")
	assert.Equal(t, "{@JsonSubTypes.Type(Cat.class), @JsonSubTypes.Type(Dog.class)}", v)
	require.Len(t, pet.Fields, 1)
	assert.Equal(t, "name", pet.Fields[0].Name)

	cat := class(t, m, "com.example.api.model.Cat")
	assert.Equal(t, "Pet", cat.Extends)
	require.Len(t, cat.Fields, 1)
	assert.Equal(t, "indoor", cat.Fields[0].Name)
	_, ok = cat.Method("getIndoor")
	assert.True(t, ok)
	_, ok = cat.Method("setIndoor")
	assert.True(t, ok)
}

func TestDataClasses_ConstraintAnnotations(t *testing.T) {
	t.Parallel()
	m, err := generate(t, petStore(), config.MustNew())
	require.NoError(t, err)
	owner := class(t, m, "com.example.api.model.Owner")

	annotations := func(field string) []string {
		f, ok := owner.Field(field)
		require.True(t, ok, field)
		var out []string
		for _, a := range f.Annotations {
			out = append(out, a.String())
		}
		return out
	}

	assert.Equal(t, []string{
		`@JsonProperty(value = "name")`,
		"@NotNull",
		`@Pattern(regexp = "^[A-Z]")`,
		"@Size(min = 1, max = 40)",
	}, annotations("name"))
	assert.Equal(t, []string{`@JsonProperty(value = "age")`, "@NotNull", "@Min(value = 0)", "@Max(value = 150)"}, annotations("age"))
	assert.Equal(t, []string{`@JsonProperty(value = "weight")`, `@DecimalMin(value = "0.5")`}, annotations("weight"))
	assert.Equal(t, []string{`@JsonProperty(value = "pets")`, "@Size(max = 5)", "@Valid"}, annotations("pets"))

	pets, _ := owner.Field("pets")
	assert.Equal(t, "List<Pet>", pets.Type.String())
	assert.Empty(t, pets.Initializer)

	status, _ := owner.Field("status")
	assert.Equal(t, "OwnerStatus", status.Type.String())
	enum := class(t, m, "com.example.api.model.OwnerStatus")
	assert.Equal(t, codemodel.EnumClass, enum.Kind)
	assert.Equal(t, []string{"ACTIVE", "ON_HOLD"}, enum.EnumConstants)
}

func TestDataClasses_WithoutConstraintsAndWithCollections(t *testing.T) {
	t.Parallel()
	cfg := config.MustNew(config.WithConstraintAnnotations(false), config.WithInitializeCollections(true))
	m, err := generate(t, petStore(), cfg)
	require.NoError(t, err)
	owner := class(t, m, "com.example.api.model.Owner")
	pets, _ := owner.Field("pets")
	assert.Equal(t, "new ArrayList<>()", pets.Initializer)
	assert.Len(t, pets.Annotations, 1)
}

func TestRuleNotApplicable(t *testing.T) {
	t.Parallel()
	ctx := NewContext(config.MustNew(), codemodel.New(), nil)
	entry := Entry{Kind: EntryType}
	for _, r := range ControllerTarget().Rules {
		err := r.Apply(entry, ctx)
		assert.True(t, errors.Is(err, errors.ErrRuleNotApplicable), r.Name())
	}
	err := dataShellRule{}.Apply(Entry{Kind: EntryResource}, ctx)
	assert.True(t, errors.IsRuleNotApplicable(err))
}

func TestRuleFailure_CarriesPathAndRule(t *testing.T) {
	t.Parallel()
	parsed := petStore()
	parsed.Resources[0].Children[0].Actions[0].Params[0].Type = nil

	_, err := generate(t, parsed, config.MustNew())
	require.Error(t, err)
	require.True(t, errors.IsRuleProcessingFailure(err))
	var ge *errors.GenError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "parameter", ge.Rule)
	assert.Equal(t, "/pets/{id} GET", ge.Path)
}

func TestRuleFailure_DuplicateParameterName(t *testing.T) {
	t.Parallel()
	parsed := petStore()
	action := parsed.Resources[0].Children[0].Actions[0]
	action.Params = append(action.Params, &spec.ParamNode{Name: "id", In: spec.InQuery, Type: str()})

	_, err := generate(t, parsed, config.MustNew())
	require.Error(t, err)
	assert.True(t, errors.IsRuleProcessingFailure(err))
	assert.Contains(t, err.Error(), `"id"`)
}

type recordingRule struct {
	name string
	log  *[]string
}

func (r recordingRule) Name() string { return r.name }

func (r recordingRule) Apply(e Entry, _ *Context) error {
	if e.Kind == EntryParam {
		return errors.ErrRuleNotApplicable
	}
	*r.log = append(*r.log, r.name+":"+e.Kind.String())
	return nil
}

func TestTarget_RuleMajorOrder(t *testing.T) {
	t.Parallel()
	var log []string
	target := Target{Name: "test", Rules: []Rule{recordingRule{"a", &log}, recordingRule{"b", &log}}}
	entries := []Entry{{Kind: EntryResource}, {Kind: EntryAction}, {Kind: EntryParam}}

	require.NoError(t, target.Apply(entries, nil))
	assert.Equal(t, []string{"a:resource", "a:action", "b:resource", "b:action"}, log)
}

// bareMethodRule declares action methods without any request mapping.
type bareMethodRule struct{}

func (bareMethodRule) Name() string { return "bare-method" }

func (bareMethodRule) Apply(e Entry, ctx *Context) error {
	if e.Kind != EntryAction {
		return errors.ErrRuleNotApplicable
	}
	m := &codemodel.MethodNode{Name: e.Action.MethodName, Visibility: codemodel.Public}
	ctx.Class.AddMethod(m)
	ctx.SetMethod(e.Action, m)
	return nil
}

func TestResponseType_WithoutRequestMapping(t *testing.T) {
	t.Parallel()
	cfg := config.MustNew()
	meta, err := metadata.Build(petStore(), nil, cfg)
	require.NoError(t, err)

	target := Target{Name: "custom", Rules: []Rule{classShellRule{}, bareMethodRule{}, responseTypeRule{}}}
	ctx := NewContext(cfg, codemodel.New(), meta.Types)
	for _, r := range meta.Resources() {
		require.NoError(t, target.Apply(ResourceEntries(r), ctx))
	}

	var found bool
	for _, cls := range ctx.Staged() {
		m, ok := cls.Method("createPets")
		if !ok {
			continue
		}
		found = true
		assert.Equal(t, "ResponseEntity<Pet>", m.ReturnType.String())
		assert.Empty(t, m.Annotations)
	}
	assert.True(t, found, "createPets not declared")
}

func TestPipeline_Idempotent(t *testing.T) {
	t.Parallel()
	cfg := config.MustNew(config.WithImplementation(true))
	first, err := generate(t, petStore(), cfg)
	require.NoError(t, err)
	second, err := generate(t, petStore(), cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Classes(), second.Classes()); diff != "" {
		t.Fatalf("code models differ (-first +second):\n%s", diff)
	}
}

func TestTypeRef(t *testing.T) {
	t.Parallel()
	cfg := config.MustNew(config.WithDateTimeType("java.time.Instant"))
	cases := []struct {
		node *spec.TypeNode
		want string
	}{
		{&spec.TypeNode{Type: "integer", Format: "int32"}, "Integer"},
		{&spec.TypeNode{Type: "integer", Format: "int64"}, "Long"},
		{&spec.TypeNode{Type: "number", Format: "float"}, "Float"},
		{&spec.TypeNode{Type: "number"}, "java.math.BigDecimal"},
		{&spec.TypeNode{Type: "string", Format: "date-time"}, "java.time.Instant"},
		{&spec.TypeNode{Type: "string", Format: "date"}, "java.time.LocalDate"},
		{&spec.TypeNode{Type: "string", Format: "binary"}, "byte[]"},
		{&spec.TypeNode{Type: "array", Items: &spec.TypeNode{Type: "boolean"}}, "List<Boolean>"},
		{&spec.TypeNode{Type: "object"}, "Object"},
	}
	for _, tc := range cases {
		parsed := &spec.ParsedSpec{Types: map[string]*spec.TypeNode{"T": tc.node}}
		meta, err := metadata.Build(parsed, nil, cfg)
		require.NoError(t, err)
		d, ok := meta.Types.Lookup("T")
		require.True(t, ok)
		assert.Equal(t, tc.want, TypeRef(d, cfg).String())
	}
}
