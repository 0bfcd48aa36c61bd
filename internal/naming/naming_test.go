package naming

import (
	"strings"
	"testing"

	"github.com/mark3labs/endpointgen/internal/config"
	"github.com/mark3labs/endpointgen/internal/errors"
)

func TestSegments(t *testing.T) {
	t.Parallel()
	got := Segments("/pets//{id}/toys/")
	want := []string{"pets", "{id}", "toys"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Segments = %v, want %v", got, want)
	}
	if len(Segments("/")) != 0 {
		t.Fatalf("root path must have no segments")
	}
}

func TestPascal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input, want string
	}{
		{"pets", "Pets"},
		{"{id}", "Id"},
		{"{petId}", "PetId"},
		{"user_accounts", "UserAccounts"},
		{"pet-store", "PetStore"},
		{"v1", "V1"},
		{"a$b", "Ab"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Pascal(tc.input); got != tc.want {
			t.Errorf("Pascal(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		segments []string
		opts     []config.Option
		want     string
	}{
		{name: "full path by default", segments: []string{"pets", "{id}", "toys"}, want: "PetsIdToys"},
		{name: "depth two", segments: []string{"pets", "{id}"}, opts: []config.Option{config.WithResourceDepth(2)}, want: "PetsId"},
		{name: "depth one", segments: []string{"pets", "{id}", "toys"}, opts: []config.Option{config.WithResourceDepth(1)}, want: "Toys"},
		{name: "depth larger than path", segments: []string{"pets"}, opts: []config.Option{config.WithResourceDepth(5)}, want: "Pets"},
		{name: "reverse order", segments: []string{"pets", "{id}"}, opts: []config.Option{config.WithReverseOrder(true)}, want: "IdPets"},
		{
			name:     "top level kept when depth cuts it",
			segments: []string{"stores", "{storeId}", "pets", "{id}"},
			opts:     []config.Option{config.WithResourceDepth(2), config.WithTopLevelInNames(true)},
			want:     "StoresPetsId",
		},
		{
			name:     "top level not duplicated",
			segments: []string{"stores", "{storeId}"},
			opts:     []config.Option{config.WithResourceDepth(2), config.WithTopLevelInNames(true)},
			want:     "StoresStoreId",
		},
		{name: "root", segments: nil, want: "Root"},
		{name: "leading digit", segments: []string{"2fa"}, want: "Resource2Fa"},
		{
			name:     "override strategy",
			segments: []string{"pets", "{id}"},
			opts: []config.Option{config.WithNamingStrategy(func(segs []string) string {
				return "X" + strings.Join(segs, "_")
			})},
			want: "Xpets_{id}",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.MustNew(tc.opts...)
			if got := Resolve(tc.segments, cfg); got != tc.want {
				t.Fatalf("Resolve(%v) = %q, want %q", tc.segments, got, tc.want)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()
	cfg := config.MustNew(config.WithResourceDepth(3), config.WithReverseOrder(true))
	paths := [][]string{
		{"a", "{b}", "c-d", "e_f"},
		{"orders", "{orderId}", "lines", "{lineId}"},
		{"x"},
	}
	for _, p := range paths {
		first := Resolve(p, cfg)
		for i := 0; i < 50; i++ {
			if got := Resolve(p, cfg); got != first {
				t.Fatalf("Resolve(%v) not deterministic: %q vs %q", p, got, first)
			}
		}
	}
}

func TestMethodName(t *testing.T) {
	t.Parallel()
	resources := config.MustNew()
	objects := config.MustNew(config.WithMethodsNamingLogic(config.MethodsNamingObjects))
	tests := []struct {
		name     string
		verb     string
		segments []string
		object   string
		cfg      config.GenerationConfig
		want     string
	}{
		{name: "get by id", verb: "GET", segments: []string{"pets", "{id}"}, cfg: resources, want: "getPetsById"},
		{name: "post collection", verb: "post", segments: []string{"pets"}, cfg: resources, want: "createPets"},
		{name: "put nested", verb: "put", segments: []string{"pets", "{id}", "toys", "{toyId}"}, cfg: resources, want: "updatePetsByIdToysByToyId"},
		{name: "delete root", verb: "delete", segments: nil, cfg: resources, want: "deleteRoot"},
		{name: "objects uses type", verb: "get", segments: []string{"pets", "{id}"}, object: "Pet", cfg: objects, want: "getPet"},
		{name: "objects falls back", verb: "get", segments: []string{"pets"}, cfg: objects, want: "getPets"},
		{name: "resources ignores object", verb: "get", segments: []string{"pets"}, object: "PetList", cfg: resources, want: "getPets"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MethodName(tc.verb, tc.segments, tc.object, tc.cfg); got != tc.want {
				t.Fatalf("MethodName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFieldAndTypeName(t *testing.T) {
	t.Parallel()
	if got := FieldName("pet_name"); got != "petName" {
		t.Errorf("FieldName = %q", got)
	}
	if got := FieldName("$$"); got != "value" {
		t.Errorf("FieldName(empty) = %q", got)
	}
	if got := FieldName("2nd"); got != "field2Nd" {
		t.Errorf("FieldName(digit) = %q", got)
	}
	if got := TypeName("pet-owner"); got != "PetOwner" {
		t.Errorf("TypeName = %q", got)
	}
	if got := TypeName("3d"); got != "Type3D" {
		t.Errorf("TypeName(digit) = %q", got)
	}
}

func TestRegistry_Claim(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if err := r.Claim("PetsId", "/pets/{id}"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := r.Claim("PetsId", "/pets/{id}"); err != nil {
		t.Fatalf("repeated claim by same source must succeed: %v", err)
	}
	err := r.Claim("PetsId", "/pets-/{id}")
	if err == nil {
		t.Fatalf("expected conflict")
	}
	if !errors.IsNamingConflict(err) {
		t.Fatalf("expected NamingConflict, got %v", err)
	}
	var ge *errors.GenError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenError, got %T", err)
	}
	if len(ge.Conflicts) != 2 || ge.Conflicts[0] != "/pets/{id}" || ge.Conflicts[1] != "/pets-/{id}" {
		t.Fatalf("conflicts = %v", ge.Conflicts)
	}
	if len(errors.GetAllHints(err)) == 0 {
		t.Fatalf("expected a hint on naming conflicts")
	}
	if owner, ok := r.Owner("PetsId"); !ok || owner != "/pets/{id}" {
		t.Fatalf("owner = %q", owner)
	}
}
