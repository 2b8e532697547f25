package contract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/contractc/internal/types"
)

func TestPathParamNames(t *testing.T) {
	t.Parallel()
	cases := map[string][]string{
		"/":                       nil,
		"/users":                  nil,
		"/users/:id":              {"id"},
		"/orgs/:org/users/:user":  {"org", "user"},
		"/odd/:":                  nil,
		"/files/:name/versions/x": {"name"},
	}
	for path, want := range cases {
		if diff := cmp.Diff(want, PathParamNames(path)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", path, diff)
		}
	}
}

func TestTemplatePath(t *testing.T) {
	t.Parallel()
	if got := TemplatePath("/orgs/:org/users/:id"); got != "/orgs/{org}/users/{id}" {
		t.Fatalf("got %q", got)
	}
	if got := TemplatePath("/plain"); got != "/plain" {
		t.Fatalf("got %q", got)
	}
}

func TestBuilder_RecordsPositions(t *testing.T) {
	t.Parallel()
	b := NewBuilder("api.yaml")
	name := Loc(b, "ping", 3, 5)
	loc, ok := b.Locations().Lookup(name.Loc)
	if !ok || loc.Source != "api.yaml" || loc.Line != 3 || loc.Column != 5 {
		t.Fatalf("unexpected location %v", loc)
	}
	if desc := Opt(b, "d", 4, 1); desc.Loc == name.Loc {
		t.Fatalf("each value gets its own handle")
	}
}

func TestBuilder_RefTagsTarget(t *testing.T) {
	t.Parallel()
	b := NewBuilder("api.yaml")
	b.Declare("Id", "", types.Int64(), 1)
	b.Declare("Alias", "", b.Ref("Id"), 2)

	if got := b.Ref("Alias").Ref.Target; got != types.KindInt64 {
		t.Fatalf("target = %v, want int64", got)
	}
	if got := b.Ref("Missing").Ref.Target; got != types.KindInvalid {
		t.Fatalf("target = %v, want invalid", got)
	}
	if got := b.RefTo("Later", types.KindObject); got.Ref.Target != types.KindObject || got.Ref.DeclaredAt != "api.yaml" {
		t.Fatalf("unexpected reference %+v", got.Ref)
	}
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()
	b := NewBuilder("api.yaml")
	b.Declare("B", "second", types.String(), 7)
	b.Declare("A", "first", types.Int32(), 3)
	api := Loc(b, ApiNode{Name: Loc(b, "svc", 1, 7)}, 1, 1)
	c := b.Build(api)

	var names []string
	for _, d := range c.Types {
		names = append(names, d.Value.Name)
	}
	if diff := cmp.Diff([]string{"B", "A"}, names); diff != "" {
		t.Fatalf("declaration order (-want +got):\n%s", diff)
	}
	loc, _ := b.Locations().Lookup(c.Types[1].Loc)
	if loc.Line != 3 {
		t.Fatalf("declaration line = %d, want 3", loc.Line)
	}
	if tt := c.TypeTable(); tt.Len() != 2 {
		t.Fatalf("type table has %d entries", tt.Len())
	}
}

func TestRequestLists_NilSafe(t *testing.T) {
	t.Parallel()
	var r *RequestNode
	if r.PathParamList() != nil || r.QueryParamList() != nil || HeaderList(nil) != nil {
		t.Fatalf("nil request must yield empty lists")
	}
}
