package reader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/contractc/internal/compiler"
	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/types"
)

func loadUsers(t *testing.T) *compiler.Unit {
	t.Helper()
	u, err := Load(context.Background(), filepath.Join("testdata", "users.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return u
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	u := loadUsers(t)
	c := u.Contract

	if c.Api.Value.Name.Value != "users" {
		t.Fatalf("api name = %q", c.Api.Value.Name.Value)
	}
	if c.Api.Value.SecurityHeader == nil || c.Api.Value.SecurityHeader.Value.Name.Value != "x-auth-token" {
		t.Fatalf("missing security header")
	}

	var names []string
	for _, d := range c.Types {
		names = append(names, d.Value.Name)
	}
	if diff := cmp.Diff([]string{"User", "Status", "UserId", "Error"}, names); diff != "" {
		t.Fatalf("declaration order (-want +got):\n%s", diff)
	}

	var eps []string
	for _, e := range c.Endpoints {
		eps = append(eps, e.Value.Name.Value)
	}
	if diff := cmp.Diff([]string{"getUser", "listUsers"}, eps); diff != "" {
		t.Fatalf("endpoints (-want +got):\n%s", diff)
	}

	get := c.Endpoints[0].Value
	if get.Method.Value != contract.GET {
		t.Errorf("method = %q, want GET", get.Method.Value)
	}
	if diff := cmp.Diff([]string{"users"}, get.Tags.Value); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if len(get.Responses) != 2 || get.Responses[1].Value.Status.Value != 404 {
		t.Errorf("unexpected responses %+v", get.Responses)
	}
	if get.DefaultResponse == nil || get.DefaultResponse.Value.Body == nil {
		t.Errorf("missing default response body")
	}
	h := contract.HeaderList(get.Request.Value.Headers)
	if len(h) != 1 || !h[0].Value.Optional {
		t.Errorf("expected one optional header, got %+v", h)
	}
}

func TestLoad_Locations(t *testing.T) {
	t.Parallel()
	u := loadUsers(t)
	get := u.Contract.Endpoints[0].Value

	loc, ok := u.Locations.Lookup(get.Name.Loc)
	if !ok || loc.Line != 36 || loc.Column != 3 {
		t.Fatalf("endpoint name location = %v", loc)
	}
	pp := get.Request.Value.PathParamList()
	loc, _ = u.Locations.Lookup(pp[0].Value.Name.Loc)
	if loc.Line != 47 || loc.Column != 9 || !strings.HasSuffix(loc.Source, "users.yaml") {
		t.Fatalf("path param location = %v", loc)
	}
	loc, _ = u.Locations.Lookup(u.Contract.Types[1].Loc)
	if loc.Line != 26 {
		t.Fatalf("declaration location = %v", loc)
	}
}

func TestLoad_ForwardReferencesAreTagged(t *testing.T) {
	t.Parallel()
	u := loadUsers(t)
	user, ok := u.Types.Lookup("User")
	if !ok {
		t.Fatalf("User not declared")
	}
	targets := map[string]types.Kind{}
	for _, p := range user.Type.Properties {
		if p.Type.Kind == types.KindReference {
			targets[p.Name] = p.Type.Ref.Target
		}
	}
	want := map[string]types.Kind{
		"status":  types.KindUnion,
		"manager": types.KindObject,
	}
	if diff := cmp.Diff(want, targets); diff != "" {
		t.Fatalf("targets (-want +got):\n%s", diff)
	}
	for _, n := range u.Types.Nodes() {
		if err := types.CheckShape(n.Type); err != nil {
			t.Errorf("%s: %v", n.Name, err)
		}
	}
}

func TestLoad_CompilesClean(t *testing.T) {
	t.Parallel()
	res, err := compiler.Compile(context.Background(), loadUsers(t))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected no diagnostics, got %+v", res.Diagnostics)
	}
}

func TestParse_Literals(t *testing.T) {
	t.Parallel()
	src := `
api: {name: lit}
types:
  L:
    union:
      - literal: "on"
      - literal: 3.5
      - literal: true
      - undefined
`
	u, err := Parse("lit.yaml", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, _ := u.Types.Lookup("L")
	want := types.MustUnion(types.StringLiteral("on"), types.NumberLiteral(3.5), types.BooleanLiteral(true))
	if !types.Equal(want, n.Type) {
		t.Fatalf("got %+v", n.Type)
	}
}

func TestParse_SingleMemberUnionCollapses(t *testing.T) {
	t.Parallel()
	u, err := Parse("c.yaml", []byte("api: {name: c}\ntypes:\n  S:\n    union: [string, undefined]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, _ := u.Types.Lookup("S")
	if n.Type.Kind != types.KindString {
		t.Fatalf("kind = %v, want string", n.Type.Kind)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		src  string
		code ErrorCode
		line int
		msg  string
	}{
		{"invalid yaml", "api: [", ParseError, 0, "parse"},
		{"no api", "types: {}\n", SchemaError, 1, "no api"},
		{"unknown key", "api: {name: a}\nextra: 1\n", SchemaError, 2, "unknown contract key"},
		{"empty union", "api: {name: a}\ntypes:\n  U:\n    union: [undefined]\n", SchemaError, 4, "no members"},
		{"bare undefined", "api: {name: a}\ntypes:\n  U: undefined\n", SchemaError, 3, "union member"},
		{"duplicate property", "api: {name: a}\ntypes:\n  O:\n    object:\n      a: string\n      a: int32\n", SchemaError, 6, "more than once"},
		{"bad method", "api: {name: a}\nendpoints:\n  e:\n    method: FETCH\n    path: /e\n", SchemaError, 4, "unsupported method"},
		{"relative path", "api: {name: a}\nendpoints:\n  e:\n    method: GET\n    path: e\n", SchemaError, 5, "must start with /"},
		{"bad status", "api: {name: a}\nendpoints:\n  e:\n    method: GET\n    path: /e\n    responses:\n      ok: {}\n", SchemaError, 7, "invalid status"},
		{"optional path param", "api: {name: a}\nendpoints:\n  e:\n    method: GET\n    path: /e/:id\n    request:\n      pathParams:\n        id: {type: string, optional: true}\n", SchemaError, 8, "cannot be optional"},
		{"number as type", "api: {name: a}\ntypes:\n  N: 3\n", SchemaError, 3, "literal"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("bad.yaml", []byte(tc.src))
			var re *ReadError
			if !errors.As(err, &re) {
				t.Fatalf("expected ReadError, got %v (%T)", err, err)
			}
			if re.Code != tc.code {
				t.Fatalf("code = %v, want %v (%v)", re.Code, tc.code, err)
			}
			if tc.line > 0 && re.Line != tc.line {
				t.Fatalf("line = %d, want %d (%v)", re.Line, tc.line, err)
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("error %q does not mention %q", err, tc.msg)
			}
		})
	}
}

func TestParse_SemanticProblemsAreLeftToVerification(t *testing.T) {
	t.Parallel()
	src := "api: {name: a}\nendpoints:\n  e:\n    method: GET\n    path: /e\n    request:\n      headers:\n        x-id: Missing\n"
	u, err := Parse("s.yaml", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := compiler.Compile(context.Background(), u)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Line != 8 {
		t.Fatalf("unexpected diagnostics %+v", res.Diagnostics)
	}
}

func TestParse_RepeatedNamesReachVerification(t *testing.T) {
	t.Parallel()
	src := strings.Join([]string{
		"api: {name: a}",
		"endpoints:",
		"  e:",
		"    method: GET",
		"    path: /e",
		"    responses:",
		"      200: ~",
		"      200: ~",
		"  e:",
		"    method: POST",
		"    path: /f",
	}, "\n") + "\n"
	u, err := Parse("s.yaml", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := compiler.Compile(context.Background(), u)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	type got struct {
		Code         string
		Line, Column int
		RelatedLine  int
	}
	var gots []got
	for _, d := range res.Diagnostics {
		g := got{Code: string(d.Code), Line: d.Line, Column: d.Column}
		if len(d.Related) == 1 {
			g.RelatedLine = d.Related[0].Line
		}
		gots = append(gots, g)
	}
	want := []got{
		{Code: "duplicate_status_code", Line: 8, Column: 7, RelatedLine: 7},
		{Code: "duplicate_name", Line: 9, Column: 3, RelatedLine: 3},
	}
	if diff := cmp.Diff(want, gots); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_BlocksFileURL(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "file:///etc/hosts")
	var re *ReadError
	if !errors.As(err, &re) || re.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_UnsupportedScheme(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "ftp://example.com/api.yaml")
	var re *ReadError
	if !errors.As(err, &re) || re.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "  ")
	var re *ReadError
	if !errors.As(err, &re) || re.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_NetworkError(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Load(ctx, "http://127.0.0.1:1/api.yaml", WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2), WithBackoffBase(10*time.Millisecond))
	var re *ReadError
	if !errors.As(err, &re) || re.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
}

func TestLoad_URLRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	raw, err := os.ReadFile(filepath.Join("testdata", "users.yaml"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	u, err := Load(context.Background(), srv.URL+"/users.yaml", WithBackoffBase(time.Millisecond))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
	loc, _ := u.Locations.Lookup(u.Contract.Api.Value.Name.Loc)
	if loc.Source != srv.URL+"/users.yaml" {
		t.Fatalf("source = %q", loc.Source)
	}
}

func TestLoad_URLClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/missing.yaml", WithBackoffBase(time.Millisecond))
	var re *ReadError
	if !errors.As(err, &re) || re.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single request, got %d", calls.Load())
	}
}
