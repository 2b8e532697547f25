package verify

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

func apiNode(b *contract.Builder, security *loci.Locatable[contract.SecurityHeaderNode]) loci.Locatable[contract.ApiNode] {
	return contract.Loc(b, contract.ApiNode{
		Name:           contract.Loc(b, "users", 1, 7),
		SecurityHeader: security,
	}, 1, 1)
}

func respond(b *contract.Builder, status, line int) loci.Locatable[contract.ResponseNode] {
	return contract.Loc(b, contract.ResponseNode{
		Status: contract.Loc(b, status, line, 5),
		DefaultResponseNode: contract.DefaultResponseNode{
			Body: contract.Opt(b, contract.BodyNode{Type: contract.Loc(b, b.Ref("User"), line+1, 9)}, line+1, 3),
		},
	}, line, 1)
}

func getUser(b *contract.Builder, name string, line int, responses ...loci.Locatable[contract.ResponseNode]) loci.Locatable[contract.EndpointNode] {
	pp := []loci.Locatable[contract.PathParamNode]{
		contract.Loc(b, contract.PathParamNode{
			Name: contract.Loc(b, "id", line+2, 7),
			Type: contract.Loc(b, types.Int64(), line+2, 11),
		}, line+2, 5),
	}
	return contract.Loc(b, contract.EndpointNode{
		Name:   contract.Loc(b, name, line, 1),
		Method: contract.Loc(b, contract.GET, line+1, 9),
		Path:   contract.Loc(b, "/users/:id", line+1, 13),
		Request: contract.Opt(b, contract.RequestNode{
			PathParams: contract.Opt(b, pp, line+2, 3),
		}, line+2, 1),
		Responses: responses,
	}, line, 1)
}

func declareUser(b *contract.Builder) {
	b.Declare("User", "a user", types.Object(
		types.Property{Name: "id", Type: types.Int64()},
		types.Property{Name: "manager", Type: b.RefTo("User", types.KindObject), Optional: true},
	), 100)
}

func TestEndpoint_Valid(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	declareUser(b)
	ep := getUser(b, "getUser", 10, respond(b, 200, 20), respond(b, 404, 30))
	if errs := Endpoint(ep, b.TypeTable()); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestEndpoint_DuplicateStatusCode(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	declareUser(b)
	first, second := respond(b, 200, 20), respond(b, 200, 30)
	errs := Endpoint(getUser(b, "getUser", 10, first, second), b.TypeTable())
	if diff := cmp.Diff([]Code{CodeDuplicateStatusCode}, errs.Codes()); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	e := errs[0]
	if e.Loc != second.Value.Status.Loc {
		t.Errorf("expected error at the second status")
	}
	if diff := cmp.Diff([]loci.ID{first.Value.Status.Loc}, e.Related); diff != "" {
		t.Errorf("related mismatch (-want +got):\n%s", diff)
	}
	diags := Diagnostics(errs, b.Locations())
	if diags[0].Line != 30 || len(diags[0].Related) != 1 || diags[0].Related[0].Line != 20 {
		t.Errorf("diagnostic should cite both locations: %+v", diags[0])
	}
}

func TestEndpoint_PathParams(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	declareUser(b)
	ep := getUser(b, "getUser", 10)
	ep.Value.Path = contract.Loc(b, "/orgs/:org/users", 11, 13)
	errs := Endpoint(ep, b.TypeTable())
	if diff := cmp.Diff([]Code{CodeMissingPathParam, CodeExtraPathParam}, errs.Codes()); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestEndpoint_NoRequestButPathSegment(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	ep := contract.Loc(b, contract.EndpointNode{
		Name:   contract.Loc(b, "deleteUser", 1, 1),
		Method: contract.Loc(b, contract.DELETE, 2, 1),
		Path:   contract.Loc(b, "/users/:id", 3, 1),
	}, 1, 1)
	errs := Endpoint(ep, b.TypeTable())
	if diff := cmp.Diff([]Code{CodeMissingPathParam}, errs.Codes()); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestEndpoint_DuplicateHeaders(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	hs := []loci.Locatable[contract.HeaderNode]{
		header(b, "X-Request-Id", types.String(), false),
		header(b, "x-request-id", types.String(), true),
	}
	ep := contract.Loc(b, contract.EndpointNode{
		Name:   contract.Loc(b, "ping", 1, 1),
		Method: contract.Loc(b, contract.GET, 2, 1),
		Path:   contract.Loc(b, "/ping", 3, 1),
		DefaultResponse: contract.Opt(b, contract.DefaultResponseNode{
			Headers: contract.Opt(b, hs, 5, 1),
		}, 5, 1),
	}, 1, 1)
	errs := Endpoint(ep, b.TypeTable())
	if diff := cmp.Diff([]Code{CodeDuplicateParam}, errs.Codes()); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestContract_AccumulatesEverything(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	declareUser(b)
	b.Declare("A", "", b.RefTo("B", types.KindString), 200)
	b.Declare("B", "", b.RefTo("A", types.KindString), 201)
	b.Declare("Broken", "", types.Array(b.Ref("Missing")), 202)

	security := contract.Opt(b, contract.SecurityHeaderNode{
		Name:     contract.Loc(b, "x-auth", 2, 5),
		Type:     contract.Loc(b, types.String(), 2, 12),
		Optional: true,
	}, 2, 1)
	c := b.Build(apiNode(b, security),
		getUser(b, "getUser", 10, respond(b, 200, 20), respond(b, 200, 30)),
		getUser(b, "getUser", 40, respond(b, 200, 50)),
	)

	errs, err := Contract(c, c.TypeTable())
	if err != nil {
		t.Fatalf("unexpected structural error: %v", err)
	}
	want := []Code{
		CodeUnknownReference,
		CodeCyclicReference,
		CodeOptionalNotAllowed,
		CodeDuplicateStatusCode,
		CodeDuplicateName,
	}
	if diff := cmp.Diff(want, errs.Codes()); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestContract_Idempotent(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	declareUser(b)
	c := b.Build(apiNode(b, nil),
		getUser(b, "getUser", 10, respond(b, 200, 20), respond(b, 200, 30)),
		getUser(b, "getUser", 40),
	)
	tt := c.TypeTable()
	first, err := Contract(c, tt)
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Contract(c, tt)
		if err != nil {
			t.Fatalf("contract: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestContract_SelfReferentialObjectAccepted(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	declareUser(b)
	c := b.Build(apiNode(b, nil), getUser(b, "getUser", 10, respond(b, 200, 20)))
	errs, err := Contract(c, c.TypeTable())
	if err != nil || len(errs) != 0 {
		t.Fatalf("expected clean contract, got %v / %v", errs, err)
	}
}

func TestContract_MalformedIRIsStructural(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	b.Declare("Bad", "", types.DataType{Kind: types.KindUnion, Members: []types.DataType{types.String()}}, 1)
	c := b.Build(apiNode(b, nil))
	errs, err := Contract(c, c.TypeTable())
	if err == nil {
		t.Fatalf("expected structural error")
	}
	if errs != nil {
		t.Fatalf("no semantic errors expected alongside a structural one, got %v", errs)
	}
}

func TestContract_TypeNamesMustBeIdentifiers(t *testing.T) {
	t.Parallel()
	b := contract.NewBuilder("api.yaml")
	b.Declare("Order.shipTo", "", types.String(), 300)
	b.Declare("Order", "", types.Object(
		types.Property{Name: "shipTo", Type: types.Object(types.Property{Name: "street", Type: types.String()})},
		types.Property{Name: "note", Type: b.RefTo("Order.shipTo", types.KindString)},
	), 301)
	b.Declare("Pick[0]", "", types.Int32(), 302)
	b.Declare("2fa", "", types.Boolean(), 303)
	b.Declare("_Internal", "", types.Boolean(), 304)
	c := b.Build(apiNode(b, nil))

	errs, err := Contract(c, c.TypeTable())
	if err != nil {
		t.Fatalf("unexpected structural error: %v", err)
	}
	type got struct {
		Code Code
		Line int
	}
	var gots []got
	for _, e := range errs {
		loc, _ := b.Locations().Lookup(e.Loc)
		gots = append(gots, got{e.Code, loc.Line})
	}
	want := []got{{CodeNaming, 300}, {CodeNaming, 302}, {CodeNaming, 303}}
	if diff := cmp.Diff(want, gots); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}
