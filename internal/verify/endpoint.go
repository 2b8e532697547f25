package verify

import (
	"fmt"

	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

// Endpoint verifies an endpoint together with its request and responses.
func Endpoint(e loci.Locatable[contract.EndpointNode], tt *types.Table) Errors {
	ep := e.Value
	if !knownMethod(ep.Method.Value) {
		invariant(&types.InvariantError{Message: fmt.Sprintf("endpoint %q has unknown method %q", ep.Name.Value, ep.Method.Value)})
	}

	var errs Errors
	var req *contract.RequestNode
	if ep.Request != nil {
		req = &ep.Request.Value
		errs = append(errs, request(req, tt)...)
	}
	errs = append(errs, pathParams(ep.Path, req)...)

	statuses := map[int]loci.ID{}
	for _, r := range ep.Responses {
		status := r.Value.Status
		if first, dup := statuses[status.Value]; dup {
			errs = append(errs, Error{
				Code:    CodeDuplicateStatusCode,
				Message: fmt.Sprintf("endpoint %q has more than one response with status code %d", ep.Name.Value, status.Value),
				Loc:     status.Loc,
				Related: []loci.ID{first},
			})
		} else {
			statuses[status.Value] = status.Loc
		}
		errs = append(errs, response(r.Value.DefaultResponseNode, tt)...)
	}
	if ep.DefaultResponse != nil {
		errs = append(errs, response(ep.DefaultResponse.Value, tt)...)
	}
	return errs
}

func knownMethod(m contract.HTTPMethod) bool {
	for _, k := range contract.Methods {
		if k == m {
			return true
		}
	}
	return false
}

func request(r *contract.RequestNode, tt *types.Table) Errors {
	var errs Errors
	errs = append(errs, headers(r.Headers, tt)...)

	pps := r.PathParamList()
	names := make([]loci.Locatable[string], 0, len(pps))
	for _, p := range pps {
		errs = append(errs, PathParam(p, tt)...)
		names = append(names, p.Value.Name)
	}
	errs = append(errs, duplicates(names, false, "path param")...)

	qps := r.QueryParamList()
	names = make([]loci.Locatable[string], 0, len(qps))
	for _, q := range qps {
		errs = append(errs, QueryParam(q, tt)...)
		names = append(names, q.Value.Name)
	}
	errs = append(errs, duplicates(names, false, "query param")...)

	if r.Body != nil {
		errs = append(errs, Body(*r.Body, tt)...)
	}
	return errs
}

// response verifies the fields shared by status-coded and default responses.
func response(r contract.DefaultResponseNode, tt *types.Table) Errors {
	var errs Errors
	errs = append(errs, headers(r.Headers, tt)...)
	if r.Body != nil {
		errs = append(errs, Body(*r.Body, tt)...)
	}
	return errs
}

// pathParams matches the ":name" segments of the path against the declared
// path parameters in both directions.
func pathParams(path loci.Locatable[string], req *contract.RequestNode) Errors {
	var errs Errors
	declared := map[string]bool{}
	for _, p := range req.PathParamList() {
		declared[p.Value.Name.Value] = true
	}
	inPath := map[string]bool{}
	for _, name := range contract.PathParamNames(path.Value) {
		inPath[name] = true
		if !declared[name] {
			errs = append(errs, Error{
				Code:    CodeMissingPathParam,
				Message: fmt.Sprintf("path segment :%s has no matching path param", name),
				Loc:     path.Loc,
			})
		}
	}
	for _, p := range req.PathParamList() {
		if !inPath[p.Value.Name.Value] {
			errs = append(errs, Error{
				Code:    CodeExtraPathParam,
				Message: fmt.Sprintf("path param %q does not appear in path %s", p.Value.Name.Value, path.Value),
				Loc:     p.Value.Name.Loc,
			})
		}
	}
	return errs
}
