// Package contract defines the intermediate representation of a compiled
// API contract.
package contract

import (
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

type HTTPMethod string

const (
	GET     HTTPMethod = "GET"
	POST    HTTPMethod = "POST"
	PUT     HTTPMethod = "PUT"
	PATCH   HTTPMethod = "PATCH"
	DELETE  HTTPMethod = "DELETE"
	HEAD    HTTPMethod = "HEAD"
	OPTIONS HTTPMethod = "OPTIONS"
)

// Methods lists every supported method in a stable order.
var Methods = []HTTPMethod{GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS}

// ContractNode is the compilation root. It must not be modified once
// verification starts.
type ContractNode struct {
	Api       loci.Locatable[ApiNode]
	Endpoints []loci.Locatable[EndpointNode]
	Types     []loci.Locatable[types.TypeNode]
}

// TypeTable builds a type table holding every declared type.
func (c *ContractNode) TypeTable() *types.Table {
	tt := types.NewTable()
	for _, t := range c.Types {
		tt.RegisterNode(t.Value)
	}
	return tt
}

type ApiNode struct {
	Name           loci.Locatable[string]
	Description    *loci.Locatable[string]
	SecurityHeader *loci.Locatable[SecurityHeaderNode]
}

// SecurityHeaderNode has the shape of a header. It must never be optional,
// which the verifier enforces.
type SecurityHeaderNode struct {
	Name        loci.Locatable[string]
	Description *loci.Locatable[string]
	Type        loci.Locatable[types.DataType]
	Optional    bool
}

type EndpointNode struct {
	Name            loci.Locatable[string]
	Description     *loci.Locatable[string]
	Tags            *loci.Locatable[[]string]
	Method          loci.Locatable[HTTPMethod]
	Path            loci.Locatable[string]
	Request         *loci.Locatable[RequestNode]
	Responses       []loci.Locatable[ResponseNode]
	DefaultResponse *loci.Locatable[DefaultResponseNode]
}

type RequestNode struct {
	Headers     *loci.Locatable[[]loci.Locatable[HeaderNode]]
	PathParams  *loci.Locatable[[]loci.Locatable[PathParamNode]]
	QueryParams *loci.Locatable[[]loci.Locatable[QueryParamNode]]
	Body        *loci.Locatable[BodyNode]
}

// DefaultResponseNode is the response assumed when no status code matches.
type DefaultResponseNode struct {
	Description *loci.Locatable[string]
	Headers     *loci.Locatable[[]loci.Locatable[HeaderNode]]
	Body        *loci.Locatable[BodyNode]
}

// ResponseNode is a default response bound to a status code.
type ResponseNode struct {
	Status loci.Locatable[int]
	DefaultResponseNode
}

type HeaderNode struct {
	Name        loci.Locatable[string]
	Description *loci.Locatable[string]
	Type        loci.Locatable[types.DataType]
	Optional    bool
}

// PathParamNode is always required.
type PathParamNode struct {
	Name        loci.Locatable[string]
	Description *loci.Locatable[string]
	Type        loci.Locatable[types.DataType]
}

type QueryParamNode struct {
	Name        loci.Locatable[string]
	Description *loci.Locatable[string]
	Type        loci.Locatable[types.DataType]
	Optional    bool
}

type BodyNode struct {
	Description *loci.Locatable[string]
	Type        loci.Locatable[types.DataType]
}

// HeaderList returns the headers of a possibly absent header sequence.
func HeaderList(h *loci.Locatable[[]loci.Locatable[HeaderNode]]) []loci.Locatable[HeaderNode] {
	if h == nil {
		return nil
	}
	return h.Value
}

// PathParamList returns the request path parameters, if any.
func (r *RequestNode) PathParamList() []loci.Locatable[PathParamNode] {
	if r == nil || r.PathParams == nil {
		return nil
	}
	return r.PathParams.Value
}

// QueryParamList returns the request query parameters, if any.
func (r *RequestNode) QueryParamList() []loci.Locatable[QueryParamNode] {
	if r == nil || r.QueryParams == nil {
		return nil
	}
	return r.QueryParams.Value
}
