// Package iremitter writes the verified contract IR, with source positions
// resolved, for tooling that consumes contracts directly.
package iremitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/contractc/internal/compiler"
	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/emitter"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

// Options controls how the IR is rendered and written.
type Options struct {
	emitter.WriteOptions
	Format   emitter.Format // defaults to json
	FileName string         // base name without extension; defaults to "contract"
}

// Result returns the planned files and the rendered document.
type Result struct {
	Doc     *Document
	Planned []emitter.PlannedFile
}

// Emit renders res and writes it according to opts.
func Emit(ctx context.Context, res *compiler.Result, opts Options) (*Result, error) {
	doc, err := Build(res)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = emitter.FormatJSON
	}
	raw, err := emitter.Marshal(doc, format)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(opts.FileName)
	if name == "" {
		name = "contract"
	}
	planned, err := emitter.Write(opts.WriteOptions, map[string][]byte{name + format.Ext(): raw})
	if err != nil {
		return nil, err
	}
	return &Result{Doc: doc, Planned: planned}, nil
}

// Document is the serialized form of a contract.
type Document struct {
	Api       Api        `json:"api"`
	Types     []TypeDecl `json:"types,omitempty"`
	Endpoints []Endpoint `json:"endpoints,omitempty"`
}

type Api struct {
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	SecurityHeader *Field         `json:"securityHeader,omitempty"`
	Location       *loci.Location `json:"location,omitempty"`
}

type TypeDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        *Type          `json:"type"`
	Location    *loci.Location `json:"location,omitempty"`
}

// Type is a data type. Only the fields of its kind are set.
type Type struct {
	Kind       string     `json:"kind"`
	Value      any        `json:"value,omitempty"`
	Properties []Property `json:"properties,omitempty"`
	Elem       *Type      `json:"elem,omitempty"`
	Members    []*Type    `json:"members,omitempty"`
	Ref        string     `json:"ref,omitempty"`
	Target     string     `json:"target,omitempty"`
}

type Property struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Type        *Type  `json:"type"`
}

// Field is a header or parameter.
type Field struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Optional    bool           `json:"optional,omitempty"`
	Type        *Type          `json:"type"`
	Location    *loci.Location `json:"location,omitempty"`
}

type Body struct {
	Description string `json:"description,omitempty"`
	Type        *Type  `json:"type"`
}

type Response struct {
	Status      int     `json:"status,omitempty"`
	Description string  `json:"description,omitempty"`
	Headers     []Field `json:"headers,omitempty"`
	Body        *Body   `json:"body,omitempty"`
}

type Endpoint struct {
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	Method          string         `json:"method"`
	Path            string         `json:"path"`
	Headers         []Field        `json:"headers,omitempty"`
	PathParams      []Field        `json:"pathParams,omitempty"`
	QueryParams     []Field        `json:"queryParams,omitempty"`
	Body            *Body          `json:"body,omitempty"`
	Responses       []Response     `json:"responses,omitempty"`
	DefaultResponse *Response      `json:"defaultResponse,omitempty"`
	Location        *loci.Location `json:"location,omitempty"`
}

// Build converts a verified compilation into its serialized form.
func Build(res *compiler.Result) (*Document, error) {
	if res == nil || res.Contract == nil {
		return nil, fmt.Errorf("iremitter: nil result")
	}
	if !res.OK() {
		return nil, fmt.Errorf("iremitter: contract has %d errors", len(res.Errors))
	}
	b := builder{locs: res.Locations}
	c := res.Contract

	api := c.Api.Value
	doc := &Document{Api: Api{
		Name:        api.Name.Value,
		Description: text(api.Description),
		Location:    b.loc(c.Api.Loc),
	}}
	if sh := api.SecurityHeader; sh != nil {
		doc.Api.SecurityHeader = &Field{
			Name:        sh.Value.Name.Value,
			Description: text(sh.Value.Description),
			Optional:    sh.Value.Optional,
			Type:        typeOf(sh.Value.Type.Value),
			Location:    b.loc(sh.Loc),
		}
	}
	for _, d := range c.Types {
		doc.Types = append(doc.Types, TypeDecl{
			Name:        d.Value.Name,
			Description: d.Value.Description,
			Type:        typeOf(d.Value.Type),
			Location:    b.loc(d.Loc),
		})
	}
	for _, e := range c.Endpoints {
		doc.Endpoints = append(doc.Endpoints, b.endpoint(e))
	}
	return doc, nil
}

type builder struct {
	locs *loci.Table
}

func (b builder) loc(id loci.ID) *loci.Location {
	l, ok := b.locs.Lookup(id)
	if !ok {
		return nil
	}
	return &l
}

func text(d *loci.Locatable[string]) string {
	if d == nil {
		return ""
	}
	return d.Value
}

func (b builder) endpoint(e loci.Locatable[contract.EndpointNode]) Endpoint {
	ep := e.Value
	out := Endpoint{
		Name:        ep.Name.Value,
		Description: text(ep.Description),
		Method:      string(ep.Method.Value),
		Path:        ep.Path.Value,
		Location:    b.loc(e.Loc),
	}
	if ep.Tags != nil {
		out.Tags = ep.Tags.Value
	}
	if ep.Request != nil {
		req := ep.Request.Value
		out.Headers = b.headers(req.Headers)
		for _, p := range req.PathParamList() {
			out.PathParams = append(out.PathParams, Field{
				Name:        p.Value.Name.Value,
				Description: text(p.Value.Description),
				Type:        typeOf(p.Value.Type.Value),
				Location:    b.loc(p.Loc),
			})
		}
		for _, q := range req.QueryParamList() {
			out.QueryParams = append(out.QueryParams, Field{
				Name:        q.Value.Name.Value,
				Description: text(q.Value.Description),
				Optional:    q.Value.Optional,
				Type:        typeOf(q.Value.Type.Value),
				Location:    b.loc(q.Loc),
			})
		}
		out.Body = body(req.Body)
	}
	for _, r := range ep.Responses {
		resp := b.response(r.Value.DefaultResponseNode)
		resp.Status = r.Value.Status.Value
		out.Responses = append(out.Responses, resp)
	}
	if ep.DefaultResponse != nil {
		resp := b.response(ep.DefaultResponse.Value)
		out.DefaultResponse = &resp
	}
	return out
}

func (b builder) headers(h *loci.Locatable[[]loci.Locatable[contract.HeaderNode]]) []Field {
	var out []Field
	for _, x := range contract.HeaderList(h) {
		out = append(out, Field{
			Name:        x.Value.Name.Value,
			Description: text(x.Value.Description),
			Optional:    x.Value.Optional,
			Type:        typeOf(x.Value.Type.Value),
			Location:    b.loc(x.Loc),
		})
	}
	return out
}

func (b builder) response(r contract.DefaultResponseNode) Response {
	return Response{
		Description: text(r.Description),
		Headers:     b.headers(r.Headers),
		Body:        body(r.Body),
	}
}

func body(bn *loci.Locatable[contract.BodyNode]) *Body {
	if bn == nil {
		return nil
	}
	return &Body{Description: text(bn.Value.Description), Type: typeOf(bn.Value.Type.Value)}
}

func typeOf(dt types.DataType) *Type {
	t := &Type{Kind: dt.Kind.String()}
	switch dt.Kind {
	case types.KindBooleanLiteral:
		t.Value = dt.BoolValue
	case types.KindStringLiteral:
		t.Value = dt.StringValue
	case types.KindNumberLiteral:
		t.Value = dt.NumberValue
	case types.KindObject:
		for _, p := range dt.Properties {
			t.Properties = append(t.Properties, Property{
				Name:        p.Name,
				Description: p.Description,
				Optional:    p.Optional,
				Type:        typeOf(p.Type),
			})
		}
	case types.KindArray:
		t.Elem = typeOf(*dt.Elem)
	case types.KindUnion:
		for _, m := range dt.Members {
			t.Members = append(t.Members, typeOf(m))
		}
	case types.KindReference:
		t.Ref = dt.Ref.Name
		t.Target = dt.Ref.Target.String()
	}
	return t
}
