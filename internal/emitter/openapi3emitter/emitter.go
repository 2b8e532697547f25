// Package openapi3emitter renders a verified contract as an OpenAPI 3
// document.
package openapi3emitter

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/contractc/internal/compiler"
	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/emitter"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

const (
	openAPIVersion     = "3.0.3"
	defaultAPIVersion  = "0.1.0"
	securitySchemeName = "SecurityHeader"
	schemaRefPrefix    = "#/components/schemas/"
)

// Options controls how the document is rendered and written.
type Options struct {
	emitter.WriteOptions
	Format     emitter.Format // defaults to yaml
	FileName   string         // base name without extension; defaults to "openapi"
	APIVersion string         // info.version; defaults to 0.1.0
	// Hoist moves objects and unions nested inside declared types into
	// their own component schemas.
	Hoist bool
}

// Result returns the planned files and the rendered document.
type Result struct {
	Doc     *openapi3.T
	Planned []emitter.PlannedFile
}

// Emit renders res and writes it according to opts.
func Emit(ctx context.Context, res *compiler.Result, opts Options) (*Result, error) {
	doc, err := Document(res, opts)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi3emitter: generated document is invalid: %w", err)
	}
	format := opts.Format
	if format == "" {
		format = emitter.FormatYAML
	}
	raw, err := emitter.Marshal(doc, format)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(opts.FileName)
	if name == "" {
		name = "openapi"
	}
	planned, err := emitter.Write(opts.WriteOptions, map[string][]byte{name + format.Ext(): raw})
	if err != nil {
		return nil, err
	}
	return &Result{Doc: doc, Planned: planned}, nil
}

// Document converts a verified compilation into an OpenAPI document.
func Document(res *compiler.Result, opts Options) (*openapi3.T, error) {
	if res == nil || res.Contract == nil {
		return nil, fmt.Errorf("openapi3emitter: nil result")
	}
	if !res.OK() {
		return nil, fmt.Errorf("openapi3emitter: contract has %d errors", len(res.Errors))
	}
	c := res.Contract
	api := c.Api.Value

	version := opts.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	doc := &openapi3.T{
		OpenAPI: openAPIVersion,
		Info: &openapi3.Info{
			Title:   api.Name.Value,
			Version: version,
		},
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}
	if api.Description != nil {
		doc.Info.Description = api.Description.Value
	}

	var decls []types.TypeNode
	for _, d := range c.Types {
		decls = append(decls, d.Value)
	}
	if opts.Hoist {
		var err error
		if decls, err = hoist(decls); err != nil {
			return nil, err
		}
	}
	s := newSchemas(decls)
	for _, d := range decls {
		s.define(d)
	}
	doc.Components.Schemas = s.components

	var security string
	if sh := api.SecurityHeader; sh != nil {
		security = sh.Value.Name.Value
		scheme := &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   openapi3.ParameterInHeader,
			Name: security,
		}
		if sh.Value.Description != nil {
			scheme.Description = sh.Value.Description.Value
		}
		doc.Components.SecuritySchemes = openapi3.SecuritySchemes{
			securitySchemeName: &openapi3.SecuritySchemeRef{Value: scheme},
		}
		doc.Security = openapi3.SecurityRequirements{
			openapi3.NewSecurityRequirement().Authenticate(securitySchemeName),
		}
	}

	for _, e := range c.Endpoints {
		ep := e.Value
		path := contract.TemplatePath(ep.Path.Value)
		item := doc.Paths[path]
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths[path] = item
		}
		item.SetOperation(string(ep.Method.Value), s.operation(ep))
	}
	return doc, nil
}

// hoist splits each declaration into its root and the objects and unions
// nested below it. A nested type whose component would replace another
// one is an error.
func hoist(decls []types.TypeNode) ([]types.TypeNode, error) {
	var out []types.TypeNode
	for _, d := range decls {
		root, objects := types.Hoist(d, types.KindObject)
		for _, n := range append([]types.TypeNode{root}, objects...) {
			r, unions := types.Hoist(n, types.KindUnion)
			out = append(out, r)
			out = append(out, unions...)
		}
	}
	seen := make(map[string]string, len(out))
	for _, n := range out {
		key := componentName(n.Name)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("openapi3emitter: nested type %q and %q both map to component %q", prev, n.Name, key)
		}
		seen[key] = n.Name
	}
	return out, nil
}

var (
	pathReplacer  = strings.NewReplacer("[]", ".item", "[", ".option", "]", "")
	componentChar = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// componentName maps a type or hoisted path name onto the characters
// component keys allow.
func componentName(name string) string {
	return componentChar.ReplaceAllString(pathReplacer.Replace(name), "_")
}

// schemas renders data types. Every declared name gets its schema value up
// front so references, including recursive ones, share it.
type schemas struct {
	components openapi3.Schemas
	values     map[string]*openapi3.Schema
}

func newSchemas(decls []types.TypeNode) *schemas {
	s := &schemas{components: openapi3.Schemas{}, values: make(map[string]*openapi3.Schema, len(decls))}
	for _, d := range decls {
		s.values[d.Name] = &openapi3.Schema{}
	}
	return s
}

func (s *schemas) define(d types.TypeNode) {
	v := s.values[d.Name]
	if ref := s.schema(d.Type); ref.Ref != "" {
		*v = openapi3.Schema{AllOf: openapi3.SchemaRefs{ref}}
	} else {
		*v = *ref.Value
	}
	if d.Description != "" {
		v.Description = d.Description
	}
	s.components[componentName(d.Name)] = openapi3.NewSchemaRef("", v)
}

func (s *schemas) schema(dt types.DataType) *openapi3.SchemaRef {
	switch dt.Kind {
	case types.KindReference:
		v, ok := s.values[dt.Ref.Name]
		if !ok {
			v = &openapi3.Schema{}
		}
		return openapi3.NewSchemaRef(schemaRefPrefix+componentName(dt.Ref.Name), v)
	case types.KindNull:
		return openapi3.NewSchemaRef("", &openapi3.Schema{Nullable: true})
	case types.KindBoolean:
		return openapi3.NewBoolSchema().NewRef()
	case types.KindString:
		return openapi3.NewStringSchema().NewRef()
	case types.KindFloat:
		return openapi3.NewFloat64Schema().WithFormat("float").NewRef()
	case types.KindDouble:
		return openapi3.NewFloat64Schema().WithFormat("double").NewRef()
	case types.KindInt32:
		return openapi3.NewInt32Schema().NewRef()
	case types.KindInt64:
		return openapi3.NewInt64Schema().NewRef()
	case types.KindDate:
		return openapi3.NewStringSchema().WithFormat("date").NewRef()
	case types.KindDateTime:
		return openapi3.NewDateTimeSchema().NewRef()
	case types.KindBooleanLiteral:
		return openapi3.NewBoolSchema().WithEnum(dt.BoolValue).NewRef()
	case types.KindStringLiteral:
		return openapi3.NewStringSchema().WithEnum(dt.StringValue).NewRef()
	case types.KindNumberLiteral:
		return openapi3.NewFloat64Schema().WithEnum(dt.NumberValue).NewRef()
	case types.KindObject:
		o := openapi3.NewObjectSchema()
		if o.Properties == nil {
			o.Properties = openapi3.Schemas{}
		}
		for _, p := range dt.Properties {
			ps := s.schema(p.Type)
			if p.Description != "" && ps.Ref == "" {
				ps.Value.Description = p.Description
			}
			o.Properties[p.Name] = ps
			if !p.Optional {
				o.Required = append(o.Required, p.Name)
			}
		}
		return o.NewRef()
	case types.KindArray:
		a := openapi3.NewArraySchema()
		a.Items = s.schema(*dt.Elem)
		return a.NewRef()
	case types.KindUnion:
		return s.union(dt)
	default:
		panic(&types.InvariantError{Message: fmt.Sprintf("cannot render %s type", dt.Kind)})
	}
}

// union renders null members as nullability and unions of string literals
// as a string enum.
func (s *schemas) union(dt types.DataType) *openapi3.SchemaRef {
	var members []types.DataType
	nullable := false
	for _, m := range dt.Members {
		if m.Kind == types.KindNull {
			nullable = true
			continue
		}
		members = append(members, m)
	}

	var out *openapi3.Schema
	switch {
	case len(members) == 1:
		ref := s.schema(members[0])
		if ref.Ref != "" {
			out = &openapi3.Schema{AllOf: openapi3.SchemaRefs{ref}}
		} else {
			out = ref.Value
		}
	case allStringLiterals(members):
		out = openapi3.NewStringSchema()
		for _, m := range members {
			out.Enum = append(out.Enum, m.StringValue)
		}
	default:
		out = &openapi3.Schema{}
		for _, m := range members {
			out.OneOf = append(out.OneOf, s.schema(m))
		}
	}
	out.Nullable = out.Nullable || nullable
	return out.NewRef()
}

func allStringLiterals(members []types.DataType) bool {
	for _, m := range members {
		if m.Kind != types.KindStringLiteral {
			return false
		}
	}
	return len(members) > 0
}

func (s *schemas) operation(ep contract.EndpointNode) *openapi3.Operation {
	op := &openapi3.Operation{}
	op.OperationID = ep.Name.Value
	if ep.Description != nil {
		op.Description = ep.Description.Value
	}
	if ep.Tags != nil {
		op.Tags = append([]string(nil), ep.Tags.Value...)
	}

	if ep.Request != nil {
		req := ep.Request.Value
		for _, p := range req.PathParamList() {
			param := openapi3.NewPathParameter(p.Value.Name.Value)
			param.Schema = s.schema(p.Value.Type.Value)
			param.Description = describe(p.Value.Description)
			op.AddParameter(param)
		}
		for _, q := range req.QueryParamList() {
			param := openapi3.NewQueryParameter(q.Value.Name.Value)
			param.Schema = s.schema(q.Value.Type.Value)
			param.Required = !q.Value.Optional
			param.Description = describe(q.Value.Description)
			op.AddParameter(param)
		}
		for _, h := range contract.HeaderList(req.Headers) {
			param := openapi3.NewHeaderParameter(h.Value.Name.Value)
			param.Schema = s.schema(h.Value.Type.Value)
			param.Required = !h.Value.Optional
			param.Description = describe(h.Value.Description)
			op.AddParameter(param)
		}
		if req.Body != nil {
			body := openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(s.schema(req.Body.Value.Type.Value))
			body.Description = describe(req.Body.Value.Description)
			op.RequestBody = &openapi3.RequestBodyRef{Value: body}
		}
	}

	op.Responses = openapi3.Responses{}
	for _, r := range ep.Responses {
		status := r.Value.Status.Value
		op.Responses[fmt.Sprint(status)] = &openapi3.ResponseRef{
			Value: s.response(r.Value.DefaultResponseNode, http.StatusText(status)),
		}
	}
	if ep.DefaultResponse != nil {
		op.Responses["default"] = &openapi3.ResponseRef{
			Value: s.response(ep.DefaultResponse.Value, "Default response"),
		}
	}
	if len(op.Responses) == 0 {
		op.Responses["default"] = &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Default response"),
		}
	}
	return op
}

func (s *schemas) response(r contract.DefaultResponseNode, fallback string) *openapi3.Response {
	desc := describe(r.Description)
	if desc == "" {
		desc = fallback
	}
	if desc == "" {
		desc = "Response"
	}
	resp := openapi3.NewResponse().WithDescription(desc)
	headers := contract.HeaderList(r.Headers)
	if len(headers) > 0 {
		resp.Headers = openapi3.Headers{}
		for _, h := range headers {
			hdr := &openapi3.Header{Parameter: openapi3.Parameter{
				Description: describe(h.Value.Description),
				Required:    !h.Value.Optional,
				Schema:      s.schema(h.Value.Type.Value),
			}}
			resp.Headers[h.Value.Name.Value] = &openapi3.HeaderRef{Value: hdr}
		}
	}
	if r.Body != nil {
		resp.WithJSONSchemaRef(s.schema(r.Body.Value.Type.Value))
	}
	return resp
}

func describe(d *loci.Locatable[string]) string {
	if d == nil {
		return ""
	}
	return d.Value
}
