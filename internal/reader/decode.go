package reader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/contractc/internal/compiler"
	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

// primitives maps the type names usable in a contract to their types.
var primitives = map[string]types.DataType{
	"null":      types.Null(),
	"boolean":   types.Boolean(),
	"string":    types.String(),
	"float":     types.Float(),
	"double":    types.Double(),
	"number":    types.Double(),
	"int32":     types.Int32(),
	"int64":     types.Int64(),
	"integer":   types.Int64(),
	"date":      types.Date(),
	"date-time": types.DateTime(),
}

// undefinedMember marks a union member that makes the union optional.
const undefinedMember = "undefined"

// Parse decodes a YAML contract. source names the document in locations.
func Parse(source string, data []byte) (*compiler.Unit, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ReadError{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", source, err), Location: source, Cause: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &ReadError{Code: SchemaError, Message: fmt.Sprintf("%s: empty contract", source), Location: source}
	}
	d := &decoder{b: contract.NewBuilder(source)}
	c, err := d.contract(doc.Content[0])
	if err != nil {
		return nil, err
	}
	return compiler.FromBuilder(d.b, c), nil
}

type decoder struct {
	b *contract.Builder
}

type field struct {
	key, val *yaml.Node
}

type fields []field

func (fs fields) get(key string) *yaml.Node {
	for _, f := range fs {
		if f.key.Value == key {
			return f.val
		}
	}
	return nil
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	return &ReadError{
		Code:     SchemaError,
		Message:  fmt.Sprintf(format, args...),
		Location: d.b.Source(),
		Line:     n.Line,
		Column:   n.Column,
	}
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// mapping returns the entries of n in document order. When allowed is not
// empty, any other key is rejected.
func (d *decoder) mapping(n *yaml.Node, what string, allowed ...string) (fields, error) {
	return d.entries(n, what, false, allowed)
}

// list is mapping for name-keyed lists whose repeated names are reported
// by verification rather than rejected here.
func (d *decoder) list(n *yaml.Node, what string) (fields, error) {
	return d.entries(n, what, true, nil)
}

func (d *decoder) entries(n *yaml.Node, what string, repeats bool, allowed []string) (fields, error) {
	n = deref(n)
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "%s must be a mapping", what)
	}
	seen := make(map[string]bool, len(n.Content)/2)
	out := make(fields, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, d.errorf(k, "%s keys must be scalars", what)
		}
		if seen[k.Value] && !repeats {
			return nil, d.errorf(k, "%s key %q is defined more than once", what, k.Value)
		}
		if len(allowed) > 0 && !contains(allowed, k.Value) {
			return nil, d.errorf(k, "unknown %s key %q", what, k.Value)
		}
		seen[k.Value] = true
		out = append(out, field{key: k, val: v})
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (d *decoder) str(n *yaml.Node, what string) (loci.Locatable[string], error) {
	n = deref(n)
	if n.Kind != yaml.ScalarNode {
		return loci.Locatable[string]{}, d.errorf(n, "%s must be a scalar", what)
	}
	return contract.Loc(d.b, n.Value, n.Line, n.Column), nil
}

func (d *decoder) optStr(n *yaml.Node, what string) (*loci.Locatable[string], error) {
	if n == nil {
		return nil, nil
	}
	s, err := d.str(n, what)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *decoder) boolean(n *yaml.Node, what string) (bool, error) {
	if n == nil {
		return false, nil
	}
	var v bool
	if err := deref(n).Decode(&v); err != nil {
		return false, d.errorf(n, "%s must be a boolean", what)
	}
	return v, nil
}

func (d *decoder) contract(root *yaml.Node) (*contract.ContractNode, error) {
	top, err := d.mapping(root, "contract", "api", "types", "endpoints")
	if err != nil {
		return nil, err
	}
	if n := top.get("types"); n != nil {
		if err := d.types(n); err != nil {
			return nil, err
		}
	}
	apiNode := top.get("api")
	if apiNode == nil {
		return nil, d.errorf(root, "contract has no api section")
	}
	api, err := d.api(apiNode)
	if err != nil {
		return nil, err
	}
	var endpoints []loci.Locatable[contract.EndpointNode]
	if n := top.get("endpoints"); n != nil {
		fs, err := d.list(n, "endpoints")
		if err != nil {
			return nil, err
		}
		for _, f := range fs {
			ep, err := d.endpoint(f)
			if err != nil {
				return nil, err
			}
			endpoints = append(endpoints, ep)
		}
	}
	return d.b.Build(api, endpoints...), nil
}

// types declares every named type. Declarations may refer to each other in
// any order, so reference targets are settled once all names are known.
func (d *decoder) types(n *yaml.Node) error {
	fs, err := d.mapping(n, "types")
	if err != nil {
		return err
	}
	for _, f := range fs {
		desc, expr := "", f.val
		if full := deref(f.val); full.Kind == yaml.MappingNode && hasKey(full, "type") {
			sf, err := d.mapping(full, "type declaration", "type", "description")
			if err != nil {
				return err
			}
			if dn := sf.get("description"); dn != nil {
				desc = deref(dn).Value
			}
			expr = sf.get("type")
		}
		dt, err := d.typeExpr(expr)
		if err != nil {
			return err
		}
		d.b.Declare(f.key.Value, desc, dt, f.key.Line)
	}
	tt := d.b.TypeTable()
	for _, node := range tt.Nodes() {
		node.Type = retarget(node.Type, tt)
		tt.RegisterNode(node)
	}
	return nil
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// retarget rebuilds dt with every reference tagged by the kind its name
// resolves to. Names that do not resolve keep an undetermined target.
func retarget(dt types.DataType, tt *types.Table) types.DataType {
	switch dt.Kind {
	case types.KindReference:
		target, err := tt.KindOf(dt.Ref.Name)
		if err != nil {
			target = types.KindInvalid
		}
		return types.Reference(dt.Ref.Name, dt.Ref.DeclaredAt, target)
	case types.KindObject:
		props := make([]types.Property, len(dt.Properties))
		for i, p := range dt.Properties {
			p.Type = retarget(p.Type, tt)
			props[i] = p
		}
		return types.Object(props...)
	case types.KindArray:
		return types.Array(retarget(*dt.Elem, tt))
	case types.KindUnion:
		members := make([]types.DataType, len(dt.Members))
		for i, m := range dt.Members {
			members[i] = retarget(m, tt)
		}
		return types.DataType{Kind: types.KindUnion, Members: members}
	default:
		return dt
	}
}

// typeExpr decodes a type expression: a type name, or a mapping with one of
// the keys object, array, union or literal.
func (d *decoder) typeExpr(n *yaml.Node) (types.DataType, error) {
	n = deref(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag != "!!str" {
			return types.DataType{}, d.errorf(n, "type %q is not a name; use {literal: %s} for literal values", n.Value, n.Value)
		}
		if dt, ok := primitives[n.Value]; ok {
			return dt, nil
		}
		if n.Value == undefinedMember {
			return types.DataType{}, d.errorf(n, "%s is only allowed as a union member", undefinedMember)
		}
		return d.b.Ref(n.Value), nil
	case yaml.MappingNode:
		fs, err := d.mapping(n, "type", "object", "array", "union", "literal")
		if err != nil {
			return types.DataType{}, err
		}
		if len(fs) != 1 {
			return types.DataType{}, d.errorf(n, "type must have exactly one of object, array, union or literal")
		}
		f := fs[0]
		switch f.key.Value {
		case "object":
			return d.object(f.val)
		case "array":
			elem, err := d.typeExpr(f.val)
			if err != nil {
				return types.DataType{}, err
			}
			return types.Array(elem), nil
		case "union":
			return d.union(f.val)
		default:
			return d.literal(f.val)
		}
	default:
		return types.DataType{}, d.errorf(n, "type must be a name or a mapping")
	}
}

func (d *decoder) object(n *yaml.Node) (types.DataType, error) {
	n = deref(n)
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return types.Object(), nil
	}
	fs, err := d.mapping(n, "object")
	if err != nil {
		return types.DataType{}, err
	}
	props := make([]types.Property, 0, len(fs))
	for _, f := range fs {
		p := types.Property{Name: f.key.Value}
		expr := f.val
		if full := deref(f.val); full.Kind == yaml.MappingNode && hasKey(full, "type") {
			pf, err := d.mapping(full, "property", "type", "optional", "description")
			if err != nil {
				return types.DataType{}, err
			}
			if p.Optional, err = d.boolean(pf.get("optional"), "optional"); err != nil {
				return types.DataType{}, err
			}
			if dn := pf.get("description"); dn != nil {
				p.Description = deref(dn).Value
			}
			expr = pf.get("type")
		}
		if p.Type, err = d.typeExpr(expr); err != nil {
			return types.DataType{}, err
		}
		props = append(props, p)
	}
	return types.Object(props...), nil
}

func (d *decoder) union(n *yaml.Node) (types.DataType, error) {
	n = deref(n)
	if n.Kind != yaml.SequenceNode {
		return types.DataType{}, d.errorf(n, "union must be a sequence")
	}
	members := make([]types.DataType, 0, len(n.Content))
	for _, m := range n.Content {
		if dm := deref(m); dm.Kind == yaml.ScalarNode && dm.Tag == "!!str" && dm.Value == undefinedMember {
			members = append(members, types.Absent())
			continue
		}
		dt, err := d.typeExpr(m)
		if err != nil {
			return types.DataType{}, err
		}
		members = append(members, dt)
	}
	dt, err := types.NewUnion(members...)
	if errors.Is(err, types.ErrEmptyUnion) {
		return types.DataType{}, d.errorf(n, "union has no members besides %s", undefinedMember)
	}
	return dt, err
}

func (d *decoder) literal(n *yaml.Node) (types.DataType, error) {
	n = deref(n)
	if n.Kind != yaml.ScalarNode {
		return types.DataType{}, d.errorf(n, "literal must be a scalar")
	}
	switch n.Tag {
	case "!!str":
		return types.StringLiteral(n.Value), nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return types.DataType{}, d.errorf(n, "invalid boolean literal %q", n.Value)
		}
		return types.BooleanLiteral(v), nil
	case "!!int", "!!float":
		var v float64
		if err := n.Decode(&v); err != nil {
			return types.DataType{}, d.errorf(n, "invalid number literal %q", n.Value)
		}
		return types.NumberLiteral(v), nil
	default:
		return types.DataType{}, d.errorf(n, "unsupported literal %q", n.Value)
	}
}

// located decodes a type expression and records its position.
func (d *decoder) located(n *yaml.Node) (loci.Locatable[types.DataType], error) {
	dt, err := d.typeExpr(n)
	if err != nil {
		return loci.Locatable[types.DataType]{}, err
	}
	n = deref(n)
	return contract.Loc(d.b, dt, n.Line, n.Column), nil
}

func (d *decoder) api(n *yaml.Node) (loci.Locatable[contract.ApiNode], error) {
	var api contract.ApiNode
	fs, err := d.mapping(n, "api", "name", "description", "securityHeader")
	if err != nil {
		return loci.Locatable[contract.ApiNode]{}, err
	}
	nameNode := fs.get("name")
	if nameNode == nil {
		return loci.Locatable[contract.ApiNode]{}, d.errorf(n, "api has no name")
	}
	if api.Name, err = d.str(nameNode, "api name"); err != nil {
		return loci.Locatable[contract.ApiNode]{}, err
	}
	if api.Description, err = d.optStr(fs.get("description"), "api description"); err != nil {
		return loci.Locatable[contract.ApiNode]{}, err
	}
	if sn := fs.get("securityHeader"); sn != nil {
		sh, err := d.securityHeader(sn)
		if err != nil {
			return loci.Locatable[contract.ApiNode]{}, err
		}
		api.SecurityHeader = &sh
	}
	return contract.Loc(d.b, api, n.Line, n.Column), nil
}

func (d *decoder) securityHeader(n *yaml.Node) (loci.Locatable[contract.SecurityHeaderNode], error) {
	var sh contract.SecurityHeaderNode
	fs, err := d.mapping(n, "security header", "name", "type", "optional", "description")
	if err != nil {
		return loci.Locatable[contract.SecurityHeaderNode]{}, err
	}
	nameNode, typeNode := fs.get("name"), fs.get("type")
	if nameNode == nil || typeNode == nil {
		return loci.Locatable[contract.SecurityHeaderNode]{}, d.errorf(n, "security header needs a name and a type")
	}
	if sh.Name, err = d.str(nameNode, "security header name"); err != nil {
		return loci.Locatable[contract.SecurityHeaderNode]{}, err
	}
	if sh.Type, err = d.located(typeNode); err != nil {
		return loci.Locatable[contract.SecurityHeaderNode]{}, err
	}
	if sh.Optional, err = d.boolean(fs.get("optional"), "optional"); err != nil {
		return loci.Locatable[contract.SecurityHeaderNode]{}, err
	}
	if sh.Description, err = d.optStr(fs.get("description"), "description"); err != nil {
		return loci.Locatable[contract.SecurityHeaderNode]{}, err
	}
	n = deref(n)
	return contract.Loc(d.b, sh, n.Line, n.Column), nil
}

// param is the shared shape of headers and parameters: a bare type
// expression or a mapping with type, optional and description.
type param struct {
	name        loci.Locatable[string]
	description *loci.Locatable[string]
	typ         loci.Locatable[types.DataType]
	optional    bool
	optNode     *yaml.Node
}

func (d *decoder) param(f field, what string) (param, error) {
	p := param{name: contract.Loc(d.b, f.key.Value, f.key.Line, f.key.Column)}
	expr := f.val
	if full := deref(f.val); full.Kind == yaml.MappingNode && hasKey(full, "type") {
		pf, err := d.mapping(full, what, "type", "optional", "description")
		if err != nil {
			return param{}, err
		}
		p.optNode = pf.get("optional")
		if p.optional, err = d.boolean(p.optNode, "optional"); err != nil {
			return param{}, err
		}
		if p.description, err = d.optStr(pf.get("description"), "description"); err != nil {
			return param{}, err
		}
		expr = pf.get("type")
	}
	var err error
	if p.typ, err = d.located(expr); err != nil {
		return param{}, err
	}
	return p, nil
}

func (d *decoder) headers(n *yaml.Node) (*loci.Locatable[[]loci.Locatable[contract.HeaderNode]], error) {
	if n == nil {
		return nil, nil
	}
	fs, err := d.list(n, "headers")
	if err != nil {
		return nil, err
	}
	list := make([]loci.Locatable[contract.HeaderNode], 0, len(fs))
	for _, f := range fs {
		p, err := d.param(f, "header")
		if err != nil {
			return nil, err
		}
		list = append(list, contract.Loc(d.b, contract.HeaderNode{
			Name: p.name, Description: p.description, Type: p.typ, Optional: p.optional,
		}, f.key.Line, f.key.Column))
	}
	n = deref(n)
	return contract.Opt(d.b, list, n.Line, n.Column), nil
}

func (d *decoder) pathParams(n *yaml.Node) (*loci.Locatable[[]loci.Locatable[contract.PathParamNode]], error) {
	if n == nil {
		return nil, nil
	}
	fs, err := d.list(n, "path params")
	if err != nil {
		return nil, err
	}
	list := make([]loci.Locatable[contract.PathParamNode], 0, len(fs))
	for _, f := range fs {
		p, err := d.param(f, "path param")
		if err != nil {
			return nil, err
		}
		if p.optNode != nil {
			return nil, d.errorf(p.optNode, "path param %q cannot be optional", f.key.Value)
		}
		list = append(list, contract.Loc(d.b, contract.PathParamNode{
			Name: p.name, Description: p.description, Type: p.typ,
		}, f.key.Line, f.key.Column))
	}
	n = deref(n)
	return contract.Opt(d.b, list, n.Line, n.Column), nil
}

func (d *decoder) queryParams(n *yaml.Node) (*loci.Locatable[[]loci.Locatable[contract.QueryParamNode]], error) {
	if n == nil {
		return nil, nil
	}
	fs, err := d.list(n, "query params")
	if err != nil {
		return nil, err
	}
	list := make([]loci.Locatable[contract.QueryParamNode], 0, len(fs))
	for _, f := range fs {
		p, err := d.param(f, "query param")
		if err != nil {
			return nil, err
		}
		list = append(list, contract.Loc(d.b, contract.QueryParamNode{
			Name: p.name, Description: p.description, Type: p.typ, Optional: p.optional,
		}, f.key.Line, f.key.Column))
	}
	n = deref(n)
	return contract.Opt(d.b, list, n.Line, n.Column), nil
}

func (d *decoder) body(n *yaml.Node) (*loci.Locatable[contract.BodyNode], error) {
	if n == nil {
		return nil, nil
	}
	var body contract.BodyNode
	expr := n
	if full := deref(n); full.Kind == yaml.MappingNode && hasKey(full, "type") {
		bf, err := d.mapping(full, "body", "type", "description")
		if err != nil {
			return nil, err
		}
		if body.Description, err = d.optStr(bf.get("description"), "description"); err != nil {
			return nil, err
		}
		expr = bf.get("type")
	}
	var err error
	if body.Type, err = d.located(expr); err != nil {
		return nil, err
	}
	n = deref(n)
	return contract.Opt(d.b, body, n.Line, n.Column), nil
}

func (d *decoder) endpoint(f field) (loci.Locatable[contract.EndpointNode], error) {
	var ep contract.EndpointNode
	fail := func(err error) (loci.Locatable[contract.EndpointNode], error) {
		return loci.Locatable[contract.EndpointNode]{}, err
	}
	fs, err := d.mapping(f.val, "endpoint",
		"description", "tags", "method", "path", "request", "responses", "defaultResponse")
	if err != nil {
		return fail(err)
	}
	ep.Name = contract.Loc(d.b, f.key.Value, f.key.Line, f.key.Column)
	if ep.Description, err = d.optStr(fs.get("description"), "description"); err != nil {
		return fail(err)
	}

	if tn := fs.get("tags"); tn != nil {
		tn = deref(tn)
		var tags []string
		if err := tn.Decode(&tags); err != nil {
			return fail(d.errorf(tn, "tags must be a sequence of strings"))
		}
		ep.Tags = contract.Opt(d.b, tags, tn.Line, tn.Column)
	}

	mn, pn := fs.get("method"), fs.get("path")
	if mn == nil || pn == nil {
		return fail(d.errorf(f.key, "endpoint %q needs a method and a path", f.key.Value))
	}
	method, err := d.str(mn, "method")
	if err != nil {
		return fail(err)
	}
	m := contract.HTTPMethod(strings.ToUpper(method.Value))
	if !knownMethod(m) {
		return fail(d.errorf(mn, "unsupported method %q", method.Value))
	}
	ep.Method = loci.At(m, method.Loc)
	if ep.Path, err = d.str(pn, "path"); err != nil {
		return fail(err)
	}
	if !strings.HasPrefix(ep.Path.Value, "/") {
		return fail(d.errorf(pn, "path %q must start with /", ep.Path.Value))
	}

	if rn := fs.get("request"); rn != nil {
		req, err := d.request(rn)
		if err != nil {
			return fail(err)
		}
		ep.Request = &req
	}
	if rn := fs.get("responses"); rn != nil {
		rs, err := d.list(rn, "responses")
		if err != nil {
			return fail(err)
		}
		for _, r := range rs {
			status, err := strconv.Atoi(r.key.Value)
			if err != nil || status < 100 || status > 599 {
				return fail(d.errorf(r.key, "invalid status code %q", r.key.Value))
			}
			dr, err := d.response(r.val)
			if err != nil {
				return fail(err)
			}
			ep.Responses = append(ep.Responses, contract.Loc(d.b, contract.ResponseNode{
				Status:              contract.Loc(d.b, status, r.key.Line, r.key.Column),
				DefaultResponseNode: dr,
			}, r.key.Line, r.key.Column))
		}
	}
	if dn := fs.get("defaultResponse"); dn != nil {
		dr, err := d.response(dn)
		if err != nil {
			return fail(err)
		}
		dn = deref(dn)
		ep.DefaultResponse = contract.Opt(d.b, dr, dn.Line, dn.Column)
	}
	return contract.Loc(d.b, ep, f.key.Line, f.key.Column), nil
}

func knownMethod(m contract.HTTPMethod) bool {
	for _, k := range contract.Methods {
		if k == m {
			return true
		}
	}
	return false
}

func (d *decoder) request(n *yaml.Node) (loci.Locatable[contract.RequestNode], error) {
	var req contract.RequestNode
	fail := func(err error) (loci.Locatable[contract.RequestNode], error) {
		return loci.Locatable[contract.RequestNode]{}, err
	}
	fs, err := d.mapping(n, "request", "headers", "pathParams", "queryParams", "body")
	if err != nil {
		return fail(err)
	}
	if req.Headers, err = d.headers(fs.get("headers")); err != nil {
		return fail(err)
	}
	if req.PathParams, err = d.pathParams(fs.get("pathParams")); err != nil {
		return fail(err)
	}
	if req.QueryParams, err = d.queryParams(fs.get("queryParams")); err != nil {
		return fail(err)
	}
	if req.Body, err = d.body(fs.get("body")); err != nil {
		return fail(err)
	}
	n = deref(n)
	return contract.Loc(d.b, req, n.Line, n.Column), nil
}

func (d *decoder) response(n *yaml.Node) (contract.DefaultResponseNode, error) {
	var r contract.DefaultResponseNode
	if dn := deref(n); dn.Kind == yaml.ScalarNode && dn.Tag == "!!null" {
		return r, nil
	}
	fs, err := d.mapping(n, "response", "description", "headers", "body")
	if err != nil {
		return r, err
	}
	if r.Description, err = d.optStr(fs.get("description"), "description"); err != nil {
		return r, err
	}
	if r.Headers, err = d.headers(fs.get("headers")); err != nil {
		return r, err
	}
	if r.Body, err = d.body(fs.get("body")); err != nil {
		return r, err
	}
	return r, nil
}
