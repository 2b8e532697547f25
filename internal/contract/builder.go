package contract

import (
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

// Builder constructs a ContractNode directly, recording every position it
// is given in a location table and every declared type in a type table.
type Builder struct {
	source string
	locs   *loci.Table
	types  *types.Table
	decls  map[string]loci.ID
}

// NewBuilder returns a builder whose locations point into source.
func NewBuilder(source string) *Builder {
	return &Builder{
		source: source,
		locs:   loci.NewTable(),
		types:  types.NewTable(),
		decls:  make(map[string]loci.ID),
	}
}

func (b *Builder) Source() string          { return b.source }
func (b *Builder) Locations() *loci.Table  { return b.locs }
func (b *Builder) TypeTable() *types.Table { return b.types }

// Pos records a position in the builder's source.
func (b *Builder) Pos(line, column int) loci.ID {
	return b.locs.Add(loci.Location{Source: b.source, Line: line, Column: column})
}

// Loc wraps v with a freshly recorded position.
func Loc[T any](b *Builder, v T, line, column int) loci.Locatable[T] {
	return loci.At(v, b.Pos(line, column))
}

// Opt is Loc for optional fields.
func Opt[T any](b *Builder, v T, line, column int) *loci.Locatable[T] {
	l := Loc(b, v, line, column)
	return &l
}

// Declare registers a named type declared at line.
func (b *Builder) Declare(name, description string, dt types.DataType, line int) {
	n := types.TypeNode{Name: name, Description: description, Type: dt}
	b.types.RegisterNode(n)
	b.decls[name] = b.Pos(line, 0)
}

// Ref builds a reference to name. The target kind is taken from the
// declaration when it resolves; otherwise it is left undetermined.
func (b *Builder) Ref(name string) types.DataType {
	target, _ := b.types.KindOf(name)
	return types.Reference(name, b.source, target)
}

// RefTo builds a reference whose target kind is given explicitly, for
// references to types that are not declared yet, such as a property of an
// object referring to the object itself.
func (b *Builder) RefTo(name string, target types.Kind) types.DataType {
	return types.Reference(name, b.source, target)
}

// Build assembles the contract root from api and endpoints, taking the
// declared types in declaration order.
func (b *Builder) Build(api loci.Locatable[ApiNode], endpoints ...loci.Locatable[EndpointNode]) *ContractNode {
	nodes := b.types.Nodes()
	decls := make([]loci.Locatable[types.TypeNode], 0, len(nodes))
	for _, n := range nodes {
		decls = append(decls, loci.At(n, b.decls[n.Name]))
	}
	return &ContractNode{
		Api:       api,
		Endpoints: endpoints,
		Types:     decls,
	}
}
