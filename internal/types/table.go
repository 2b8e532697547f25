package types

import (
	"fmt"
	"sort"
)

// Table is the per-compilation registry of named types. Types may be
// registered in any order; references are only followed on Resolve.
type Table struct {
	defs  map[string]TypeNode
	order []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{defs: make(map[string]TypeNode)}
}

// Register inserts or overwrites the type called name.
func (t *Table) Register(name string, dt DataType) {
	t.RegisterNode(TypeNode{Name: name, Type: dt})
}

// RegisterNode inserts or overwrites n. An overwrite keeps the original
// declaration position in Nodes.
func (t *Table) RegisterNode(n TypeNode) {
	if _, exists := t.defs[n.Name]; !exists {
		t.order = append(t.order, n.Name)
	}
	t.defs[n.Name] = n
}

// Lookup returns the declaration called name.
func (t *Table) Lookup(name string) (TypeNode, bool) {
	n, ok := t.defs[name]
	return n, ok
}

// Nodes returns every declaration in registration order.
func (t *Table) Nodes() []TypeNode {
	out := make([]TypeNode, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.defs[name])
	}
	return out
}

// Len returns the number of registered types.
func (t *Table) Len() int { return len(t.order) }

// Resolve follows dt through references until it reaches a non-reference
// type. Non-reference inputs are returned unchanged. Every reference on the
// way must carry the kind it finally resolves to.
func (t *Table) Resolve(dt DataType) (DataType, error) {
	if dt.Kind != KindReference {
		return dt, nil
	}
	cur, chain, err := t.follow(dt)
	if err != nil {
		return DataType{}, err
	}
	for _, r := range chain {
		if r.Target != cur.Kind {
			return DataType{}, &InvariantError{
				Message: fmt.Sprintf("reference %q tagged %s resolves to %s", r.Name, r.Target, cur.Kind),
			}
		}
	}
	return cur, nil
}

// KindOf returns the kind the declaration called name finally resolves to.
// Readers use it to tag references.
func (t *Table) KindOf(name string) (Kind, error) {
	cur, _, err := t.follow(Reference(name, "", KindInvalid))
	if err != nil {
		return KindInvalid, err
	}
	return cur.Kind, nil
}

func (t *Table) follow(dt DataType) (DataType, []*Ref, error) {
	var chain []*Ref
	seen := map[string]int{}
	cur := dt
	for cur.Kind == KindReference {
		if cur.Ref == nil {
			return DataType{}, nil, &InvariantError{Message: "reference without a name"}
		}
		if at, ok := seen[cur.Ref.Name]; ok {
			names := make([]string, 0, len(chain)-at+1)
			for _, r := range chain[at:] {
				names = append(names, r.Name)
			}
			names = append(names, cur.Ref.Name)
			return DataType{}, nil, &CyclicReferenceError{Names: names}
		}
		seen[cur.Ref.Name] = len(chain)
		chain = append(chain, cur.Ref)
		def, ok := t.defs[cur.Ref.Name]
		if !ok {
			return DataType{}, nil, &UnknownReferenceError{Name: cur.Ref.Name, DeclaredAt: cur.Ref.DeclaredAt}
		}
		cur = def.Type
	}
	return cur, chain, nil
}

// References returns every reference inside dt in traversal order,
// dropping repeats of the same name and target. Referenced declarations are
// not entered.
func References(dt DataType) []DataType {
	var out []DataType
	var walk func(DataType)
	walk = func(d DataType) {
		switch d.Kind {
		case KindReference:
			if d.Ref == nil {
				return
			}
			for _, seen := range out {
				if Equal(seen, d) {
					return
				}
			}
			out = append(out, d)
		case KindObject:
			for _, p := range d.Properties {
				walk(p.Type)
			}
		case KindArray:
			if d.Elem != nil {
				walk(*d.Elem)
			}
		case KindUnion:
			for _, m := range d.Members {
				walk(m)
			}
		}
	}
	walk(dt)
	return out
}

// ReferencedNames returns the distinct names referenced inside dt.
func ReferencedNames(dt DataType) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, r := range References(dt) {
		if _, ok := seen[r.Ref.Name]; ok {
			continue
		}
		seen[r.Ref.Name] = struct{}{}
		out = append(out, r.Ref.Name)
	}
	return out
}

// inlineEdges returns the names dt must inline to be written out, which
// are the references reachable without crossing an object or array.
func inlineEdges(dt DataType) []string {
	switch dt.Kind {
	case KindReference:
		if dt.Ref == nil {
			return nil
		}
		return []string{dt.Ref.Name}
	case KindUnion:
		var out []string
		for _, m := range dt.Members {
			out = append(out, inlineEdges(m)...)
		}
		return out
	default:
		return nil
	}
}

// CheckCycles reports every reference cycle among the registered types
// that does not pass through an object or array. A cycle is reported once,
// rotated to start at its earliest registered member.
func (t *Table) CheckCycles() []*CyclicReferenceError {
	const (
		white = iota
		grey
		black
	)
	index := make(map[string]int, len(t.order))
	for i, name := range t.order {
		index[name] = i
	}
	color := make(map[string]int, len(t.order))
	var stack []string
	found := map[string]*CyclicReferenceError{}
	var keys []string

	var visit func(name string)
	visit = func(name string) {
		color[name] = grey
		stack = append(stack, name)
		for _, next := range inlineEdges(t.defs[name].Type) {
			if _, ok := t.defs[next]; !ok {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case grey:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycle := canonicalCycle(stack[start:], index)
				key := fmt.Sprint(cycle)
				if _, dup := found[key]; !dup {
					found[key] = &CyclicReferenceError{Names: append(cycle, cycle[0])}
					keys = append(keys, key)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
	}
	for _, name := range t.order {
		if color[name] == white {
			visit(name)
		}
	}

	out := make([]*CyclicReferenceError, 0, len(keys))
	for _, k := range keys {
		out = append(out, found[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return index[out[i].Names[0]] < index[out[j].Names[0]]
	})
	return out
}

// canonicalCycle rotates cycle so it starts at the member registered first.
func canonicalCycle(cycle []string, index map[string]int) []string {
	first := 0
	for i, name := range cycle {
		if index[name] < index[cycle[first]] {
			first = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[first:]...)
	out = append(out, cycle[:first]...)
	return out
}
