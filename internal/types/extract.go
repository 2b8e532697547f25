package types

import "fmt"

// ExtractNestedUnionTypes collects every union reachable from n without
// crossing a reference, named after its position below n.
func ExtractNestedUnionTypes(n TypeNode) []TypeNode {
	var out []TypeNode
	collect(n.Name, n.Type, KindUnion, &out)
	return out
}

// ExtractNestedObjectTypes collects every object reachable from n without
// crossing a reference, named after its position below n.
//
// Referenced types are not entered: they are emitted once at their own
// declaration.
func ExtractNestedObjectTypes(n TypeNode) []TypeNode {
	var out []TypeNode
	collect(n.Name, n.Type, KindObject, &out)
	return out
}

// Path names: "<parent>.<property>" for object properties,
// "<parent>[<index>]" for union members and "<parent>[]" for array elements.
func propertyPath(parent, prop string) string { return parent + "." + prop }
func memberPath(parent string, i int) string  { return fmt.Sprintf("%s[%d]", parent, i) }

// elemPath gives array elements their own path segment rather than the
// parent's name, so a hoisted element never shares a name with its array.
func elemPath(parent string) string { return parent + "[]" }

func collect(name string, dt DataType, want Kind, out *[]TypeNode) {
	switch dt.Kind {
	case KindObject:
		if want == KindObject {
			*out = append(*out, TypeNode{Name: name, Type: dt})
		}
		for _, p := range dt.Properties {
			collect(propertyPath(name, p.Name), p.Type, want, out)
		}
	case KindArray:
		if dt.Elem != nil {
			collect(elemPath(name), *dt.Elem, want, out)
		}
	case KindUnion:
		if want == KindUnion {
			*out = append(*out, TypeNode{Name: name, Type: dt})
		}
		for i, m := range dt.Members {
			collect(memberPath(name, i), m, want, out)
		}
	}
}

// Hoist replaces every object or union (as selected by kind) nested below
// the root of n with a reference named after its position, and returns the
// rewritten root together with the hoisted declarations in pre-order.
// Hoisted declarations are themselves rewritten, so none of them contains
// an inline composite of kind.
//
// A position whose path is already taken, by a name n refers to or by an
// earlier position, is suffixed with "~<n>" until it is free.
func Hoist(n TypeNode, kind Kind) (TypeNode, []TypeNode) {
	if kind != KindObject && kind != KindUnion {
		panic(&InvariantError{Message: fmt.Sprintf("cannot hoist %s types", kind)})
	}
	taken := map[string]bool{}
	for _, name := range ReferencedNames(n.Type) {
		taken[name] = true
	}
	claim := func(path string) string {
		name := path
		for i := 2; taken[name]; i++ {
			name = fmt.Sprintf("%s~%d", path, i)
		}
		taken[name] = true
		return name
	}

	var out []TypeNode
	var rewrite func(path string, dt DataType, root bool) DataType
	rewrite = func(path string, dt DataType, root bool) DataType {
		slot := -1
		if !root && dt.Kind == kind {
			slot = len(out)
			out = append(out, TypeNode{Name: claim(path)})
		}
		switch dt.Kind {
		case KindObject:
			props := make([]Property, len(dt.Properties))
			for i, p := range dt.Properties {
				p.Type = rewrite(propertyPath(path, p.Name), p.Type, false)
				props[i] = p
			}
			dt = DataType{Kind: KindObject, Properties: props}
		case KindArray:
			if dt.Elem != nil {
				dt = Array(rewrite(elemPath(path), *dt.Elem, false))
			}
		case KindUnion:
			members := make([]DataType, len(dt.Members))
			for i, m := range dt.Members {
				members[i] = rewrite(memberPath(path, i), m, false)
			}
			dt = DataType{Kind: KindUnion, Members: members}
		}
		if slot < 0 {
			return dt
		}
		out[slot].Type = dt
		return Reference(out[slot].Name, "", kind)
	}
	root := n
	root.Type = rewrite(n.Name, n.Type, true)
	return root, out
}

// Substitute inlines every reference to one of defs back into n. It is the
// inverse of Hoist.
func Substitute(n TypeNode, defs []TypeNode) TypeNode {
	byName := make(map[string]DataType, len(defs))
	for _, d := range defs {
		byName[d.Name] = d.Type
	}
	var inline func(dt DataType) DataType
	inline = func(dt DataType) DataType {
		switch dt.Kind {
		case KindReference:
			if dt.Ref == nil {
				return dt
			}
			if def, ok := byName[dt.Ref.Name]; ok {
				return inline(def)
			}
			return dt
		case KindObject:
			props := make([]Property, len(dt.Properties))
			for i, p := range dt.Properties {
				p.Type = inline(p.Type)
				props[i] = p
			}
			return DataType{Kind: KindObject, Properties: props}
		case KindArray:
			if dt.Elem == nil {
				return dt
			}
			return Array(inline(*dt.Elem))
		case KindUnion:
			members := make([]DataType, len(dt.Members))
			for i, m := range dt.Members {
				members[i] = inline(m)
			}
			return DataType{Kind: KindUnion, Members: members}
		default:
			return dt
		}
	}
	out := n
	out.Type = inline(n.Type)
	return out
}
