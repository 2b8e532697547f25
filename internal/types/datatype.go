// Package types holds the contract type vocabulary, the per-compilation
// type table and the resolver used by verifiers and generators.
package types

import (
	"errors"
	"fmt"
)

// DataType is a tagged union over the finite type vocabulary. Only the
// fields that belong to Kind are meaningful.
type DataType struct {
	Kind Kind

	// literals
	BoolValue   bool
	StringValue string
	NumberValue float64

	// object
	Properties []Property

	// array
	Elem *DataType

	// union
	Members []DataType

	// reference
	Ref *Ref
}

// Property is a named member of an object type.
type Property struct {
	Name        string
	Description string
	Type        DataType
	Optional    bool
}

// Ref is the payload of a reference type. Target carries the kind of the
// type the reference ultimately resolves to.
type Ref struct {
	Name       string
	DeclaredAt string
	Target     Kind
}

// TypeNode is a named type declaration.
type TypeNode struct {
	Name        string
	Description string
	Type        DataType
}

// ErrEmptyUnion is returned when a union has no members left after the
// absent marker is removed.
var ErrEmptyUnion = errors.New("types: union has no members")

func Null() DataType     { return DataType{Kind: KindNull} }
func Boolean() DataType  { return DataType{Kind: KindBoolean} }
func String() DataType   { return DataType{Kind: KindString} }
func Float() DataType    { return DataType{Kind: KindFloat} }
func Double() DataType   { return DataType{Kind: KindDouble} }
func Int32() DataType    { return DataType{Kind: KindInt32} }
func Int64() DataType    { return DataType{Kind: KindInt64} }
func Date() DataType     { return DataType{Kind: KindDate} }
func DateTime() DataType { return DataType{Kind: KindDateTime} }
func Absent() DataType   { return DataType{Kind: KindAbsent} }

func BooleanLiteral(v bool) DataType {
	return DataType{Kind: KindBooleanLiteral, BoolValue: v}
}

func StringLiteral(v string) DataType {
	return DataType{Kind: KindStringLiteral, StringValue: v}
}

func NumberLiteral(v float64) DataType {
	return DataType{Kind: KindNumberLiteral, NumberValue: v}
}

// Object builds an object type. Property names must be unique.
func Object(props ...Property) DataType {
	seen := make(map[string]struct{}, len(props))
	for _, p := range props {
		if _, dup := seen[p.Name]; dup {
			panic(&InvariantError{Message: fmt.Sprintf("duplicate object property %q", p.Name)})
		}
		seen[p.Name] = struct{}{}
	}
	return DataType{Kind: KindObject, Properties: append([]Property(nil), props...)}
}

// Array builds an array type of elem.
func Array(elem DataType) DataType {
	e := elem
	return DataType{Kind: KindArray, Elem: &e}
}

// Reference builds a by-name reference. target is the kind of the type the
// name ultimately resolves to.
func Reference(name, declaredAt string, target Kind) DataType {
	return DataType{Kind: KindReference, Ref: &Ref{Name: name, DeclaredAt: declaredAt, Target: target}}
}

// NewUnion normalizes members into a union. Absent markers and duplicate
// members are dropped; a single remaining member is returned as is.
func NewUnion(members ...DataType) (DataType, error) {
	kept := make([]DataType, 0, len(members))
	for _, m := range members {
		if m.Kind == KindAbsent {
			continue
		}
		dup := false
		for _, k := range kept {
			if Equal(k, m) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, m)
		}
	}
	switch len(kept) {
	case 0:
		return DataType{}, ErrEmptyUnion
	case 1:
		return kept[0], nil
	default:
		return DataType{Kind: KindUnion, Members: kept}, nil
	}
}

// MustUnion is NewUnion for statically known members.
func MustUnion(members ...DataType) DataType {
	u, err := NewUnion(members...)
	if err != nil {
		panic(err)
	}
	return u
}

// Equal reports whether a and b describe the same type. References are
// compared by name and target kind.
func Equal(a, b DataType) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBooleanLiteral:
		return a.BoolValue == b.BoolValue
	case KindStringLiteral:
		return a.StringValue == b.StringValue
	case KindNumberLiteral:
		return a.NumberValue == b.NumberValue
	case KindObject:
		if len(a.Properties) != len(b.Properties) {
			return false
		}
		for i := range a.Properties {
			pa, pb := a.Properties[i], b.Properties[i]
			if pa.Name != pb.Name || pa.Optional != pb.Optional || pa.Description != pb.Description {
				return false
			}
			if !Equal(pa.Type, pb.Type) {
				return false
			}
		}
		return true
	case KindArray:
		if a.Elem == nil || b.Elem == nil {
			return a.Elem == b.Elem
		}
		return Equal(*a.Elem, *b.Elem)
	case KindUnion:
		if len(a.Members) != len(b.Members) {
			return false
		}
		for i := range a.Members {
			if !Equal(a.Members[i], b.Members[i]) {
				return false
			}
		}
		return true
	case KindReference:
		if a.Ref == nil || b.Ref == nil {
			return a.Ref == b.Ref
		}
		return a.Ref.Name == b.Ref.Name && a.Ref.Target == b.Ref.Target
	default:
		return true
	}
}

// CheckShape verifies the structural invariants of dt: unique property
// names, unions of at least two distinct members, well formed arrays and
// references. A violation means the IR was built incorrectly.
func CheckShape(dt DataType) error {
	switch dt.Kind {
	case KindInvalid, KindAbsent:
		return &InvariantError{Message: fmt.Sprintf("%s type outside of a union constructor", dt.Kind)}
	case KindObject:
		seen := make(map[string]struct{}, len(dt.Properties))
		for _, p := range dt.Properties {
			if _, dup := seen[p.Name]; dup {
				return &InvariantError{Message: fmt.Sprintf("duplicate object property %q", p.Name)}
			}
			seen[p.Name] = struct{}{}
			if err := CheckShape(p.Type); err != nil {
				return err
			}
		}
	case KindArray:
		if dt.Elem == nil {
			return &InvariantError{Message: "array without element type"}
		}
		return CheckShape(*dt.Elem)
	case KindUnion:
		if len(dt.Members) < 2 {
			return &InvariantError{Message: fmt.Sprintf("union with %d members", len(dt.Members))}
		}
		for i, m := range dt.Members {
			for _, prev := range dt.Members[:i] {
				if Equal(prev, m) {
					return &InvariantError{Message: "union with duplicate members"}
				}
			}
			if err := CheckShape(m); err != nil {
				return err
			}
		}
	case KindReference:
		if dt.Ref == nil || dt.Ref.Name == "" {
			return &InvariantError{Message: "reference without a name"}
		}
		// KindInvalid marks a target that could not be determined because
		// the name is unknown or cyclic; Resolve reports those.
		switch dt.Ref.Target {
		case KindReference, KindAbsent:
			return &InvariantError{Message: fmt.Sprintf("reference %q with target kind %s", dt.Ref.Name, dt.Ref.Target)}
		}
	}
	return nil
}
