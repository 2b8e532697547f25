package types

import (
	"fmt"
	"strings"
)

// UnknownReferenceError is returned when a reference names a type that was
// never registered.
type UnknownReferenceError struct {
	Name       string
	DeclaredAt string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown type reference %q", e.Name)
}

// CyclicReferenceError describes a reference cycle that never crosses an
// object or array boundary, so the types involved cannot be inlined.
type CyclicReferenceError struct {
	// Names lists the cycle starting and ending with the same type name.
	Names []string
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("cyclic type reference %s", strings.Join(e.Names, " -> "))
}

// InvariantError reports an IR that violates a structural invariant. It
// points at a bug in whatever built the IR, not at an authoring mistake.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "malformed contract IR: " + e.Message
}
