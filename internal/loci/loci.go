// Package loci tracks where IR values came from in the contract source.
//
// Values in the IR carry an opaque ID instead of a position so that the
// in-memory tree stays independent of the source text. The Table maps IDs
// back to positions when diagnostics are rendered.
package loci

import "fmt"

// ID is an opaque handle into a Table. The zero ID means "unknown".
type ID uint32

// Unknown is the handle for values with no recorded origin.
const Unknown ID = 0

// Location is a position in a contract source.
type Location struct {
	Source string `json:"source" yaml:"source"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column,omitempty" yaml:"column,omitempty"`
}

func (l Location) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.Source, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.Source, l.Line)
}

// Table is the per-compilation location registry. It is written while the
// contract is read and becomes read-only once frozen.
type Table struct {
	entries []Location
	frozen  bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add records a location and returns its handle.
func (t *Table) Add(loc Location) ID {
	if t.frozen {
		panic("loci: Add on frozen table")
	}
	t.entries = append(t.entries, loc)
	return ID(len(t.entries))
}

// Lookup returns the location behind id.
func (t *Table) Lookup(id ID) (Location, bool) {
	if t == nil || id == Unknown || int(id) > len(t.entries) {
		return Location{}, false
	}
	return t.entries[id-1], true
}

// Freeze makes the table read-only.
func (t *Table) Freeze() { t.frozen = true }

// Frozen reports whether Freeze was called.
func (t *Table) Frozen() bool { return t.frozen }

// Len returns the number of recorded locations.
func (t *Table) Len() int { return len(t.entries) }

// Locatable pairs a value with the handle of its source location.
type Locatable[T any] struct {
	Value T
	Loc   ID
}

// At wraps v with the location handle id.
func At[T any](v T, id ID) Locatable[T] {
	return Locatable[T]{Value: v, Loc: id}
}
