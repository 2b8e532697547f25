package verify

import "github.com/mark3labs/contractc/internal/loci"

// Diagnostic is an Error with its location resolved for reporting.
type Diagnostic struct {
	Code     Code            `json:"code" yaml:"code"`
	Message  string          `json:"message" yaml:"message"`
	Location string          `json:"location" yaml:"location"`
	Line     int             `json:"line" yaml:"line"`
	Column   int             `json:"column,omitempty" yaml:"column,omitempty"`
	Related  []loci.Location `json:"related,omitempty" yaml:"related,omitempty"`
}

// Diagnostics resolves the locations of errs against locs, keeping order.
func Diagnostics(errs Errors, locs *loci.Table) []Diagnostic {
	out := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		d := Diagnostic{Code: e.Code, Message: e.Message}
		if loc, ok := locs.Lookup(e.Loc); ok {
			d.Location, d.Line, d.Column = loc.Source, loc.Line, loc.Column
		}
		for _, id := range e.Related {
			if loc, ok := locs.Lookup(id); ok {
				d.Related = append(d.Related, loc)
			}
		}
		out = append(out, d)
	}
	return out
}
