// Package verify checks a contract IR against its semantic rules.
//
// Verifiers never stop at the first problem: every independent violation
// found in one call is returned together. Only a malformed IR, which points
// at a bug in the reader, aborts verification.
package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

// Code classifies a verification error.
type Code string

const (
	CodeNaming              Code = "naming"
	CodeTypeFamily          Code = "type_family"
	CodeOptionalNotAllowed  Code = "optional_not_allowed"
	CodeDuplicateStatusCode Code = "duplicate_status_code"
	CodeMissingPathParam    Code = "missing_path_param"
	CodeExtraPathParam      Code = "extra_path_param"
	CodeDuplicateName       Code = "duplicate_name"
	CodeDuplicateParam      Code = "duplicate_param"
	CodeUnknownReference    Code = "unknown_reference"
	CodeCyclicReference     Code = "cyclic_reference"
)

// Error is a single semantic violation.
type Error struct {
	Code    Code
	Message string
	Loc     loci.ID
	// Related points at other sites involved, such as the first of two
	// responses sharing a status code.
	Related []loci.ID
}

func (e Error) Error() string { return e.Message }

// Errors is the ordered result of a verifier.
type Errors []Error

// Error summarizes the first few entries.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(errs)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(errs[i].Message)
	}
	if len(errs) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(errs))
	}
	return b.String()
}

// Codes lists the code of each entry in order.
func (errs Errors) Codes() []Code {
	out := make([]Code, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

// AsErrors extracts Errors from err.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

// invariant aborts verification of a malformed IR. Contract recovers it.
func invariant(err error) {
	var ie *types.InvariantError
	if errors.As(err, &ie) {
		panic(ie)
	}
	panic(&types.InvariantError{Message: err.Error()})
}

func checkShape(dt types.DataType) {
	if err := types.CheckShape(dt); err != nil {
		invariant(err)
	}
}
