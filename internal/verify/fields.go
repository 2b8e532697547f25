package verify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func checkName(name loci.Locatable[string], what string) Errors {
	if nameRe.MatchString(name.Value) {
		return nil
	}
	return Errors{{
		Code:    CodeNaming,
		Message: what + " name may only contain alphanumeric, underscore and hyphen characters",
		Loc:     name.Loc,
	}}
}

// resolve dereferences dt, turning reference problems into errors at the
// type's location.
func resolve(dt loci.Locatable[types.DataType], tt *types.Table) (types.DataType, Errors) {
	checkShape(dt.Value)
	resolved, err := tt.Resolve(dt.Value)
	if err == nil {
		return resolved, nil
	}
	if e, ok := referenceError(err, dt.Loc); ok {
		return types.DataType{}, Errors{e}
	}
	invariant(err)
	return types.DataType{}, nil
}

func referenceError(err error, loc loci.ID) (Error, bool) {
	var ue *types.UnknownReferenceError
	if errors.As(err, &ue) {
		return Error{Code: CodeUnknownReference, Message: ue.Error(), Loc: loc}, true
	}
	var ce *types.CyclicReferenceError
	if errors.As(err, &ce) {
		return Error{Code: CodeCyclicReference, Message: ce.Error(), Loc: loc}, true
	}
	return Error{}, false
}

// checkStringOrNumber requires dt to reduce to the string or number family.
func checkStringOrNumber(dt loci.Locatable[types.DataType], tt *types.Table, what string) Errors {
	resolved, errs := resolve(dt, tt)
	if len(errs) > 0 {
		return errs
	}
	if resolved.Kind.Family() == types.FamilyOther {
		return Errors{{
			Code:    CodeTypeFamily,
			Message: what + " type may only stem from string or number types",
			Loc:     dt.Loc,
		}}
	}
	return nil
}

// Header verifies a request or response header.
func Header(h loci.Locatable[contract.HeaderNode], tt *types.Table) Errors {
	var errs Errors
	errs = append(errs, checkName(h.Value.Name, "header")...)
	errs = append(errs, checkStringOrNumber(h.Value.Type, tt, "header")...)
	return errs
}

// PathParam verifies a path parameter.
func PathParam(p loci.Locatable[contract.PathParamNode], tt *types.Table) Errors {
	var errs Errors
	errs = append(errs, checkName(p.Value.Name, "path param")...)
	errs = append(errs, checkStringOrNumber(p.Value.Type, tt, "path param")...)
	return errs
}

// QueryParam verifies a query parameter.
func QueryParam(q loci.Locatable[contract.QueryParamNode], tt *types.Table) Errors {
	var errs Errors
	errs = append(errs, checkName(q.Value.Name, "query param")...)
	errs = append(errs, checkStringOrNumber(q.Value.Type, tt, "query param")...)
	return errs
}

// SecurityHeader verifies the API security header. Unlike other headers it
// may never be optional.
func SecurityHeader(h loci.Locatable[contract.SecurityHeaderNode], tt *types.Table) Errors {
	var errs Errors
	errs = append(errs, checkName(h.Value.Name, "security header")...)
	errs = append(errs, checkStringOrNumber(h.Value.Type, tt, "security header")...)
	if h.Value.Optional {
		errs = append(errs, Error{
			Code:    CodeOptionalNotAllowed,
			Message: "security header may not be optional",
			Loc:     h.Loc,
		})
	}
	return errs
}

// Body verifies that every type a body names exists and can be inlined.
func Body(b loci.Locatable[contract.BodyNode], tt *types.Table) Errors {
	return references(b.Value.Type, tt)
}

// references reports each unresolvable reference inside dt once.
func references(dt loci.Locatable[types.DataType], tt *types.Table) Errors {
	checkShape(dt.Value)
	var errs Errors
	for _, ref := range types.References(dt.Value) {
		if _, err := tt.Resolve(ref); err != nil {
			e, ok := referenceError(err, dt.Loc)
			if !ok {
				invariant(err)
			}
			errs = append(errs, e)
		}
	}
	return errs
}

// duplicates reports every name that repeats an earlier one, citing the
// first occurrence as related.
func duplicates(names []loci.Locatable[string], fold bool, what string) Errors {
	var errs Errors
	first := map[string]loci.ID{}
	for _, n := range names {
		key := n.Value
		if fold {
			key = strings.ToLower(key)
		}
		if at, ok := first[key]; ok {
			errs = append(errs, Error{
				Code:    CodeDuplicateParam,
				Message: fmt.Sprintf("duplicate %s name %q", what, n.Value),
				Loc:     n.Loc,
				Related: []loci.ID{at},
			})
			continue
		}
		first[key] = n.Loc
	}
	return errs
}

func headers(list *loci.Locatable[[]loci.Locatable[contract.HeaderNode]], tt *types.Table) Errors {
	var errs Errors
	hs := contract.HeaderList(list)
	names := make([]loci.Locatable[string], 0, len(hs))
	for _, h := range hs {
		errs = append(errs, Header(h, tt)...)
		names = append(names, h.Value.Name)
	}
	// header names are case-insensitive on the wire
	errs = append(errs, duplicates(names, true, "header")...)
	return errs
}
