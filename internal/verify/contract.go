package verify

import (
	"fmt"
	"regexp"

	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
)

// Api verifies the API node.
func Api(a loci.Locatable[contract.ApiNode], tt *types.Table) Errors {
	if a.Value.SecurityHeader == nil {
		return nil
	}
	return SecurityHeader(*a.Value.SecurityHeader, tt)
}

// Contract verifies a whole contract: its type declarations, API node and
// endpoints. Semantic violations are returned as Errors. A malformed IR
// stops verification and is returned as err instead.
func Contract(c *contract.ContractNode, tt *types.Table) (errs Errors, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*types.InvariantError)
			if !ok {
				panic(r)
			}
			errs, err = nil, ie
		}
	}()
	return contractErrors(c, tt), nil
}

func contractErrors(c *contract.ContractNode, tt *types.Table) Errors {
	var errs Errors
	errs = append(errs, declarations(c.Types, tt)...)
	errs = append(errs, Api(c.Api, tt)...)

	first := map[string]loci.ID{}
	for _, e := range c.Endpoints {
		name := e.Value.Name
		if at, dup := first[name.Value]; dup {
			errs = append(errs, Error{
				Code:    CodeDuplicateName,
				Message: fmt.Sprintf("endpoint name %q is already in use", name.Value),
				Loc:     name.Loc,
				Related: []loci.ID{at},
			})
		} else {
			first[name.Value] = name.Loc
		}
		errs = append(errs, Endpoint(e, tt)...)
	}
	return errs
}

// typeNameRe excludes the separators used by nested type paths.
var typeNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// declarations checks every named type: names must be identifiers,
// references must resolve and no cycle may avoid an object or array.
func declarations(decls []loci.Locatable[types.TypeNode], tt *types.Table) Errors {
	var errs Errors
	at := make(map[string]loci.ID, len(decls))
	for _, d := range decls {
		at[d.Value.Name] = d.Loc
		if !typeNameRe.MatchString(d.Value.Name) {
			errs = append(errs, Error{
				Code:    CodeNaming,
				Message: fmt.Sprintf("type name %q may only contain alphanumeric and underscore characters and may not start with a digit", d.Value.Name),
				Loc:     d.Loc,
			})
		}
		checkShape(d.Value.Type)
		for _, ref := range types.References(d.Value.Type) {
			if _, ok := tt.Lookup(ref.Ref.Name); !ok {
				errs = append(errs, Error{
					Code:    CodeUnknownReference,
					Message: fmt.Sprintf("type %q: %v", d.Value.Name, &types.UnknownReferenceError{Name: ref.Ref.Name}),
					Loc:     d.Loc,
				})
				continue
			}
			// cycles are reported once below
			if _, err := tt.Resolve(ref); err != nil {
				if _, ok := referenceError(err, d.Loc); !ok {
					invariant(err)
				}
			}
		}
	}
	for _, cycle := range tt.CheckCycles() {
		errs = append(errs, Error{
			Code:    CodeCyclicReference,
			Message: cycle.Error(),
			Loc:     at[cycle.Names[0]],
		})
	}
	return errs
}
