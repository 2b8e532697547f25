// Package compiler runs the resolve and verify stages over one contract.
package compiler

import (
	"context"
	"fmt"

	"github.com/mark3labs/contractc/internal/contract"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/types"
	"github.com/mark3labs/contractc/internal/verify"
)

// Unit is one compilation: a contract and the tables its reader filled.
type Unit struct {
	Contract  *contract.ContractNode
	Types     *types.Table
	Locations *loci.Table
}

// Result is the outcome of a compilation that reached verification.
type Result struct {
	Contract    *contract.ContractNode
	Types       *types.Table
	Locations   *loci.Table
	Errors      verify.Errors
	Diagnostics []verify.Diagnostic
}

// OK reports whether the contract may be handed to generators.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Compile verifies u. Authoring mistakes are collected in the result; a
// malformed unit aborts with an error and no result.
func Compile(ctx context.Context, u *Unit) (*Result, error) {
	if u == nil || u.Contract == nil {
		return nil, fmt.Errorf("compiler: nil contract")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tt := u.Types
	if tt == nil {
		tt = u.Contract.TypeTable()
	}
	locs := u.Locations
	if locs == nil {
		locs = loci.NewTable()
	}
	locs.Freeze()

	errs, err := verify.Contract(u.Contract, tt)
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{
		Contract:    u.Contract,
		Types:       tt,
		Locations:   locs,
		Errors:      errs,
		Diagnostics: verify.Diagnostics(errs, locs),
	}, nil
}

// FromBuilder packages what b produced into a Unit.
func FromBuilder(b *contract.Builder, c *contract.ContractNode) *Unit {
	return &Unit{Contract: c, Types: b.TypeTable(), Locations: b.Locations()}
}
