// Package function implements the function protocol from the
// specification: every scalar operator exposes ReturnType (arity/type
// validation) and Execute (block in, column out). Each Execute picks its
// code path with its own switch or per-row branch on the argument
// types; there is no shared dispatch helper.
package function

import (
	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/types"
)

// Function is the contract every scalar operator implements.
type Function interface {
	Name() string
	// ReturnType validates arity/types and returns the result type, or
	// fails with NUMBER_OF_ARGUMENTS_DOESNT_MATCH / ILLEGAL_TYPE_OF_ARGUMENT.
	ReturnType(argTypes []*types.Type) (*types.Type, error)
	// Execute reads argPositions from blk and writes the result at
	// resultPosition, which must already hold the correct declared Type
	// (only Column is nil going in).
	Execute(blk *block.Block, argPositions []int, resultPosition int) error
}

func errArity(name string, got, want int) error {
	return errs.New(errs.UserError, errs.CodeNumberOfArgumentsDoesntMatch,
		"function %s: expected %d arguments, got %d", name, want, got)
}

func errIllegalType(name string, pos int, t *types.Type) error {
	return errs.New(errs.UserError, errs.CodeIllegalTypeOfArgument,
		"function %s: illegal type %s of argument at position %d", name, t, pos)
}

func errIllegalColumn(name string, format string, args ...any) error {
	msg := name + ": " + format
	return errs.New(errs.UserError, errs.CodeIllegalColumn, msg, args...)
}

// Registry is a process-wide lookup of functions by name, following
// the same init()-populated-table pattern as the types registry.
type Registry struct {
	fns map[string]Function
}

func NewRegistry() *Registry { return &Registry{fns: map[string]Function{}} }

func (r *Registry) Register(f Function) { r.fns[f.Name()] = f }

func (r *Registry) Lookup(name string) (Function, bool) {
	f, ok := r.fns[name]
	return f, ok
}

// Default is the registry populated with every concrete function this
// package implements; callers needing isolation construct their own
// via NewRegistry.
var Default = buildDefaultRegistry()

func buildDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range comparisonFunctions() {
		r.Register(f)
	}
	r.Register(&positionFunction{caseInsensitive: false, utf8: false})
	r.Register(&positionFunction{caseInsensitive: false, utf8: true})
	r.Register(&positionFunction{caseInsensitive: true, utf8: false})
	r.Register(&positionFunction{caseInsensitive: true, utf8: true})
	r.Register(newLikeFunction())
	return r
}
