// Package column implements the Column contract from the data model:
// a contiguous, typed, length-known vector of values, realized as a
// tagged variant of concrete storages (VectorColumn, StringColumn,
// FixedStringColumn, ArrayColumn, NullableColumn, ConstColumn).
// Dispatch is a Go interface plus, at hot inner loops, a type switch
// on the concrete storage — the generalization of the source's
// template-expansion-over-concrete-types design called for in the
// specification's re-architecture notes.
package column

import (
	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// Column is the interface every concrete storage satisfies.
type Column interface {
	// Type is the logical type this column holds.
	Type() *types.Type
	// Size is the row count.
	Size() int
	// ByteSize is an estimate of in-memory footprint, used by the
	// PREWHERE transfer heuristic and the adaptive block-size predictor.
	ByteSize() int
	// Get performs boxed access to row i. Rare path — bulk code should
	// go through the concrete storage instead.
	Get(row int) field.Field
	// InsertFrom appends other's row i to the end of this column. Both
	// columns must have the same logical Type; mismatch is a LogicError.
	InsertFrom(other Column, row int) error
	// InsertDefault appends one default-valued row.
	InsertDefault()
	// InsertRangeFrom appends other[start:start+length) to the end of
	// this column.
	InsertRangeFrom(other Column, start, length int) error
	// Filter returns a new column containing row i iff mask[i] != 0.
	// resultSizeHint is an upper bound on the result, ignored if
	// negative; len(mask) must equal Size().
	Filter(mask []uint8, resultSizeHint int) (Column, error)
	// Cut returns a new column holding [offset, offset+length), zero-copy
	// when the representation allows it.
	Cut(offset, length int) Column
	// ConvertToFullIfConst materializes a constant column; a no-op on
	// every other representation.
	ConvertToFullIfConst() Column
	// Reserve pre-announces a coming insertion volume so inner buffers
	// never reallocate mid-batch, per the "insertions never reallocate
	// before a pre-announced reserve(n)" guarantee.
	Reserve(n int)
}

// errPosition raises POSITION_OUT_OF_BOUND for an out-of-range row index.
func errPosition(row, size int) error {
	return errs.New(errs.UserError, errs.CodePositionOutOfBound,
		"row %d out of bound, column size %d", row, size)
}

// errLogical raises LOGICAL_ERROR for a programmer mistake (inserting
// incompatible types, etc).
func errLogical(format string, args ...any) error {
	return errs.New(errs.LogicError, errs.CodeLogicalError, format, args...)
}

// popcount is the number of set bytes in mask — the result size Filter's
// documented law (|C.filter(M)| == popcount(M)) promises — used to size
// result buffers ahead of the copy loop and as a filtered ConstColumn's
// row count.
func popcount(mask []uint8) int {
	n := 0
	for _, b := range mask {
		if b != 0 {
			n++
		}
	}
	return n
}

// sizeHint resolves Filter's resultSizeHint against the mask's actual
// popcount: a negative hint means "unknown", so fall back to scanning.
func sizeHint(mask []uint8, hint int) int {
	if hint >= 0 {
		return hint
	}
	return popcount(mask)
}
