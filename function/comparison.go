package function

import (
	"bytes"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// compareOp is one of the six comparison operators.
type compareOp int

const (
	opEquals compareOp = iota
	opNotEquals
	opLess
	opGreater
	opLessOrEquals
	opGreaterOrEquals
)

type comparisonFunction struct {
	name string
	op   compareOp
}

func comparisonFunctions() []Function {
	return []Function{
		&comparisonFunction{"equals", opEquals},
		&comparisonFunction{"notEquals", opNotEquals},
		&comparisonFunction{"less", opLess},
		&comparisonFunction{"greater", opGreater},
		&comparisonFunction{"lessOrEquals", opLessOrEquals},
		&comparisonFunction{"greaterOrEquals", opGreaterOrEquals},
	}
}

func (f *comparisonFunction) Name() string { return f.name }

func (f *comparisonFunction) ReturnType(argTypes []*types.Type) (*types.Type, error) {
	if len(argTypes) != 2 {
		return nil, errArity(f.name, len(argTypes), 2)
	}
	a, b := argTypes[0], argTypes[1]
	switch {
	case a.IsNumber() && b.IsNumber():
	case a.IsString() && b.IsString():
	default:
		return nil, errIllegalType(f.name, 0, a)
	}
	return types.UInt8, nil
}

// Execute branches per row on the left argument's declared type:
// string types compare raw bytes (compareBytes), everything else
// compares the boxed Fields (compareNumeric). There is no per-width
// specialization; the result depends on runtime values only.
func (f *comparisonFunction) Execute(blk *block.Block, argPositions []int, resultPosition int) error {
	if len(argPositions) != 2 {
		return errArity(f.name, len(argPositions), 2)
	}
	leftCol := blk.Columns[argPositions[0]].Column.ConvertToFullIfConst()
	rightCol := blk.Columns[argPositions[1]].Column.ConvertToFullIfConst()
	n := leftCol.Size()
	if rightCol.Size() != n {
		return errIllegalColumn(f.name, "mismatched row counts %d vs %d", n, rightCol.Size())
	}

	out := column.NewVectorColumn[uint8](types.UInt8)
	out.Reserve(n)

	leftType := blk.Columns[argPositions[0]].Type
	rightType := blk.Columns[argPositions[1]].Type

	for row := 0; row < n; row++ {
		var result int // -1, 0, 1
		if leftType.IsString() {
			result = compareBytes(rowBytes(leftCol, row), rowBytes(rightCol, row))
		} else {
			result = compareNumeric(leftCol.Get(row), rightCol.Get(row))
		}
		out.Append(boolToUInt8(evalOp(f.op, result)))
	}

	blk.Columns[resultPosition].Column = out
	return nil
}

func rowBytes(c column.Column, row int) []byte {
	switch cc := c.(type) {
	case *column.StringColumn:
		return cc.RowBytes(row)
	case *column.FixedStringColumn:
		return cc.RowBytes(row)
	default:
		return []byte(c.Get(row).String())
	}
}

// compareBytes implements the "String comparison is byte-lex with
// length tiebreak" law: memcmp, and if equal over the shorter prefix,
// the shorter string sorts first.
func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	c := bytes.Compare(a[:n], b[:n])
	if c != 0 {
		return c
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// compareNumeric implements a known signedness hazard, documented in
// DESIGN.md: when comparing a signed and an unsigned field, both
// operands' raw 64-bit patterns are compared as unsigned, without a
// correctness fixup — i.e. negative signed values compare as very large
// unsigned ones, whatever the columns' declared widths. This is
// surfaced, not hidden.
func compareNumeric(a, b field.Field) int {
	af, bf := a.Tag() == field.TagFloat64, b.Tag() == field.TagFloat64
	if af || bf {
		av, bv := numericAsFloat(a), numericAsFloat(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	aSigned := a.Tag() == field.TagInt64
	bSigned := b.Tag() == field.TagInt64
	if aSigned == bSigned {
		av, bv := int64(a.UInt64()), int64(b.UInt64())
		if !aSigned {
			// both unsigned: compare as uint64
			uav, ubv := a.UInt64(), b.UInt64()
			switch {
			case uav < ubv:
				return -1
			case uav > ubv:
				return 1
			default:
				return 0
			}
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	// Mixed signedness: the documented hazard. Compare the raw bit
	// patterns as unsigned, exactly what a C comparison between a
	// sign-compare-warning-suppressed int and unsigned int does after
	// the usual arithmetic conversions promote the signed operand to
	// unsigned.
	uav, ubv := a.UInt64(), b.UInt64()
	switch {
	case uav < ubv:
		return -1
	case uav > ubv:
		return 1
	default:
		return 0
	}
}

func numericAsFloat(f field.Field) float64 {
	switch f.Tag() {
	case field.TagFloat64:
		return f.Float64()
	case field.TagInt64:
		return float64(f.Int64())
	default:
		return float64(f.UInt64())
	}
}

func evalOp(op compareOp, cmp int) bool {
	switch op {
	case opEquals:
		return cmp == 0
	case opNotEquals:
		return cmp != 0
	case opLess:
		return cmp < 0
	case opGreater:
		return cmp > 0
	case opLessOrEquals:
		return cmp <= 0
	case opGreaterOrEquals:
		return cmp >= 0
	default:
		return false
	}
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
