package function_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/function"
	"github.com/latticedb/lattice/types"
)

func execCompare(t *testing.T, name string, leftTyp *types.Type, left column.Column, rightTyp *types.Type, right column.Column) []uint8 {
	t.Helper()
	fn, ok := function.Default.Lookup(name)
	require.True(t, ok, "function %s not registered", name)

	blk := block.New(
		block.NamedColumn{Name: "l", Type: leftTyp, Column: left},
		block.NamedColumn{Name: "r", Type: rightTyp, Column: right},
		block.NamedColumn{Name: "out", Type: types.UInt8},
	)
	require.NoError(t, fn.Execute(blk, []int{0, 1}, 2))

	out, ok := blk.Columns[2].Column.(*column.VectorColumn[uint8])
	require.True(t, ok)
	return out.Data()
}

// TestCompareMixedSignednessHazard is scenario 1 from the testable
// properties list: comparing a signed and unsigned operand compares raw
// bit patterns as unsigned, without a sign-extension fixup, so -1
// (Int64) reads as the largest possible UInt64 and therefore compares
// greater than 5 (UInt64).
func TestCompareMixedSignednessHazard(t *testing.T) {
	left := column.NewVectorColumn[int64](types.Int64)
	left.Append(-1)
	right := column.NewVectorColumn[uint64](types.UInt64)
	right.Append(5)

	got := execCompare(t, "greater", types.Int64, left, types.UInt64, right)
	require.Equal(t, []uint8{1}, got, "-1 (Int64) must compare as the raw-bit-pattern unsigned value, not the mathematical one")

	got = execCompare(t, "less", types.Int64, left, types.UInt64, right)
	require.Equal(t, []uint8{0}, got)
}

func TestCompareSameSignednessIsMathematical(t *testing.T) {
	left := column.NewVectorColumn[int64](types.Int64)
	left.Append(-1)
	right := column.NewVectorColumn[int64](types.Int64)
	right.Append(5)

	got := execCompare(t, "less", types.Int64, left, types.Int64, right)
	require.Equal(t, []uint8{1}, got)
}

func TestCompareStringByteLexWithLengthTiebreak(t *testing.T) {
	cases := []struct {
		a, b string
		op   string
		want uint8
	}{
		{"ab", "aa", "greater", 1},
		{"ab", "ab", "equals", 1},
		{"a", "ab", "less", 1}, // shorter prefix-equal string sorts first
	}
	for _, tc := range cases {
		left := column.NewStringColumn()
		left.AppendString(tc.a)
		right := column.NewStringColumn()
		right.AppendString(tc.b)

		got := execCompare(t, tc.op, types.String, left, types.String, right)
		require.Equal(t, []uint8{tc.want}, got, "%s(%q, %q)", tc.op, tc.a, tc.b)
	}
}

func TestEqualsReturnTypeRejectsArityMismatch(t *testing.T) {
	fn, ok := function.Default.Lookup("equals")
	require.True(t, ok)
	_, err := fn.ReturnType([]*types.Type{types.Int64})
	require.Error(t, err)
}

func TestEqualsReturnTypeRejectsMixedFamilies(t *testing.T) {
	fn, ok := function.Default.Lookup("equals")
	require.True(t, ok)
	_, err := fn.ReturnType([]*types.Type{types.Int64, types.String})
	require.Error(t, err)
}
