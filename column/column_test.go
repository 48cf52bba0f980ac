package column_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/types"
)

// TestFilterLengthMatchesPopcount is the property-based scenario
// SPEC_FULL's testable-properties list names for the column package:
// for any mask, |C.Filter(mask)| == popcount(mask), and every surviving
// row still holds its original value.
func TestFilterLengthMatchesPopcount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Int64Range(-1000, 1000), 0, 64).Draw(t, "values")
		mask := make([]uint8, len(values))
		for i := range mask {
			mask[i] = uint8(rapid.IntRange(0, 1).Draw(t, "m"))
		}

		col := column.NewVectorColumn[int64](types.Int64)
		for _, v := range values {
			col.Append(v)
		}

		filtered, err := col.Filter(mask, -1)
		if err != nil {
			t.Fatalf("Filter: %v", err)
		}

		want := 0
		for _, m := range mask {
			if m != 0 {
				want++
			}
		}
		if filtered.Size() != want {
			t.Fatalf("Filter size = %d, popcount(mask) = %d", filtered.Size(), want)
		}

		out := 0
		for i, m := range mask {
			if m == 0 {
				continue
			}
			if filtered.Get(out).Int64() != values[i] {
				t.Fatalf("row %d: got %d, want %d", out, filtered.Get(out).Int64(), values[i])
			}
			out++
		}
	})
}

func TestVectorColumnCutIsZeroCopyView(t *testing.T) {
	col := column.NewVectorColumn[int64](types.Int64)
	for _, v := range []int64{10, 20, 30, 40} {
		col.Append(v)
	}
	cut := col.Cut(1, 2)
	require.Equal(t, 2, cut.Size())
	require.Equal(t, int64(20), cut.Get(0).Int64())
	require.Equal(t, int64(30), cut.Get(1).Int64())
}

func TestVectorColumnInsertRangeFromRejectsTypeMismatch(t *testing.T) {
	dst := column.NewVectorColumn[int64](types.Int64)
	src := column.NewVectorColumn[uint64](types.UInt64)
	src.Append(1)
	require.Error(t, dst.InsertRangeFrom(src, 0, 1))
}

func TestStringColumnFilterAndCut(t *testing.T) {
	col := column.NewStringColumn()
	for _, s := range []string{"alpha", "beta", "gamma", "delta"} {
		col.AppendString(s)
	}

	filtered, err := col.Filter([]uint8{1, 0, 1, 0}, -1)
	require.NoError(t, err)
	require.Equal(t, 2, filtered.Size())
	require.Equal(t, "alpha", filtered.Get(0).String())
	require.Equal(t, "gamma", filtered.Get(1).String())

	cut := col.Cut(1, 2)
	require.Equal(t, "beta", cut.Get(0).String())
	require.Equal(t, "gamma", cut.Get(1).String())
}

func TestConstColumnFilterCountsPopcountAndMaterializes(t *testing.T) {
	materializeCalls := 0
	cc := column.NewConstColumn(types.Int64, field.FromInt64(7), 4, func(rows int) column.Column {
		materializeCalls++
		out := column.NewVectorColumn[int64](types.Int64)
		for i := 0; i < rows; i++ {
			out.Append(7)
		}
		return out
	})

	filtered, err := cc.Filter([]uint8{1, 0, 1, 1}, -1)
	require.NoError(t, err)
	require.Equal(t, 3, filtered.Size())

	full := filtered.ConvertToFullIfConst()
	require.Equal(t, 1, materializeCalls)
	require.Equal(t, 3, full.Size())
	for i := 0; i < full.Size(); i++ {
		require.Equal(t, int64(7), full.Get(i).Int64())
	}
}

func TestNullableColumnTracksNullMap(t *testing.T) {
	nested := column.NewVectorColumn[int64](types.Int64)
	nc := column.NewNullableColumn(nested)
	nc.AppendNotNull()
	nested.Append(5)
	nc.AppendNull()
	nc.AppendNotNull()
	nested.Append(9)

	require.False(t, nc.IsNullAt(0))
	require.True(t, nc.IsNullAt(1))
	require.False(t, nc.IsNullAt(2))
	require.True(t, nc.Get(1).IsNull())
	require.Equal(t, int64(9), nc.Get(2).Int64())
}

func TestArrayColumnBoundsAndGet(t *testing.T) {
	data := column.NewVectorColumn[int64](types.Int64)
	arr := column.NewArrayColumn(types.Int64, data)

	data.Append(1)
	data.Append(2)
	arr.AppendOffset() // row 0: [1, 2]

	data.Append(3)
	arr.AppendOffset() // row 1: [3]

	require.Equal(t, 2, arr.Size())
	row0 := arr.Get(0).Array()
	require.Len(t, row0, 2)
	require.Equal(t, int64(1), row0[0].Int64())
	require.Equal(t, int64(2), row0[1].Int64())

	row1 := arr.Get(1).Array()
	require.Len(t, row1, 1)
	require.Equal(t, int64(3), row1[0].Int64())
}
