package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/types"
)

func intColumn(vals ...int64) *column.VectorColumn[int64] {
	c := column.NewVectorColumn[int64](types.Int64)
	for _, v := range vals {
		c.Append(v)
	}
	return c
}

func TestBlockRowCountAndPosition(t *testing.T) {
	blk := block.New(
		block.NamedColumn{Name: "a", Type: types.Int64, Column: intColumn(1, 2, 3)},
		block.NamedColumn{Name: "b", Type: types.Int64, Column: intColumn(4, 5, 6)},
	)
	require.Equal(t, 3, blk.RowCount())
	require.Equal(t, 0, blk.Position("a"))
	require.Equal(t, 1, blk.Position("b"))
	require.Equal(t, -1, blk.Position("c"))
	require.Equal(t, intColumn(4, 5, 6), blk.Get("b"))
}

func TestBlockValidateCatchesTypeAndSizeMismatch(t *testing.T) {
	ok := block.New(block.NamedColumn{Name: "a", Type: types.Int64, Column: intColumn(1, 2)})
	require.NoError(t, ok.Validate())

	wrongType := block.New(block.NamedColumn{Name: "a", Type: types.String, Column: intColumn(1, 2)})
	require.Error(t, wrongType.Validate())

	mismatched := block.New(
		block.NamedColumn{Name: "a", Type: types.Int64, Column: intColumn(1, 2, 3)},
		block.NamedColumn{Name: "b", Type: types.Int64, Column: intColumn(1, 2)},
	)
	require.Error(t, mismatched.Validate())
}

func TestBlockWithColumnAppendsOrReplaces(t *testing.T) {
	blk := block.New(block.NamedColumn{Name: "a", Type: types.Int64, Column: intColumn(1, 2)})

	replaced := blk.WithColumn(block.NamedColumn{Name: "a", Type: types.Int64, Column: intColumn(9, 9)})
	require.Equal(t, int64(9), replaced.Get("a").Get(0).Int64())
	require.Equal(t, int64(1), blk.Get("a").Get(0).Int64(), "WithColumn must not mutate the original block")

	appended := blk.WithColumn(block.NamedColumn{Name: "b", Type: types.Int64, Column: intColumn(5, 6)})
	require.Len(t, appended.Columns, 2)
	require.Len(t, blk.Columns, 1, "WithColumn's clone must not grow the original's Columns slice")
}

func TestBlockFilterAppliesToEveryColumn(t *testing.T) {
	blk := block.New(
		block.NamedColumn{Name: "a", Type: types.Int64, Column: intColumn(10, 20, 30)},
		block.NamedColumn{Name: "b", Type: types.Int64, Column: intColumn(1, 2, 3)},
	)
	filtered, err := blk.Filter([]uint8{1, 0, 1}, -1)
	require.NoError(t, err)
	require.Equal(t, 2, filtered.RowCount())
	require.Equal(t, int64(10), filtered.Get("a").Get(0).Int64())
	require.Equal(t, int64(30), filtered.Get("a").Get(1).Int64())
	require.Equal(t, int64(1), filtered.Get("b").Get(0).Int64())
	require.Equal(t, int64(3), filtered.Get("b").Get(1).Int64())
}

func TestBlockCutReturnsRowRange(t *testing.T) {
	blk := block.New(block.NamedColumn{Name: "a", Type: types.Int64, Column: intColumn(1, 2, 3, 4, 5)})
	cut := blk.Cut(1, 2)
	require.Equal(t, 2, cut.RowCount())
	require.Equal(t, int64(2), cut.Get("a").Get(0).Int64())
	require.Equal(t, int64(3), cut.Get("a").Get(1).Int64())
}

func TestConcatAppendsRowsByName(t *testing.T) {
	a := block.New(block.NamedColumn{Name: "x", Type: types.Int64, Column: intColumn(1, 2)})
	b := block.New(block.NamedColumn{Name: "x", Type: types.Int64, Column: intColumn(3, 4)})

	out, err := block.Concat(a, b)
	require.NoError(t, err)
	require.Equal(t, 4, out.RowCount())
	for i, want := range []int64{1, 2, 3, 4} {
		require.Equal(t, want, out.Get("x").Get(i).Int64())
	}
}

func TestConcatRejectsColumnCountMismatch(t *testing.T) {
	a := block.New(block.NamedColumn{Name: "x", Type: types.Int64, Column: intColumn(1)})
	b := block.New(
		block.NamedColumn{Name: "x", Type: types.Int64, Column: intColumn(1)},
		block.NamedColumn{Name: "y", Type: types.Int64, Column: intColumn(2)},
	)
	_, err := block.Concat(a, b)
	require.Error(t, err)
}
