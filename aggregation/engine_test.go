package aggregation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/aggregation"
	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/types"
)

func makeBlock(t *testing.T, keys []uint32, values []int64) *block.Block {
	t.Helper()
	keyCol := column.NewVectorColumn[uint32](types.UInt32)
	valCol := column.NewVectorColumn[int64](types.Int64)
	for i := range keys {
		keyCol.Append(keys[i])
		valCol.Append(values[i])
	}
	return block.New(
		block.NamedColumn{Name: "k", Type: types.UInt32, Column: keyCol},
		block.NamedColumn{Name: "v", Type: types.Int64, Column: valCol},
	)
}

func TestEngineSelectsKey64ForSingleIntegerKey(t *testing.T) {
	kind := aggregation.SelectVariant([]*types.Type{types.UInt32})
	require.Equal(t, aggregation.Key64, kind)
}

func TestEngineSelectsWithoutKeyWhenNoGroupByColumns(t *testing.T) {
	require.Equal(t, aggregation.WithoutKey, aggregation.SelectVariant(nil))
}

func TestEngineGroupBySumAndCount(t *testing.T) {
	blk := makeBlock(t, []uint32{1, 2, 1, 2, 1}, []int64{10, 20, 30, 40, 50})

	sumFn := aggregation.NewSum(types.Int64)
	countFn := aggregation.NewCount([]*types.Type{types.Int64})

	e := aggregation.NewEngine(aggregation.Params{
		KeyPositions: []int{0},
		KeyTypes:     []*types.Type{types.UInt32},
		Functions:    []aggregation.Function{sumFn, countFn},
		ArgPositions: [][]int{{1}, {1}},
	})

	require.NoError(t, e.Process(blk))

	out, err := e.ConvertToBlock()
	require.NoError(t, err)
	require.Equal(t, 2, out.RowCount())

	sums := map[int64]int64{}
	counts := map[int64]uint64{}
	keyCol := out.Columns[0].Column
	sumCol := out.Columns[1].Column
	countCol := out.Columns[2].Column
	for row := 0; row < out.RowCount(); row++ {
		k := int64(keyCol.Get(row).UInt64())
		sums[k] = sumCol.Get(row).Int64()
		counts[k] = countCol.Get(row).UInt64()
	}

	require.Equal(t, int64(90), sums[1])
	require.Equal(t, uint64(3), counts[1])
	require.Equal(t, int64(60), sums[2])
	require.Equal(t, uint64(2), counts[2])
}

func TestEngineOverflowThrowRaisesTooMuchRows(t *testing.T) {
	blk := makeBlock(t, []uint32{1, 2, 3}, []int64{1, 2, 3})
	e := aggregation.NewEngine(aggregation.Params{
		KeyPositions: []int{0},
		KeyTypes:     []*types.Type{types.UInt32},
		Functions:    []aggregation.Function{aggregation.NewCount(nil)},
		ArgPositions: [][]int{{1}},
		Overflow:     aggregation.OverflowThrow,
		MaxRows:      2,
	})
	err := e.Process(blk)
	require.Error(t, err)
	require.False(t, aggregation.IsBreak(err))
}

func TestEngineOverflowBreakStopsWithoutError(t *testing.T) {
	blk := makeBlock(t, []uint32{1, 2, 3}, []int64{1, 2, 3})
	e := aggregation.NewEngine(aggregation.Params{
		KeyPositions: []int{0},
		KeyTypes:     []*types.Type{types.UInt32},
		Functions:    []aggregation.Function{aggregation.NewCount(nil)},
		ArgPositions: [][]int{{1}},
		Overflow:     aggregation.OverflowBreak,
		MaxRows:      2,
	})
	err := e.Process(blk)
	require.Error(t, err)
	require.True(t, aggregation.IsBreak(err))
	require.Equal(t, 2, e.Variant().Len())
}

func TestEngineMergeAcrossShards(t *testing.T) {
	params := aggregation.Params{
		KeyPositions: []int{0},
		KeyTypes:     []*types.Type{types.UInt32},
		Functions:    []aggregation.Function{aggregation.NewSum(types.Int64)},
		ArgPositions: [][]int{{1}},
	}
	shard1 := aggregation.NewEngine(params)
	shard2 := aggregation.NewEngine(params)

	require.NoError(t, shard1.Process(makeBlock(t, []uint32{1, 2}, []int64{10, 20})))
	require.NoError(t, shard2.Process(makeBlock(t, []uint32{1, 3}, []int64{5, 7})))

	require.NoError(t, shard1.Merge(shard2))

	out, err := shard1.ConvertToBlock()
	require.NoError(t, err)
	require.Equal(t, 3, out.RowCount())

	sums := map[int64]int64{}
	for row := 0; row < out.RowCount(); row++ {
		k := int64(out.Columns[0].Column.Get(row).UInt64())
		sums[k] = out.Columns[1].Column.Get(row).Int64()
	}
	require.Equal(t, int64(15), sums[1])
	require.Equal(t, int64(20), sums[2])
	require.Equal(t, int64(7), sums[3])
}

func TestEngineMergeRejectsDifferentVariantKinds(t *testing.T) {
	a := aggregation.NewEngine(aggregation.Params{
		KeyPositions: []int{0},
		KeyTypes:     []*types.Type{types.UInt32},
		Functions:    []aggregation.Function{aggregation.NewCount(nil)},
		ArgPositions: [][]int{{1}},
	})
	b := aggregation.NewEngine(aggregation.Params{
		KeyPositions: nil,
		KeyTypes:     nil,
		Functions:    []aggregation.Function{aggregation.NewCount(nil)},
		ArgPositions: [][]int{{1}},
	})
	err := a.Merge(b)
	require.Error(t, err)
}
