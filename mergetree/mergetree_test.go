package mergetree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/column"
	"github.com/latticedb/lattice/field"
	"github.com/latticedb/lattice/mergetree"
	"github.com/latticedb/lattice/types"
)

func buildIndex(keys []int64) *mergetree.PrimaryIndex {
	idx := mergetree.NewPrimaryIndex()
	for _, k := range keys {
		idx.Append([]field.Field{field.FromInt64(k)})
	}
	return idx
}

func TestSelectMarkRangesNarrowsToMatchingMarks(t *testing.T) {
	idx := buildIndex([]int64{0, 10, 20, 30, 40, 50, 60, 70})
	cond := &mergetree.PKCondition{
		Ranges: []mergetree.KeyRange{
			{HasMin: true, Min: field.FromInt64(25), HasMax: true, Max: field.FromInt64(45)},
		},
	}
	ranges, bitmap := mergetree.SelectMarkRanges(idx, cond, 0)
	require.NotEmpty(t, ranges)
	require.True(t, bitmap.GetCardinality() > 0)

	covered := map[int]bool{}
	for _, r := range ranges {
		for m := r.From; m < r.To; m++ {
			covered[m] = true
		}
	}
	// mark 2 (key=20) starts a range that could contain 25; mark 4
	// (key=40) is within [25,45]; the narrowing must not have excluded
	// either of those candidate marks.
	require.True(t, covered[2] && covered[4])
	// marks 0-1 (keys below 20) and 6-7 (keys from 60 up) cannot hold a
	// key in [25,45] and must have been narrowed away.
	require.False(t, covered[0] || covered[1] || covered[6] || covered[7])
}

func TestSelectMarkRangesEmptyIndex(t *testing.T) {
	idx := mergetree.NewPrimaryIndex()
	cond := &mergetree.PKCondition{}
	ranges, bitmap := mergetree.SelectMarkRanges(idx, cond, 0)
	require.Nil(t, ranges)
	require.Equal(t, uint64(0), bitmap.GetCardinality())
}

func TestShardDigestIsDeterministicAndDistributes(t *testing.T) {
	d1 := mergetree.ShardDigest([]byte("row-key-1"))
	d2 := mergetree.ShardDigest([]byte("row-key-1"))
	require.Equal(t, d1, d2)

	seen := map[int]bool{}
	for i := 0; i < 64; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		seen[mergetree.ShardIndex(mergetree.ShardDigest(key), 4)] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestSplitIntoStreamsBalancesMarks(t *testing.T) {
	items := []mergetree.WorkItem{
		{MarkRange: mergetree.MarkRange{From: 0, To: 10}},
		{MarkRange: mergetree.MarkRange{From: 10, To: 15}},
		{MarkRange: mergetree.MarkRange{From: 15, To: 40}},
		{MarkRange: mergetree.MarkRange{From: 40, To: 45}},
	}
	streams := mergetree.SplitIntoStreams(items, 2, 1)
	require.Len(t, streams, 2)
	total := 0
	for _, s := range streams {
		total += s.Marks
	}
	require.Equal(t, 45, total)
}

func TestColumnBlockCodecRoundTrip(t *testing.T) {
	col := column.NewVectorColumn[int64](types.Int64)
	for _, v := range []int64{1, -2, 3, -4, 5} {
		col.Append(v)
	}
	raw, err := mergetree.EncodeColumnBlock(types.Int64, col, 0, col.Size())
	require.NoError(t, err)

	decoded, err := mergetree.DecodeColumnBlock(types.Int64, raw, col.Size())
	require.NoError(t, err)
	require.Equal(t, col.Size(), decoded.Size())
	for i := 0; i < col.Size(); i++ {
		require.Equal(t, col.Get(i).Int64(), decoded.Get(i).Int64())
	}
}

func TestColumnBlockCodecRoundTripString(t *testing.T) {
	col := column.NewStringColumn()
	for _, s := range []string{"alpha", "", "beta gamma"} {
		col.AppendString(s)
	}
	raw, err := mergetree.EncodeColumnBlock(types.String, col, 0, col.Size())
	require.NoError(t, err)

	decoded, err := mergetree.DecodeColumnBlock(types.String, raw, col.Size())
	require.NoError(t, err)
	for i := 0; i < col.Size(); i++ {
		require.Equal(t, col.Get(i).String(), decoded.Get(i).String())
	}
}
