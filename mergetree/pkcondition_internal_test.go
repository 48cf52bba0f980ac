package mergetree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoalesceMergesRangesWithinSeekGap(t *testing.T) {
	ranges := []MarkRange{{From: 0, To: 2}, {From: 5, To: 7}, {From: 20, To: 21}}

	out := coalesce(ranges, 3)
	require.Equal(t, []MarkRange{{From: 0, To: 7}, {From: 20, To: 21}}, out)
}

func TestCoalesceZeroGapOnlyMergesContiguous(t *testing.T) {
	ranges := []MarkRange{{From: 0, To: 2}, {From: 2, To: 4}, {From: 6, To: 8}}

	out := coalesce(ranges, 0)
	require.Equal(t, []MarkRange{{From: 0, To: 4}, {From: 6, To: 8}}, out)
}

func TestCoalesceSingleRangeIsUnchanged(t *testing.T) {
	ranges := []MarkRange{{From: 3, To: 9}}
	require.Equal(t, ranges, coalesce(ranges, 5))
}

func TestCoalesceEmptyInputReturnsNil(t *testing.T) {
	require.Nil(t, coalesce(nil, 5))
}
