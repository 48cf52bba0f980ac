package mergetree

import (
	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/latticedb/lattice/field"
)

// KeyRange is one primary-key column's admissible range, derived from
// the WHERE clause (e.g. `col >= 10 AND col < 20` yields HasMin=true,
// Min=10, HasMax=true, Max=20). A zero-value KeyRange (both flags
// false) means "unconstrained": every value of this column is possible.
type KeyRange struct {
	Min, Max       field.Field
	HasMin, HasMax bool
}

func (r KeyRange) admits(v field.Field) bool {
	if r.HasMin && compareOneField(v, r.Min) < 0 {
		return false
	}
	if r.HasMax && compareOneField(v, r.Max) > 0 {
		return false
	}
	return true
}

// PKCondition is a conjunction of per-column KeyRanges over the
// primary key's leading columns, in key order. This is a deliberate
// simplification of the source's full KeyCondition expression tree
// (which can represent arbitrary boolean combinations over function
// monotonicity chains): here only a single conjunctive range box is
// supported, which is exactly the analyzable shape for the canonical
// `WHERE pk1 = ... AND pk2 BETWEEN ... ` queries this repo exercises.
// The box is always a conservative over-approximation of the true
// predicate, which is the only correctness requirement placed on it.
type PKCondition struct {
	Ranges []KeyRange
}

// MayBeTrueInRange reports whether some row in [minKey, maxKey] (the
// primary key tuples recorded at a mark range's two boundary marks)
// could satisfy the condition. Columns are checked in key order while
// the two boundary tuples agree on every earlier column: there column
// i's values in the range lie within [minKey[i], maxKey[i]], so a range
// that misses Ranges[i] short-circuits false. The check stops after the
// first column on which the boundary tuples differ, since every later
// column can take any value inside the range; the answer is therefore
// a conservative "maybe true", never a false negative.
func (c *PKCondition) MayBeTrueInRange(minKey, maxKey []field.Field) bool {
	n := len(c.Ranges)
	if len(minKey) < n {
		n = len(minKey)
	}
	if len(maxKey) < n {
		n = len(maxKey)
	}
	for i := 0; i < n; i++ {
		r := c.Ranges[i]
		lo, hi := minKey[i], maxKey[i]
		if r.HasMax && compareOneField(lo, r.Max) > 0 {
			return false
		}
		if r.HasMin && compareOneField(hi, r.Min) < 0 {
			return false
		}
		if compareOneField(lo, hi) != 0 {
			break
		}
	}
	return true
}

// MayBeTrueAfter reports whether any row at or after mark m (an
// unbounded-above range) could satisfy the condition — used at the
// right edge of the index where there is no "next" mark to bound the
// range from above. Column i is checked only while every earlier
// column's Max equals minKey's value there; otherwise later rows can
// hold any value in column i.
func (c *PKCondition) MayBeTrueAfter(minKey []field.Field) bool {
	n := len(c.Ranges)
	if len(minKey) < n {
		n = len(minKey)
	}
	for i := 0; i < n; i++ {
		r := c.Ranges[i]
		if !r.HasMax {
			break
		}
		cmp := compareOneField(minKey[i], r.Max)
		if cmp > 0 {
			return false
		}
		if cmp < 0 {
			break
		}
	}
	return true
}

// MarkRange is a half-open [From, To) interval of mark indices.
type MarkRange struct {
	From, To int
}

// narrowingLeafMarks bounds the depth-first recursion: once a
// candidate range covers this many marks or fewer, it is accepted
// whole rather than split further. At 1 the bisection runs all the way
// down to single-mark ranges.
const narrowingLeafMarks = 1

// SelectMarkRanges runs the depth-first binary partitioning narrowing
// algorithm: starting from the full [0, index.Len()) range, it
// recursively bisects any range the condition cannot prove impossible,
// until ranges are down to narrowingLeafMarks marks, then coalesces
// accepted ranges that are adjacent or within minMarksForSeek marks of
// each other. The result is returned both as a slice (for the
// splitter) and as a roaring.Bitmap of the included mark indices,
// built from the already coalesced ranges.
func SelectMarkRanges(index *PrimaryIndex, cond *PKCondition, minMarksForSeek int) ([]MarkRange, *roaring.Bitmap) {
	bm := roaring.New()
	total := index.Len()
	if total == 0 {
		return nil, bm
	}

	var accepted []MarkRange
	var recurse func(from, to int)
	recurse = func(from, to int) {
		if from >= to {
			return
		}
		minKey := index.KeyAt(from)
		var maxKey []field.Field
		var ok bool
		if to < total {
			maxKey = index.KeyAt(to)
			ok = cond.MayBeTrueInRange(minKey, maxKey)
		} else {
			ok = cond.MayBeTrueAfter(minKey)
		}
		if !ok {
			return
		}
		if to-from <= narrowingLeafMarks {
			accepted = append(accepted, MarkRange{From: from, To: to})
			return
		}
		mid := from + (to-from)/2
		recurse(from, mid)
		recurse(mid, to)
	}
	recurse(0, total)

	merged := coalesce(accepted, minMarksForSeek)
	for _, r := range merged {
		bm.AddRange(uint64(r.From), uint64(r.To))
	}
	return merged, bm
}

// coalesce merges mark ranges produced by the depth-first bisection.
// Two ranges merge not only when adjacent/overlapping but also when
// the gap between them is at most minMarksForSeek marks: reading
// across a small gap of unproven marks is cheaper than paying for an
// extra disk seek to skip it, the same trade-off min_marks_for_seek
// names. A negative or zero minMarksForSeek falls back to merging only
// contiguous/overlapping ranges.
func coalesce(ranges []MarkRange, minMarksForSeek int) []MarkRange {
	if len(ranges) == 0 {
		return nil
	}
	gap := minMarksForSeek
	if gap < 0 {
		gap = 0
	}
	out := make([]MarkRange, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if r.From-cur.To <= gap {
			if r.To > cur.To {
				cur.To = r.To
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}
