package mergetree

import (
	"context"

	"github.com/latticedb/lattice/block"
	"github.com/latticedb/lattice/errs"
)

// Predicate evaluates a filter over a block, returning a 0/1 row mask.
// PREWHERE and WHERE clauses are both modeled this way so the scan
// loop can apply the same Filter-then-continue pattern for each stage.
type Predicate func(blk *block.Block) ([]uint8, error)

// ScanPlan is everything Scan needs to read one part: which columns to
// materialize, the two filter stages, and the adaptive block-size
// target in bytes (the source's "grow the block until ~adaptive bytes
// accumulate" heuristic).
type ScanPlan struct {
	Columns          []string
	Prewhere         Predicate // nil: skip the PREWHERE stage entirely
	Where            Predicate // nil: no further filtering after PREWHERE
	AdaptiveBlockBytes int      // 0: use DefaultAdaptiveBlockBytes
}

const DefaultAdaptiveBlockBytes = 1 << 20 // 1 MiB, matching the default adaptive granularity target

// Scan reads the given mark ranges of part, applies PREWHERE then
// WHERE, and invokes emit once per resulting (possibly adaptively
// re-batched) block. emit returning an error aborts the scan.
func Scan(ctx context.Context, part *Part, cache *BlockCache, ranges []MarkRange, plan ScanPlan, emit func(*block.Block) error) error {
	targetBytes := plan.AdaptiveBlockBytes
	if targetBytes <= 0 {
		targetBytes = DefaultAdaptiveBlockBytes
	}

	var pending *block.Block
	pendingBytes := 0

	flush := func() error {
		if pending == nil || pending.RowCount() == 0 {
			return nil
		}
		b := pending
		pending, pendingBytes = nil, 0
		return emit(b)
	}

	for _, mr := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rowStart, rowEnd := part.MarkRowRange(mr.From, mr.To)
		if rowEnd <= rowStart {
			continue
		}

		blk, err := readMarkRangeBlock(part, cache, mr, plan.Columns, rowStart, rowEnd)
		if err != nil {
			return err
		}

		if plan.Prewhere != nil {
			mask, err := plan.Prewhere(blk)
			if err != nil {
				return err
			}
			blk, err = blk.Filter(mask, -1)
			if err != nil {
				return err
			}
		}
		if blk.RowCount() == 0 {
			continue
		}
		if plan.Where != nil {
			mask, err := plan.Where(blk)
			if err != nil {
				return err
			}
			blk, err = blk.Filter(mask, -1)
			if err != nil {
				return err
			}
		}
		if blk.RowCount() == 0 {
			continue
		}

		if pending == nil {
			pending = blk
		} else {
			merged, err := block.Concat(pending, blk)
			if err != nil {
				return err
			}
			pending = merged
		}
		pendingBytes += blockByteSize(blk)
		if pendingBytes >= targetBytes {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func blockByteSize(b *block.Block) int {
	n := 0
	for _, c := range b.Columns {
		if c.Column != nil {
			n += c.Column.ByteSize()
		}
	}
	return n
}

// readMarkRangeBlock materializes [rowStart, rowEnd) of each requested
// column, going through the shared block cache keyed by the mark
// range's starting mark (the cache's granularity matches the on-disk
// compression block granularity, one per mark range written).
func readMarkRangeBlock(part *Part, cache *BlockCache, mr MarkRange, columns []string, rowStart, rowEnd int) (*block.Block, error) {
	named := make([]block.NamedColumn, len(columns))
	for i, name := range columns {
		t, ok := part.ColumnTypes[name]
		if !ok {
			return nil, errs.New(errs.LogicError, errs.CodeLogicalError, "mergetree: part %s has no column %q", part.Name, name)
		}
		cf, ok := part.Columns[name]
		if !ok {
			return nil, errs.New(errs.IOError, errs.CodeCannotReadAllData, "mergetree: part %s missing column file for %q", part.Name, name)
		}
		raw, err := cache.Get(part.Name, name, mr.From, func() ([]byte, error) {
			return cf.ReadBlock(mr.From)
		})
		if err != nil {
			return nil, err
		}
		col, err := DecodeColumnBlock(t, raw, rowEnd-rowStart)
		if err != nil {
			return nil, err
		}
		named[i] = block.NamedColumn{Name: name, Type: t, Column: col}
	}
	return block.New(named...), nil
}
