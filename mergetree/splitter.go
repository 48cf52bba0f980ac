package mergetree

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// WorkItem is one (part, mark-range) slice of work a reader stream
// will scan.
type WorkItem struct {
	Part      *Part
	MarkRange MarkRange
}

// Stream is one worker's assigned backlog, consumed LIFO (stack order)
// during execution so a stream that runs ahead works on the piece of
// its own backlog most recently handed to it, matching the source's
// "per-thread stack of ranges" reader pool design.
type Stream struct {
	Items []WorkItem
	Marks int
}

// SplitIntoStreams distributes work across numStreams backlogs using
// greedy LIFO-stack assembly: sort-free, single pass over items,
// always appending the next item to whichever stream currently has the
// fewest assigned marks, so streams stay balanced without a full sort.
// minMarksForConcurrentRead is the floor below which a stream simply
// isn't worth spinning up a separate goroutine for; when the total
// work doesn't clear numStreams*minMarksForConcurrentRead, fewer
// streams than requested are returned.
func SplitIntoStreams(items []WorkItem, numStreams int, minMarksForConcurrentRead int) []*Stream {
	if numStreams < 1 {
		numStreams = 1
	}
	totalMarks := 0
	for _, it := range items {
		totalMarks += it.MarkRange.To - it.MarkRange.From
	}
	if minMarksForConcurrentRead > 0 {
		maxUseful := totalMarks / minMarksForConcurrentRead
		if maxUseful < 1 {
			maxUseful = 1
		}
		if numStreams > maxUseful {
			numStreams = maxUseful
		}
	}

	streams := make([]*Stream, numStreams)
	for i := range streams {
		streams[i] = &Stream{}
	}

	// Greedy LIFO-stack assembly: treat items as a stack (process from
	// the end), always popping onto the lightest-loaded stream. Pushing
	// onto the stream's Items in pop order means a worker that drains
	// its backlog fastest processes its most-recently-assigned (i.e.
	// locally freshest) item first when it pops from its own Items tail.
	lightest := func() int {
		best := 0
		for i := 1; i < len(streams); i++ {
			if streams[i].Marks < streams[best].Marks {
				best = i
			}
		}
		return best
	}
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		s := streams[lightest()]
		s.Items = append(s.Items, it)
		s.Marks += it.MarkRange.To - it.MarkRange.From
	}
	return streams
}

// RunStreams executes each stream's work items via visit, bounded by a
// semaphore of width maxConcurrency and cancelled as a group on first
// error — the errgroup+semaphore pairing the concurrency model names
// for the MergeTree splitter.
func RunStreams(ctx context.Context, streams []*Stream, maxConcurrency int64, visit func(ctx context.Context, item WorkItem) error) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(maxConcurrency)

	for _, s := range streams {
		s := s
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			for i := len(s.Items) - 1; i >= 0; i-- {
				if err := visit(gctx, s.Items[i]); err != nil {
					return err
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
			}
			return nil
		})
	}
	return g.Wait()
}
