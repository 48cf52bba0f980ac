package raftservice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/raft"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/latticedb/lattice/internal/logutil"
)

// ExpiryChecker periodically scans for sessions past their timeout and
// applies a synthetic close entry for each through consensus. Only the
// leader should run a checker — a follower's proposals would simply
// be forwarded or rejected, wasting the sweep.
type ExpiryChecker struct {
	node     *Node
	interval time.Duration
	maxInFlight int64
}

func NewExpiryChecker(node *Node, interval time.Duration) *ExpiryChecker {
	if interval <= 0 {
		interval = time.Second
	}
	return &ExpiryChecker{node: node, interval: interval, maxInFlight: 8}
}

// Run blocks until ctx is canceled, sweeping for expired sessions on
// every tick. Each sweep closes expired sessions concurrently, bounded
// by a semaphore so a large expiry burst doesn't flood the Raft apply
// queue with an unbounded number of in-flight proposals at once.
func (c *ExpiryChecker) Run(ctx context.Context) error {
	log := logutil.Named("raftservice.expiry")
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if c.node.Raft.State() != raft.Leader {
				continue
			}
			if err := c.sweep(ctx, now); err != nil {
				log.Warnw("expiry sweep failed", "err", err)
			}
		}
	}
}

func (c *ExpiryChecker) sweep(ctx context.Context, now time.Time) error {
	expired := c.node.SM.ExpiredSessions(now)
	if len(expired) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(c.maxInFlight)
	g, gctx := errgroup.WithContext(ctx)
	for _, sessionID := range expired {
		sessionID := sessionID
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return c.closeSession(gctx, sessionID, now)
		})
	}
	return g.Wait()
}

func (c *ExpiryChecker) closeSession(ctx context.Context, sessionID int64, now time.Time) error {
	entry := LogEntry{
		SessionID:  sessionID,
		CreateTime: now,
		Kind:       EntryClose,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	future := c.node.Raft.Apply(data, timeout)
	return future.Error()
}
