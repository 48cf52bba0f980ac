package raftservice

import (
	"sync"

	"github.com/latticedb/lattice/keeper/statemachine"
)

// Notifier fans committed watch notifications out to whichever gRPC
// Watch streams are currently subscribed for their session, bridging
// the synchronous per-Apply []WatchNotification result statemachine
// operations return to the asynchronous, long-lived Watch RPC stream
// a client holds open.
type Notifier struct {
	mu   sync.Mutex
	subs map[int64][]chan statemachine.WatchNotification
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int64][]chan statemachine.WatchNotification)}
}

// Subscribe registers a new channel for sessionID's notifications. The
// returned cancel func must be called once the caller stops reading,
// or the channel leaks.
func (n *Notifier) Subscribe(sessionID int64) (<-chan statemachine.WatchNotification, func()) {
	ch := make(chan statemachine.WatchNotification, 64)
	n.mu.Lock()
	n.subs[sessionID] = append(n.subs[sessionID], ch)
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		list := n.subs[sessionID]
		for i, c := range list {
			if c == ch {
				n.subs[sessionID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(n.subs[sessionID]) == 0 {
			delete(n.subs, sessionID)
		}
		close(ch)
	}
	return ch, cancel
}

// Publish delivers each notification to every subscriber currently
// registered for its session. A full subscriber channel drops the
// notification rather than blocking the apply path — a slow watcher
// must not stall consensus.
func (n *Notifier) Publish(notes []statemachine.WatchNotification) {
	if len(notes) == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, note := range notes {
		for _, ch := range n.subs[note.Session] {
			select {
			case ch <- note:
			default:
			}
		}
	}
}
