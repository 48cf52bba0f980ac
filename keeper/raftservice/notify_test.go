package raftservice_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/keeper/raftservice"
	"github.com/latticedb/lattice/keeper/statemachine"
)

func TestNotifierDeliversToSubscriber(t *testing.T) {
	n := raftservice.NewNotifier()
	ch, cancel := n.Subscribe(42)
	defer cancel()

	note := statemachine.WatchNotification{Session: 42, Event: statemachine.Event{Type: statemachine.EventNodeDataChanged, Path: "/a"}}
	n.Publish([]statemachine.WatchNotification{note})

	select {
	case got := <-ch:
		require.Equal(t, note, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestNotifierPublishIgnoresUnsubscribedSessions(t *testing.T) {
	n := raftservice.NewNotifier()
	// No subscriber for session 7; Publish must not block or panic.
	n.Publish([]statemachine.WatchNotification{{Session: 7, Event: statemachine.Event{Type: statemachine.EventNodeDeleted, Path: "/x"}}})
}

func TestNotifierCancelStopsDelivery(t *testing.T) {
	n := raftservice.NewNotifier()
	ch, cancel := n.Subscribe(1)
	cancel()

	n.Publish([]statemachine.WatchNotification{{Session: 1, Event: statemachine.Event{Type: statemachine.EventNodeCreated, Path: "/y"}}})

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after cancel")
}

func TestNotifierMultipleSubscribersSameSession(t *testing.T) {
	n := raftservice.NewNotifier()
	ch1, cancel1 := n.Subscribe(5)
	defer cancel1()
	ch2, cancel2 := n.Subscribe(5)
	defer cancel2()

	note := statemachine.WatchNotification{Session: 5, Event: statemachine.Event{Type: statemachine.EventNodeChildrenChanged, Path: "/z"}}
	n.Publish([]statemachine.WatchNotification{note})

	require.Equal(t, note, <-ch1)
	require.Equal(t, note, <-ch2)
}
