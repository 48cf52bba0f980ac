package statemachine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/keeper/statemachine"
	"github.com/latticedb/lattice/keeper/zkerr"
)

func TestCreateRejectsDuplicatePath(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	_, _, _, err := sm.Create(now, 1, "/a", []byte("x"), nil, statemachine.CreateFlags{})
	require.NoError(t, err)

	_, _, _, err = sm.Create(now, 1, "/a", []byte("y"), nil, statemachine.CreateFlags{})
	require.Error(t, err)
	require.Equal(t, zkerr.ZNODEEXISTS, zkerr.CodeOf(err))
}

func TestCreateSequentialAppendsParentCversion(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	p1, _, _, err := sm.Create(now, 1, "/lock-", nil, nil, statemachine.CreateFlags{Sequential: true})
	require.NoError(t, err)
	require.Equal(t, "/lock-0000000000", p1)

	p2, _, _, err := sm.Create(now, 1, "/lock-", nil, nil, statemachine.CreateFlags{Sequential: true})
	require.NoError(t, err)
	require.Equal(t, "/lock-0000000001", p2)
}

func TestCreateFiresParentListWatch(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	_, _, err := sm.List("/", 42, true)
	require.NoError(t, err)

	_, _, notes, err := sm.Create(now, 1, "/child", nil, nil, statemachine.CreateFlags{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, int64(42), notes[0].Session)
	require.Equal(t, statemachine.EventNodeChildrenChanged, notes[0].Event.Type)
	require.Equal(t, "/", notes[0].Event.Path)
}

func TestRemoveRejectsNonEmptyNode(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	_, _, _, err := sm.Create(now, 1, "/a", nil, nil, statemachine.CreateFlags{})
	require.NoError(t, err)
	_, _, _, err = sm.Create(now, 1, "/a/b", nil, nil, statemachine.CreateFlags{})
	require.NoError(t, err)

	_, err = sm.Remove(now, "/a", -1)
	require.Error(t, err)
	require.Equal(t, zkerr.ZNOTEMPTY, zkerr.CodeOf(err))
}

func TestSetRejectsBadVersion(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	_, _, _, err := sm.Create(now, 1, "/a", []byte("x"), nil, statemachine.CreateFlags{})
	require.NoError(t, err)

	_, _, err = sm.Set(now, "/a", []byte("y"), 5)
	require.Error(t, err)
	require.Equal(t, zkerr.ZBADVERSION, zkerr.CodeOf(err))
}

func TestCloseCascadesEphemeralDeleteAndFiresWatches(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)
	session := sm.NewSession(now, time.Minute)

	_, _, _, err := sm.Create(now, session, "/ephemeral", nil, nil, statemachine.CreateFlags{Ephemeral: true})
	require.NoError(t, err)

	_, ok, err := sm.Exists("/ephemeral", 0, false)
	require.NoError(t, err)
	require.True(t, ok)

	watcher := int64(99)
	_, ok, err = sm.Exists("/ephemeral", watcher, true)
	require.NoError(t, err)
	require.True(t, ok)

	notes, err := sm.Close(now, session)
	require.NoError(t, err)
	require.NotEmpty(t, notes)

	var sawDelete bool
	for _, n := range notes {
		if n.Session == watcher && n.Event.Type == statemachine.EventNodeDeleted && n.Event.Path == "/ephemeral" {
			sawDelete = true
		}
	}
	require.True(t, sawDelete)

	_, ok, err = sm.Exists("/ephemeral", 0, false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMultiCommitsAllOnSuccess(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	results, _, err := sm.Multi(now, 1, []statemachine.MultiOp{
		{Kind: statemachine.MultiCreate, Path: "/x", Data: []byte("1")},
		{Kind: statemachine.MultiCreate, Path: "/y", Data: []byte("2")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, zkerr.ZOK, r.Code)
	}

	_, ok, err := sm.Exists("/x", 0, false)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = sm.Exists("/y", 0, false)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMultiRollsBackAllOnFailure(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	results, notes, err := sm.Multi(now, 1, []statemachine.MultiOp{
		{Kind: statemachine.MultiCreate, Path: "/ok", Data: []byte("1")},
		{Kind: statemachine.MultiCreate, Path: "/missing-parent/child", Data: []byte("2")},
	})
	require.Error(t, err)
	require.Nil(t, notes)
	require.Len(t, results, 2)
	require.Equal(t, zkerr.ZRUNTIMEINCONSISTENCY, results[0].Code)
	require.Equal(t, zkerr.ZNONODE, results[1].Code)

	_, ok, existsErr := sm.Exists("/ok", 0, false)
	require.NoError(t, existsErr)
	require.False(t, ok, "the first op's create must be undone when the second op fails")
}

func TestMultiCheckGuardsRestOfBatch(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	_, _, _, err := sm.Create(now, 1, "/guarded", []byte("v0"), nil, statemachine.CreateFlags{})
	require.NoError(t, err)

	_, _, err = sm.Multi(now, 1, []statemachine.MultiOp{
		{Kind: statemachine.MultiCheck, Path: "/guarded", ExpectedVersion: 7},
		{Kind: statemachine.MultiSet, Path: "/guarded", Data: []byte("v1")},
	})
	require.Error(t, err)
	require.Equal(t, zkerr.ZBADVERSION, zkerr.CodeOf(err))

	data, _, getErr := sm.Get("/guarded", 0, false)
	require.NoError(t, getErr)
	require.Equal(t, []byte("v0"), data)
}

func TestSetWatchesFiresForAlreadyChangedPaths(t *testing.T) {
	sm := statemachine.New()
	now := time.Unix(1700000000, 0)

	_, _, _, err := sm.Create(now, 1, "/present", nil, nil, statemachine.CreateFlags{})
	require.NoError(t, err)

	fired := sm.SetWatches(1, []string{"/absent"}, nil, nil)
	require.Len(t, fired, 1)
	require.Equal(t, statemachine.EventNodeDeleted, fired[0].Type)
	require.Equal(t, "/absent", fired[0].Path)
}
