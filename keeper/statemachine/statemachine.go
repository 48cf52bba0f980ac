package statemachine

import (
	"sync"
	"time"

	"github.com/latticedb/lattice/keeper/zkerr"
)

// StateMachine is the single in-memory store every committed Raft log
// entry mutates. One mutex guards the node tree, watch tables, session
// table, and ACL map together: real ZooKeeper uses per-subsystem
// fine-grained locking, but a single RWMutex is the idiomatic Go
// substitute here — every mutating operation is already serialized by
// Raft's single-threaded apply loop, so the lock only needs to protect
// concurrent *readers* (Get, Exists, List) racing the apply goroutine,
// not writers racing each other.
type StateMachine struct {
	mu sync.RWMutex

	nodes map[string]*Node
	acl   *aclMap
	watch *watchTables

	sessions         map[int64]*Session
	sessionIDCounter int64

	// ephemerals maps a session to the set of paths it owns, enabling
	// Close's cascaded delete without a tree walk.
	ephemerals map[int64]map[string]struct{}

	zxid int64
}

// New constructs an empty store with just the root node "/".
func New() *StateMachine {
	sm := &StateMachine{
		nodes:      map[string]*Node{},
		acl:        newACLMap(),
		watch:      newWatchTables(),
		sessions:   map[int64]*Session{},
		ephemerals: map[int64]map[string]struct{}{},
	}
	rootACL := sm.acl.Intern(defaultACL)
	sm.nodes["/"] = newNode("/", nil, rootACL, Stat{})
	return sm
}

// Zxid returns the last assigned zxid (the "reads return the last
// observed zxid" rule).
func (sm *StateMachine) Zxid() int64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.zxid
}

// shouldIncreaseZxid mirrors ZooKeeper's own op-kind table exactly:
// only write ops consume a new zxid. Sync is not in this exception
// set even though it mutates nothing — real ZooKeeper still advances
// zxid for it, since a Sync response's zxid is what a client compares
// against to confirm it has caught up with the leader.
func shouldIncreaseZxid(op OpKind) bool {
	switch op {
	case OpGet, OpExists, OpCheck, OpAuth, OpHeartbeat, OpList, OpSimpleList:
		return false
	default:
		return true
	}
}

// OpKind enumerates the operations the state machine supports.
type OpKind int

const (
	OpHeartbeat OpKind = iota
	OpSync
	OpCreate
	OpRemove
	OpExists
	OpGet
	OpList
	OpSimpleList
	OpCheck
	OpSet
	OpMulti
	OpAuth
	OpClose
	OpSetACL
	OpGetACL
)

// nextZxid assigns and returns a new zxid for a write op, or the
// current zxid unchanged for a read op. Caller must hold sm.mu.
func (sm *StateMachine) nextZxid(op OpKind, now time.Time) int64 {
	if !shouldIncreaseZxid(op) {
		return sm.zxid
	}
	sm.zxid++
	return sm.zxid
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func errNoNode(path string) error {
	return zkerr.New(zkerr.ZNONODE, "no such node: %s", path)
}

func errNodeExists(path string) error {
	return zkerr.New(zkerr.ZNODEEXISTS, "node already exists: %s", path)
}

func errNotEmpty(path string) error {
	return zkerr.New(zkerr.ZNOTEMPTY, "node has children: %s", path)
}

func errBadVersion(path string, want, got int32) error {
	return zkerr.New(zkerr.ZBADVERSION, "version mismatch at %s: expected %d, got %d", path, want, got)
}
