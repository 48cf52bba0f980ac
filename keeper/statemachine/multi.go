package statemachine

import (
	"time"

	"github.com/latticedb/lattice/keeper/zkerr"
)

// MultiOpKind selects which sub-operation one Multi entry performs.
type MultiOpKind int

const (
	MultiCreate MultiOpKind = iota
	MultiRemove
	MultiSet
	MultiCheck
)

// MultiOp is one entry in a Multi transaction's op vector.
type MultiOp struct {
	Kind            MultiOpKind
	Path            string
	Data            []byte
	ACLs            []ACL
	Flags           CreateFlags
	ExpectedVersion int32
}

// MultiResult is the per-op outcome Multi reports back, mirroring
// ZooKeeper's per-result-code transaction response vector.
type MultiResult struct {
	Code int32
	Path string
	Stat Stat
}

type pendingFire struct {
	path   string
	evt    EventType
	isList bool
}

// Multi applies ops as a single all-or-nothing transaction: every sub-op
// runs against the live tree in order, each pushing an undo closure onto
// a stack. The first failure aborts the whole batch by replaying the
// undo closures collected so far in reverse order, and every result is
// then reported back as ZRUNTIMEINCONSISTENCY except the one that
// actually failed, matching "a failed multi op reports the first real
// failure and ZRUNTIMEINCONSISTENCY for every other op in the batch".
// Watches only fire once every sub-op has committed, so a rolled-back
// batch never fires a watch for a mutation that was undone.
func (sm *StateMachine) Multi(now time.Time, sessionID int64, ops []MultiOp) ([]MultiResult, []WatchNotification, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	results := make([]MultiResult, len(ops))
	var undo []func()
	var fires []pendingFire

	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	for i, op := range ops {
		var (
			path string
			stat Stat
			u    func()
			err  error
			f    []pendingFire
		)
		switch op.Kind {
		case MultiCreate:
			path, stat, f, u, err = sm.applyCreateLocked(now, sessionID, op.Path, op.Data, op.ACLs, op.Flags)
		case MultiRemove:
			path = op.Path
			stat, f, u, err = sm.applyRemoveLocked(now, op.Path, op.ExpectedVersion)
		case MultiSet:
			path = op.Path
			stat, f, u, err = sm.applySetLocked(now, op.Path, op.Data, op.ExpectedVersion)
		case MultiCheck:
			path = op.Path
			err = sm.applyCheckLocked(op.Path, op.ExpectedVersion)
		}

		if err != nil {
			rollback()
			for j := range results {
				if j == i {
					results[j] = MultiResult{Code: zkerr.CodeOf(err), Path: op.Path}
				} else {
					results[j] = MultiResult{Code: zkerr.ZRUNTIMEINCONSISTENCY}
				}
			}
			return results, nil, err
		}

		results[i] = MultiResult{Code: zkerr.ZOK, Path: path, Stat: stat}
		if u != nil {
			undo = append(undo, u)
		}
		fires = append(fires, f...)
	}

	var notes []WatchNotification
	for _, f := range fires {
		if f.isList {
			notes = append(notes, sm.fireListWatches(f.path, f.evt)...)
		} else {
			notes = append(notes, sm.fireDataWatches(f.path, f.evt)...)
		}
	}
	return results, notes, nil
}

// applyCreateLocked is Create's tree mutation factored out so Multi can
// capture an undo closure instead of firing watches immediately.
// sm.mu must already be held.
func (sm *StateMachine) applyCreateLocked(now time.Time, sessionID int64, path string, data []byte, acls []ACL, flags CreateFlags) (string, Stat, []pendingFire, func(), error) {
	parent, ok := sm.nodes[parentPath(path)]
	if !ok {
		return "", Stat{}, nil, nil, errNoNode(parentPath(path))
	}
	if parent.IsEphemeral() {
		return "", Stat{}, nil, nil, errCode(zkerr.ZNONODE, "parent is ephemeral")
	}

	finalPath := path
	if flags.Sequential {
		finalPath = sequentialName(path, parent.Stat.Cversion)
	}
	if _, exists := sm.nodes[finalPath]; exists {
		return "", Stat{}, nil, nil, errNodeExists(finalPath)
	}

	zxid := sm.nextZxid(OpCreate, now)
	t := millis(now)
	if len(acls) == 0 {
		acls = defaultACL
	}
	aclID := sm.acl.Intern(acls)
	stat := Stat{Czxid: zxid, Mzxid: zxid, Ctime: t, Mtime: t, DataLength: int32(len(data)), Pzxid: zxid}
	if flags.Ephemeral {
		stat.EphemeralOwner = sessionID
	}
	node := newNode(finalPath, data, aclID, stat)
	sm.nodes[finalPath] = node

	prevCversion, prevNumChildren, prevPzxid := parent.Stat.Cversion, parent.Stat.NumChildren, parent.Stat.Pzxid
	parent.Stat.Cversion++
	parent.Stat.NumChildren++
	parent.Stat.Pzxid = zxid
	parent.Children[baseName(finalPath)] = struct{}{}

	if flags.Ephemeral {
		if sm.ephemerals[sessionID] == nil {
			sm.ephemerals[sessionID] = map[string]struct{}{}
		}
		sm.ephemerals[sessionID][finalPath] = struct{}{}
	}

	undo := func() {
		delete(sm.nodes, finalPath)
		sm.acl.Release(aclID)
		parent.Stat.Cversion, parent.Stat.NumChildren, parent.Stat.Pzxid = prevCversion, prevNumChildren, prevPzxid
		delete(parent.Children, baseName(finalPath))
		if flags.Ephemeral {
			delete(sm.ephemerals[sessionID], finalPath)
		}
	}
	fires := []pendingFire{{path: parent.Path, evt: EventNodeChildrenChanged, isList: true}}
	return finalPath, node.Stat, fires, undo, nil
}

func (sm *StateMachine) applyRemoveLocked(now time.Time, path string, expectedVersion int32) (Stat, []pendingFire, func(), error) {
	node, ok := sm.nodes[path]
	if !ok {
		return Stat{}, nil, nil, errNoNode(path)
	}
	if node.Stat.NumChildren != 0 {
		return Stat{}, nil, nil, errNotEmpty(path)
	}
	if expectedVersion >= 0 && node.Stat.Version != expectedVersion {
		return Stat{}, nil, nil, errBadVersion(path, expectedVersion, node.Stat.Version)
	}

	zxid := sm.nextZxid(OpRemove, now)
	removed := node
	removedACLs := sm.acl.Get(node.ACLID)
	delete(sm.nodes, path)
	sm.acl.Release(node.ACLID)

	parent := sm.nodes[parentPath(path)]
	var prevNumChildren int32
	var prevPzxid int64
	if parent != nil {
		prevNumChildren, prevPzxid = parent.Stat.NumChildren, parent.Stat.Pzxid
		parent.Stat.NumChildren--
		parent.Stat.Pzxid = zxid
		delete(parent.Children, baseName(path))
	}
	var ephemeralSet map[string]struct{}
	if removed.IsEphemeral() {
		ephemeralSet = sm.ephemerals[removed.Stat.EphemeralOwner]
		if ephemeralSet != nil {
			delete(ephemeralSet, path)
		}
	}

	undo := func() {
		removed.ACLID = sm.acl.Intern(removedACLs)
		sm.nodes[path] = removed
		if parent != nil {
			parent.Stat.NumChildren, parent.Stat.Pzxid = prevNumChildren, prevPzxid
			parent.Children[baseName(path)] = struct{}{}
		}
		if ephemeralSet != nil {
			ephemeralSet[path] = struct{}{}
		}
	}
	fires := []pendingFire{
		{path: path, evt: EventNodeDeleted, isList: false},
		{path: path, evt: EventNodeDeleted, isList: true},
		{path: parentPath(path), evt: EventNodeChildrenChanged, isList: true},
	}
	return removed.Stat, fires, undo, nil
}

func (sm *StateMachine) applySetLocked(now time.Time, path string, data []byte, expectedVersion int32) (Stat, []pendingFire, func(), error) {
	node, ok := sm.nodes[path]
	if !ok {
		return Stat{}, nil, nil, errNoNode(path)
	}
	if expectedVersion >= 0 && node.Stat.Version != expectedVersion {
		return Stat{}, nil, nil, errBadVersion(path, expectedVersion, node.Stat.Version)
	}

	prevData, prevStat := node.Data, node.Stat
	zxid := sm.nextZxid(OpSet, now)
	node.Data = append([]byte(nil), data...)
	node.Stat.Version++
	node.Stat.Mtime = millis(now)
	node.Stat.Mzxid = zxid
	node.Stat.DataLength = int32(len(data))

	undo := func() {
		node.Data = prevData
		node.Stat = prevStat
	}
	fires := []pendingFire{{path: path, evt: EventNodeDataChanged, isList: false}}
	return node.Stat, fires, undo, nil
}

func (sm *StateMachine) applyCheckLocked(path string, expectedVersion int32) error {
	node, ok := sm.nodes[path]
	if !ok {
		return errNoNode(path)
	}
	if expectedVersion >= 0 && node.Stat.Version != expectedVersion {
		return errBadVersion(path, expectedVersion, node.Stat.Version)
	}
	return nil
}

func sequentialName(path string, counter int32) string {
	const digits = 10
	buf := make([]byte, digits)
	n := counter
	for i := digits - 1; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return path + string(buf)
}
