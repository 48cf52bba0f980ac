package statemachine

import "time"

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

func unixMilli(ms int64) time.Time { return time.UnixMilli(ms) }

// Dump is the shallow, lock-free-serializable copy of the entire
// store, taken by copying root pointers under a short critical
// section and then serializing without further locking. Dump itself
// holds copies of the top-level maps; the *Node/*Session values
// referenced from them are never mutated in place after Dump runs
// (every statemachine mutation replaces or copies rather than
// writing through a shared pointer once captured here), so the caller
// is free to marshal Dump at leisure off the lock.
type Dump struct {
	Zxid             int64
	SessionIDCounter int64
	Nodes            map[string]NodeDump
	Sessions         map[int64]SessionDump
	Ephemerals       map[int64][]string
	ACLs             map[int64]ACLSetDump
}

// NodeDump is one node's exported snapshot shape.
type NodeDump struct {
	Path     string
	Data     []byte
	ACLID    int64
	Stat     Stat
	Children []string
}

// SessionDump is one session's exported snapshot shape.
type SessionDump struct {
	ID            int64
	TimeoutMs     int64
	LastHeartbeatUnixMs int64
	Auths         []AuthInfo
}

// ACLSetDump is one interned ACL-map entry's exported snapshot shape.
type ACLSetDump struct {
	Count int32
	Acls  []ACL
}

// Dump takes the copy described on the Dump type, holding sm.mu.RLock
// while it copies every map entry; nothing stays locked once it
// returns.
func (sm *StateMachine) Dump() Dump {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	d := Dump{
		Zxid:             sm.zxid,
		SessionIDCounter: sm.sessionIDCounter,
		Nodes:            make(map[string]NodeDump, len(sm.nodes)),
		Sessions:         make(map[int64]SessionDump, len(sm.sessions)),
		Ephemerals:       make(map[int64][]string, len(sm.ephemerals)),
		ACLs:             make(map[int64]ACLSetDump, len(sm.acl.byID)),
	}
	for path, n := range sm.nodes {
		d.Nodes[path] = NodeDump{
			Path:     n.Path,
			Data:     append([]byte(nil), n.Data...),
			ACLID:    n.ACLID,
			Stat:     n.Stat,
			Children: n.childNames(),
		}
	}
	for id, s := range sm.sessions {
		d.Sessions[id] = SessionDump{
			ID:                  s.ID,
			TimeoutMs:           s.Timeout.Milliseconds(),
			LastHeartbeatUnixMs: s.LastHeartbeat.UnixMilli(),
			Auths:               append([]AuthInfo(nil), s.Auths...),
		}
	}
	for session, paths := range sm.ephemerals {
		list := make([]string, 0, len(paths))
		for p := range paths {
			list = append(list, p)
		}
		d.Ephemerals[session] = list
	}
	for id, e := range sm.acl.byID {
		d.ACLs[id] = ACLSetDump{Count: e.count, Acls: append([]ACL(nil), e.acls...)}
	}
	return d
}

// Restore replaces the live store with dump's contents, reconstructing
// the node tree's Children sets and the ACL map's byAcl reverse index
// from the flattened dump shape. keeper/raftservice's FSM.Restore calls
// it at startup and whenever raft installs a snapshot; it holds sm.mu
// exclusively while it replaces the store's contents.
func (sm *StateMachine) Restore(dump Dump) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.zxid = dump.Zxid
	sm.sessionIDCounter = dump.SessionIDCounter

	sm.nodes = make(map[string]*Node, len(dump.Nodes))
	for path, nd := range dump.Nodes {
		children := make(map[string]struct{}, len(nd.Children))
		for _, c := range nd.Children {
			children[c] = struct{}{}
		}
		sm.nodes[path] = &Node{Path: nd.Path, Data: nd.Data, ACLID: nd.ACLID, Stat: nd.Stat, Children: children}
	}

	sm.sessions = make(map[int64]*Session, len(dump.Sessions))
	for id, sd := range dump.Sessions {
		sm.sessions[id] = &Session{
			ID:            sd.ID,
			Timeout:       msDuration(sd.TimeoutMs),
			LastHeartbeat: unixMilli(sd.LastHeartbeatUnixMs),
			Auths:         sd.Auths,
		}
	}

	sm.ephemerals = make(map[int64]map[string]struct{}, len(dump.Ephemerals))
	for session, paths := range dump.Ephemerals {
		set := make(map[string]struct{}, len(paths))
		for _, p := range paths {
			set[p] = struct{}{}
		}
		sm.ephemerals[session] = set
	}

	sm.acl = newACLMap()
	var maxID int64
	for id, ad := range dump.ACLs {
		sm.acl.byID[id] = &aclEntry{count: ad.Count, acls: ad.Acls}
		sm.acl.byAcl[canonicalKey(ad.Acls)] = id
		if id > maxID {
			maxID = id
		}
	}
	sm.acl.next = maxID

	sm.watch = newWatchTables()
}
