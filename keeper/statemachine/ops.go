package statemachine

import (
	"time"

	"github.com/latticedb/lattice/keeper/zkerr"
)

// CreateFlags selects the sequential/ephemeral variants Create supports.
type CreateFlags struct {
	Ephemeral  bool
	Sequential bool
}

// Create adds a node at path. parent must already exist and must not
// itself be ephemeral (ephemeral nodes cannot have children). When
// Sequential is set, a 10-digit zero-padded counter (the parent's
// cversion at the time of creation) is appended to path.
func (sm *StateMachine) Create(now time.Time, sessionID int64, path string, data []byte, acls []ACL, flags CreateFlags) (string, Stat, []WatchNotification, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	finalPath, stat, fires, _, err := sm.applyCreateLocked(now, sessionID, path, data, acls, flags)
	if err != nil {
		return "", Stat{}, nil, err
	}
	notes := sm.fireAll(fires)
	return finalPath, stat, notes, nil
}

// Remove deletes path. num_children must be 0, and if expectedVersion
// is non-negative it must match the node's current version.
func (sm *StateMachine) Remove(now time.Time, path string, expectedVersion int32) ([]WatchNotification, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	_, fires, _, err := sm.applyRemoveLocked(now, path, expectedVersion)
	if err != nil {
		return nil, err
	}
	return sm.fireAll(fires), nil
}

func (sm *StateMachine) fireAll(fires []pendingFire) []WatchNotification {
	var notes []WatchNotification
	for _, f := range fires {
		if f.isList {
			notes = append(notes, sm.fireListWatches(f.path, f.evt)...)
		} else {
			notes = append(notes, sm.fireDataWatches(f.path, f.evt)...)
		}
	}
	return notes
}

// Exists reports whether path exists, optionally registering a data
// watch for the caller's session.
func (sm *StateMachine) Exists(path string, watchSession int64, watch bool) (Stat, bool, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	node, ok := sm.nodes[path]
	if watch {
		sm.watch.registerData(path, watchSession)
	}
	if !ok {
		return Stat{}, false, nil
	}
	return node.Stat, true, nil
}

// Get returns path's data and Stat, optionally registering a data watch.
func (sm *StateMachine) Get(path string, watchSession int64, watch bool) ([]byte, Stat, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	node, ok := sm.nodes[path]
	if watch {
		sm.watch.registerData(path, watchSession)
	}
	if !ok {
		return nil, Stat{}, errNoNode(path)
	}
	return append([]byte(nil), node.Data...), node.Stat, nil
}

// List returns path's children names and Stat, optionally registering
// a list watch.
func (sm *StateMachine) List(path string, watchSession int64, watch bool) ([]string, Stat, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	node, ok := sm.nodes[path]
	if watch {
		sm.watch.registerList(path, watchSession)
	}
	if !ok {
		return nil, Stat{}, errNoNode(path)
	}
	return node.childNames(), node.Stat, nil
}

// SimpleList is List without the Stat round-trip, for callers that
// only need the child names.
func (sm *StateMachine) SimpleList(path string, watchSession int64, watch bool) ([]string, error) {
	names, _, err := sm.List(path, watchSession, watch)
	return names, err
}

// FilteredList is the supplemented housekeeping variant of List:
// returns only children whose full path has prefix as a prefix.
func (sm *StateMachine) FilteredList(path, prefix string) ([]string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	node, ok := sm.nodes[path]
	if !ok {
		return nil, errNoNode(path)
	}
	var out []string
	for name := range node.Children {
		full := joinPath(path, name)
		if hasPrefix(full, prefix) {
			out = append(out, name)
		}
	}
	return out, nil
}

// Sync is the read-linearizability barrier: it mutates nothing but
// still consumes a zxid (see shouldIncreaseZxid), so a client can
// confirm the server it reads from next has caught up to the zxid
// this call returns. path is echoed back unchanged.
func (sm *StateMachine) Sync(now time.Time, path string) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.nextZxid(OpSync, now)
	return path, nil
}

// Check validates path's version without reading data, per the
// read-ops table.
func (sm *StateMachine) Check(path string, expectedVersion int32) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	node, ok := sm.nodes[path]
	if !ok {
		return errNoNode(path)
	}
	if expectedVersion >= 0 && node.Stat.Version != expectedVersion {
		return errBadVersion(path, expectedVersion, node.Stat.Version)
	}
	return nil
}

// Set replaces path's data, bumping version/mtime/mzxid/data_length.
func (sm *StateMachine) Set(now time.Time, path string, data []byte, expectedVersion int32) (Stat, []WatchNotification, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stat, fires, _, err := sm.applySetLocked(now, path, data, expectedVersion)
	if err != nil {
		return Stat{}, nil, err
	}
	return stat, sm.fireAll(fires), nil
}

// Auth attaches (scheme, credential) to the session for later ACL checks.
func (sm *StateMachine) Auth(sessionID int64, scheme, credential string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[sessionID]
	if !ok {
		return zkerr.New(zkerr.ZAUTHFAILED, "unknown session %d", sessionID)
	}
	s.Auths = append(s.Auths, AuthInfo{Scheme: scheme, Credential: credential})
	return nil
}

// Close cascades deletion of every ephemeral the session owns, fires
// the resulting watches, and removes the session.
func (sm *StateMachine) Close(now time.Time, sessionID int64) ([]WatchNotification, error) {
	sm.mu.Lock()
	paths := sm.ephemerals[sessionID]
	ordered := make([]string, 0, len(paths))
	for p := range paths {
		ordered = append(ordered, p)
	}
	sm.mu.Unlock()

	var notes []WatchNotification
	for _, p := range ordered {
		removed, err := sm.Remove(now, p, -1)
		if err != nil && zkerr.CodeOf(err) != zkerr.ZNONODE {
			return notes, err
		}
		notes = append(notes, removed...)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.ephemerals, sessionID)
	delete(sm.sessions, sessionID)
	sm.watch.clearSession(sessionID)
	return notes, nil
}

// SetACL replaces path's interned ACL set.
func (sm *StateMachine) SetACL(path string, acls []ACL, expectedVersion int32) (Stat, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	node, ok := sm.nodes[path]
	if !ok {
		return Stat{}, errNoNode(path)
	}
	if expectedVersion >= 0 && node.Stat.Aversion != expectedVersion {
		return Stat{}, errBadVersion(path, expectedVersion, node.Stat.Aversion)
	}
	oldID := node.ACLID
	node.ACLID = sm.acl.Intern(acls)
	sm.acl.Release(oldID)
	node.Stat.Aversion++
	return node.Stat, nil
}

// GetACL returns path's current ACL list.
func (sm *StateMachine) GetACL(path string) ([]ACL, Stat, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	node, ok := sm.nodes[path]
	if !ok {
		return nil, Stat{}, errNoNode(path)
	}
	return sm.acl.Get(node.ACLID), node.Stat, nil
}

// SetWatches bulk-reinstalls watches after a client reconnect. Each of
// the three path lists is sorted, then the data, exist and child lists
// are handled in that order: a path whose existence no longer matches
// the watch (a data or child watch on a missing node, an exist watch on
// a node that now exists) yields a synthesized event in the returned
// slice instead of a registration; every other path is registered.
// Events are therefore path-sorted within each list, not across lists,
// and only existence is compared: a data or child change on a node
// that still exists is not reported.
func (sm *StateMachine) SetWatches(sessionID int64, dataPaths, existPaths, childPaths []string) []Event {
	sortStrings(dataPaths)
	sortStrings(existPaths)
	sortStrings(childPaths)

	var fired []Event
	sm.mu.Lock()
	for _, p := range dataPaths {
		if _, ok := sm.nodes[p]; !ok {
			fired = append(fired, Event{Type: EventNodeDeleted, Path: p})
			continue
		}
		sm.watch.registerData(p, sessionID)
	}
	for _, p := range existPaths {
		if _, ok := sm.nodes[p]; ok {
			fired = append(fired, Event{Type: EventNodeCreated, Path: p})
			continue
		}
		sm.watch.registerData(p, sessionID)
	}
	for _, p := range childPaths {
		if _, ok := sm.nodes[p]; !ok {
			fired = append(fired, Event{Type: EventNodeDeleted, Path: p})
			continue
		}
		sm.watch.registerList(p, sessionID)
	}
	sm.mu.Unlock()
	return fired
}

func (sm *StateMachine) fireDataWatches(path string, evt EventType) []WatchNotification {
	return sm.watch.fireData(path, evt)
}

func (sm *StateMachine) fireListWatches(path string, evt EventType) []WatchNotification {
	return sm.watch.fireList(path, evt)
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
