package statemachine

// ACL is one (scheme, id, permission-bits) entry.
type ACL struct {
	Scheme string
	ID     string
	Perms  int32
}

// aclEntry is one interned, reference-counted ACL set in the
// process-wide ACL_MAP; SetACL/Create increment on attach, Remove/SetACL
// decrement on detach, and an entry is dropped once its count reaches 0.
type aclEntry struct {
	count int32
	acls  []ACL
}

// aclMap interns ACL lists keyed by a canonical id, so many nodes
// sharing the default "world:anyone" ACL store one small integer
// instead of duplicating the list. The map itself is process-wide and
// guarded by the same mutex as the node tree, per the concurrency
// model's "ACL map is process-wide, reference counted; mutation holds
// a single mutex" rule — here that's simply StateMachine.mu, since
// Go's GC and a single exclusive lock are a sufficient substitute for
// the source's separate fine-grained ACL mutex.
type aclMap struct {
	byID  map[int64]*aclEntry
	byAcl map[string]int64
	next  int64
}

func newACLMap() *aclMap {
	return &aclMap{byID: map[int64]*aclEntry{}, byAcl: map[string]int64{}}
}

func canonicalKey(acls []ACL) string {
	s := ""
	for _, a := range acls {
		s += a.Scheme + ":" + a.ID + ":" + itoa(int(a.Perms)) + ";"
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Intern returns the id for acls, creating and refcounting a new entry
// if this exact ACL set hasn't been seen before, or bumping the
// existing entry's refcount otherwise.
func (m *aclMap) Intern(acls []ACL) int64 {
	key := canonicalKey(acls)
	if id, ok := m.byAcl[key]; ok {
		m.byID[id].count++
		return id
	}
	m.next++
	id := m.next
	m.byID[id] = &aclEntry{count: 1, acls: append([]ACL(nil), acls...)}
	m.byAcl[key] = id
	return id
}

// Release decrements id's refcount, dropping the entry at 0.
func (m *aclMap) Release(id int64) {
	e, ok := m.byID[id]
	if !ok {
		return
	}
	e.count--
	if e.count <= 0 {
		delete(m.byAcl, canonicalKey(e.acls))
		delete(m.byID, id)
	}
}

func (m *aclMap) Get(id int64) []ACL {
	e, ok := m.byID[id]
	if !ok {
		return nil
	}
	return e.acls
}

// defaultACL is interned once at StateMachine construction: the
// open "world:anyone:rwcda" ACL every bare Create without an explicit
// ACL list attaches.
var defaultACL = []ACL{{Scheme: "world", ID: "anyone", Perms: 0x1f}}
