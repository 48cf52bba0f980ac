package zkwire

import (
	"encoding/binary"
	"fmt"
)

// Writer accumulates a response/request body using ZooKeeper's jute
// encoding rules: big-endian fixed-width integers, a length-prefixed
// UTF-8 string for every string field, and a length-prefixed byte
// array for every opaque blob (znode data).
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteInt32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteBuffer(b []byte) {
	if b == nil {
		w.WriteInt32(-1)
		return
	}
	w.WriteInt32(int32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteStat serializes a znode Stat in ZooKeeper's fixed 11-field
// order, used verbatim by Exists/Get/Set/Create2 responses.
func (w *Writer) WriteStat(s Stat) {
	w.WriteInt64(s.Czxid)
	w.WriteInt64(s.Mzxid)
	w.WriteInt64(s.Ctime)
	w.WriteInt64(s.Mtime)
	w.WriteInt32(s.Version)
	w.WriteInt32(s.Cversion)
	w.WriteInt32(s.Aversion)
	w.WriteInt64(s.EphemeralOwner)
	w.WriteInt32(s.DataLength)
	w.WriteInt32(s.NumChildren)
	w.WriteInt64(s.Pzxid)
}

func (w *Writer) WriteACL(acl ACL) {
	w.WriteInt32(acl.Perms)
	w.WriteString(acl.Scheme)
	w.WriteString(acl.ID)
}

func (w *Writer) WriteACLs(acls []ACL) {
	w.WriteInt32(int32(len(acls)))
	for _, a := range acls {
		w.WriteACL(a)
	}
}

func (w *Writer) WriteStrings(ss []string) {
	w.WriteInt32(int32(len(ss)))
	for _, s := range ss {
		w.WriteString(s)
	}
}

// Stat is the wire-shaped mirror of statemachine.Stat; zkwire stays
// free of a statemachine import so the wire package can be exercised
// (and fuzzed) standalone.
type Stat struct {
	Czxid, Mzxid, Ctime, Mtime int64
	Version, Cversion, Aversion int32
	EphemeralOwner int64
	DataLength, NumChildren int32
	Pzxid int64
}

// ACL is the wire-shaped mirror of statemachine.ACL.
type ACL struct {
	Perms  int32
	Scheme string
	ID     string
}

// Reader walks a request body using the same jute encoding rules.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("zkwire: short read: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *Reader) ReadInt32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadBool() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.buf[r.pos] != 0
	r.pos++
	return v, nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", nil
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *Reader) ReadBuffer() ([]byte, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := append([]byte(nil), r.buf[r.pos:r.pos+int(n)]...)
	r.pos += int(n)
	return b, nil
}

func (r *Reader) ReadACL() (ACL, error) {
	perms, err := r.ReadInt32()
	if err != nil {
		return ACL{}, err
	}
	scheme, err := r.ReadString()
	if err != nil {
		return ACL{}, err
	}
	id, err := r.ReadString()
	if err != nil {
		return ACL{}, err
	}
	return ACL{Perms: perms, Scheme: scheme, ID: id}, nil
}

func (r *Reader) ReadACLs() ([]ACL, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	acls := make([]ACL, n)
	for i := range acls {
		acls[i], err = r.ReadACL()
		if err != nil {
			return nil, err
		}
	}
	return acls, nil
}

func (r *Reader) ReadStrings() ([]string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	ss := make([]string, n)
	for i := range ss {
		ss[i], err = r.ReadString()
		if err != nil {
			return nil, err
		}
	}
	return ss, nil
}

// WriteNotification serializes a watch-fired frame: the fixed
// xid=-1/zxid=-1 header followed by (type, state, path).
func WriteNotification(evtType WatchEventType, state KeeperState, path string) []byte {
	w := NewWriter()
	WriteResponseHeader(w, ResponseHeader{Xid: NotificationXid, Zxid: NotificationZxid, Err: 0})
	w.WriteInt32(int32(evtType))
	w.WriteInt32(int32(state))
	w.WriteString(path)
	return w.Bytes()
}
