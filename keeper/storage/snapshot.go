// Package storage implements Keeper's on-disk persistent layout: the
// object-addressed snapshot directories (snap_<zxid>/<obj_id> files)
// and the small configuration/state files tracking the last applied
// cluster configuration and the last committed (index, term) pair.
// The Raft log and stable-metadata store themselves are NOT
// reimplemented here — keeper/raftservice wires
// hashicorp/raft-boltdb/v2 directly for that, so this package owns
// only the parts of the persistent layout no off-the-shelf Raft log
// store already covers.
package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Object ids within a snapshot directory, in fixed layout order:
// object 1 is always the int_map of counters; container blocks follow;
// the ephemerals map, session/timeout map, and (v1+) ACL map are the
// last three objects in that order.
const (
	ObjIntMap = 1
)

// SnapshotVersion is the first byte of object 1, letting a reader
// detect whether the ACL-map trailer object is present.
type SnapshotVersion uint8

const (
	VersionBase SnapshotVersion = 0
	VersionV1   SnapshotVersion = 1
)

// SnapshotMeta names one on-disk snapshot: its zxid and how many
// container blocks it was split into (so a reader knows which object
// ids are data blocks vs. the trailer objects).
type SnapshotMeta struct {
	Zxid             int64
	ContainerBlocks  int
	Version          SnapshotVersion
}

// Dir returns dir's snap_<zxid> subdirectory.
func Dir(root string, zxid int64) string {
	return filepath.Join(root, fmt.Sprintf("snap_%020d", zxid))
}

func objectPath(dir string, objID int) string {
	return filepath.Join(dir, strconv.Itoa(objID))
}

// SnapshotWriter streams objects to snap_<zxid>/<obj_id> files one at a
// time in ascending object-id order. The writer itself never holds any
// lock; it writes data the caller has already copied out of the store.
type SnapshotWriter struct {
	dir             string
	nextObjID       int
	containerBlocks int
}

// NewSnapshotWriter creates (or truncates) root/snap_<zxid> and
// prepares to write objects starting at id 1.
func NewSnapshotWriter(root string, zxid int64, containerBlocks int) (*SnapshotWriter, error) {
	dir := Dir(root, zxid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &SnapshotWriter{dir: dir, nextObjID: 1, containerBlocks: containerBlocks}, nil
}

// WriteIntMap writes object 1: the version byte followed by the
// length-prefixed counter map.
func (w *SnapshotWriter) WriteIntMap(version SnapshotVersion, counters map[string]int64) error {
	if w.nextObjID != ObjIntMap {
		return fmt.Errorf("storage: int_map must be the first object written, at %d", w.nextObjID)
	}
	buf := []byte{byte(version)}
	names := make([]string, 0, len(counters))
	for k := range counters {
		names = append(names, k)
	}
	sort.Strings(names)
	buf = appendUint32(buf, uint32(len(names)))
	for _, name := range names {
		buf = appendString(buf, name)
		buf = appendInt64(buf, counters[name])
	}
	if err := w.writeObject(buf); err != nil {
		return err
	}
	return nil
}

// WriteContainerBlock writes one data-container block (how many are
// written is the caller's choice); rows is an already-serialized record list (one node's
// path/data/acl-id/stat per entry, opaque to this package).
func (w *SnapshotWriter) WriteContainerBlock(rows [][]byte) error {
	return w.writeObject(encodeRecordList(rows))
}

// WriteEphemeralsMap writes the (session -> []path) ephemeral ownership
// object.
func (w *SnapshotWriter) WriteEphemeralsMap(ephemerals map[int64][]string) error {
	var buf []byte
	sessions := make([]int64, 0, len(ephemerals))
	for s := range ephemerals {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i] < sessions[j] })
	buf = appendUint32(buf, uint32(len(sessions)))
	for _, s := range sessions {
		buf = appendInt64(buf, s)
		paths := ephemerals[s]
		buf = appendUint32(buf, uint32(len(paths)))
		for _, p := range paths {
			buf = appendString(buf, p)
		}
	}
	return w.writeObject(buf)
}

// SessionRecord is one entry in the session/timeout map object.
type SessionRecord struct {
	ID       int64
	TimeoutMs int64
	LastHeartbeatMs int64
}

// WriteSessionsMap writes the session/timeout map object.
func (w *SnapshotWriter) WriteSessionsMap(sessions []SessionRecord) error {
	var buf []byte
	buf = appendUint32(buf, uint32(len(sessions)))
	for _, s := range sessions {
		buf = appendInt64(buf, s.ID)
		buf = appendInt64(buf, s.TimeoutMs)
		buf = appendInt64(buf, s.LastHeartbeatMs)
	}
	return w.writeObject(buf)
}

// ACLMapRecord is one entry in the v1+ trailer ACL-map object.
type ACLMapRecord struct {
	ID   int64
	Acls [][]byte // pre-encoded (scheme, id, perms) triples, opaque here
}

// WriteACLMap writes the final trailer object, only present when
// version >= VersionV1.
func (w *SnapshotWriter) WriteACLMap(entries []ACLMapRecord) error {
	var buf []byte
	buf = appendUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = appendInt64(buf, e.ID)
		buf = appendUint32(buf, uint32(len(e.Acls)))
		for _, a := range e.Acls {
			buf = appendUint32(buf, uint32(len(a)))
			buf = append(buf, a...)
		}
	}
	return w.writeObject(buf)
}

func (w *SnapshotWriter) writeObject(payload []byte) error {
	if err := os.WriteFile(objectPath(w.dir, w.nextObjID), payload, 0o644); err != nil {
		return err
	}
	w.nextObjID++
	return nil
}

// SnapshotReader loads a previously written snapshot directory back
// into objects, in the same fixed object order WriteX produced them.
type SnapshotReader struct {
	dir    string
	nextID int
}

func OpenSnapshotReader(root string, zxid int64) (*SnapshotReader, error) {
	dir := Dir(root, zxid)
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return &SnapshotReader{dir: dir, nextID: 1}, nil
}

func (r *SnapshotReader) readObject() ([]byte, error) {
	data, err := os.ReadFile(objectPath(r.dir, r.nextID))
	if err != nil {
		return nil, err
	}
	r.nextID++
	return data, nil
}

// ReadIntMap reads object 1, returning its version byte and counters.
func (r *SnapshotReader) ReadIntMap() (SnapshotVersion, map[string]int64, error) {
	data, err := r.readObject()
	if err != nil {
		return 0, nil, err
	}
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("storage: empty int_map object")
	}
	version := SnapshotVersion(data[0])
	rest := data[1:]
	n, rest, err := readUint32(rest)
	if err != nil {
		return version, nil, err
	}
	counters := make(map[string]int64, n)
	for i := uint32(0); i < n; i++ {
		var name string
		name, rest, err = readString(rest)
		if err != nil {
			return version, nil, err
		}
		var v int64
		v, rest, err = readInt64(rest)
		if err != nil {
			return version, nil, err
		}
		counters[name] = v
	}
	return version, counters, nil
}

// ReadContainerBlock reads the next container-block object.
func (r *SnapshotReader) ReadContainerBlock() ([][]byte, error) {
	data, err := r.readObject()
	if err != nil {
		return nil, err
	}
	return decodeRecordList(data)
}

// ReadEphemeralsMap reads the (session -> []path) ephemeral ownership
// object written by WriteEphemeralsMap.
func (r *SnapshotReader) ReadEphemeralsMap() (map[int64][]string, error) {
	data, err := r.readObject()
	if err != nil {
		return nil, err
	}
	n, rest, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]string, n)
	for i := uint32(0); i < n; i++ {
		var session int64
		session, rest, err = readInt64(rest)
		if err != nil {
			return nil, err
		}
		var count uint32
		count, rest, err = readUint32(rest)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, count)
		for j := uint32(0); j < count; j++ {
			var p string
			p, rest, err = readString(rest)
			if err != nil {
				return nil, err
			}
			paths = append(paths, p)
		}
		out[session] = paths
	}
	return out, nil
}

// ReadSessionsMap reads the session/timeout map object written by
// WriteSessionsMap.
func (r *SnapshotReader) ReadSessionsMap() ([]SessionRecord, error) {
	data, err := r.readObject()
	if err != nil {
		return nil, err
	}
	n, rest, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	out := make([]SessionRecord, 0, n)
	for i := uint32(0); i < n; i++ {
		var rec SessionRecord
		rec.ID, rest, err = readInt64(rest)
		if err != nil {
			return nil, err
		}
		rec.TimeoutMs, rest, err = readInt64(rest)
		if err != nil {
			return nil, err
		}
		rec.LastHeartbeatMs, rest, err = readInt64(rest)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadACLMap reads the v1+ trailer ACL-map object written by
// WriteACLMap. Absent on VersionBase snapshots; callers should only
// call this after checking ReadIntMap's returned version.
func (r *SnapshotReader) ReadACLMap() ([]ACLMapRecord, error) {
	data, err := r.readObject()
	if err != nil {
		return nil, err
	}
	n, rest, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	out := make([]ACLMapRecord, 0, n)
	for i := uint32(0); i < n; i++ {
		var rec ACLMapRecord
		rec.ID, rest, err = readInt64(rest)
		if err != nil {
			return nil, err
		}
		var count uint32
		count, rest, err = readUint32(rest)
		if err != nil {
			return nil, err
		}
		rec.Acls = make([][]byte, 0, count)
		for j := uint32(0); j < count; j++ {
			var a []byte
			a, rest, err = readBuffer(rest)
			if err != nil {
				return nil, err
			}
			rec.Acls = append(rec.Acls, a)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RaftMeta is the small companion file written beside a snapshot's
// numbered objects, carrying the Raft-level (index, term,
// configuration) fields the ZK object layout itself has no room for.
type RaftMeta struct {
	Index              uint64 `json:"index"`
	Term               uint64 `json:"term"`
	ConfigurationIndex uint64 `json:"configuration_index"`
	Configuration      []byte `json:"configuration"`
}

const raftMetaFileName = "raft_meta.json"

func WriteRaftMeta(root string, zxid int64, meta RaftMeta) error {
	return writeJSONAtomic(filepath.Join(Dir(root, zxid), raftMetaFileName), meta)
}

func ReadRaftMeta(root string, zxid int64) (RaftMeta, error) {
	var m RaftMeta
	err := readJSON(filepath.Join(Dir(root, zxid), raftMetaFileName), &m)
	return m, err
}

// ListSnapshots returns every snap_<zxid> directory under root sorted
// newest-first, for the startup "load the newest snapshot" rule.
func ListSnapshots(root string) ([]int64, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var zxids []int64
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "snap_") {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimPrefix(e.Name(), "snap_"), 10, 64)
		if err != nil {
			continue
		}
		zxids = append(zxids, n)
	}
	sort.Slice(zxids, func(i, j int) bool { return zxids[i] > zxids[j] })
	return zxids, nil
}

func encodeRecordList(rows [][]byte) []byte {
	var buf []byte
	buf = appendUint32(buf, uint32(len(rows)))
	for _, row := range rows {
		buf = appendUint32(buf, uint32(len(row)))
		buf = append(buf, row...)
	}
	return buf
}

func decodeRecordList(data []byte) ([][]byte, error) {
	n, rest, err := readUint32(data)
	if err != nil {
		return nil, err
	}
	rows := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		var row []byte
		row, rest, err = readBuffer(rest)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

func readInt64(b []byte) (int64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return int64(binary.BigEndian.Uint64(b[:8])), b[8:], nil
}

func readString(b []byte) (string, []byte, error) {
	n, rest, err := readUint32(b)
	if err != nil {
		return "", nil, err
	}
	if uint32(len(rest)) < n {
		return "", nil, io.ErrUnexpectedEOF
	}
	return string(rest[:n]), rest[n:], nil
}

func readBuffer(b []byte) ([]byte, []byte, error) {
	n, rest, err := readUint32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return append([]byte(nil), rest[:n]...), rest[n:], nil
}
