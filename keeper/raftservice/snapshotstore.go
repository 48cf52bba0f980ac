package raftservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"

	"github.com/latticedb/lattice/keeper/statemachine"
	"github.com/latticedb/lattice/keeper/storage"
)

// ObjectSnapshotStore implements raft.SnapshotStore over the
// object-addressed snap_<zxid>/<obj_id> layout, rather than
// hashicorp/raft's own single-file FileSnapshotStore: the object
// layout is pinned exactly (int_map, up to containerBlocks container
// blocks with empty ones left out and the written count recorded in
// int_map, ephemerals map, session map, and the v1+ ACL-map trailer),
// so a generic snapshot store would not produce the on-disk shape
// clients expect.
//
// Create/Open translate between the single io.Writer/io.Reader stream
// hashicorp/raft's FSMSnapshot.Persist/FSM.Restore speak (a JSON-coded
// statemachine.Dump) and the multi-file object layout keeper/storage
// actually writes to disk.
type ObjectSnapshotStore struct {
	root            string
	containerBlocks int

	mu   sync.Mutex
	next uint64
}

func NewObjectSnapshotStore(root string, containerBlocks int) *ObjectSnapshotStore {
	return &ObjectSnapshotStore{root: root, containerBlocks: containerBlocks}
}

func (s *ObjectSnapshotStore) Create(version raft.SnapshotVersion, index, term uint64, configuration raft.Configuration, configurationIndex uint64, trans raft.Transport) (raft.SnapshotSink, error) {
	encoded, err := json.Marshal(configuration)
	if err != nil {
		return nil, fmt.Errorf("raftservice: encoding configuration: %w", err)
	}
	return &objectSnapshotSink{
		store: s,
		meta: storage.RaftMeta{
			Index:              index,
			Term:               term,
			ConfigurationIndex: configurationIndex,
			Configuration:      encoded,
		},
	}, nil
}

func (s *ObjectSnapshotStore) List() ([]*raft.SnapshotMeta, error) {
	zxids, err := storage.ListSnapshots(s.root)
	if err != nil {
		return nil, err
	}
	metas := make([]*raft.SnapshotMeta, 0, len(zxids))
	for _, zxid := range zxids {
		rm, err := storage.ReadRaftMeta(s.root, zxid)
		if err != nil {
			continue // a directory without a raft_meta.json was never finalized; skip it
		}
		var config raft.Configuration
		if err := json.Unmarshal(rm.Configuration, &config); err != nil {
			continue
		}
		metas = append(metas, &raft.SnapshotMeta{
			ID:                 snapshotID(zxid),
			Index:              rm.Index,
			Term:               rm.Term,
			Configuration:      config,
			ConfigurationIndex: rm.ConfigurationIndex,
			Version:            raft.SnapshotVersionMax,
		})
	}
	return metas, nil
}

func (s *ObjectSnapshotStore) Open(id string) (*raft.SnapshotMeta, io.ReadCloser, error) {
	zxid, err := zxidFromID(id)
	if err != nil {
		return nil, nil, err
	}
	rm, err := storage.ReadRaftMeta(s.root, zxid)
	if err != nil {
		return nil, nil, err
	}
	var config raft.Configuration
	if err := json.Unmarshal(rm.Configuration, &config); err != nil {
		return nil, nil, err
	}

	dump, err := readDump(s.root, zxid)
	if err != nil {
		return nil, nil, err
	}
	payload, err := json.Marshal(dump)
	if err != nil {
		return nil, nil, err
	}

	meta := &raft.SnapshotMeta{
		ID: id, Index: rm.Index, Term: rm.Term,
		Configuration: config, ConfigurationIndex: rm.ConfigurationIndex,
		Version: raft.SnapshotVersionMax, Size: int64(len(payload)),
	}
	return meta, io.NopCloser(bytes.NewReader(payload)), nil
}

func snapshotID(zxid int64) string { return fmt.Sprintf("snap_%020d", zxid) }

func zxidFromID(id string) (int64, error) {
	var zxid int64
	if _, err := fmt.Sscanf(id, "snap_%020d", &zxid); err != nil {
		return 0, fmt.Errorf("raftservice: malformed snapshot id %q: %w", id, err)
	}
	return zxid, nil
}

func readDump(root string, zxid int64) (statemachine.Dump, error) {
	r, err := storage.OpenSnapshotReader(root, zxid)
	if err != nil {
		return statemachine.Dump{}, err
	}
	version, counters, err := r.ReadIntMap()
	if err != nil {
		return statemachine.Dump{}, err
	}

	dump := statemachine.Dump{
		Zxid:             counters["zxid"],
		SessionIDCounter: counters["session_id_counter"],
		Nodes:            map[string]statemachine.NodeDump{},
		Sessions:         map[int64]statemachine.SessionDump{},
		Ephemerals:       map[int64][]string{},
		ACLs:             map[int64]statemachine.ACLSetDump{},
	}
	blocks := int(counters["container_blocks"])
	for i := 0; i < blocks; i++ {
		rows, err := r.ReadContainerBlock()
		if err != nil {
			return statemachine.Dump{}, err
		}
		for _, row := range rows {
			var nd statemachine.NodeDump
			if err := json.Unmarshal(row, &nd); err != nil {
				return statemachine.Dump{}, err
			}
			dump.Nodes[nd.Path] = nd
		}
	}

	ephemerals, err := r.ReadEphemeralsMap()
	if err != nil {
		return statemachine.Dump{}, err
	}
	dump.Ephemerals = ephemerals

	sessions, err := r.ReadSessionsMap()
	if err != nil {
		return statemachine.Dump{}, err
	}
	for _, rec := range sessions {
		dump.Sessions[rec.ID] = statemachine.SessionDump{
			ID:                  rec.ID,
			TimeoutMs:           rec.TimeoutMs,
			LastHeartbeatUnixMs: rec.LastHeartbeatMs,
		}
	}

	if version >= storage.VersionV1 {
		acls, err := r.ReadACLMap()
		if err != nil {
			return statemachine.Dump{}, err
		}
		for _, rec := range acls {
			var set statemachine.ACLSetDump
			if len(rec.Acls) > 0 {
				if err := json.Unmarshal(rec.Acls[0], &set); err != nil {
					return statemachine.Dump{}, err
				}
			}
			dump.ACLs[rec.ID] = set
		}
	}

	return dump, nil
}

type objectSnapshotSink struct {
	store *ObjectSnapshotStore
	meta  storage.RaftMeta
	buf   bytes.Buffer
}

func (s *objectSnapshotSink) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *objectSnapshotSink) ID() string { return snapshotID(s.zxidFromBuf()) }

// zxidFromBuf peeks the buffered dump's zxid without fully decoding
// twice; Close does the real decode.
func (s *objectSnapshotSink) zxidFromBuf() int64 {
	var probe struct {
		Zxid int64 `json:"Zxid"`
	}
	_ = json.Unmarshal(s.buf.Bytes(), &probe)
	return probe.Zxid
}

func (s *objectSnapshotSink) Cancel() error { return nil }

func (s *objectSnapshotSink) Close() error {
	var dump statemachine.Dump
	if err := json.Unmarshal(s.buf.Bytes(), &dump); err != nil {
		return fmt.Errorf("raftservice: decoding persisted dump: %w", err)
	}

	w, err := storage.NewSnapshotWriter(s.store.root, dump.Zxid, s.store.containerBlocks)
	if err != nil {
		return err
	}

	nodeBlocks := partitionNodes(dump.Nodes, s.store.containerBlocks)
	if err := w.WriteIntMap(storage.VersionV1, map[string]int64{
		"zxid":               dump.Zxid,
		"session_id_counter": dump.SessionIDCounter,
		"container_blocks":   int64(len(nodeBlocks)),
	}); err != nil {
		return err
	}
	for _, block := range nodeBlocks {
		rows := make([][]byte, 0, len(block))
		for _, nd := range block {
			row, err := json.Marshal(nd)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		if err := w.WriteContainerBlock(rows); err != nil {
			return err
		}
	}

	if err := w.WriteEphemeralsMap(dump.Ephemerals); err != nil {
		return err
	}

	sessionRecords := make([]storage.SessionRecord, 0, len(dump.Sessions))
	for _, sd := range dump.Sessions {
		sessionRecords = append(sessionRecords, storage.SessionRecord{
			ID: sd.ID, TimeoutMs: sd.TimeoutMs, LastHeartbeatMs: sd.LastHeartbeatUnixMs,
		})
	}
	if err := w.WriteSessionsMap(sessionRecords); err != nil {
		return err
	}

	aclRecords := make([]storage.ACLMapRecord, 0, len(dump.ACLs))
	for id, ad := range dump.ACLs {
		encoded, err := json.Marshal(ad)
		if err != nil {
			return err
		}
		aclRecords = append(aclRecords, storage.ACLMapRecord{ID: id, Acls: [][]byte{encoded}})
	}
	if err := w.WriteACLMap(aclRecords); err != nil {
		return err
	}

	return storage.WriteRaftMeta(s.store.root, dump.Zxid, s.meta)
}

func partitionNodes(nodes map[string]statemachine.NodeDump, blocks int) [][]statemachine.NodeDump {
	if blocks < 1 {
		blocks = 1
	}
	out := make([][]statemachine.NodeDump, blocks)
	i := 0
	for _, nd := range nodes {
		idx := i % blocks
		out[idx] = append(out[idx], nd)
		i++
	}
	var trimmed [][]statemachine.NodeDump
	for _, b := range out {
		if len(b) > 0 {
			trimmed = append(trimmed, b)
		}
	}
	if len(trimmed) == 0 {
		trimmed = [][]statemachine.NodeDump{{}}
	}
	return trimmed
}
