package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/keeper/storage"
)

func TestSnapshotRoundTrip(t *testing.T) {
	root := t.TempDir()

	w, err := storage.NewSnapshotWriter(root, 42, 2)
	require.NoError(t, err)
	require.NoError(t, w.WriteIntMap(storage.VersionV1, map[string]int64{"zxid": 42, "session_id_counter": 3}))
	require.NoError(t, w.WriteContainerBlock([][]byte{[]byte("node-a"), []byte("node-b")}))
	require.NoError(t, w.WriteContainerBlock([][]byte{[]byte("node-c")}))
	require.NoError(t, w.WriteEphemeralsMap(map[int64][]string{1: {"/a", "/b"}}))
	require.NoError(t, w.WriteSessionsMap([]storage.SessionRecord{{ID: 1, TimeoutMs: 4000, LastHeartbeatMs: 1700000000000}}))
	require.NoError(t, w.WriteACLMap(nil))

	r, err := storage.OpenSnapshotReader(root, 42)
	require.NoError(t, err)

	version, counters, err := r.ReadIntMap()
	require.NoError(t, err)
	require.Equal(t, storage.VersionV1, version)
	require.Equal(t, int64(42), counters["zxid"])
	require.Equal(t, int64(3), counters["session_id_counter"])

	block1, err := r.ReadContainerBlock()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("node-a"), []byte("node-b")}, block1)

	block2, err := r.ReadContainerBlock()
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("node-c")}, block2)
}

func TestListSnapshotsSortsNewestFirst(t *testing.T) {
	root := t.TempDir()
	for _, zxid := range []int64{10, 30, 20} {
		_, err := storage.NewSnapshotWriter(root, zxid, 1)
		require.NoError(t, err)
	}

	zxids, err := storage.ListSnapshots(root)
	require.NoError(t, err)
	require.Equal(t, []int64{30, 20, 10}, zxids)
}

func TestAppliedStateRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := storage.AppliedState{Index: 100, Term: 3, Zxid: 42}
	require.NoError(t, storage.WriteAppliedState(root, want))

	got, err := storage.ReadAppliedState(root)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestClusterConfigRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := storage.ClusterConfig{Servers: []storage.ServerConfig{{ID: "1", Address: "127.0.0.1:2888", Priority: 1}}}
	require.NoError(t, storage.WriteClusterConfig(root, want))

	got, err := storage.ReadClusterConfig(root)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
