package zkwire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/keeper/zkwire"
)

func TestRequestHeaderRoundTrip(t *testing.T) {
	w := zkwire.NewWriter()
	zkwire.WriteRequestHeader(w, zkwire.RequestHeader{Xid: 7, OpNum: zkwire.OpCreate})
	w.WriteString("/a/b")

	r := zkwire.NewReader(w.Bytes())
	h, err := zkwire.ReadRequestHeader(r)
	require.NoError(t, err)
	require.Equal(t, int32(7), h.Xid)
	require.Equal(t, zkwire.OpCreate, h.OpNum)

	path, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "/a/b", path)
}

func TestStatRoundTrip(t *testing.T) {
	stat := zkwire.Stat{Czxid: 1, Mzxid: 2, Ctime: 3, Mtime: 4, Version: 5, Cversion: 6, Aversion: 7, EphemeralOwner: 8, DataLength: 9, NumChildren: 10, Pzxid: 11}
	w := zkwire.NewWriter()
	w.WriteStat(stat)

	r := zkwire.NewReader(w.Bytes())
	require.Equal(t, int64(1), mustInt64(t, r))
	require.Equal(t, int64(2), mustInt64(t, r))
}

func mustInt64(t *testing.T, r *zkwire.Reader) int64 {
	t.Helper()
	v, err := r.ReadInt64()
	require.NoError(t, err)
	return v
}

func TestACLsRoundTrip(t *testing.T) {
	acls := []zkwire.ACL{{Perms: 0x1f, Scheme: "world", ID: "anyone"}, {Perms: 1, Scheme: "digest", ID: "user:hash"}}
	w := zkwire.NewWriter()
	w.WriteACLs(acls)

	r := zkwire.NewReader(w.Bytes())
	got, err := r.ReadACLs()
	require.NoError(t, err)
	require.Equal(t, acls, got)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello keeper")
	require.NoError(t, zkwire.WriteFrame(&buf, payload))

	got, err := zkwire.ReadFrame(&buf, 1<<20)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, zkwire.WriteFrame(&buf, make([]byte, 100)))
	_, err := zkwire.ReadFrame(&buf, 10)
	require.Error(t, err)
}

func TestNegativeLengthBufferDecodesAsNil(t *testing.T) {
	w := zkwire.NewWriter()
	w.WriteBuffer(nil)
	r := zkwire.NewReader(w.Bytes())
	got, err := r.ReadBuffer()
	require.NoError(t, err)
	require.Nil(t, got)
}
