package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/wire"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("select 1")
	require.NoError(t, wire.WriteFrame(&buf, wire.PacketQuery, payload))

	kind, got, err := wire.ReadFrame(&buf, 1<<20)
	require.NoError(t, err)
	require.Equal(t, wire.PacketQuery, kind)
	require.Equal(t, payload, got)
}

func TestReadFrameRejectsEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	_, _, err := wire.ReadFrame(&buf, 1<<20)
	require.Error(t, err)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteFrame(&buf, wire.PacketData, make([]byte, 100)))
	_, _, err := wire.ReadFrame(&buf, 10)
	require.Error(t, err)
}

func TestHelloRoundTrip(t *testing.T) {
	h := wire.HelloRequest{
		ClientName:         "lattice-cli",
		ClientVersionMajor: 1,
		ClientVersionMinor: 2,
		ClientVersionPatch: 3,
		ProtocolVersion:    wire.ProtocolVersion,
		Database:           "default",
		User:               "default",
		Password:           "",
	}
	got, err := wire.UnmarshalHelloRequest(wire.MarshalHelloRequest(h))
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestHelloResponseRoundTrip(t *testing.T) {
	h := wire.HelloResponse{ServerName: "lattice-local", VersionMajor: 1, VersionMinor: 0, VersionPatch: 0, Revision: 1, Timezone: "UTC"}
	got, err := wire.UnmarshalHelloResponse(wire.MarshalHelloResponse(h))
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestQueryRequestRoundTrip(t *testing.T) {
	q := wire.QueryRequest{QueryID: "q1", Query: "SELECT 1", Settings: map[string]string{"max_threads": "4", "database": "default"}}
	got, err := wire.UnmarshalQueryRequest(wire.MarshalQueryRequest(q))
	require.NoError(t, err)
	require.Equal(t, q, got)
}

func TestQueryRequestRoundTripNoSettings(t *testing.T) {
	q := wire.QueryRequest{QueryID: "q1", Query: "SELECT 1"}
	got, err := wire.UnmarshalQueryRequest(wire.MarshalQueryRequest(q))
	require.NoError(t, err)
	require.Equal(t, q.QueryID, got.QueryID)
	require.Equal(t, q.Query, got.Query)
	require.Empty(t, got.Settings)
}

func TestProgressRoundTrip(t *testing.T) {
	p := wire.Progress{ReadRows: 100, ReadBytes: 4096, TotalRowsToRead: 1000}
	got, err := wire.UnmarshalProgress(wire.MarshalProgress(p))
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestExceptionRoundTrip(t *testing.T) {
	e := wire.Exception{Code: 47, Name: "UNKNOWN_IDENTIFIER", Message: "column not found", StackTrace: ""}
	got, err := wire.UnmarshalException(wire.MarshalException(e))
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestProfileInfoRoundTrip(t *testing.T) {
	p := wire.ProfileInfo{Rows: 3, Blocks: 1, Bytes: 24, AppliedLimit: true, RowsBeforeLimit: 3}
	got, err := wire.UnmarshalProfileInfo(wire.MarshalProfileInfo(p))
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestPartUUIDsRoundTrip(t *testing.T) {
	p := wire.PartUUIDs{UUIDs: []string{"uuid-1", "uuid-2"}}
	got, err := wire.UnmarshalPartUUIDs(wire.MarshalPartUUIDs(p))
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestPartUUIDsRoundTripEmpty(t *testing.T) {
	got, err := wire.UnmarshalPartUUIDs(wire.MarshalPartUUIDs(wire.PartUUIDs{}))
	require.NoError(t, err)
	require.Empty(t, got.UUIDs)
}
