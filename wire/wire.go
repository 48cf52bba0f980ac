// Package wire implements the client database protocol: a
// length-prefixed framed message format carrying the packet kinds
// (Hello, Query, Data, Exception, Progress, Pong, EndOfStream,
// ProfileInfo, Totals, Extremes, PartUUIDs). Deliberately stdlib-only —
// this is a literal external wire format client drivers must
// interoperate with, the same reasoning that keeps keeper/zkwire off
// any general-purpose serialization library.
package wire

// PacketKind is the one-byte tag that precedes every frame's payload.
type PacketKind uint8

const (
	PacketHello PacketKind = iota
	PacketQuery
	PacketData
	PacketException
	PacketProgress
	PacketPong
	PacketEndOfStream
	PacketProfileInfo
	PacketTotals
	PacketExtremes
	PacketPartUUIDs
)

// ProtocolVersion is this build's client protocol revision, exchanged
// during the Hello handshake so either side can adapt to the older of
// the two.
const ProtocolVersion uint64 = 1

// HelloRequest is the client's handshake packet.
type HelloRequest struct {
	ClientName           string
	ClientVersionMajor    uint64
	ClientVersionMinor    uint64
	ClientVersionPatch    uint64
	ProtocolVersion       uint64
	Database              string
	User                  string
	Password              string
}

// HelloResponse is the server's handshake reply.
type HelloResponse struct {
	ServerName     string
	VersionMajor   uint64
	VersionMinor   uint64
	VersionPatch   uint64
	Revision       uint64
	Timezone       string
}

// QueryRequest starts a query; Settings carries session-scoped
// overrides (e.g. max_threads) the way the source's query settings
// packet does.
type QueryRequest struct {
	QueryID  string
	Query    string
	Settings map[string]string
}

// Progress reports incremental read progress during query execution.
type Progress struct {
	ReadRows        uint64
	ReadBytes       uint64
	TotalRowsToRead uint64
}

// Exception is the server's typed-error packet; Code mirrors
// lattice/errs's numeric Code field so a client can distinguish error
// classes without parsing Message.
type Exception struct {
	Code       int32
	Name       string
	Message    string
	StackTrace string
}

// ProfileInfo reports post-execution statistics, sent once after the
// last Data packet of a result set.
type ProfileInfo struct {
	Rows                  uint64
	Blocks                uint64
	Bytes                 uint64
	AppliedLimit          bool
	RowsBeforeLimit       uint64
}

// PartUUIDs reports the MergeTree part UUIDs a query actually read,
// used by the source for cross-replica query deduplication.
type PartUUIDs struct {
	UUIDs []string
}
