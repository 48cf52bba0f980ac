// Package zkerr holds the ZooKeeper-compatible Error enum, kept as a
// separate numbering space from lattice/errs's database error codes:
// the two are deliberately incompatible namespaces (one is the dense
// columnar-engine i32 space, the other is ZooKeeper's own small
// negative Error enum).
package zkerr

import "fmt"

// Error is a ZooKeeper-style error: a negative Code plus a message.
type Error struct {
	Code    int32
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("zk(%d): %s", e.Code, e.Message) }

// New builds a *Error carrying code.
func New(code int32, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ZooKeeper code from err, defaulting to
// ZRUNTIMEINCONSISTENCY for any error that isn't a *Error: unknown
// failures surface as the generic runtime-inconsistency code, the
// same convention Multi rollback relies on.
func CodeOf(err error) int32 {
	if err == nil {
		return ZOK
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ZRUNTIMEINCONSISTENCY
}

// The ZooKeeper Error enum (negative by convention; ZOK is success).
const (
	ZOK                   int32 = 0
	ZRUNTIMEINCONSISTENCY int32 = -2
	ZCONNECTIONLOSS       int32 = -4
	ZMARSHALLINGERROR     int32 = -5
	ZOPERATIONTIMEOUT     int32 = -7
	ZNOAUTH               int32 = -102
	ZNONODE               int32 = -101
	ZBADVERSION           int32 = -103
	ZNODEEXISTS           int32 = -110
	ZNOTEMPTY             int32 = -111
	ZSESSIONEXPIRED       int32 = -112
	ZAUTHFAILED           int32 = -115
)
