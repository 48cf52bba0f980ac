// Package zkwire implements the ZooKeeper 3.x compatible client wire
// protocol: length-prefixed frames, an (xid int32, OpNum int32) header
// on every request and most responses, and the fixed watch-notification
// layout. This is a deliberately hand-rolled, standard-library-only
// framer rather than a generic RPC codec: the exact byte layout real
// ZooKeeper clients already speak is pinned, the same reasoning the
// client database wire protocol in package wire follows for its own
// pinned format.
package zkwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// OpNum identifies a Keeper request/response per the ZooKeeper wire
// protocol's operation numbering.
type OpNum int32

const (
	OpNotify     OpNum = 0
	OpCreate     OpNum = 1
	OpDelete     OpNum = 2
	OpExists     OpNum = 3
	OpGetData    OpNum = 4
	OpSetData    OpNum = 5
	OpGetACL     OpNum = 6
	OpSetACL     OpNum = 7
	OpGetChildren OpNum = 8
	OpSync       OpNum = 9
	OpPing       OpNum = 11
	OpGetChildren2 OpNum = 12
	OpCheck      OpNum = 13
	OpMulti      OpNum = 14
	OpAuth       OpNum = 100
	OpSetWatches OpNum = 101
	OpSASL       OpNum = 102
	OpCreateSession OpNum = -10
	OpCloseSession  OpNum = -11
)

// WatchEventType mirrors the wire-level watch event type codes.
type WatchEventType int32

const (
	EventNodeCreated WatchEventType = 1
	EventNodeDeleted WatchEventType = 2
	EventNodeDataChanged WatchEventType = 3
	EventNodeChildrenChanged WatchEventType = 4
)

// KeeperState mirrors the wire-level "state" field carried on every
// watch notification.
type KeeperState int32

const (
	StateDisconnected KeeperState = 0
	StateConnected    KeeperState = 3
	StateExpired      KeeperState = -112
)

// NotificationXid and NotificationZxid are the fixed sentinel values a
// watch-fired frame's header carries instead of a real request xid/zxid.
const (
	NotificationXid  int32 = -1
	NotificationZxid int64 = -1
)

// RequestHeader is the fixed 8-byte header on every client request.
type RequestHeader struct {
	Xid   int32
	OpNum OpNum
}

// ResponseHeader is the fixed header on every non-notification
// response: xid echoes the request, Zxid is the store's zxid as of
// this response, Err is a zkerr code (0 = ZOK).
type ResponseHeader struct {
	Xid  int32
	Zxid int64
	Err  int32
}

// WriteFrame writes a length-prefixed frame: a big-endian i32 byte
// count followed by payload, matching ZooKeeper's own framing (every
// frame on the wire is length-prefixed, the payload encoding is
// whatever the caller already serialized).
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame, rejecting frames larger
// than maxLen to bound a single malicious or corrupt length prefix.
func ReadFrame(r io.Reader, maxLen int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(lenBuf[:]))
	if n < 0 || n > maxLen {
		return nil, fmt.Errorf("zkwire: frame length %d out of bounds (max %d)", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteRequestHeader serializes the fixed request header.
func WriteRequestHeader(w *Writer, h RequestHeader) {
	w.WriteInt32(h.Xid)
	w.WriteInt32(int32(h.OpNum))
}

// WriteResponseHeader serializes the fixed response header.
func WriteResponseHeader(w *Writer, h ResponseHeader) {
	w.WriteInt32(h.Xid)
	w.WriteInt64(h.Zxid)
	w.WriteInt32(h.Err)
}

// ReadRequestHeader deserializes the fixed request header.
func ReadRequestHeader(r *Reader) (RequestHeader, error) {
	xid, err := r.ReadInt32()
	if err != nil {
		return RequestHeader{}, err
	}
	op, err := r.ReadInt32()
	if err != nil {
		return RequestHeader{}, err
	}
	return RequestHeader{Xid: xid, OpNum: OpNum(op)}, nil
}
