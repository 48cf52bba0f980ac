package grpcapi

import "github.com/latticedb/lattice/keeper/statemachine"

// OpRequest is one client operation, addressed the same way
// keeper/zkwire's RequestHeader addresses a ZK wire request (an op
// code plus a per-connection xid), so a gateway translating between
// the legacy ZK wire protocol and this gRPC surface only has to copy
// fields across, not reinterpret them.
type OpRequest struct {
	Xid       int32               `json:"xid"`
	SessionID int64               `json:"session_id"`
	Op        string              `json:"op"`
	Path      string              `json:"path"`
	Data      []byte              `json:"data,omitempty"`
	ACLs      []statemachine.ACL  `json:"acls,omitempty"`
	Ephemeral bool                `json:"ephemeral,omitempty"`
	Sequential bool               `json:"sequential,omitempty"`
	Version   int32               `json:"version,omitempty"`
	Watch     bool                `json:"watch,omitempty"`
	MultiOps  []statemachine.MultiOp `json:"multi_ops,omitempty"`
}

// OpResponse mirrors zkwire.ResponseHeader's (xid, zxid, err) shape.
type OpResponse struct {
	Xid          int32                      `json:"xid"`
	Zxid         int64                      `json:"zxid"`
	ErrCode      int32                      `json:"err_code"`
	Path         string                     `json:"path,omitempty"`
	Data         []byte                     `json:"data,omitempty"`
	Stat         statemachine.Stat          `json:"stat"`
	Children     []string                   `json:"children,omitempty"`
	ACLs         []statemachine.ACL         `json:"acls,omitempty"`
	SessionID    int64                      `json:"session_id,omitempty"`
	MultiResults []statemachine.MultiResult `json:"multi_results,omitempty"`
}

// WatchRequest opens a notification stream for one session; the
// server pushes a WatchEvent for every fired watch belonging to that
// session until the stream is canceled.
type WatchRequest struct {
	SessionID int64 `json:"session_id"`
}

type WatchEvent struct {
	Type statemachine.EventType `json:"type"`
	Path string                 `json:"path"`
	Zxid int64                  `json:"zxid"`
}

// ForwardRequest is what a non-leader server sends the current leader
// when it receives a write it cannot itself commit.
type ForwardRequest struct {
	Request OpRequest `json:"request"`
}

type ForwardResponse struct {
	Response OpResponse `json:"response"`
}
