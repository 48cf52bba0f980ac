package raftservice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/raft"

	"github.com/latticedb/lattice/keeper/grpcapi"
	"github.com/latticedb/lattice/keeper/statemachine"
	"github.com/latticedb/lattice/keeper/zkerr"
)

// LeaderDialer resolves the grpc.ForwardClient to use for the current
// Raft leader, given the raft transport address raft.Raft.Leader()
// reports. Kept as an injected function rather than a fixed address
// map so cmd/keeper can decide how raft addresses map to gRPC listen
// addresses (in the simplest deployment, the same host with a fixed
// port offset).
type LeaderDialer func(leaderRaftAddr raft.ServerAddress) (grpcapi.ForwardClient, error)

// Server implements grpcapi.ClientServer and grpcapi.ForwardServer over
// one Node, applying writes through Raft when this node is the leader
// and forwarding them otherwise.
type Server struct {
	node     *Node
	notifier *Notifier
	dialer   LeaderDialer
	applyTimeout time.Duration
}

func NewServer(node *Node, notifier *Notifier, dialer LeaderDialer) *Server {
	return &Server{node: node, notifier: notifier, dialer: dialer, applyTimeout: 5 * time.Second}
}

// Request implements grpcapi.ClientServer. Read-only ops are served
// directly against the local state machine (stale-read tolerant,
// exactly as a ZooKeeper follower serves reads without round-tripping
// through Raft); writes are proposed through Raft when this node is
// the leader, or forwarded to whoever is.
func (s *Server) Request(ctx context.Context, req *grpcapi.OpRequest) (*grpcapi.OpResponse, error) {
	if isReadOnly(req.Op) {
		return s.serveRead(req)
	}

	if s.node.Raft.State() != raft.Leader {
		return s.forward(ctx, req)
	}
	return s.applyWrite(req)
}

func isReadOnly(op string) bool {
	switch op {
	case "exists", "get", "list", "get_acl", "check":
		return true
	default:
		return false
	}
}

func (s *Server) serveRead(req *grpcapi.OpRequest) (*grpcapi.OpResponse, error) {
	sm := s.node.SM
	resp := &grpcapi.OpResponse{Xid: req.Xid, Zxid: sm.Zxid()}

	switch req.Op {
	case "exists":
		stat, _, err := sm.Exists(req.Path, req.SessionID, req.Watch)
		if err != nil {
			resp.ErrCode = zkerr.CodeOf(err)
			return resp, nil
		}
		resp.Stat = stat
	case "get":
		data, stat, err := sm.Get(req.Path, req.SessionID, req.Watch)
		if err != nil {
			resp.ErrCode = zkerr.CodeOf(err)
			return resp, nil
		}
		resp.Data, resp.Stat = data, stat
	case "list":
		children, stat, err := sm.List(req.Path, req.SessionID, req.Watch)
		if err != nil {
			resp.ErrCode = zkerr.CodeOf(err)
			return resp, nil
		}
		resp.Children, resp.Stat = children, stat
	case "get_acl":
		acls, stat, err := sm.GetACL(req.Path)
		if err != nil {
			resp.ErrCode = zkerr.CodeOf(err)
			return resp, nil
		}
		resp.ACLs, resp.Stat = acls, stat
	case "check":
		if err := sm.Check(req.Path, req.Version); err != nil {
			resp.ErrCode = zkerr.CodeOf(err)
		}
	default:
		resp.ErrCode = zkerr.ZRUNTIMEINCONSISTENCY
	}
	return resp, nil
}

func (s *Server) forward(ctx context.Context, req *grpcapi.OpRequest) (*grpcapi.OpResponse, error) {
	if s.dialer == nil {
		return nil, grpcapi.NotLeaderError("")
	}
	leaderAddr := s.node.Raft.Leader()
	if leaderAddr == "" {
		return nil, grpcapi.NotLeaderError("")
	}
	client, err := s.dialer(leaderAddr)
	if err != nil {
		return nil, grpcapi.NotLeaderError(string(leaderAddr))
	}
	resp, err := client.Forward(ctx, &grpcapi.ForwardRequest{Request: *req})
	if err != nil {
		return nil, err
	}
	return &resp.Response, nil
}

// Forward implements grpcapi.ForwardServer: only ever called on the
// leader, on behalf of a peer that received a write it couldn't commit
// itself.
func (s *Server) Forward(ctx context.Context, req *grpcapi.ForwardRequest) (*grpcapi.ForwardResponse, error) {
	if s.node.Raft.State() != raft.Leader {
		return nil, grpcapi.NotLeaderError(string(s.node.Raft.Leader()))
	}
	resp, err := s.applyWrite(&req.Request)
	if err != nil {
		return nil, err
	}
	return &grpcapi.ForwardResponse{Response: *resp}, nil
}

func (s *Server) applyWrite(req *grpcapi.OpRequest) (*grpcapi.OpResponse, error) {
	entry := LogEntry{SessionID: req.SessionID, CreateTime: time.Now()}
	var body any

	switch req.Op {
	case "create":
		entry.Kind = EntryCreate
		body = createRequest{Path: req.Path, Data: req.Data, ACLs: req.ACLs, Ephemeral: req.Ephemeral, Sequential: req.Sequential}
	case "delete":
		entry.Kind = EntryRemove
		body = struct {
			Path            string `json:"path"`
			ExpectedVersion int32  `json:"expected_version"`
		}{req.Path, req.Version}
	case "set_data":
		entry.Kind = EntrySet
		body = struct {
			Path            string `json:"path"`
			Data            []byte `json:"data"`
			ExpectedVersion int32  `json:"expected_version"`
		}{req.Path, req.Data, req.Version}
	case "multi":
		entry.Kind = EntryMulti
		body = struct {
			Ops []statemachine.MultiOp `json:"ops"`
		}{req.MultiOps}
	case "set_acl":
		entry.Kind = EntrySetACL
		body = struct {
			Path            string             `json:"path"`
			ACLs            []statemachine.ACL `json:"acls"`
			ExpectedVersion int32              `json:"expected_version"`
		}{req.Path, req.ACLs, req.Version}
	case "sync":
		entry.Kind = EntrySync
		body = struct {
			Path string `json:"path"`
		}{req.Path}
	default:
		return &grpcapi.OpResponse{Xid: req.Xid, ErrCode: zkerr.ZRUNTIMEINCONSISTENCY}, nil
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("raftservice: encoding request body: %w", err)
	}
	entry.Body = encoded

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("raftservice: encoding log entry: %w", err)
	}

	future := s.node.Raft.Apply(data, s.applyTimeout)
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("raftservice: applying write: %w", err)
	}
	result := future.Response().(*ApplyResult)
	s.notifier.Publish(result.Notifications)

	return &grpcapi.OpResponse{
		Xid: req.Xid, Zxid: s.node.SM.Zxid(), ErrCode: result.ErrCode,
		Path: result.Path, Stat: result.Stat, Data: result.Data,
		Children: result.Children, ACLs: result.ACLs,
		SessionID: result.SessionID, MultiResults: result.MultiResults,
	}, nil
}

// Watch implements grpcapi.ClientServer's server-streamed watch feed.
func (s *Server) Watch(req *grpcapi.WatchRequest, stream grpcapi.WatchStreamServer) error {
	ch, cancel := s.notifier.Subscribe(req.SessionID)
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case note := <-ch:
			evt := &grpcapi.WatchEvent{Type: note.Event.Type, Path: note.Event.Path, Zxid: s.node.SM.Zxid()}
			if err := stream.Send(evt); err != nil {
				return err
			}
		}
	}
}
