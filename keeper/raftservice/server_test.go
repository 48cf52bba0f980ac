package raftservice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/keeper/grpcapi"
	"github.com/latticedb/lattice/keeper/raftservice"
	"github.com/latticedb/lattice/keeper/statemachine"
)

func TestServerRequestCreateThenGet(t *testing.T) {
	n := bootstrapSingleNode(t)
	defer n.Shutdown()

	srv := raftservice.NewServer(n, raftservice.NewNotifier(), nil)
	ctx := context.Background()

	createResp, err := srv.Request(ctx, &grpcapi.OpRequest{Xid: 1, Op: "create", Path: "/a", Data: []byte("v1")})
	require.NoError(t, err)
	require.Equal(t, int32(0), createResp.ErrCode)
	require.Equal(t, "/a", createResp.Path)

	getResp, err := srv.Request(ctx, &grpcapi.OpRequest{Xid: 2, Op: "get", Path: "/a"})
	require.NoError(t, err)
	require.Equal(t, int32(0), getResp.ErrCode)
	require.Equal(t, []byte("v1"), getResp.Data)
}

func TestServerRequestGetMissingPathReturnsErrCode(t *testing.T) {
	n := bootstrapSingleNode(t)
	defer n.Shutdown()

	srv := raftservice.NewServer(n, raftservice.NewNotifier(), nil)
	resp, err := srv.Request(context.Background(), &grpcapi.OpRequest{Xid: 1, Op: "get", Path: "/missing"})
	require.NoError(t, err)
	require.NotEqual(t, int32(0), resp.ErrCode)
}

func TestServerRequestUnknownWriteOpIsRuntimeInconsistency(t *testing.T) {
	n := bootstrapSingleNode(t)
	defer n.Shutdown()

	srv := raftservice.NewServer(n, raftservice.NewNotifier(), nil)
	resp, err := srv.Request(context.Background(), &grpcapi.OpRequest{Xid: 1, Op: "bogus_op", Path: "/a"})
	require.NoError(t, err)
	require.NotEqual(t, int32(0), resp.ErrCode)
}

// TestServerRequestForwardsWithoutLeader exercises the non-leader write
// path directly: a node that was never elected (cluster never
// bootstrapped) stays a Follower forever, so any write must go through
// Server.forward, which fails with NotLeaderError when no dialer was
// configured.
func TestServerRequestForwardsWithoutLeader(t *testing.T) {
	dir := t.TempDir()
	addr := freeAddr(t)

	n, err := raftservice.Bootstrap(raftservice.Config{
		NodeID:                  "lonely",
		DataDir:                 dir,
		RaftBindAddr:            addr,
		SnapshotContainerBlocks: 4,
	}, statemachine.New())
	require.NoError(t, err)
	defer n.Shutdown()

	srv := raftservice.NewServer(n, raftservice.NewNotifier(), nil)
	_, err = srv.Request(context.Background(), &grpcapi.OpRequest{Xid: 1, Op: "create", Path: "/a", Data: []byte("v")})
	require.Error(t, err)
}
