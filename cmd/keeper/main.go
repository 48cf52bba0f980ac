// Command keeper runs one node of a Raft-backed, ZooKeeper-compatible
// coordination cluster: the client-facing request/watch RPC surface
// plus the internal leader-forwarding channel, both served over a
// single grpc.Server per keeper/grpcapi.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/raft"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/latticedb/lattice/internal/config"
	"github.com/latticedb/lattice/internal/logutil"
	"github.com/latticedb/lattice/keeper/grpcapi"
	"github.com/latticedb/lattice/keeper/raftservice"
	"github.com/latticedb/lattice/keeper/statemachine"
)

func main() {
	app := &cli.App{
		Name:  "keeper",
		Usage: "run a Raft-backed coordination service node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a LATTICE_CONFIG TOML file"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}

	if err := logutil.Init(formatFor(cfg.Logging.Format), cfg.Logging.Debug); err != nil {
		return err
	}
	defer logutil.Sync()
	log := logutil.Named("cmd.keeper")

	sm := statemachine.New()
	node, err := raftservice.Bootstrap(raftservice.Config{
		NodeID:                  cfg.Keeper.NodeID,
		DataDir:                 cfg.Keeper.DataDir,
		RaftBindAddr:            cfg.Keeper.RaftListenAddr,
		Peers:                   cfg.Keeper.Peers,
		SnapshotContainerBlocks: cfg.Keeper.SnapshotContainerBlocks,
		FsyncParallel:           cfg.Keeper.FsyncParallel,
	}, sm)
	if err != nil {
		return fmt.Errorf("cmd/keeper: bootstrapping node: %w", err)
	}

	notifier := raftservice.NewNotifier()
	server := raftservice.NewServer(node, notifier, dialForward)

	grpcServer := grpc.NewServer()
	grpcapi.RegisterClientServer(grpcServer, server)
	grpcapi.RegisterForwardServer(grpcServer, server)

	lis, err := net.Listen("tcp", cfg.Keeper.ClientListenAddr)
	if err != nil {
		return fmt.Errorf("cmd/keeper: listening on %s: %w", cfg.Keeper.ClientListenAddr, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := raftservice.NewExpiryChecker(node, time.Second)
	go func() {
		if err := checker.Run(runCtx); err != nil && runCtx.Err() == nil {
			log.Errorw("expiry checker stopped", "error", err)
		}
	}()

	go func() {
		log.Infow("serving client rpc", "addr", cfg.Keeper.ClientListenAddr, "node_id", cfg.Keeper.NodeID)
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorw("grpc server stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infow("shutting down")
	cancel()
	grpcServer.GracefulStop()
	return node.Shutdown()
}

func formatFor(s string) logutil.Format {
	if s == "json" {
		return logutil.FormatJSON
	}
	return logutil.FormatConsole
}

// dialForward maps a raft transport address to its gRPC forwarding
// client. This build colocates both on the same listener per node, so
// the raft address (host:raftPort) is itself the dial target — a real
// multi-listener deployment would instead look the peer's gRPC address
// up from cluster configuration.
func dialForward(leaderRaftAddr raft.ServerAddress) (grpcapi.ForwardClient, error) {
	cc, err := grpc.NewClient(string(leaderRaftAddr), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return grpcapi.NewForwardClient(cc), nil
}
