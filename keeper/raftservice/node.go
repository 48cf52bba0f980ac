package raftservice

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"

	"github.com/latticedb/lattice/internal/logutil"
	"github.com/latticedb/lattice/keeper/statemachine"
)

// Config bundles the parameters node bootstrap needs beyond what
// internal/config.KeeperConfig exposes directly, so this package stays
// free of a dependency on the config package itself.
type Config struct {
	NodeID                  string
	DataDir                 string
	RaftBindAddr            string
	Peers                   []string // other nodeID@address pairs for initial bootstrap
	SnapshotContainerBlocks int
	FsyncParallel           bool
}

// Node owns one Keeper cluster member: the statemachine, the raft.Raft
// instance wrapping it, and the stores raft.Raft was built from.
type Node struct {
	Raft  *raft.Raft
	FSM   *FSM
	SM    *statemachine.StateMachine
	store *raftboltdb.BoltStore
}

// Bootstrap constructs a raft.Raft instance over a fresh or restored
// keeper/statemachine.StateMachine, using raft-boltdb/v2 as the
// log/stable store (the same BoltDB-backed durability pairing
// cuemby-warren uses for its own cluster store) and ObjectSnapshotStore
// as the snapshot store.
//
// If peers is non-empty and no existing raft state is found on disk,
// the cluster is bootstrapped with NodeID plus peers as voters — this
// must only be done once, from exactly one node, per hashicorp/raft's
// own bootstrap contract.
func Bootstrap(cfg Config, sm *statemachine.StateMachine) (*Node, error) {
	log := logutil.Named("raftservice")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("raftservice: creating data dir: %w", err)
	}

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(cfg.NodeID)
	raftConfig.LogLevel = "WARN"

	// cfg.FsyncParallel (the FSYNC_PARALLEL knob) is not read here or
	// anywhere else: raft-boltdb fsyncs on every commit whatever its
	// value.
	boltPath := filepath.Join(cfg.DataDir, "raft-log.boltdb")
	store, err := raftboltdb.NewBoltStore(boltPath)
	if err != nil {
		return nil, fmt.Errorf("raftservice: opening raft-boltdb: %w", err)
	}

	snaps := NewObjectSnapshotStore(filepath.Join(cfg.DataDir, "snapshots"), cfg.SnapshotContainerBlocks)

	addr, err := net.ResolveTCPAddr("tcp", cfg.RaftBindAddr)
	if err != nil {
		return nil, fmt.Errorf("raftservice: resolving raft bind addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.RaftBindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("raftservice: creating raft transport: %w", err)
	}

	fsm := NewFSM(sm)
	r, err := raft.NewRaft(raftConfig, fsm, store, store, snaps, transport)
	if err != nil {
		return nil, fmt.Errorf("raftservice: starting raft: %w", err)
	}

	hasState, err := raft.HasExistingState(store, store, snaps)
	if err != nil {
		return nil, fmt.Errorf("raftservice: checking existing state: %w", err)
	}
	if !hasState && len(cfg.Peers) > 0 {
		servers := []raft.Server{{ID: raftConfig.LocalID, Address: transport.LocalAddr()}}
		for _, peer := range cfg.Peers {
			id, address, ok := splitPeer(peer)
			if !ok {
				continue
			}
			servers = append(servers, raft.Server{ID: raft.ServerID(id), Address: raft.ServerAddress(address)})
		}
		future := r.BootstrapCluster(raft.Configuration{Servers: servers})
		if err := future.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, fmt.Errorf("raftservice: bootstrapping cluster: %w", err)
		}
		log.Infow("bootstrapped cluster", "voters", len(servers))
	}

	return &Node{Raft: r, FSM: fsm, SM: sm, store: store}, nil
}

// AddVoter proposes adding a new voting server, per the configuration-
// change flow: the caller is expected to retry with exponential
// backoff while the leader catches the new server's log up.
func (n *Node) AddVoter(id, address string) error {
	if n.Raft.State() != raft.Leader {
		return fmt.Errorf("raftservice: AddVoter called on non-leader")
	}
	future := n.Raft.AddVoter(raft.ServerID(id), raft.ServerAddress(address), 0, 10*time.Second)
	return future.Error()
}

// RemoveServer yields leadership first if the server being removed is
// the current leader, so the cluster isn't left leaderless mid-removal.
func (n *Node) RemoveServer(id string) error {
	if n.Raft.State() != raft.Leader {
		return fmt.Errorf("raftservice: RemoveServer called on non-leader")
	}
	if _, leaderID := n.Raft.LeaderWithID(); string(leaderID) == id {
		if err := n.Raft.LeadershipTransfer().Error(); err != nil {
			return fmt.Errorf("raftservice: transferring leadership before removal: %w", err)
		}
	}
	future := n.Raft.RemoveServer(raft.ServerID(id), 0, 10*time.Second)
	return future.Error()
}

func (n *Node) Shutdown() error {
	if err := n.Raft.Shutdown().Error(); err != nil {
		return err
	}
	return n.store.Close()
}

func splitPeer(peer string) (id, address string, ok bool) {
	for i := 0; i < len(peer); i++ {
		if peer[i] == '@' {
			return peer[:i], peer[i+1:], true
		}
	}
	return "", "", false
}
