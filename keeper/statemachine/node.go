// Package statemachine implements the ZooKeeper-compatible
// hierarchical key/value store: the node tree, watch tables, session
// lifecycle, zxid assignment, and snapshot object layout. Every
// exported operation here is meant to be invoked only from inside a
// Raft-committed log entry application (see keeper/raftservice): one
// in-memory tree guarded by a single mutex, mutated only through a
// narrow apply surface, with a periodic consistent snapshot.
package statemachine

import "github.com/latticedb/lattice/keeper/zkerr"

// Stat mirrors ZooKeeper's Stat structure: the metadata every node
// carries alongside its data.
type Stat struct {
	Czxid          int64
	Mzxid          int64
	Ctime          int64
	Mtime          int64
	Version        int32
	Cversion       int32
	Aversion       int32
	EphemeralOwner int64
	DataLength     int32
	NumChildren    int32
	Pzxid          int64
}

// Node is one entry in the hierarchical store.
type Node struct {
	Path     string
	Data     []byte
	ACLID    int64
	Stat     Stat
	Children map[string]struct{}
}

func newNode(path string, data []byte, aclID int64, stat Stat) *Node {
	return &Node{Path: path, Data: append([]byte(nil), data...), ACLID: aclID, Stat: stat, Children: map[string]struct{}{}}
}

func (n *Node) childNames() []string {
	names := make([]string, 0, len(n.Children))
	for c := range n.Children {
		names = append(names, c)
	}
	return names
}

// IsEphemeral reports whether this node has a live ephemeral owner.
func (n *Node) IsEphemeral() bool { return n.Stat.EphemeralOwner != 0 }

func parentPath(path string) string {
	if path == "/" {
		return "/"
	}
	i := lastSlash(path)
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

func baseName(path string) string {
	if path == "/" {
		return ""
	}
	i := lastSlash(path)
	return path[i+1:]
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

func errCode(code int32, format string) error {
	return zkerr.New(code, format)
}
