// Package znode is the example replicated key-tree state machine this
// module's statemachine.Executor drives in tests and cmd/raftsessiond. It
// exists to give the session/executor/transport stack something concrete
// to apply commands and queries against, backing a small Zookeeper-shaped
// RPC surface with plain command structs instead of protobuf transactions.
package znode

import "strings"

type ZNodeType int

const (
	ZNodeType_STANDARD ZNodeType = iota
	ZNodeType_EPHEMERAL
)

// ZNode is one node in the tree: a name, a version that increments on every
// write, a data payload, and its children. Owner is the session ID that
// created it; only meaningful for ZNodeType_EPHEMERAL nodes, which are
// removed once their owning session closes.
type ZNode struct {
	Name               string
	Version            int64
	Children           map[string]*ZNode
	NodeType           ZNodeType
	NextSequentialNode int
	Data               []byte
	Owner              uint64
}

func NewZNode(name string, nodeType ZNodeType, data []byte) *ZNode {
	return &ZNode{
		Name:     name,
		Children: map[string]*ZNode{},
		NodeType: nodeType,
		Data:     data,
	}
}

func splitPathIntoNodeNames(path string) []string {
	// Since we have a leading /, the first name is expected to be empty.
	return strings.Split(path, "/")[1:]
}

func newFullName(nodeName string, ancestorsNames []string) string {
	nodePath := "/" + nodeName
	if len(ancestorsNames) > 0 {
		return "/" + strings.Join(ancestorsNames, "/") + nodePath
	}
	return nodePath
}
