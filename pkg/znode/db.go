package znode

import (
	"fmt"
)

// CreateCommand creates a node at Path holding Data. Sequential appends a
// monotonically increasing suffix to the final path segment; Ephemeral
// marks the new node as disallowed from having children and owned by
// Owner, the creating session's ID, so it can be swept on session close.
type CreateCommand struct {
	Path       string
	Data       []byte
	Sequential bool
	Ephemeral  bool
	Owner      uint64
}

// DeleteCommand removes the node at Path.
type DeleteCommand struct {
	Path string
}

// SetDataCommand overwrites the data stored at Path.
type SetDataCommand struct {
	Path string
	Data []byte
}

// DeleteEphemeralCommand sweeps every ephemeral node owned by Owner,
// logged as its own entry when a session closes.
type DeleteEphemeralCommand struct {
	Owner uint64
}

// DB is the source of truth for the example state machine's key tree. Like
// pkg/session, it carries no internal locking: callers (in practice,
// statemachine.Executor) are expected to serialize every call onto one
// goroutine, the same single-threaded apply discipline the session package
// itself assumes.
type DB struct {
	root *ZNode
}

func NewDB() *DB {
	return &DB{
		root: NewZNode("", ZNodeType_STANDARD, nil),
	}
}

// Get returns the node at path, or nil if it (or an ancestor) is missing.
func (d *DB) Get(path string) *ZNode {
	names := splitPathIntoNodeNames(path)
	return findZNode(d.root, names)
}

func findZNode(start *ZNode, names []string) *ZNode {
	node := start
	for _, name := range names {
		if name == "" {
			continue
		}
		z, ok := node.Children[name]
		if !ok {
			return nil
		}
		node = z
	}
	return node
}

// Create applies cmd, returning the newly created node.
func (d *DB) Create(cmd *CreateCommand) (*ZNode, error) {
	names := splitPathIntoNodeNames(cmd.Path)

	parent := findZNode(d.root, names[:len(names)-1])
	if parent == nil {
		return nil, fmt.Errorf("at least one ancestor of this node is missing")
	}
	if parent.NodeType == ZNodeType_EPHEMERAL {
		return nil, fmt.Errorf("ephemeral nodes cannot have children")
	}

	newName := names[len(names)-1]
	if cmd.Sequential {
		newName = fmt.Sprintf("%s_%d", newName, parent.NextSequentialNode)
	}
	if _, ok := parent.Children[newName]; ok {
		return nil, fmt.Errorf("node [%s] already exists at path [%s]", newName, cmd.Path)
	}

	nodeType := ZNodeType_STANDARD
	if cmd.Ephemeral {
		nodeType = ZNodeType_EPHEMERAL
	}

	fullName := newFullName(newName, names[:len(names)-1])
	newNode := NewZNode(fullName, nodeType, cmd.Data)
	newNode.Owner = cmd.Owner

	parent.Children[newName] = newNode
	if cmd.Sequential {
		parent.NextSequentialNode++
	}
	return newNode, nil
}

// Delete applies cmd, removing the node at its path if present.
func (d *DB) Delete(cmd *DeleteCommand) error {
	names := splitPathIntoNodeNames(cmd.Path)

	parent := findZNode(d.root, names[:len(names)-1])
	if parent == nil {
		return fmt.Errorf("at least one ancestor of this node is missing")
	}

	nameToDelete := names[len(names)-1]
	delete(parent.Children, nameToDelete)
	return nil
}

// SetData applies cmd, overwriting the data at its path and bumping the
// node's version.
func (d *DB) SetData(cmd *SetDataCommand) (*ZNode, error) {
	node := d.Get(cmd.Path)
	if node == nil {
		return nil, fmt.Errorf("no node exists at path [%s]", cmd.Path)
	}
	node.Data = cmd.Data
	node.Version++
	return node, nil
}

// GetChildren returns the names of path's immediate children.
func (d *DB) GetChildren(path string) ([]string, error) {
	node := d.Get(path)
	if node == nil {
		return nil, fmt.Errorf("no node exists at path [%s]", path)
	}
	children := make([]string, 0, len(node.Children))
	for name := range node.Children {
		children = append(children, name)
	}
	return children, nil
}

// Exists reports whether a node is present at path.
func (d *DB) Exists(path string) bool {
	return d.Get(path) != nil
}

// DeleteEphemeralOwnedBy removes every ephemeral node owned by owner,
// applied when that owner's session closes.
func (d *DB) DeleteEphemeralOwnedBy(owner uint64) {
	deleteEphemeralOwnedBy(d.root, owner)
}

func deleteEphemeralOwnedBy(node *ZNode, owner uint64) {
	for name, child := range node.Children {
		if child.NodeType == ZNodeType_EPHEMERAL && child.Owner == owner {
			delete(node.Children, name)
			continue
		}
		deleteEphemeralOwnedBy(child, owner)
	}
}
