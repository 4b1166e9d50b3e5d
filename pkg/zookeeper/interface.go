package zookeeper

type Zookeeper interface {
	// Create creates a ZNode with path name path, stores data in it, and returns the name of the new ZNode
	// Flags can also be passed to pick certain attributes you want the ZNode to have.
	Create(req *CreateReq, resp *CreateResp) error
	// Delete deletes the ZNode at the given path if that ZNode is at the expected version.
	Delete(req *DeleteReq, resp *DeleteResp) error
	// Exists returns true if the ZNode with path name path exists, and returns false otherwise. The watch flag
	// is carried in the request, but pkg/server does not act on it: no watch is set.
	Exists(req *ExistsReq, resp *ExistsResp) error
	// GetData returns the data and metadata, such as version information, associated with the ZNode.
	// As with Exists, pkg/server ignores the watch flag.
	GetData(req *GetDataReq, resp *GetDataResp) error
	// SetData writes data to the ZNode path if the version number is the current version of the ZNode.
	SetData(req *SetDataReq, resp *SetDataResp) error
	// GetChildren returns the set of names of the children of a ZNode.
	GetChildren(req *GetChildrenReq, resp *GetChildrenResp) error
	// Sync is part of the ZooKeeper surface; pkg/server does not implement it and always returns a
	// "not implemented" error.
	Sync(req *SyncReq, resp *SyncResp) error
}
