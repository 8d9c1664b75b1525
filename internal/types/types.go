// Package types holds the scalar and sentinel types shared across the
// coordinator, query node and index packages.
package types

// VectorId identifies a raw vector in the original corpus.
type VectorId = uint32

// ClusterId identifies a coarse cluster, in [0, kc).
type ClusterId = uint32

// NodeId identifies a query node on the wire. Two values are reserved
// sentinels; see NullNode and GlobalNode.
type NodeId = uint8

// HistoryScore accumulates popularity counts across the coordinator's
// lifetime, until ClearHistory resets it.
type HistoryScore = uint64

const (
	// MaxClusterNum bounds kc for any index.
	MaxClusterNum = 10000
	// MaxQueryNodeNum bounds the size of a coordinator's node fleet.
	MaxQueryNodeNum = 100
	// NullNode is the wire encoding of "cluster not yet assigned".
	NullNode NodeId = 101
	// GlobalNode is the wire encoding of "cluster pinned to the coordinator's cache".
	GlobalNode NodeId = 102
	// ProductCentroidCount is kp, fixed so a PQ code fits in one byte.
	ProductCentroidCount = 256
)

// assignmentKind distinguishes the three cases of Assignment without
// relying on reserved numeric NodeId values internally.
type assignmentKind uint8

const (
	kindUnassigned assignmentKind = iota
	kindNode
	kindGlobalCache
)

// Assignment is the tagged-variant replacement for the NULL_NODE/GLOBAL_NODE
// sentinel pair: a cluster is either unassigned, owned by a specific node
// index, or pinned to the coordinator's global cache. The numeric sentinels
// only exist at the RPC wire boundary (see NodeId above and ToWire/FromWire).
type Assignment struct {
	kind assignmentKind
	node int
}

// Unassigned returns the zero assignment.
func Unassigned() Assignment { return Assignment{kind: kindUnassigned} }

// AssignedNode returns an assignment naming a specific node index.
func AssignedNode(i int) Assignment { return Assignment{kind: kindNode, node: i} }

// AssignedGlobalCache returns an assignment pinning a cluster to the cache.
func AssignedGlobalCache() Assignment { return Assignment{kind: kindGlobalCache} }

// IsUnassigned reports whether the cluster has no home yet.
func (a Assignment) IsUnassigned() bool { return a.kind == kindUnassigned }

// IsGlobalCache reports whether the cluster is pinned to the coordinator's cache.
func (a Assignment) IsGlobalCache() bool { return a.kind == kindGlobalCache }

// NodeIndex returns the node index and true if a specifically names a node.
func (a Assignment) NodeIndex() (int, bool) {
	if a.kind != kindNode {
		return 0, false
	}
	return a.node, true
}

// ToWire encodes a into the NodeId sentinel representation used on the wire.
// A node's slice index is used directly as its wire NodeId, which stays
// below NullNode since the coordinator never manages more than
// MaxQueryNodeNum nodes.
func (a Assignment) ToWire() NodeId {
	switch a.kind {
	case kindGlobalCache:
		return GlobalNode
	case kindNode:
		return NodeId(a.node)
	default:
		return NullNode
	}
}

// FromWire decodes a NodeId sentinel into an Assignment.
func FromWire(n NodeId) Assignment {
	switch n {
	case NullNode:
		return Unassigned()
	case GlobalNode:
		return AssignedGlobalCache()
	default:
		return AssignedNode(int(n))
	}
}
