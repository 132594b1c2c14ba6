package tree

import (
	"fmt"

	"github.com/oneconcern/contentstore/pkg/identifier"
)

// TreeIdentifier identifies a serialized tree node.
//
// The zero value identifies the empty tree, which is never stored.
type TreeIdentifier struct {
	identifier.Identifier
}

// Empty is the identifier of the empty tree
var Empty = TreeIdentifier{}

// NewTreeIdentifier qualifies an identifier as a tree identifier
func NewTreeIdentifier(id identifier.Identifier) TreeIdentifier {
	return TreeIdentifier{Identifier: id}
}

// ParseTreeIdentifier parses the hex representation of a tree identifier.
// An empty string is the empty tree.
func ParseTreeIdentifier(s string) (TreeIdentifier, error) {
	if s == "" {
		return Empty, nil
	}
	id, err := identifier.Parse(s)
	if err != nil {
		return Empty, err
	}
	return NewTreeIdentifier(id), nil
}

// IsEmpty tells if this identifies the empty tree
func (t TreeIdentifier) IsEmpty() bool { return t.IsZero() }

func (t TreeIdentifier) String() string {
	if t.IsEmpty() {
		return ""
	}
	return t.Identifier.String()
}

// ResourceIdentifier identifies some resource content, referenced by tree leaves
type ResourceIdentifier struct {
	identifier.Identifier
}

// NewResourceIdentifier qualifies an identifier as a resource identifier
func NewResourceIdentifier(id identifier.Identifier) ResourceIdentifier {
	return ResourceIdentifier{Identifier: id}
}

// NodeKind tells what a tree child points to. The value is the serialized tag.
type NodeKind uint8

const (
	// NodeResource is a leaf pointing to a resource
	NodeResource NodeKind = 0

	// NodeTreeRoot is a leaf pointing to the root of another, independent tree
	NodeTreeRoot NodeKind = 1

	// NodeBranch points to a sub-tree of the same index
	NodeBranch NodeKind = 2
)

func (k NodeKind) String() string {
	switch k {
	case NodeResource:
		return "resource"
	case NodeTreeRoot:
		return "tree-root"
	case NodeBranch:
		return "branch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k NodeKind) valid() bool {
	return k <= NodeBranch
}

// Node is a tree child: either a leaf or a branch
type Node struct {
	Kind NodeKind
	ID   identifier.Identifier
}

// BranchNode builds a node pointing to a sub-tree
func BranchNode(id TreeIdentifier) Node {
	return Node{Kind: NodeBranch, ID: id.Identifier}
}

// IsBranch tells if the node points to a sub-tree
func (n Node) IsBranch() bool { return n.Kind == NodeBranch }

// IsLeaf tells if the node is a leaf
func (n Node) IsLeaf() bool { return n.Kind != NodeBranch }

// Branch is the sub-tree identifier of a branch node
func (n Node) Branch() TreeIdentifier {
	if !n.IsBranch() {
		return Empty
	}
	return NewTreeIdentifier(n.ID)
}

// Leaf is the leaf view of a leaf node
func (n Node) Leaf() LeafNode {
	return LeafNode{Kind: n.Kind, ID: n.ID}
}

func (n Node) String() string {
	return n.Kind.String() + ":" + n.ID.String()
}

// LeafNode is the value held by an index for a key
type LeafNode struct {
	Kind NodeKind
	ID   identifier.Identifier
}

// ResourceLeaf builds a leaf pointing to a resource
func ResourceLeaf(id ResourceIdentifier) LeafNode {
	return LeafNode{Kind: NodeResource, ID: id.Identifier}
}

// TreeRootLeaf builds a leaf pointing to the root of another tree
func TreeRootLeaf(id TreeIdentifier) LeafNode {
	return LeafNode{Kind: NodeTreeRoot, ID: id.Identifier}
}

// Node view of this leaf
func (l LeafNode) Node() Node {
	return Node{Kind: l.Kind, ID: l.ID}
}

// Resource identifier, when the leaf points to a resource
func (l LeafNode) Resource() (ResourceIdentifier, bool) {
	if l.Kind != NodeResource {
		return ResourceIdentifier{}, false
	}
	return NewResourceIdentifier(l.ID), true
}

// TreeRoot identifier, when the leaf points to the root of another tree
func (l LeafNode) TreeRoot() (TreeIdentifier, bool) {
	if l.Kind != NodeTreeRoot {
		return Empty, false
	}
	return NewTreeIdentifier(l.ID), true
}

func (l LeafNode) String() string {
	return l.Node().String()
}
