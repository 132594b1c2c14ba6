// Package tree implements immutable, content-addressed search trees.
//
// A Tree maps local keys to nodes. Branch nodes point to sub-trees by identifier, so that
// an update rewrites only the nodes along one path and shares every other sub-tree with
// the previous version.
//
// Trees have a canonical binary encoding: two trees with the same entries always
// serialize to the same bytes, and therefore have the same identifier.
package tree

import (
	"encoding/binary"
	"sort"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
)

// FormatVersion is the leading byte of serialized trees
const FormatVersion byte = 1

// Child is a tree entry
type Child struct {
	Key  IndexKey
	Node Node
}

// Tree is an immutable node of a search tree.
// Children are sorted by key, keys are unique.
type Tree struct {
	children []Child
	count    uint64
}

// New builds a tree from children in any order. Duplicate keys are rejected.
// The leaf count is the number of leaf children.
func New(children ...Child) (*Tree, error) {
	sorted := append([]Child(nil), children...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key.Compare(sorted[j].Key) < 0 })
	t := &Tree{children: sorted}
	for i, c := range sorted {
		if i > 0 && sorted[i-1].Key.Equal(c.Key) {
			return nil, status.ErrInvalid.Wrapf("tree: duplicate key %v", c.Key)
		}
		if c.Node.IsLeaf() {
			t.count++
		}
	}
	return t, nil
}

// Len is the number of children
func (t *Tree) Len() int { return len(t.children) }

// IsEmpty tells if the tree has no children
func (t *Tree) IsEmpty() bool { return len(t.children) == 0 }

// Count is the number of leaves held by this tree and its sub-trees
func (t *Tree) Count() uint64 { return t.count }

// Children of the tree, sorted by key. The returned slice must not be modified.
func (t *Tree) Children() []Child { return t.children }

func (t *Tree) search(key IndexKey) (int, bool) {
	i := sort.Search(len(t.children), func(i int) bool {
		return t.children[i].Key.Compare(key) >= 0
	})
	return i, i < len(t.children) && t.children[i].Key.Equal(key)
}

// Get the node for some key
func (t *Tree) Get(key IndexKey) (Node, bool) {
	i, ok := t.search(key)
	if !ok {
		return Node{}, false
	}
	return t.children[i].Node, true
}

// With returns a copy of the tree where the key points to a node
func (t *Tree) With(key IndexKey, node Node) *Tree {
	i, found := t.search(key)
	n := len(t.children)
	if !found {
		n++
	}
	children := make([]Child, 0, n)
	children = append(children, t.children[:i]...)
	children = append(children, Child{Key: key.Clone(), Node: node})
	if found {
		i++
	}
	children = append(children, t.children[i:]...)
	return &Tree{children: children, count: t.count}
}

// Without returns a copy of the tree without some key
func (t *Tree) Without(key IndexKey) *Tree {
	i, found := t.search(key)
	if !found {
		return t
	}
	children := make([]Child, 0, len(t.children)-1)
	children = append(children, t.children[:i]...)
	children = append(children, t.children[i+1:]...)
	return &Tree{children: children, count: t.count}
}

// WithCount returns a copy of the tree with an adjusted leaf count
func (t *Tree) WithCount(count uint64) *Tree {
	return &Tree{children: t.children, count: count}
}

// MarshalBinary renders the canonical encoding of the tree:
//
//	version(1) count(uvarint) n(uvarint)
//	n × ( keylen(uvarint) key kind(1) idlen(uvarint) id )
func (t *Tree) MarshalBinary() ([]byte, error) {
	size := 1 + 2*binary.MaxVarintLen64
	for _, c := range t.children {
		size += len(c.Key) + 2*binary.MaxVarintLen64 + 1 + 48
	}
	buf := make([]byte, 0, size)
	buf = append(buf, FormatVersion)
	buf = binary.AppendUvarint(buf, t.count)
	buf = binary.AppendUvarint(buf, uint64(len(t.children)))
	for _, c := range t.children {
		if c.Node.ID.IsZero() {
			return nil, status.ErrInvalid.Wrapf("tree: zero identifier at key %v", c.Key)
		}
		id := c.Node.ID.Bytes()
		buf = binary.AppendUvarint(buf, uint64(len(c.Key)))
		buf = append(buf, c.Key...)
		buf = append(buf, byte(c.Node.Kind))
		buf = binary.AppendUvarint(buf, uint64(len(id)))
		buf = append(buf, id...)
	}
	return buf, nil
}

// Decode a serialized tree
func Decode(data []byte) (*Tree, error) {
	d := decoder{buf: data}
	if version := d.readByte(); d.err == nil && version != FormatVersion {
		return nil, corrupted("unsupported format version %d", version)
	}
	count := d.readUvarint()
	n := d.readUvarint()
	if d.err != nil {
		return nil, d.err
	}
	if n > uint64(len(data)) {
		return nil, corrupted("%d children announced in %d bytes", n, len(data))
	}

	t := &Tree{children: make([]Child, 0, n), count: count}
	for i := uint64(0); i < n; i++ {
		key := IndexKey(d.readBytes(d.readUvarint()))
		kind := NodeKind(d.readByte())
		rawID := d.readBytes(d.readUvarint())
		if d.err != nil {
			return nil, d.err
		}
		if !kind.valid() {
			return nil, corrupted("unknown node kind %d", kind)
		}
		if i > 0 && t.children[i-1].Key.Compare(key) >= 0 {
			return nil, corrupted("keys are not strictly ascending at %v", key)
		}
		id, err := identifier.FromBytes(rawID)
		if err != nil {
			return nil, status.ErrCorruptedContent.Wrap(err)
		}
		t.children = append(t.children, Child{Key: key.Clone(), Node: Node{Kind: kind, ID: id}})
	}
	if len(d.buf) != 0 {
		return nil, corrupted("%d trailing bytes", len(d.buf))
	}
	return t, nil
}

// UnmarshalBinary decodes a serialized tree
func (t *Tree) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func corrupted(format string, args ...interface{}) error {
	return status.ErrCorruptedContent.Wrapf("tree: "+format, args...)
}

type decoder struct {
	buf []byte
	err error
}

func (d *decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) < 1 {
		d.err = corrupted("unexpected end of data")
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *decoder) readUvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.err = corrupted("malformed varint")
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) readBytes(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if uint64(len(d.buf)) < n {
		d.err = corrupted("unexpected end of data")
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}
