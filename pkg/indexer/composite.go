package indexer

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
)

var _ BasicIndexer = &CompositeIndexer{}

// CompositeIndexer chains two indexers.
//
// Keys are built with tree.Compose. The first part of a key is indexed by the first indexer,
// with a tree-root leaf pointing to a sub-index. The second part is indexed in this sub-index
// by the second indexer. Leaves are enumerated in the order of the first indexer, then of the
// second one.
type CompositeIndexer struct {
	first  BasicIndexer
	second BasicIndexer
}

// NewCompositeIndexer builds an indexer of composite keys
func NewCompositeIndexer(first, second BasicIndexer) *CompositeIndexer {
	return &CompositeIndexer{first: first, second: second}
}

// subIndex finds the sub-index for the first part of a key
func (c *CompositeIndexer) subIndex(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, first tree.IndexKey) (tree.TreeIdentifier, bool, error) {
	leaf, found, err := c.first.Get(ctx, p, root, first)
	if err != nil || !found {
		return tree.Empty, false, err
	}
	sub, ok := leaf.TreeRoot()
	if !ok {
		return tree.Empty, false, status.ErrCorruptedContent.Wrapf("composite index: expected a tree root at key %v, got %v", first, leaf)
	}
	return sub, true, nil
}

func (c *CompositeIndexer) Get(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey) (tree.LeafNode, bool, error) {
	first, second, err := key.Decompose()
	if err != nil {
		return tree.LeafNode{}, false, err
	}
	sub, found, err := c.subIndex(ctx, p, root, first)
	if err != nil || !found {
		return tree.LeafNode{}, false, err
	}
	return c.second.Get(ctx, p, sub, second)
}

func (c *CompositeIndexer) Insert(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, error) {
	first, second, err := key.Decompose()
	if err != nil {
		return root, err
	}
	sub, _, err := c.subIndex(ctx, p, root, first)
	if err != nil {
		return root, err
	}
	sub, err = c.second.Insert(ctx, p, sub, second, leaf)
	if err != nil {
		return root, err
	}
	return c.first.Insert(ctx, p, root, first, tree.TreeRootLeaf(sub))
}

func (c *CompositeIndexer) Add(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, error) {
	first, second, err := key.Decompose()
	if err != nil {
		return root, err
	}
	sub, found, err := c.subIndex(ctx, p, root, first)
	if err != nil {
		return root, err
	}
	sub, err = c.second.Add(ctx, p, sub, second, leaf)
	if err != nil {
		return root, err
	}
	if !found {
		return c.first.Add(ctx, p, root, first, tree.TreeRootLeaf(sub))
	}
	id, _, err := c.first.Replace(ctx, p, root, first, tree.TreeRootLeaf(sub))
	return id, err
}

func (c *CompositeIndexer) Replace(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, tree.LeafNode, error) {
	first, second, err := key.Decompose()
	if err != nil {
		return root, tree.LeafNode{}, err
	}
	sub, found, err := c.subIndex(ctx, p, root, first)
	if err != nil {
		return root, tree.LeafNode{}, err
	}
	if !found {
		return root, tree.LeafNode{}, status.ErrNotFound.Wrapf("key %v", key)
	}
	sub, previous, err := c.second.Replace(ctx, p, sub, second, leaf)
	if err != nil {
		return root, tree.LeafNode{}, err
	}
	id, _, err := c.first.Replace(ctx, p, root, first, tree.TreeRootLeaf(sub))
	if err != nil {
		return root, tree.LeafNode{}, err
	}
	return id, previous, nil
}

// Remove a key. The first indexer drops a sub-index left empty.
func (c *CompositeIndexer) Remove(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey) (tree.TreeIdentifier, tree.LeafNode, bool, error) {
	first, second, err := key.Decompose()
	if err != nil {
		return root, tree.LeafNode{}, false, err
	}
	sub, found, err := c.subIndex(ctx, p, root, first)
	if err != nil || !found {
		return root, tree.LeafNode{}, false, err
	}
	sub, previous, removed, err := c.second.Remove(ctx, p, sub, second)
	if err != nil || !removed {
		return root, tree.LeafNode{}, false, err
	}

	var id tree.TreeIdentifier
	if sub.IsEmpty() {
		id, _, _, err = c.first.Remove(ctx, p, root, first)
	} else {
		id, _, err = c.first.Replace(ctx, p, root, first, tree.TreeRootLeaf(sub))
	}
	if err != nil {
		return root, tree.LeafNode{}, false, err
	}
	return id, previous, true, nil
}

func (c *CompositeIndexer) EnumerateLeaves(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, fn func(tree.IndexKey, tree.LeafNode) error) error {
	return c.first.EnumerateLeaves(ctx, p, root, func(first tree.IndexKey, leaf tree.LeafNode) error {
		sub, ok := leaf.TreeRoot()
		if !ok {
			return status.ErrCorruptedContent.Wrapf("composite index: expected a tree root at key %v, got %v", first, leaf)
		}

		var stopped bool
		err := c.second.EnumerateLeaves(ctx, p, sub, func(second tree.IndexKey, leaf tree.LeafNode) error {
			err := fn(tree.Compose(first, second), leaf)
			if errors.Is(err, tree.ErrStop) {
				stopped = true
			}
			return err
		})
		if err != nil {
			return err
		}
		if stopped {
			return tree.ErrStop
		}
		return nil
	})
}
