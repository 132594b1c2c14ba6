// Package index exposes a versioned key to resource index, stored as content-addressed trees.
//
// An Index combines a provider, where trees and resources are stored, an indexer, which maps
// keys to tree paths, and a SharedTreeIdentifier, where the current root is published.
package index

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/indexer"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
	"go.uber.org/zap"
)

// Index is a mutable view over immutable trees.
//
// Each mutation runs against a snapshot of the current root, then publishes the new root.
// Concurrent writers are not serialized: the last publication wins.
type Index struct {
	p       provider.Provider
	indexer indexer.BasicIndexer
	shared  *SharedTreeIdentifier
	l       *zap.Logger
}

// Option is a functor to pass optional parameters to an index
type Option func(*Index)

// Logger specifies a logger
func Logger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.l = l
		}
	}
}

// New index. A nil shared root starts an empty index.
func New(p provider.Provider, ixr indexer.BasicIndexer, shared *SharedTreeIdentifier, opts ...Option) *Index {
	if shared == nil {
		shared = NewSharedTreeIdentifier(tree.Empty)
	}
	ix := &Index{
		p:       p,
		indexer: ixr,
		shared:  shared,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(ix)
	}
	return ix
}

// Root is the current root of the index
func (ix *Index) Root() tree.TreeIdentifier { return ix.shared.Get() }

// Shared is the publication point of the root
func (ix *Index) Shared() *SharedTreeIdentifier { return ix.shared }

// Provider where trees and resources are stored
func (ix *Index) Provider() provider.Provider { return ix.p }

// Len is the number of keys in the index
func (ix *Index) Len(ctx context.Context) (uint64, error) {
	return tree.Count(ctx, ix.p, ix.Root())
}

// Get the leaf for a key
func (ix *Index) Get(ctx context.Context, key tree.IndexKey) (tree.LeafNode, bool, error) {
	return ix.indexer.Get(ctx, ix.p, ix.Root(), key)
}

// GetContent reads the resource indexed by a key
func (ix *Index) GetContent(ctx context.Context, key tree.IndexKey) ([]byte, bool, error) {
	leaf, found, err := ix.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	rid, ok := leaf.Resource()
	if !ok {
		return nil, false, status.ErrInvalid.Wrapf("key %v does not index a resource but a %v", key, leaf.Kind)
	}
	data, err := ix.p.Read(ctx, rid.Identifier)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Insert a leaf for a key, replacing any existing leaf
func (ix *Index) Insert(ctx context.Context, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, error) {
	return ix.mutate(ctx, "insert", key, func(root tree.TreeIdentifier) (tree.TreeIdentifier, error) {
		return ix.indexer.Insert(ctx, ix.p, root, key, leaf)
	})
}

// InsertContent writes a resource and indexes it for a key
func (ix *Index) InsertContent(ctx context.Context, key tree.IndexKey, data []byte) (tree.ResourceIdentifier, error) {
	id, err := ix.p.Write(ctx, data)
	if err != nil {
		return tree.ResourceIdentifier{}, err
	}
	rid := tree.NewResourceIdentifier(id)
	if _, err := ix.Insert(ctx, key, tree.ResourceLeaf(rid)); err != nil {
		return tree.ResourceIdentifier{}, err
	}
	return rid, nil
}

// Add a leaf for a key which must not be indexed yet
func (ix *Index) Add(ctx context.Context, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, error) {
	return ix.mutate(ctx, "add", key, func(root tree.TreeIdentifier) (tree.TreeIdentifier, error) {
		return ix.indexer.Add(ctx, ix.p, root, key, leaf)
	})
}

// Replace the leaf of an indexed key, returning the replaced leaf
func (ix *Index) Replace(ctx context.Context, key tree.IndexKey, leaf tree.LeafNode) (tree.LeafNode, error) {
	var previous tree.LeafNode
	_, err := ix.mutate(ctx, "replace", key, func(root tree.TreeIdentifier) (tree.TreeIdentifier, error) {
		newRoot, replaced, err := ix.indexer.Replace(ctx, ix.p, root, key, leaf)
		previous = replaced
		return newRoot, err
	})
	return previous, err
}

// Remove a key, returning the removed leaf if any
func (ix *Index) Remove(ctx context.Context, key tree.IndexKey) (tree.LeafNode, bool, error) {
	var (
		previous tree.LeafNode
		removed  bool
	)
	_, err := ix.mutate(ctx, "remove", key, func(root tree.TreeIdentifier) (tree.TreeIdentifier, error) {
		newRoot, leaf, ok, err := ix.indexer.Remove(ctx, ix.p, root, key)
		previous, removed = leaf, ok
		return newRoot, err
	})
	return previous, removed, err
}

func (ix *Index) mutate(ctx context.Context, op string, key tree.IndexKey, fn func(tree.TreeIdentifier) (tree.TreeIdentifier, error)) (tree.TreeIdentifier, error) {
	root := ix.shared.Get()
	newRoot, err := fn(root)
	if err != nil {
		ix.l.Debug("index mutation failed", zap.String("op", op), zap.Stringer("key", key), zap.Error(err))
		return root, err
	}
	if newRoot != root {
		ix.shared.Set(newRoot)
	}
	ix.l.Debug("index mutation",
		zap.String("op", op),
		zap.Stringer("key", key),
		zap.Stringer("from", root),
		zap.Stringer("to", newRoot),
	)
	return newRoot, nil
}

// EnumerateLeaves of the current root, in key order
func (ix *Index) EnumerateLeaves(ctx context.Context, fn func(tree.IndexKey, tree.LeafNode) error) error {
	return ix.indexer.EnumerateLeaves(ctx, ix.p, ix.Root(), fn)
}

// EnumerateResources lists the keys indexing a resource, with the resource identifier
func (ix *Index) EnumerateResources(ctx context.Context, fn func(tree.IndexKey, tree.ResourceIdentifier) error) error {
	return ix.EnumerateLeaves(ctx, func(key tree.IndexKey, leaf tree.LeafNode) error {
		rid, ok := leaf.Resource()
		if !ok {
			return nil
		}
		return fn(key, rid)
	})
}

// EnumerateRange lists the leaves with a key in a range, in key order
func (ix *Index) EnumerateRange(ctx context.Context, r tree.KeyRange, fn func(tree.IndexKey, tree.LeafNode) error) error {
	return tree.LeavesInRange(ctx, ix.p, ix.Root(), r, fn)
}

// Diff reports the changes from some previous root to the current root
func (ix *Index) Diff(ctx context.Context, from tree.TreeIdentifier, fn func(tree.Difference) error, opts ...tree.DiffOption) error {
	return tree.Diff(ctx, ix.p, from, ix.Root(), fn, opts...)
}
