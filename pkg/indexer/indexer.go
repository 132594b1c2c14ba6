// Package indexer translates index keys into navigation and copy-on-write mutations of trees.
//
// An indexer splits each key into segments, one per tree level. Mutations rewrite only the
// trees along the path of the key, bottom-up, and share every other sub-tree with the
// previous version of the index.
package indexer

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/tree"
	"go.uber.org/zap"
)

// BasicIndexer knows how to navigate and update a tree by key.
//
// Roots are immutable: mutations return the identifier of a new root, and leave the
// trees of the previous root readable.
type BasicIndexer interface {
	// Get the leaf for a key
	Get(context.Context, provider.Provider, tree.TreeIdentifier, tree.IndexKey) (tree.LeafNode, bool, error)

	// Insert a leaf, replacing any existing leaf for the key
	Insert(context.Context, provider.Provider, tree.TreeIdentifier, tree.IndexKey, tree.LeafNode) (tree.TreeIdentifier, error)

	// Add a leaf for a key which must not be present yet
	Add(context.Context, provider.Provider, tree.TreeIdentifier, tree.IndexKey, tree.LeafNode) (tree.TreeIdentifier, error)

	// Replace the leaf of a key which must be present, returning the replaced leaf
	Replace(context.Context, provider.Provider, tree.TreeIdentifier, tree.IndexKey, tree.LeafNode) (tree.TreeIdentifier, tree.LeafNode, error)

	// Remove a key, returning the removed leaf if any. The root is unchanged when the key is absent.
	Remove(context.Context, provider.Provider, tree.TreeIdentifier, tree.IndexKey) (tree.TreeIdentifier, tree.LeafNode, bool, error)

	// EnumerateLeaves in key order. Returning tree.ErrStop ends the enumeration without error.
	EnumerateLeaves(context.Context, provider.Provider, tree.TreeIdentifier, func(tree.IndexKey, tree.LeafNode) error) error
}

// Option is a functor to pass optional parameters to indexers
type Option func(*options)

type options struct {
	l          *zap.Logger
	layerWidth int
	separator  byte
	keepEmpty  bool
}

func defaultOptions() options {
	return options{
		l:          zap.NewNop(),
		layerWidth: 1,
		separator:  '/',
	}
}

// Logger specifies a logger
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// LayerWidth is the number of key bytes consumed by each tree level of a static indexer.
// Defaults to 1.
func LayerWidth(w int) Option {
	return func(o *options) {
		o.layerWidth = w
	}
}

// Separator of path segments for a string path indexer. Defaults to '/'.
func Separator(sep byte) Option {
	return func(o *options) {
		o.separator = sep
	}
}

// KeepEmptyBranches keeps the sub-trees left empty by removals, instead of pruning them
func KeepEmptyBranches(enabled bool) Option {
	return func(o *options) {
		o.keepEmpty = enabled
	}
}
