package indexer

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
	"go.uber.org/zap"
)

// splitter decomposes a key into path segments. The concatenation of segments is the
// canonical form of the key.
type splitter func(tree.IndexKey) ([]tree.IndexKey, error)

// mutation computes the new leaf for a key from the existing one.
// Returning keep=false removes the key.
type mutation func(existing tree.LeafNode, found bool) (leaf tree.LeafNode, keep bool, err error)

// engine implements BasicIndexer over a key splitter
type engine struct {
	split splitter
	o     options
}

var _ BasicIndexer = &engine{}

func (e *engine) Get(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey) (tree.LeafNode, bool, error) {
	segments, err := e.split(key)
	if err != nil {
		return tree.LeafNode{}, false, err
	}

	id := root
	for i, segment := range segments {
		t, err := tree.Read(ctx, p, id)
		if err != nil {
			return tree.LeafNode{}, false, err
		}
		node, found := t.Get(segment)
		if !found {
			return tree.LeafNode{}, false, nil
		}
		if i == len(segments)-1 {
			if node.IsBranch() {
				return tree.LeafNode{}, false, unexpected("leaf", key, segment)
			}
			return node.Leaf(), true, nil
		}
		if node.IsLeaf() {
			return tree.LeafNode{}, false, unexpected("branch", key, segment)
		}
		id = node.Branch()
	}
	return tree.LeafNode{}, false, nil
}

func (e *engine) Insert(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, error) {
	return e.mutate(ctx, p, root, key, func(tree.LeafNode, bool) (tree.LeafNode, bool, error) {
		return leaf, true, nil
	})
}

func (e *engine) Add(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, error) {
	return e.mutate(ctx, p, root, key, func(_ tree.LeafNode, found bool) (tree.LeafNode, bool, error) {
		if found {
			return tree.LeafNode{}, false, status.ErrAlreadyExists.Wrapf("key %v", key)
		}
		return leaf, true, nil
	})
}

func (e *engine) Replace(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey, leaf tree.LeafNode) (tree.TreeIdentifier, tree.LeafNode, error) {
	var previous tree.LeafNode
	id, err := e.mutate(ctx, p, root, key, func(existing tree.LeafNode, found bool) (tree.LeafNode, bool, error) {
		if !found {
			return tree.LeafNode{}, false, status.ErrNotFound.Wrapf("key %v", key)
		}
		previous = existing
		return leaf, true, nil
	})
	return id, previous, err
}

func (e *engine) Remove(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey) (tree.TreeIdentifier, tree.LeafNode, bool, error) {
	var (
		previous tree.LeafNode
		removed  bool
	)
	id, err := e.mutate(ctx, p, root, key, func(existing tree.LeafNode, found bool) (tree.LeafNode, bool, error) {
		previous, removed = existing, found
		return tree.LeafNode{}, false, nil
	})
	return id, previous, removed, err
}

func (e *engine) EnumerateLeaves(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, fn func(tree.IndexKey, tree.LeafNode) error) error {
	return tree.Leaves(ctx, p, root, fn)
}

func (e *engine) mutate(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, key tree.IndexKey, fn mutation) (tree.TreeIdentifier, error) {
	segments, err := e.split(key)
	if err != nil {
		return root, err
	}
	e.o.l.Debug("Start indexer mutation", zap.Stringer("root", root), zap.Stringer("key", key))

	id, delta, _, err := e.update(ctx, p, root, key, segments, fn)
	if err != nil {
		return root, err
	}

	e.o.l.Debug("End indexer mutation", zap.Stringer("root", id), zap.Int64("delta", delta))
	return id, nil
}

// update applies a mutation below some tree, and writes the new version of this tree once
// the sub-trees it references are written. It returns the new identifier and the change in
// leaf count.
func (e *engine) update(ctx context.Context, p provider.Provider, id tree.TreeIdentifier, key tree.IndexKey, segments []tree.IndexKey, fn mutation) (tree.TreeIdentifier, int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return id, 0, false, err
	}
	t, err := tree.Read(ctx, p, id)
	if err != nil {
		return id, 0, false, err
	}

	segment := segments[0]
	node, found := t.Get(segment)

	var (
		updated *tree.Tree
		delta   int64
	)
	if len(segments) == 1 {
		if found && node.IsBranch() {
			return id, 0, false, unexpected("leaf", key, segment)
		}
		var existing tree.LeafNode
		if found {
			existing = node.Leaf()
		}
		leaf, keep, err := fn(existing, found)
		if err != nil {
			return id, 0, false, err
		}

		switch {
		case keep && found && leaf == existing, !keep && !found:
			return id, 0, false, nil
		case keep:
			if leaf.ID.IsZero() || leaf.Kind == tree.NodeBranch {
				return id, 0, false, status.ErrInvalid.Wrapf("invalid leaf %v for key %v", leaf, key)
			}
			updated = t.With(segment, leaf.Node())
			if !found {
				delta = 1
			}
		default:
			updated = t.Without(segment)
			delta = -1
		}
	} else {
		sub := tree.Empty
		if found {
			if node.IsLeaf() {
				return id, 0, false, unexpected("branch", key, segment)
			}
			sub = node.Branch()
		}

		newSub, subDelta, changed, err := e.update(ctx, p, sub, key, segments[1:], fn)
		if err != nil || !changed {
			return id, 0, false, err
		}
		delta = subDelta

		switch {
		case !newSub.IsEmpty():
			updated = t.With(segment, tree.BranchNode(newSub))
		case e.o.keepEmpty && found:
			retained, err := tree.Persist(ctx, p, &tree.Tree{})
			if err != nil {
				return id, 0, false, err
			}
			updated = t.With(segment, tree.BranchNode(retained))
		default:
			updated = t.Without(segment)
		}
	}

	updated = updated.WithCount(uint64(int64(t.Count()) + delta))
	newID, err := tree.Write(ctx, p, updated)
	if err != nil {
		return id, 0, false, err
	}
	return newID, delta, true, nil
}

func unexpected(expected string, key, segment tree.IndexKey) error {
	return status.ErrCorruptedContent.Wrapf("indexer: expected a %s at segment %v of key %v", expected, segment, key)
}
