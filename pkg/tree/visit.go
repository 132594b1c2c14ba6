package tree

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/provider"
)

// ErrStop may be returned by iteration callbacks to end an iteration early, without error
var ErrStop = errors.New("stop iteration")

// Action tells a traversal how to proceed after visiting a node
type Action uint8

const (
	// Continue the traversal, descending into the visited node
	Continue Action = iota

	// Skip the descendants of the visited node
	Skip

	// Stop the traversal
	Stop
)

// BranchInfo describes a visited branch
type BranchInfo struct {
	Depth    int
	Key      IndexKey // full key prefix of the sub-tree
	LocalKey IndexKey
	ID       TreeIdentifier
}

// LeafInfo describes a visited leaf
type LeafInfo struct {
	Depth    int
	Key      IndexKey // full key of the leaf
	LocalKey IndexKey
	Leaf     LeafNode
}

// Visitor receives the nodes of a tree, depth-first in key order
type Visitor interface {
	VisitRoot(context.Context, TreeIdentifier, *Tree) (Action, error)
	VisitBranch(context.Context, BranchInfo) (Action, error)
	VisitLeaf(context.Context, LeafInfo) (Action, error)
}

// VisitorFuncs is a Visitor built from optional functions. Missing functions continue the traversal.
type VisitorFuncs struct {
	Root   func(context.Context, TreeIdentifier, *Tree) (Action, error)
	Branch func(context.Context, BranchInfo) (Action, error)
	Leaf   func(context.Context, LeafInfo) (Action, error)
}

// VisitRoot implements Visitor
func (f VisitorFuncs) VisitRoot(ctx context.Context, id TreeIdentifier, t *Tree) (Action, error) {
	if f.Root == nil {
		return Continue, nil
	}
	return f.Root(ctx, id, t)
}

// VisitBranch implements Visitor
func (f VisitorFuncs) VisitBranch(ctx context.Context, b BranchInfo) (Action, error) {
	if f.Branch == nil {
		return Continue, nil
	}
	return f.Branch(ctx, b)
}

// VisitLeaf implements Visitor
func (f VisitorFuncs) VisitLeaf(ctx context.Context, l LeafInfo) (Action, error) {
	if f.Leaf == nil {
		return Continue, nil
	}
	return f.Leaf(ctx, l)
}

// Visit a tree depth-first, in key order. Sub-trees are only read when the visitor descends into them.
func Visit(ctx context.Context, p provider.Provider, root TreeIdentifier, v Visitor) error {
	t, err := Read(ctx, p, root)
	if err != nil {
		return err
	}
	action, err := v.VisitRoot(ctx, root, t)
	if err != nil || action != Continue {
		return err
	}
	_, err = visitChildren(ctx, p, t, nil, 1, v)
	return err
}

func visitChildren(ctx context.Context, p provider.Provider, t *Tree, prefix IndexKey, depth int, v Visitor) (bool, error) {
	for _, c := range t.Children() {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		key := Join(prefix, c.Key)

		if c.Node.IsLeaf() {
			action, err := v.VisitLeaf(ctx, LeafInfo{Depth: depth, Key: key, LocalKey: c.Key, Leaf: c.Node.Leaf()})
			if err != nil || action == Stop {
				return true, err
			}
			continue
		}

		action, err := v.VisitBranch(ctx, BranchInfo{Depth: depth, Key: key, LocalKey: c.Key, ID: c.Node.Branch()})
		if err != nil || action == Stop {
			return true, err
		}
		if action == Skip {
			continue
		}
		sub, err := Read(ctx, p, c.Node.Branch())
		if err != nil {
			return true, err
		}
		if stopped, err := visitChildren(ctx, p, sub, key, depth+1, v); stopped || err != nil {
			return true, err
		}
	}
	return false, nil
}
