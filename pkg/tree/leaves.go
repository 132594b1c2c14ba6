package tree

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/provider"
)

// Leaves enumerates the leaves of a tree in key order.
//
// Returning ErrStop from the callback ends the enumeration without error.
func Leaves(ctx context.Context, p provider.Provider, root TreeIdentifier, fn func(IndexKey, LeafNode) error) error {
	return LeavesInRange(ctx, p, root, KeyRange{}, fn)
}

// LeavesInRange enumerates the leaves with a key in some range, in key order.
// Sub-trees which cannot hold keys in the range are not read.
func LeavesInRange(ctx context.Context, p provider.Provider, root TreeIdentifier, r KeyRange, fn func(IndexKey, LeafNode) error) error {
	err := Visit(ctx, p, root, VisitorFuncs{
		Branch: func(_ context.Context, b BranchInfo) (Action, error) {
			if r.After(b.Key) {
				return Stop, nil
			}
			if r.Start.Kind != Unbounded {
				if end := PrefixEnd(b.Key); end != nil && end.Compare(r.Start.Key) <= 0 {
					return Skip, nil
				}
			}
			return Continue, nil
		},
		Leaf: func(_ context.Context, l LeafInfo) (Action, error) {
			if r.After(l.Key) {
				return Stop, nil
			}
			if !r.Contains(l.Key) {
				return Continue, nil
			}
			if err := fn(l.Key, l.Leaf); err != nil {
				return Stop, err
			}
			return Continue, nil
		},
	})
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

// Count is the number of leaves in a tree
func Count(ctx context.Context, p provider.Provider, root TreeIdentifier) (uint64, error) {
	t, err := Read(ctx, p, root)
	if err != nil {
		return 0, err
	}
	return t.Count(), nil
}
