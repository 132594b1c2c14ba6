package tree

import (
	"context"
	"fmt"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/provider"
)

// DiffKind qualifies a difference between two trees
type DiffKind uint8

const (
	// AddedInB is a key present in B only
	AddedInB DiffKind = iota + 1

	// RemovedFromB is a key present in A only
	RemovedFromB

	// Changed is a key present in both trees, with different leaves
	Changed

	// Unchanged is a key, or a whole sub-tree, identical in both trees.
	// It is only reported with the ReportUnchanged option.
	Unchanged
)

func (k DiffKind) String() string {
	switch k {
	case AddedInB:
		return "added"
	case RemovedFromB:
		return "removed"
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("diff(%d)", uint8(k))
	}
}

// Difference between two trees at some key.
//
// A is the zero leaf when the key was added, B is the zero leaf when the key was removed.
// An unchanged sub-tree is reported once, with its key prefix and SubTree set.
type Difference struct {
	Kind    DiffKind
	Key     IndexKey
	A       LeafNode
	B       LeafNode
	SubTree TreeIdentifier
}

func (d Difference) String() string {
	switch d.Kind {
	case AddedInB:
		return fmt.Sprintf("+ %v %v", d.Key, d.B)
	case RemovedFromB:
		return fmt.Sprintf("- %v %v", d.Key, d.A)
	case Changed:
		return fmt.Sprintf("~ %v %v -> %v", d.Key, d.A, d.B)
	default:
		return fmt.Sprintf("= %v", d.Key)
	}
}

// DiffOption is a functor to pass optional parameters to Diff
type DiffOption func(*differ)

// ReportUnchanged makes Diff report identical leaves and sub-trees
func ReportUnchanged() DiffOption {
	return func(d *differ) {
		d.unchanged = true
	}
}

// Diff compares two trees and reports their differences in key order.
//
// Sub-trees with equal identifiers are not read. Returning ErrStop from the callback ends
// the comparison without error.
func Diff(ctx context.Context, p provider.Provider, a, b TreeIdentifier, fn func(Difference) error, opts ...DiffOption) error {
	d := &differ{p: p, fn: fn}
	for _, apply := range opts {
		apply(d)
	}
	err := d.trees(ctx, nil, a, b)
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

// DiffAll collects all the differences between two trees
func DiffAll(ctx context.Context, p provider.Provider, a, b TreeIdentifier, opts ...DiffOption) ([]Difference, error) {
	var diffs []Difference
	err := Diff(ctx, p, a, b, func(d Difference) error {
		diffs = append(diffs, d)
		return nil
	}, opts...)
	return diffs, err
}

type differ struct {
	p         provider.Provider
	fn        func(Difference) error
	unchanged bool
}

func (d *differ) trees(ctx context.Context, prefix IndexKey, a, b TreeIdentifier) error {
	if a == b {
		if d.unchanged && !a.IsEmpty() {
			return d.fn(Difference{Kind: Unchanged, Key: prefix, SubTree: a})
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ta, err := Read(ctx, d.p, a)
	if err != nil {
		return err
	}
	tb, err := Read(ctx, d.p, b)
	if err != nil {
		return err
	}

	ca, cb := ta.Children(), tb.Children()
	i, j := 0, 0
	for i < len(ca) || j < len(cb) {
		var err error
		switch {
		case j == len(cb) || (i < len(ca) && ca[i].Key.Compare(cb[j].Key) < 0):
			err = d.only(ctx, RemovedFromB, Join(prefix, ca[i].Key), ca[i].Node)
			i++
		case i == len(ca) || ca[i].Key.Compare(cb[j].Key) > 0:
			err = d.only(ctx, AddedInB, Join(prefix, cb[j].Key), cb[j].Node)
			j++
		default:
			err = d.nodes(ctx, Join(prefix, ca[i].Key), ca[i].Node, cb[j].Node)
			i++
			j++
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// nodes compares the nodes found at the same key in both trees
func (d *differ) nodes(ctx context.Context, key IndexKey, a, b Node) error {
	switch {
	case a.IsBranch() && b.IsBranch():
		return d.trees(ctx, key, a.Branch(), b.Branch())
	case a.IsLeaf() && b.IsLeaf():
		if a == b {
			if d.unchanged {
				return d.fn(Difference{Kind: Unchanged, Key: key, A: a.Leaf(), B: b.Leaf()})
			}
			return nil
		}
		return d.fn(Difference{Kind: Changed, Key: key, A: a.Leaf(), B: b.Leaf()})
	case a.IsBranch():
		// the leaf key is a prefix of every key in the branch, so it comes first
		if err := d.only(ctx, AddedInB, key, b); err != nil {
			return err
		}
		return d.only(ctx, RemovedFromB, key, a)
	default:
		if err := d.only(ctx, RemovedFromB, key, a); err != nil {
			return err
		}
		return d.only(ctx, AddedInB, key, b)
	}
}

// only reports a node present on one side, with all the leaves it holds
func (d *differ) only(ctx context.Context, kind DiffKind, key IndexKey, n Node) error {
	report := func(k IndexKey, leaf LeafNode) error {
		diff := Difference{Kind: kind, Key: k}
		if kind == AddedInB {
			diff.B = leaf
		} else {
			diff.A = leaf
		}
		return d.fn(diff)
	}
	if n.IsLeaf() {
		return report(key, n.Leaf())
	}
	return Visit(ctx, d.p, n.Branch(), VisitorFuncs{
		Leaf: func(_ context.Context, l LeafInfo) (Action, error) {
			if err := report(Join(key, l.Key), l.Leaf); err != nil {
				return Stop, err
			}
			return Continue, nil
		},
	})
}
