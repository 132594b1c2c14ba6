package tree

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
)

// Read a tree from a provider. The empty tree is resolved without reading storage.
func Read(ctx context.Context, p provider.Provider, id TreeIdentifier) (*Tree, error) {
	if id.IsEmpty() {
		return &Tree{}, nil
	}
	data, err := p.Read(ctx, id.Identifier)
	if err != nil {
		return nil, err
	}
	t, err := Decode(data)
	if err != nil {
		if !errors.Is(err, status.ErrCorruptedContent) {
			err = status.ErrCorruptedContent.Wrap(err)
		}
		return nil, err
	}
	return t, nil
}

// Write a tree to a provider. The empty tree is not stored.
func Write(ctx context.Context, p provider.Provider, t *Tree) (TreeIdentifier, error) {
	if t.IsEmpty() {
		return Empty, nil
	}
	return Persist(ctx, p, t)
}

// Persist writes a tree to a provider, storing it even when empty.
// Branches may then point to an empty sub-tree.
func Persist(ctx context.Context, p provider.Provider, t *Tree) (TreeIdentifier, error) {
	data, err := t.MarshalBinary()
	if err != nil {
		return Empty, err
	}
	id, err := p.Write(ctx, data)
	if err != nil {
		return Empty, err
	}
	return NewTreeIdentifier(id), nil
}
