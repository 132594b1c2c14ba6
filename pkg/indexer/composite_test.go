package indexer

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compositeKey(first uint32, path string) tree.IndexKey {
	return tree.Compose(binary.BigEndian.AppendUint32(nil, first), tree.IndexKey(path))
}

func TestCompositeIndexer(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	ix := NewCompositeIndexer(staticIndexer(t, 4), NewStringPathIndexer())

	root, err := ix.Add(ctx, p, tree.Empty, compositeKey(4, "foo/bar"), leaf("a"))
	require.NoError(t, err)
	root, err = ix.Add(ctx, p, root, compositeKey(4, "foo/baz"), leaf("b"))
	require.NoError(t, err)
	root, err = ix.Insert(ctx, p, root, compositeKey(1, "x"), leaf("c"))
	require.NoError(t, err)

	_, err = ix.Add(ctx, p, root, compositeKey(4, "foo/bar"), leaf("z"))
	assert.True(t, errors.Is(err, status.ErrAlreadyExists))

	got, found, err := ix.Get(ctx, p, root, compositeKey(4, "/foo/bar"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, leaf("a"), got)

	_, found, err = ix.Get(ctx, p, root, compositeKey(4, "foo/qux"))
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = ix.Get(ctx, p, root, compositeKey(5, "foo/bar"))
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, map[string]tree.LeafNode{
		string(compositeKey(1, "x")):       leaf("c"),
		string(compositeKey(4, "foo/bar")): leaf("a"),
		string(compositeKey(4, "foo/baz")): leaf("b"),
	}, enumerate(t, ix, p, root))

	// the first indexer holds one sub-index per first key
	subs := enumerate(t, staticIndexer(t, 4), p, root)
	require.Len(t, subs, 2)
	for _, l := range subs {
		_, ok := l.TreeRoot()
		assert.True(t, ok)
	}

	t.Run("replace", func(t *testing.T) {
		updated, previous, err := ix.Replace(ctx, p, root, compositeKey(4, "foo/bar"), leaf("a2"))
		require.NoError(t, err)
		assert.Equal(t, leaf("a"), previous)
		got, found, err := ix.Get(ctx, p, updated, compositeKey(4, "foo/bar"))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, leaf("a2"), got)

		_, _, err = ix.Replace(ctx, p, root, compositeKey(9, "foo/bar"), leaf("a2"))
		assert.True(t, errors.Is(err, status.ErrNotFound))
		_, _, err = ix.Replace(ctx, p, root, compositeKey(4, "foo/qux"), leaf("a2"))
		assert.True(t, errors.Is(err, status.ErrNotFound))
	})

	t.Run("remove", func(t *testing.T) {
		unchanged, _, removed, err := ix.Remove(ctx, p, root, compositeKey(9, "foo/bar"))
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, root, unchanged)
		unchanged, _, removed, err = ix.Remove(ctx, p, root, compositeKey(4, "foo/qux"))
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, root, unchanged)

		updated, previous, removed, err := ix.Remove(ctx, p, root, compositeKey(1, "x"))
		require.NoError(t, err)
		require.True(t, removed)
		assert.Equal(t, leaf("c"), previous)
		assert.Len(t, enumerate(t, staticIndexer(t, 4), p, updated), 1, "an emptied sub-index is dropped")

		updated, _, _, err = ix.Remove(ctx, p, updated, compositeKey(4, "foo/bar"))
		require.NoError(t, err)
		updated, _, _, err = ix.Remove(ctx, p, updated, compositeKey(4, "foo/baz"))
		require.NoError(t, err)
		assert.True(t, updated.IsEmpty())
	})

	t.Run("stop enumeration", func(t *testing.T) {
		var seen int
		require.NoError(t, ix.EnumerateLeaves(ctx, p, root, func(tree.IndexKey, tree.LeafNode) error {
			seen++
			return tree.ErrStop
		}))
		assert.Equal(t, 1, seen)
	})

	t.Run("invalid keys", func(t *testing.T) {
		_, _, err := ix.Get(ctx, p, root, tree.IndexKey{0x09, 'a'})
		assert.True(t, errors.Is(err, status.ErrInvalid))
		_, err = ix.Insert(ctx, p, root, compositeKey(4, ""), leaf("e"))
		assert.True(t, errors.Is(err, status.ErrInvalid))
	})
}

func TestCompositeIndexerCorruptedTree(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	first := staticIndexer(t, 4)
	ix := NewCompositeIndexer(first, NewStringPathIndexer())

	// a resource leaf where a sub-index is expected
	root, err := first.Insert(ctx, p, tree.Empty, binary.BigEndian.AppendUint32(nil, 4), leaf("not a tree"))
	require.NoError(t, err)

	_, _, err = ix.Get(ctx, p, root, compositeKey(4, "foo"))
	assert.True(t, errors.Is(err, status.ErrCorruptedContent))
	_, err = ix.Add(ctx, p, root, compositeKey(4, "foo"), leaf("a"))
	assert.True(t, errors.Is(err, status.ErrCorruptedContent))
	_, _, _, err = ix.Remove(ctx, p, root, compositeKey(4, "foo"))
	assert.True(t, errors.Is(err, status.ErrCorruptedContent))
	err = ix.EnumerateLeaves(ctx, p, root, func(tree.IndexKey, tree.LeafNode) error { return nil })
	assert.True(t, errors.Is(err, status.ErrCorruptedContent))
}
