package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/indexer"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newIndex(t testing.TB) *Index {
	return New(provider.NewMemory(), indexer.NewStringPathIndexer(), nil, Logger(zaptest.NewLogger(t)))
}

func TestIndexContent(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t)
	assert.True(t, ix.Root().IsEmpty())

	rid, err := ix.InsertContent(ctx, tree.IndexKey("assets/logo.png"), []byte("not really a png"))
	require.NoError(t, err)
	assert.Equal(t, identifier.New([]byte("not really a png")), rid.Identifier)
	assert.EqualValues(t, 1, ix.Shared().Version())

	data, found, err := ix.GetContent(ctx, tree.IndexKey("assets/logo.png"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("not really a png"), data)

	_, found, err = ix.GetContent(ctx, tree.IndexKey("assets/missing.png"))
	require.NoError(t, err)
	assert.False(t, found)

	n, err := ix.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	leaf, removed, err := ix.Remove(ctx, tree.IndexKey("assets/logo.png"))
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, tree.ResourceLeaf(rid), leaf)
	assert.True(t, ix.Root().IsEmpty())
}

func TestIndexTreeRootLeaves(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t)

	rid, err := ix.InsertContent(ctx, tree.IndexKey("a"), []byte("resource a"))
	require.NoError(t, err)
	nested := tree.TreeRootLeaf(ix.Root())
	_, err = ix.Add(ctx, tree.IndexKey("snapshot"), nested)
	require.NoError(t, err)

	_, _, err = ix.GetContent(ctx, tree.IndexKey("snapshot"))
	assert.True(t, errors.Is(err, status.ErrInvalid))

	resources := make(map[string]tree.ResourceIdentifier)
	require.NoError(t, ix.EnumerateResources(ctx, func(k tree.IndexKey, r tree.ResourceIdentifier) error {
		resources[k.String()] = r
		return nil
	}))
	assert.Equal(t, map[string]tree.ResourceIdentifier{"a": rid}, resources)

	_, err = ix.Add(ctx, tree.IndexKey("snapshot"), nested)
	assert.True(t, errors.Is(err, status.ErrAlreadyExists))

	previous, err := ix.Replace(ctx, tree.IndexKey("snapshot"), tree.ResourceLeaf(rid))
	require.NoError(t, err)
	assert.Equal(t, nested, previous)
}

func TestIndexRangeAndDiff(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t)

	for i := 0; i < 10; i++ {
		_, err := ix.InsertContent(ctx, tree.IndexKey(fmt.Sprintf("dir%d/file", i%2)), []byte(fmt.Sprint(i)))
		require.NoError(t, err)
		_, err = ix.InsertContent(ctx, tree.IndexKey(fmt.Sprintf("dir%d/file%d", i%2, i)), []byte(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	var keys []string
	require.NoError(t, ix.EnumerateRange(ctx, tree.PrefixRange(tree.IndexKey("dir1/")), func(k tree.IndexKey, _ tree.LeafNode) error {
		keys = append(keys, k.String())
		return nil
	}))
	assert.Equal(t, []string{"dir1/file", "dir1/file1", "dir1/file3", "dir1/file5", "dir1/file7", "dir1/file9"}, keys)

	before := ix.Root()
	_, err := ix.InsertContent(ctx, tree.IndexKey("z"), []byte("z"))
	require.NoError(t, err)

	var diffs []tree.Difference
	require.NoError(t, ix.Diff(ctx, before, func(d tree.Difference) error {
		diffs = append(diffs, d)
		return nil
	}))
	require.Len(t, diffs, 1)
	assert.Equal(t, tree.AddedInB, diffs[0].Kind)
	assert.Equal(t, "z", diffs[0].Key.String())

	require.NoError(t, ix.Diff(ctx, ix.Root(), func(tree.Difference) error {
		t.Fatal("no difference expected")
		return nil
	}))
}

func TestIndexErrorsDoNotPublish(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t)
	_, err := ix.InsertContent(ctx, tree.IndexKey("a"), []byte("a"))
	require.NoError(t, err)
	root := ix.Root()

	_, err = ix.Insert(ctx, tree.IndexKey("bad//key"), tree.ResourceLeaf(tree.NewResourceIdentifier(identifier.New([]byte("x")))))
	assert.True(t, errors.Is(err, status.ErrInvalid))
	assert.Equal(t, root, ix.Root())
	assert.EqualValues(t, 1, ix.Shared().Version())
}

func TestSharedTreeIdentifier(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	ixr := indexer.NewStringPathIndexer()
	shared := NewSharedTreeIdentifier(tree.Empty)

	// writers serialized with Update never lose a publication
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := shared.Update(func(root tree.TreeIdentifier) (tree.TreeIdentifier, error) {
				leaf := tree.ResourceLeaf(tree.NewResourceIdentifier(identifier.New([]byte(fmt.Sprint(i)))))
				return ixr.Insert(ctx, p, root, tree.IndexKey(fmt.Sprintf("k%02d", i)), leaf)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := tree.Count(ctx, p, shared.Get())
	require.NoError(t, err)
	assert.EqualValues(t, 20, n)
	assert.EqualValues(t, 20, shared.Version())

	previous := shared.Swap(tree.Empty)
	assert.False(t, previous.IsEmpty())
	assert.True(t, shared.Get().IsEmpty())

	shared.Set(tree.Empty)
	assert.EqualValues(t, 21, shared.Version(), "publishing the same root is not a new version")

	_, err = shared.Update(func(tree.TreeIdentifier) (tree.TreeIdentifier, error) {
		return previous, status.ErrIO
	})
	assert.True(t, errors.Is(err, status.ErrIO))
	assert.True(t, shared.Get().IsEmpty())
}
