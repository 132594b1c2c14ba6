package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/oneconcern/contentstore/internal/rand"
	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(s string) tree.LeafNode {
	return tree.ResourceLeaf(tree.NewResourceIdentifier(identifier.New([]byte(s))))
}

func staticIndexer(t testing.TB, keyWidth int, opts ...Option) *StaticIndexer {
	s, err := NewStaticIndexer(keyWidth, opts...)
	require.NoError(t, err)
	return s
}

func enumerate(t testing.TB, ix BasicIndexer, p provider.Provider, root tree.TreeIdentifier) map[string]tree.LeafNode {
	leaves := make(map[string]tree.LeafNode)
	var previous tree.IndexKey
	require.NoError(t, ix.EnumerateLeaves(context.Background(), p, root, func(k tree.IndexKey, l tree.LeafNode) error {
		if previous != nil {
			assert.True(t, previous.Compare(k) < 0, "keys are enumerated in order")
		}
		previous = k.Clone()
		leaves[string(k)] = l
		return nil
	}))
	return leaves
}

func TestIndexers(t *testing.T) {
	for name, ix := range map[string]BasicIndexer{
		"static":     staticIndexer(t, 1),
		"stringpath": NewStringPathIndexer(),
	} {
		ix := ix
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := provider.NewMemory()

			root, err := ix.Insert(ctx, p, tree.Empty, tree.IndexKey("a"), leaf("v1"))
			require.NoError(t, err)
			assert.False(t, root.IsEmpty())

			got, found, err := ix.Get(ctx, p, root, tree.IndexKey("a"))
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, leaf("v1"), got)

			_, found, err = ix.Get(ctx, p, root, tree.IndexKey("b"))
			require.NoError(t, err)
			assert.False(t, found)

			final, removed, ok, err := ix.Remove(ctx, p, root, tree.IndexKey("a"))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, leaf("v1"), removed)
			assert.True(t, final.IsEmpty())

			_, found, err = ix.Get(ctx, p, final, tree.IndexKey("a"))
			require.NoError(t, err)
			assert.False(t, found)

			// the previous root is still readable
			got, found, err = ix.Get(ctx, p, root, tree.IndexKey("a"))
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, leaf("v1"), got)
		})
	}
}

func TestEnumerationIgnoresInsertionOrder(t *testing.T) {
	keys := []string{"a", "b", "c"}
	for name, ix := range map[string]BasicIndexer{
		"static":     staticIndexer(t, 1),
		"stringpath": NewStringPathIndexer(),
	} {
		ix := ix
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := provider.NewMemory()
			var reference tree.TreeIdentifier

			for round := 0; round < 6; round++ {
				root := tree.Empty
				for _, i := range rand.Perm(len(keys)) {
					var err error
					// a first value, overwritten below
					root, err = ix.Insert(ctx, p, root, tree.IndexKey(keys[i]), leaf("stale"))
					require.NoError(t, err)
				}
				for _, i := range rand.Perm(len(keys)) {
					var err error
					root, err = ix.Insert(ctx, p, root, tree.IndexKey(keys[i]), leaf(keys[i]))
					require.NoError(t, err)
				}

				assert.Equal(t, map[string]tree.LeafNode{
					"a": leaf("a"),
					"b": leaf("b"),
					"c": leaf("c"),
				}, enumerate(t, ix, p, root))

				count, err := tree.Count(ctx, p, root)
				require.NoError(t, err)
				assert.Equal(t, uint64(3), count)

				if round == 0 {
					reference = root
					continue
				}
				assert.Equal(t, reference, root, "the root only depends on the indexed entries")
			}
		})
	}
}

func TestAddReplace(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	ix := NewStringPathIndexer()

	root, err := ix.Add(ctx, p, tree.Empty, tree.IndexKey("dir/file"), leaf("1"))
	require.NoError(t, err)

	_, err = ix.Add(ctx, p, root, tree.IndexKey("dir/file"), leaf("2"))
	assert.True(t, errors.Is(err, status.ErrAlreadyExists))

	_, _, err = ix.Replace(ctx, p, root, tree.IndexKey("dir/other"), leaf("2"))
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, _, err = ix.Replace(ctx, p, root, tree.IndexKey("nodir/other"), leaf("2"))
	assert.True(t, errors.Is(err, status.ErrNotFound))

	replaced, previous, err := ix.Replace(ctx, p, root, tree.IndexKey("dir/file"), leaf("2"))
	require.NoError(t, err)
	assert.Equal(t, leaf("1"), previous)
	assert.NotEqual(t, root, replaced)

	same, err := ix.Insert(ctx, p, replaced, tree.IndexKey("dir/file"), leaf("2"))
	require.NoError(t, err)
	assert.Equal(t, replaced, same, "inserting the same leaf does not change the root")

	unchanged, _, removed, err := ix.Remove(ctx, p, replaced, tree.IndexKey("dir/missing"))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, replaced, unchanged)
}

func TestRemoveRestoresPriorRoot(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	ix := NewStringPathIndexer()

	root := tree.Empty
	for i := 0; i < 20; i++ {
		var err error
		root, err = ix.Insert(ctx, p, root, tree.IndexKey(fmt.Sprintf("d%d/f%d", i%3, i)), leaf(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	for _, key := range []string{"d1/new", "d9/new", "top"} {
		updated, err := ix.Insert(ctx, p, root, tree.IndexKey(key), leaf(key))
		require.NoError(t, err)
		restored, _, ok, err := ix.Remove(ctx, p, updated, tree.IndexKey(key))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, root, restored, "removing %s restores the prior root", key)
	}
}

func TestStructuralSharing(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	ix := staticIndexer(t, 4)

	root := tree.Empty
	for i := 0; i < 500; i++ {
		var err error
		root, err = ix.Insert(ctx, p, root, tree.IndexKey(rand.Bytes(4)), leaf(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	before := p.Len()

	updated, err := ix.Insert(ctx, p, root, tree.IndexKey("zzzz"), leaf("new"))
	require.NoError(t, err)
	assert.LessOrEqual(t, p.Len()-before, ix.Depth(), "only the nodes along the path are written")

	_, found, err := ix.Get(ctx, p, root, tree.IndexKey("zzzz"))
	require.NoError(t, err)
	assert.False(t, found, "the previous version is unchanged")

	_, found, err = ix.Get(ctx, p, updated, tree.IndexKey("zzzz"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStaticIndexer(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()

	_, err := NewStaticIndexer(0)
	assert.True(t, errors.Is(err, status.ErrConfiguration))

	ix := staticIndexer(t, 5, LayerWidth(2))
	assert.Equal(t, 3, ix.Depth())

	_, err = ix.Insert(ctx, p, tree.Empty, tree.IndexKey("abc"), leaf("x"))
	assert.True(t, errors.Is(err, status.ErrInvalid))
	_, _, err = ix.Get(ctx, p, tree.Empty, tree.IndexKey("abcdef"))
	assert.True(t, errors.Is(err, status.ErrInvalid))

	root, err := ix.Insert(ctx, p, tree.Empty, tree.IndexKey("abcde"), leaf("x"))
	require.NoError(t, err)
	root, err = ix.Insert(ctx, p, root, tree.IndexKey("abcdf"), leaf("y"))
	require.NoError(t, err)

	var depths []int
	require.NoError(t, tree.Visit(ctx, p, root, tree.VisitorFuncs{
		Leaf: func(_ context.Context, l tree.LeafInfo) (tree.Action, error) {
			depths = append(depths, l.Depth)
			return tree.Continue, nil
		},
	}))
	assert.Equal(t, []int{3, 3}, depths)
	assert.Equal(t, map[string]tree.LeafNode{"abcde": leaf("x"), "abcdf": leaf("y")}, enumerate(t, ix, p, root))
}

func TestStringPathKeys(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	ix := NewStringPathIndexer()

	for _, key := range []string{"", "/", "//", "a//b", "\xff\xfe", "a/\xc3"} {
		_, err := ix.Insert(ctx, p, tree.Empty, tree.IndexKey(key), leaf("x"))
		assert.Truef(t, errors.Is(err, status.ErrInvalid), "key %q", key)
	}

	t.Run("leading and trailing separators are dropped", func(t *testing.T) {
		root, err := ix.Insert(ctx, p, tree.Empty, tree.IndexKey("/a/b"), leaf("ab"))
		require.NoError(t, err)

		for _, key := range []string{"a/b", "/a/b", "a/b/", "/a/b//"} {
			got, found, err := ix.Get(ctx, p, root, tree.IndexKey(key))
			require.NoError(t, err)
			require.Truef(t, found, "key %q", key)
			assert.Equal(t, leaf("ab"), got)
		}
		assert.Equal(t, map[string]tree.LeafNode{"a/b": leaf("ab")}, enumerate(t, ix, p, root))

		same, err := ix.Insert(ctx, p, tree.Empty, tree.IndexKey("a/b/"), leaf("ab"))
		require.NoError(t, err)
		assert.Equal(t, root, same)

		_, err = ix.Add(ctx, p, root, tree.IndexKey("a/b"), leaf("other"))
		assert.True(t, errors.Is(err, status.ErrAlreadyExists))
	})

	// a file and a directory may share a name
	root, err := ix.Insert(ctx, p, tree.Empty, tree.IndexKey("a"), leaf("file"))
	require.NoError(t, err)
	root, err = ix.Insert(ctx, p, root, tree.IndexKey("a/b"), leaf("nested"))
	require.NoError(t, err)
	assert.Equal(t, map[string]tree.LeafNode{"a": leaf("file"), "a/b": leaf("nested")}, enumerate(t, ix, p, root))

	custom := NewStringPathIndexer(Separator(':'))
	root, err = custom.Insert(ctx, p, tree.Empty, tree.IndexKey("x:y"), leaf("v"))
	require.NoError(t, err)
	entries, err := custom.List(ctx, p, root, "x")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x:y", entries[0].Key.String())
}

func TestList(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()
	ix := NewStringPathIndexer()

	root := tree.Empty
	for _, key := range []string{"docs/a.md", "docs/img/logo.png", "docs/b.md", "README"} {
		var err error
		root, err = ix.Insert(ctx, p, root, tree.IndexKey(key), leaf(key))
		require.NoError(t, err)
	}

	entries, err := ix.List(ctx, p, root, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "README", entries[0].Name)
	assert.False(t, entries[0].IsDir())
	assert.Equal(t, "docs", entries[1].Name)
	assert.True(t, entries[1].IsDir())
	assert.Equal(t, "docs/", entries[1].Key.String())

	for _, dir := range []string{"docs", "docs/"} {
		entries, err = ix.List(ctx, p, root, dir)
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"a.md", "b.md", "img"}, names)
		assert.Equal(t, "docs/img/", entries[2].Key.String())
	}

	for _, dir := range []string{"/", "//"} {
		entries, err = ix.List(ctx, p, root, dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	}
	entries, err = ix.List(ctx, p, root, "/docs/img/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "docs/img/logo.png", entries[0].Key.String())

	_, err = ix.List(ctx, p, root, "\xff")
	assert.True(t, errors.Is(err, status.ErrInvalid))
	_, err = ix.List(ctx, p, root, "missing")
	assert.True(t, errors.Is(err, status.ErrNotFound))
	_, err = ix.List(ctx, p, root, "README")
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func TestEmptyBranches(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()

	pruning := NewStringPathIndexer()
	root, err := pruning.Insert(ctx, p, tree.Empty, tree.IndexKey("keep"), leaf("k"))
	require.NoError(t, err)
	withDir, err := pruning.Insert(ctx, p, root, tree.IndexKey("dir/sub/file"), leaf("f"))
	require.NoError(t, err)
	pruned, _, _, err := pruning.Remove(ctx, p, withDir, tree.IndexKey("dir/sub/file"))
	require.NoError(t, err)
	assert.Equal(t, root, pruned)

	keeping := NewStringPathIndexer(KeepEmptyBranches(true))
	kept, _, _, err := keeping.Remove(ctx, p, withDir, tree.IndexKey("dir/sub/file"))
	require.NoError(t, err)
	assert.NotEqual(t, root, kept)

	entries, err := keeping.List(ctx, p, kept, "dir/sub")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, map[string]tree.LeafNode{"keep": leaf("k")}, enumerate(t, keeping, p, kept))
}

func TestCorruptedLayout(t *testing.T) {
	ctx := context.Background()
	p := provider.NewMemory()

	// a static index with one level cannot be read with two levels
	flat := staticIndexer(t, 2, LayerWidth(2))
	root, err := flat.Insert(ctx, p, tree.Empty, tree.IndexKey("ab"), leaf("x"))
	require.NoError(t, err)

	deep := staticIndexer(t, 2)
	_, _, err = deep.Get(ctx, p, root, tree.IndexKey("ab"))
	require.NoError(t, err, "a missing segment is not a corruption")

	root, err = staticIndexer(t, 1).Insert(ctx, p, tree.Empty, tree.IndexKey("a"), leaf("x"))
	require.NoError(t, err)
	_, _, err = deep.Get(ctx, p, root, tree.IndexKey("ab"))
	assert.True(t, errors.Is(err, status.ErrCorruptedContent))
	_, err = deep.Insert(ctx, p, root, tree.IndexKey("ab"), leaf("y"))
	assert.True(t, errors.Is(err, status.ErrCorruptedContent))
}
