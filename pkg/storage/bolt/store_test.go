package bolt

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/storage"
	"github.com/oneconcern/contentstore/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "objects.db"), Bucket("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	has, err := s.Has(ctx, "a/b")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.Get(ctx, "a/b")
	require.Error(t, err)
	assert.True(t, status.IsNotExist(err))

	require.NoError(t, s.Put(ctx, "a/b", bytes.NewBufferString("payload"), storage.NoOverWrite))
	has, err = s.Has(ctx, "a/b")
	require.NoError(t, err)
	assert.True(t, has)

	rdr, err := s.Get(ctx, "a/b")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "payload", string(b))

	err = s.Put(ctx, "a/b", bytes.NewBufferString("other"), storage.NoOverWrite)
	assert.True(t, errors.Is(err, status.ErrExists))

	require.NoError(t, s.Put(ctx, "c", bytes.NewBufferString("x"), storage.OverWrite))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "c"}, keys)

	require.NoError(t, s.Delete(ctx, "c"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, keys)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Contains(t, s.String(), "objects.db")
}
