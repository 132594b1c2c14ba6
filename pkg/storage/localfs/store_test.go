// Copyright © 2018 One Concern

package localfs

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/storage"
	"github.com/oneconcern/contentstore/pkg/storage/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHas(t *testing.T) {
	bs, cleanup := setupStore(t)
	defer cleanup()

	has, err := bs.Has(context.Background(), "sixteentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "seventeentons")
	require.NoError(t, err)
	require.True(t, has)

	has, err = bs.Has(context.Background(), "fifteentons")
	require.NoError(t, err)
	require.False(t, has)
}

func TestGet(t *testing.T) {
	bs, cleanup := setupStore(t)
	defer cleanup()

	rdr, err := bs.Get(context.Background(), "sixteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "this is the text", string(b))

	rdr, err = bs.Get(context.Background(), "seventeentons")
	require.NoError(t, err)
	b, err = io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "this is the text for another thing", string(b))

	_, err = bs.Get(context.Background(), "fifteentons")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotExists))
}

func TestSize(t *testing.T) {
	bs, cleanup := setupStore(t)
	defer cleanup()

	sizer, ok := bs.(storage.Sizer)
	require.True(t, ok)

	size, err := sizer.Size(context.Background(), "sixteentons")
	require.NoError(t, err)
	assert.Equal(t, int64(len("this is the text")), size)

	_, err = sizer.Size(context.Background(), "fifteentons")
	assert.True(t, errors.Is(err, status.ErrNotExists))
}

func TestKeys(t *testing.T) {
	bs, cleanup := setupStore(t)
	defer cleanup()

	keys, err := bs.Keys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 2)
}

func TestDelete(t *testing.T) {
	bs, cleanup := setupStore(t)
	defer cleanup()

	require.NoError(t, bs.Delete(context.Background(), "seventeentons"))
	k, _ := bs.Keys(context.Background())
	assert.Len(t, k, 1)

	require.NoError(t, bs.Delete(context.Background(), "seventeentons"), "deleting twice is not an error")
}

func TestClear(t *testing.T) {
	bs, cleanup := setupStore(t)
	defer cleanup()

	require.NoError(t, bs.Clear(context.Background()))
	k, _ := bs.Keys(context.Background())
	require.Empty(t, k)
}

func TestPut(t *testing.T) {
	bs, cleanup := setupStore(t)
	defer cleanup()

	content := bytes.NewBufferString("here we go once again")
	err := bs.Put(context.Background(), "ab/cd/eighteentons", content, storage.NoOverWrite)
	require.NoError(t, err)

	rdr, err := bs.Get(context.Background(), "ab/cd/eighteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())

	assert.Equal(t, "here we go once again", string(b))

	k, _ := bs.Keys(context.Background())
	assert.Len(t, k, 3)
	assert.Contains(t, k, "ab/cd/eighteentons")

	err = bs.Put(context.Background(), "ab/cd/eighteentons", bytes.NewBufferString("again"), storage.NoOverWrite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))

	require.NoError(t, bs.Put(context.Background(), "ab/cd/eighteentons", bytes.NewBufferString("again"), storage.OverWrite))
}

func TestAtomicPut(t *testing.T) {
	fs := afero.NewMemMapFs()
	bs, err := NewAtomic(fs)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, bs.Put(ctx, "aa/bb/object", bytes.NewBufferString("same content"), storage.OverWrite))
		}()
	}
	wg.Wait()

	keys, err := bs.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa/bb/object"}, keys, "staging area is not listed")

	staged, err := afero.ReadDir(fs, nestedPutStageName+"/aa/bb")
	require.NoError(t, err)
	assert.Empty(t, staged)

	err = bs.Put(ctx, "aa/bb/object", bytes.NewBufferString("same content"), storage.NoOverWrite)
	assert.True(t, errors.Is(err, status.ErrExists))

	_, err = bs.Has(ctx, nestedPutStageName+"/x")
	assert.True(t, errors.Is(err, status.ErrInvalidResource))

	require.NoError(t, bs.Clear(ctx))
	require.NoError(t, bs.Put(ctx, "k", bytes.NewBufferString("v"), storage.NoOverWrite))
	assert.Contains(t, bs.String(), "localfs-atomic")
}

func setupStore(t testing.TB) (storage.Store, func()) {
	t.Helper()

	fs := afero.NewMemMapFs()
	f, err := fs.Create("sixteentons")
	require.NoError(t, err)
	_, err = f.WriteString("this is the text")
	require.NoError(t, err)
	f.Close()

	ff, err := fs.Create("seventeentons")
	require.NoError(t, err)
	_, err = ff.WriteString("this is the text for another thing")
	require.NoError(t, err)
	ff.Close()

	return New(fs), func() {}
}
