package provider

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oneconcern/contentstore/internal/rand"
	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/storage"
	"github.com/oneconcern/contentstore/pkg/storage/bolt"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocal(t testing.TB, opts ...Option) (*StoreProvider, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	p, err := NewLocalFs(fs, opts...)
	require.NoError(t, err)
	return p, fs
}

func TestStoreProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, _ := setupLocal(t)

	content := rand.Bytes(10000)
	id, err := p.Write(ctx, content)
	require.NoError(t, err)

	back, err := p.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, back)

	ok, err := p.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	key := p.Path(id)
	assert.True(t, strings.HasPrefix(key, id.HashString()[:2]+"/"+id.HashString()[2:4]+"/"))
	assert.True(t, strings.HasSuffix(key, id.String()))

	keys, err := p.Store().Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestStoreProviderIdempotentWrite(t *testing.T) {
	ctx := context.Background()
	p, fs := setupLocal(t)
	content := []byte("write me twice, store me once")

	id1, err := p.Write(ctx, content)
	require.NoError(t, err)
	info, err := fs.Stat(p.Path(id1))
	require.NoError(t, err)
	modified := info.ModTime()

	id2, err := p.Write(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	info, err = fs.Stat(p.Path(id1))
	require.NoError(t, err)
	assert.Equal(t, modified, info.ModTime(), "existing content is not written again")
}

func TestStoreProviderCorruption(t *testing.T) {
	ctx := context.Background()
	p, fs := setupLocal(t)

	id, err := p.Write(ctx, []byte("pristine content"))
	require.NoError(t, err)

	// tamper with the stored object
	require.NoError(t, afero.WriteFile(fs, p.Path(id), []byte("pristine c0ntent"), 0600))

	_, err = p.Read(ctx, id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrCorruptedContent))

	// a rewrite with verification detects the conflict
	verifying := NewStoreProvider(p.Store(), VerifyOnPut(true))
	_, err = verifying.Write(ctx, []byte("pristine content"))
	assert.True(t, errors.Is(err, status.ErrUnexpectedContent))
}

func TestStoreProviderTruncatedObject(t *testing.T) {
	ctx := context.Background()
	p, fs := setupLocal(t)
	content := []byte("content that gets truncated on disk")

	id, err := p.Write(ctx, content)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, p.Path(id), []byte("short"), 0600))

	_, err = p.Write(ctx, content)
	assert.True(t, errors.Is(err, status.ErrUnexpectedContent))

	// same size is not checked further without verification
	require.NoError(t, afero.WriteFile(fs, p.Path(id), bytes.Repeat([]byte("x"), len(content)), 0600))
	again, err := p.Write(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	t.Run("store without sizes", func(t *testing.T) {
		store, err := bolt.New(filepath.Join(t.TempDir(), "cas.db"))
		require.NoError(t, err)
		bp := NewStoreProvider(store)
		defer func() { require.NoError(t, bp.Close()) }()

		id, err := bp.Write(ctx, content)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, bp.Path(id), strings.NewReader("short"), storage.OverWrite))

		_, err = bp.Write(ctx, content)
		assert.True(t, errors.Is(err, status.ErrUnexpectedContent))
	})
}

func TestStoreProviderNotFoundAndUnwrite(t *testing.T) {
	ctx := context.Background()
	p, _ := setupLocal(t)

	missing := identifier.New([]byte("missing"))
	_, err := p.Read(ctx, missing)
	assert.True(t, IsNotFound(err))

	id, err := p.Write(ctx, []byte("short lived"))
	require.NoError(t, err)
	require.NoError(t, Unwrite(ctx, p, id))
	ok, err := p.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, p.Unwrite(ctx, id), "unwriting absent content is not an error")

	appendOnly := NewStoreProvider(p.Store(), AppendOnly(true))
	assert.False(t, appendOnly.SupportsUnwrite())
	err = Unwrite(ctx, appendOnly, id)
	assert.True(t, errors.Is(err, status.ErrUnwriteNotSupported))

	inline := identifier.NewData([]byte("abc"))
	data, err := p.Read(ctx, inline)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
}

func TestStoreProviderBolt(t *testing.T) {
	ctx := context.Background()
	store, err := bolt.New(filepath.Join(t.TempDir(), "cas.db"))
	require.NoError(t, err)
	p := NewStoreProvider(store, HashAlgorithm(identifier.Blake2b256))
	defer func() { require.NoError(t, p.Close()) }()

	content := rand.Bytes(512)
	id, err := p.Write(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, identifier.Blake2b256, id.Algorithm())

	back, err := p.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, back)
}

func TestNewLocal(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "objects")
	p, err := NewLocal(dir)
	require.NoError(t, err)

	id, err := p.Write(ctx, []byte("on disk"))
	require.NoError(t, err)

	reopened, err := NewLocal(dir)
	require.NoError(t, err)
	data, err := reopened.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("on disk"), data)
	assert.Contains(t, p.String(), "objects")
}
