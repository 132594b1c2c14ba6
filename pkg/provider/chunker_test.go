package provider

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/oneconcern/contentstore/internal/rand"
	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// concurrencyProvider records the peak number of concurrent writes
type concurrencyProvider struct {
	Provider
	inflight atomic.Int64
	peak     atomic.Int64
}

func (c *concurrencyProvider) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	n := c.inflight.Inc()
	defer c.inflight.Dec()
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return c.Provider.Write(ctx, data)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device unplugged") }

func TestChunkerRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := newCounting(NewMemory())
	c := NewChunker(inner, ChunkSize(1024))
	assert.Equal(t, 1024, c.ChunkSize())

	content := rand.Bytes(10*1024 + 17)
	id, err := c.Write(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(content)), id.DataSize())
	assert.EqualValues(t, 12, inner.writes.Load(), "11 chunks and the chunk list")

	chunks, err := c.Chunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, chunks, 11)
	assert.Equal(t, uint64(17), chunks[10].Size())

	back, err := c.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, back)

	var buf bytes.Buffer
	n, err := c.ReadTo(ctx, &buf, id)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())

	parsed, err := ParseChunkIdentifier(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	again, err := c.WriteFrom(ctx, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	ok, err := c.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChunkerRepeatedAndEmptyContent(t *testing.T) {
	ctx := context.Background()
	c := NewChunker(NewMemory(), ChunkSize(64))

	block := rand.Bytes(64)
	content := bytes.Repeat(block, 5)
	id, err := c.Write(ctx, content)
	require.NoError(t, err)
	chunks, err := c.Chunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, chunks, 5)
	for _, chunk := range chunks {
		assert.Equal(t, chunks[0], chunk)
	}
	back, err := c.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, back)

	empty, err := c.Write(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.DataSize())
	chunks, err = c.Chunks(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	back, err = c.Read(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestChunkerParallelUploads(t *testing.T) {
	ctx := context.Background()
	inner := &concurrencyProvider{Provider: NewMemory()}
	c := NewChunker(inner, ChunkSize(128), MaxParallelUploads(2))

	content := rand.Bytes(128 * 16)
	id, err := c.Write(ctx, content)
	require.NoError(t, err)
	assert.LessOrEqual(t, inner.peak.Load(), int64(2))
	assert.GreaterOrEqual(t, inner.peak.Load(), int64(1))

	back, err := c.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, back)
}

func TestChunkerErrors(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	c := NewChunker(inner, ChunkSize(256))

	content := rand.Bytes(1000)
	id, err := c.Write(ctx, content)
	require.NoError(t, err)

	t.Run("not a chunk list", func(t *testing.T) {
		plain, err := inner.Write(ctx, []byte("plain content is not a list of chunks"))
		require.NoError(t, err)
		_, err = c.Read(ctx, NewChunkIdentifier(10, plain))
		assert.True(t, errors.Is(err, status.ErrCorruptedContent))
	})

	t.Run("size mismatch", func(t *testing.T) {
		_, err := c.Read(ctx, NewChunkIdentifier(id.DataSize()+1, id.IndexID()))
		assert.True(t, errors.Is(err, status.ErrCorruptedContent))
		_, err = c.Read(ctx, NewChunkIdentifier(id.DataSize()-1, id.IndexID()))
		assert.True(t, errors.Is(err, status.ErrCorruptedContent))
	})

	t.Run("invalid identifiers", func(t *testing.T) {
		for _, s := range []string{"zz", "", "ff"} {
			_, err := ParseChunkIdentifier(s)
			assert.Truef(t, errors.Is(err, status.ErrInvalid), "identifier %q", s)
		}
		_, err := c.Read(ctx, ChunkIdentifier{})
		assert.True(t, errors.Is(err, status.ErrInvalid))
	})

	t.Run("unreadable input", func(t *testing.T) {
		_, err := c.WriteFrom(ctx, failingReader{})
		assert.True(t, errors.Is(err, status.ErrIO))
	})

	t.Run("cancelled upload", func(t *testing.T) {
		gated := newCounting(NewMemory())
		gated.gate = make(chan struct{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewChunker(gated, ChunkSize(256)).Write(cctx, content)
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("missing chunk", func(t *testing.T) {
		chunks, err := c.Chunks(ctx, id)
		require.NoError(t, err)
		require.NoError(t, inner.Unwrite(ctx, chunks[1]))

		ok, err := c.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = c.Read(ctx, id)
		assert.True(t, IsNotFound(err))
	})
}
