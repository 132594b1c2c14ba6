package provider

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"io"
	"sync"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize is the size of chunks, except for the last chunk of some content
	DefaultChunkSize = 32 << 20

	// DefaultMaxParallelUploads bounds the number of chunks transferred concurrently
	DefaultMaxParallelUploads = 8

	chunkFormatLinear byte = 1
)

// ChunkIdentifier refers to some content split in chunks: the size of the content, and the
// identifier of the ordered list of its chunks.
type ChunkIdentifier struct {
	size  uint64
	index identifier.Identifier
}

// NewChunkIdentifier builds a chunk identifier
func NewChunkIdentifier(size uint64, index identifier.Identifier) ChunkIdentifier {
	return ChunkIdentifier{size: size, index: index}
}

// DataSize is the size of the reassembled content
func (c ChunkIdentifier) DataSize() uint64 { return c.size }

// IndexID identifies the list of chunks
func (c ChunkIdentifier) IndexID() identifier.Identifier { return c.index }

// IsZero tells if this is the zero value
func (c ChunkIdentifier) IsZero() bool { return c.index.IsZero() }

// Bytes is the binary encoding: the size as an uvarint, then the index identifier
func (c ChunkIdentifier) Bytes() []byte {
	buf := binary.AppendUvarint(nil, c.size)
	return append(buf, c.index.Bytes()...)
}

func (c ChunkIdentifier) String() string {
	return hex.EncodeToString(c.Bytes())
}

// ParseChunkIdentifier parses the hex representation of a chunk identifier
func ParseChunkIdentifier(s string) (ChunkIdentifier, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return ChunkIdentifier{}, status.ErrInvalid.Wrapf("chunk identifier %q: %v", s, err)
	}
	size, n := binary.Uvarint(buf)
	if n <= 0 {
		return ChunkIdentifier{}, status.ErrInvalid.Wrapf("chunk identifier %q: bad size", s)
	}
	index, err := identifier.FromBytes(buf[n:])
	if err != nil {
		return ChunkIdentifier{}, err
	}
	return ChunkIdentifier{size: size, index: index}, nil
}

// Chunker splits large content in chunks stored in a provider, and reassembles it.
//
// The list of chunks is stored as content too: a format byte, then each chunk identifier
// prefixed by its length as an uvarint.
type Chunker struct {
	p Provider
	o options
}

// NewChunker builds a chunker storing chunks in some provider
func NewChunker(p Provider, opts ...Option) *Chunker {
	return &Chunker{
		p: p,
		o: applyOptions(opts),
	}
}

func (c *Chunker) String() string { return "chunker(" + c.p.String() + ")" }

// ChunkSize of this chunker
func (c *Chunker) ChunkSize() int { return c.o.chunkSize }

// Write content in chunks
func (c *Chunker) Write(ctx context.Context, data []byte) (ChunkIdentifier, error) {
	rest := data
	return c.write(ctx, func() ([]byte, error) {
		if len(rest) == 0 {
			return nil, io.EOF
		}
		chunk := rest[:min(c.o.chunkSize, len(rest))]
		rest = rest[len(chunk):]
		return chunk, nil
	})
}

// WriteFrom reads content in chunks and uploads them concurrently.
//
// At most MaxParallelUploads chunks are held in memory at once.
func (c *Chunker) WriteFrom(ctx context.Context, r io.Reader) (ChunkIdentifier, error) {
	var pending error
	return c.write(ctx, func() ([]byte, error) {
		if pending != nil {
			return nil, pending
		}
		chunk := make([]byte, c.o.chunkSize)
		n, err := io.ReadFull(r, chunk)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n == 0 {
			return nil, err
		}
		pending = err
		return chunk[:n], nil
	})
}

// write uploads the chunks returned by next until it returns io.EOF, then the list of chunks
func (c *Chunker) write(ctx context.Context, next func() ([]byte, error)) (ChunkIdentifier, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.o.maxParallel)

	var (
		slots []*identifier.Identifier
		size  uint64
		err   error
	)
	for gctx.Err() == nil {
		var chunk []byte
		chunk, err = next()
		if err != nil {
			break
		}
		slot := new(identifier.Identifier)
		slots = append(slots, slot)
		size += uint64(len(chunk))
		g.Go(func() error {
			id, err := c.p.Write(gctx, chunk)
			if err != nil {
				return err
			}
			*slot = id
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return ChunkIdentifier{}, werr
	}
	if err := ctx.Err(); err != nil {
		return ChunkIdentifier{}, err
	}
	if err != nil && err != io.EOF {
		return ChunkIdentifier{}, status.ErrIO.Wrapf("%v: reading content: %v", c, err)
	}

	var buf bytes.Buffer
	buf.WriteByte(chunkFormatLinear)
	for _, slot := range slots {
		raw := slot.Bytes()
		buf.Write(binary.AppendUvarint(nil, uint64(len(raw))))
		buf.Write(raw)
	}
	index, err := c.p.Write(ctx, buf.Bytes())
	if err != nil {
		return ChunkIdentifier{}, err
	}

	id := NewChunkIdentifier(size, index)
	c.o.l.Debug("chunked write", zap.Stringer("id", id), zap.Uint64("size", size), zap.Int("chunks", len(slots)))
	return id, nil
}

// Chunks lists the identifiers of the chunks of some content, in order
func (c *Chunker) Chunks(ctx context.Context, id ChunkIdentifier) ([]identifier.Identifier, error) {
	if id.IsZero() {
		return nil, status.ErrInvalid.Wrapf("zero chunk identifier")
	}
	raw, err := c.p.Read(ctx, id.index)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || raw[0] != chunkFormatLinear {
		return nil, status.ErrCorruptedContent.Wrapf("%v: %v is not a chunk index", c, id)
	}

	var ids []identifier.Identifier
	rest := raw[1:]
	for len(rest) > 0 {
		l, n := binary.Uvarint(rest)
		if n <= 0 || l > uint64(len(rest)-n) {
			return nil, status.ErrCorruptedContent.Wrapf("%v: truncated chunk index %v", c, id)
		}
		chunk, err := identifier.FromBytes(rest[n : n+int(l)])
		if err != nil {
			return nil, status.ErrCorruptedContent.Wrap(err)
		}
		ids = append(ids, chunk)
		rest = rest[n+int(l):]
	}
	return ids, nil
}

// Read reassembles some chunked content
func (c *Chunker) Read(ctx context.Context, id ChunkIdentifier) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(id.DataSize()))
	if _, err := c.ReadTo(ctx, &buf, id); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadTo streams some chunked content to a writer.
//
// Chunks are fetched concurrently, by windows of MaxParallelUploads chunks.
func (c *Chunker) ReadTo(ctx context.Context, w io.Writer, id ChunkIdentifier) (int64, error) {
	ids, err := c.Chunks(ctx, id)
	if err != nil {
		return 0, err
	}

	var written int64
	for start := 0; start < len(ids); start += c.o.maxParallel {
		window := ids[start:min(start+c.o.maxParallel, len(ids))]
		chunks := make([][]byte, len(window))

		g, gctx := errgroup.WithContext(ctx)
		for i, chunk := range window {
			i, chunk := i, chunk
			g.Go(func() error {
				data, err := c.p.Read(gctx, chunk)
				if err != nil {
					return err
				}
				chunks[i] = data
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return written, err
		}

		for _, data := range chunks {
			if written+int64(len(data)) > int64(id.DataSize()) {
				return written, status.ErrCorruptedContent.Wrapf("%v: %v has more than %d bytes", c, id, id.DataSize())
			}
			n, err := w.Write(data)
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}

	if written != int64(id.DataSize()) {
		return written, status.ErrCorruptedContent.Wrapf("%v: %v has %d bytes, expected %d", c, id, written, id.DataSize())
	}
	return written, nil
}

// Exists tells if the chunk list and all chunks are present
func (c *Chunker) Exists(ctx context.Context, id ChunkIdentifier) (bool, error) {
	ids, err := c.Chunks(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	var (
		mx      sync.Mutex
		missing bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.o.maxParallel)
	for _, chunk := range ids {
		chunk := chunk
		g.Go(func() error {
			ok, err := c.p.Exists(gctx, chunk)
			if err != nil {
				return err
			}
			if !ok {
				mx.Lock()
				missing = true
				mx.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return !missing, nil
}
