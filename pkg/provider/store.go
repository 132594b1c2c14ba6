package provider

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"time"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/storage"
	"github.com/oneconcern/contentstore/pkg/storage/localfs"
	storagestatus "github.com/oneconcern/contentstore/pkg/storage/status"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var _ Provider = &StoreProvider{}

// StoreProvider stores content in a key/value storage.Store.
//
// Objects are sharded by the leading bytes of their hash: "ab/cd/<identifier>".
type StoreProvider struct {
	store storage.Store
	o     options
}

// NewStoreProvider builds a content provider on top of a blob store
func NewStoreProvider(store storage.Store, opts ...Option) *StoreProvider {
	return &StoreProvider{
		store: store,
		o:     applyOptions(opts),
	}
}

// NewLocal builds a provider storing content as files under some directory
func NewLocal(dir string, opts ...Option) (*StoreProvider, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, status.ErrConfiguration.Wrapf("local provider at %q: %v", dir, err)
	}
	return NewLocalFs(afero.NewBasePathFs(afero.NewOsFs(), dir), opts...)
}

// NewLocalFs builds a provider storing content on some afero file system
func NewLocalFs(fs afero.Fs, opts ...Option) (*StoreProvider, error) {
	store, err := localfs.NewAtomic(fs)
	if err != nil {
		return nil, status.ErrConfiguration.Wrap(err)
	}
	return NewStoreProvider(store, opts...), nil
}

func (s *StoreProvider) String() string { return s.store.String() }

// Store exposes the underlying blob store
func (s *StoreProvider) Store() storage.Store { return s.store }

// Path of the object holding some content
func (s *StoreProvider) Path(id identifier.Identifier) string {
	h := id.HashString()
	return path.Join(h[:2], h[2:4], id.String())
}

// Read and verify content
func (s *StoreProvider) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	if data, ok := ReadInline(id); ok {
		return data, nil
	}
	if err := validate(id); err != nil {
		return nil, err
	}

	s.o.l.Debug("Start store Read", zap.Stringer("id", id))
	defer func(t0 time.Time) {
		s.o.l.Debug("End store Read", zap.Stringer("id", id), zap.Duration("duration", time.Since(t0)))
	}(time.Now())

	rdr, err := s.store.Get(ctx, s.Path(id))
	if err != nil {
		if storagestatus.IsNotExist(err) {
			return nil, notFound(s, id)
		}
		return nil, status.ErrIO.Wrap(err)
	}
	defer func() { _ = rdr.Close() }()

	var buf bytes.Buffer
	buf.Grow(int(id.Size()))
	if _, err := storage.PipeIO(&buf, rdr); err != nil {
		return nil, status.ErrIO.Wrap(err)
	}

	data := buf.Bytes()
	if err := verify(s, id, data); err != nil {
		s.o.l.Warn("stored content does not match its identifier", zap.Stringer("id", id), zap.String("store", s.String()))
		return nil, err
	}
	return data, nil
}

// Write content, unless it is already stored
func (s *StoreProvider) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	var empty identifier.Identifier

	id, err := identifier.NewWithAlgorithm(s.o.alg, data)
	if err != nil {
		return empty, err
	}
	key := s.Path(id)

	has, err := s.store.Has(ctx, key)
	if err != nil {
		return empty, status.ErrIO.Wrap(err)
	}
	if has {
		if s.o.verifyOnPut {
			if err := s.checkExisting(ctx, id, data); err != nil {
				return empty, err
			}
			return id, nil
		}
		if err := s.checkSize(ctx, id); err != nil {
			return empty, err
		}
		return id, nil
	}

	s.o.l.Debug("Start store Write", zap.Stringer("id", id), zap.Int("size", len(data)))
	err = s.store.Put(ctx, key, bytes.NewReader(data), storage.NoOverWrite)
	if err != nil && !errors.Is(err, storagestatus.ErrExists) {
		return empty, status.ErrIO.Wrap(err)
	}
	s.o.l.Debug("End store Write", zap.Stringer("id", id))
	return id, nil
}

func (s *StoreProvider) checkExisting(ctx context.Context, id identifier.Identifier, data []byte) error {
	existing, err := s.Read(ctx, id)
	if err != nil {
		if errors.Is(err, status.ErrCorruptedContent) {
			return status.ErrUnexpectedContent.Wrap(err)
		}
		return err
	}
	if !bytes.Equal(existing, data) {
		return status.ErrUnexpectedContent.Wrapf("%v: %v", s, id)
	}
	return nil
}

// checkSize compares the size of a stored object with the size of its identifier
func (s *StoreProvider) checkSize(ctx context.Context, id identifier.Identifier) error {
	size, err := s.storedSize(ctx, s.Path(id))
	if err != nil {
		if storagestatus.IsNotExist(err) {
			return notFound(s, id)
		}
		return status.ErrIO.Wrap(err)
	}
	if uint64(size) != id.Size() {
		s.o.l.Warn("stored content has an unexpected size",
			zap.Stringer("id", id), zap.Int64("size", size), zap.String("store", s.String()))
		return status.ErrUnexpectedContent.Wrapf("%v: %v has size %d", s, id, size)
	}
	return nil
}

func (s *StoreProvider) storedSize(ctx context.Context, key string) (int64, error) {
	if sizer, ok := s.store.(storage.Sizer); ok {
		return sizer.Size(ctx, key)
	}
	rdr, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rdr.Close() }()
	return io.Copy(io.Discard, rdr)
}

// Exists checks for content
func (s *StoreProvider) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	if id.IsData() {
		return true, nil
	}
	if err := validate(id); err != nil {
		return false, err
	}
	has, err := s.store.Has(ctx, s.Path(id))
	if err != nil {
		return false, status.ErrIO.Wrap(err)
	}
	return has, nil
}

// Unwrite removes content
func (s *StoreProvider) Unwrite(ctx context.Context, id identifier.Identifier) error {
	if s.o.appendOnly {
		return status.ErrUnwriteNotSupported.Wrapf("%v is append-only", s)
	}
	if id.IsData() {
		return nil
	}
	if err := validate(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, s.Path(id)); err != nil && !storagestatus.IsNotExist(err) {
		return status.ErrIO.Wrap(err)
	}
	return nil
}

// SupportsUnwrite unless append-only
func (s *StoreProvider) SupportsUnwrite() bool { return !s.o.appendOnly }

// Close the underlying store, when it holds resources
func (s *StoreProvider) Close() error {
	if closer, ok := s.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
