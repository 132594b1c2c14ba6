// Package bolt provides a storage.Store persisted in a single bbolt database file.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oneconcern/contentstore/pkg/storage"
	"github.com/oneconcern/contentstore/pkg/storage/status"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// DefaultBucket holds objects unless another bucket is configured
const DefaultBucket = "objects"

// Option is a functor to pass optional parameters to the bolt store
type Option func(*boltStore)

// Bucket sets the bolt bucket used to hold objects
func Bucket(name string) Option {
	return func(b *boltStore) {
		if name != "" {
			b.bucket = []byte(name)
		}
	}
}

// Timeout sets how long opening the database waits for the file lock
func Timeout(d time.Duration) Option {
	return func(b *boltStore) {
		b.timeout = d
	}
}

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(b *boltStore) {
		if logger != nil {
			b.l = logger
		}
	}
}

// Store is a storage.Store which must be closed after use
type Store interface {
	storage.Store
	io.Closer
}

type boltStore struct {
	db      *bolt.DB
	path    string
	bucket  []byte
	timeout time.Duration
	l       *zap.Logger
}

// New opens or creates a bolt database file to be used as a store
func New(path string, opts ...Option) (Store, error) {
	b := &boltStore{
		path:    path,
		bucket:  []byte(DefaultBucket),
		timeout: 5 * time.Second,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(b)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: b.timeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(b.bucket)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket %q: %w", b.bucket, err)
	}
	b.db = db
	b.l.Debug("opened bolt store", zap.String("path", path), zap.ByteString("bucket", b.bucket))
	return b, nil
}

func (b *boltStore) String() string {
	return "bolt@" + b.path
}

func (b *boltStore) Close() error {
	return b.db.Close()
}

func (b *boltStore) Has(ctx context.Context, key string) (bool, error) {
	var has bool
	err := b.db.View(func(tx *bolt.Tx) error {
		has = tx.Bucket(b.bucket).Get([]byte(key)) != nil
		return nil
	})
	return has, err
}

func (b *boltStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get([]byte(key))
		if v == nil {
			return status.ErrNotExists.Wrapf("bolt: %q", key)
		}
		// values are only valid for the life of the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (b *boltStore) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	var buf bytes.Buffer
	if _, err := storage.PipeIO(&buf, source); err != nil {
		return fmt.Errorf("reading record for %q: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if exclusive && bucket.Get([]byte(key)) != nil {
			return status.ErrExists.Wrapf("bolt: %q", key)
		}
		return bucket.Put([]byte(key), buf.Bytes())
	})
}

func (b *boltStore) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

func (b *boltStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (b *boltStore) Clear(ctx context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(b.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(b.bucket)
		return err
	})
}
