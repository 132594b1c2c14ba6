package provider

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"go.uber.org/zap"
)

// DefaultLRUEntries is the default number of entries held by an LRU provider
const DefaultLRUEntries = 4096

var _ Provider = &LRU{}

// LRU keeps recently used content in memory, in front of a durable provider.
//
// The least recently used entries are evicted when the entry or byte budget is exceeded.
// Evicted content remains available from the backing provider.
type LRU struct {
	backing Provider

	mx       sync.Mutex
	cache    *simplelru.LRU[identifier.Identifier, []byte]
	size     int64
	maxBytes int64

	m *cacheMetrics
	o options
}

// NewLRU builds an LRU cache in front of a backing provider.
// Budgets are set with the MaxEntries and MaxBytes options.
func NewLRU(backing Provider, opts ...Option) (*LRU, error) {
	if backing == nil {
		return nil, status.ErrConfiguration.Wrapf("an LRU provider requires a durable backing provider")
	}
	o := applyOptions(opts)
	l := &LRU{
		backing:  backing,
		maxBytes: o.maxBytes,
		m:        newCacheMetrics(o.registerer, o.name),
		o:        o,
	}
	cache, err := simplelru.NewLRU[identifier.Identifier, []byte](o.maxEntries, l.onEvict)
	if err != nil {
		return nil, status.ErrConfiguration.Wrap(err)
	}
	l.cache = cache
	return l, nil
}

// onEvict is called with the lock held
func (l *LRU) onEvict(id identifier.Identifier, data []byte) {
	l.size -= int64(len(data))
	l.m.evictions.Inc()
	l.m.bytes.Set(float64(l.size))
}

func (l *LRU) String() string { return "lru(" + l.backing.String() + ")" }

// Len is the number of cached entries
func (l *LRU) Len() int {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.cache.Len()
}

// Size is the total size of cached payloads
func (l *LRU) Size() int64 {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.size
}

func (l *LRU) get(id identifier.Identifier) ([]byte, bool) {
	l.mx.Lock()
	defer l.mx.Unlock()
	data, ok := l.cache.Get(id)
	return data, ok
}

func (l *LRU) add(id identifier.Identifier, data []byte) {
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return
	}
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.cache.Contains(id) {
		return
	}
	l.cache.Add(id, append([]byte(nil), data...))
	l.size += int64(len(data))
	for l.maxBytes > 0 && l.size > l.maxBytes {
		if _, _, ok := l.cache.RemoveOldest(); !ok {
			break
		}
	}
	l.m.bytes.Set(float64(l.size))
}

// Read content from memory, or from the backing provider
func (l *LRU) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	if data, ok := ReadInline(id); ok {
		return data, nil
	}
	if data, ok := l.get(id); ok {
		l.m.hits.Inc()
		return append([]byte(nil), data...), nil
	}
	l.m.misses.Inc()

	data, err := l.backing.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	l.add(id, data)
	return data, nil
}

// Write content to the backing provider and keep it in memory
func (l *LRU) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	id, err := l.backing.Write(ctx, data)
	if err != nil {
		return identifier.Identifier{}, err
	}
	if id.IsHashRef() {
		l.add(id, data)
	}
	l.o.l.Debug("lru write", zap.Stringer("id", id))
	return id, nil
}

// Exists checks memory, then the backing provider
func (l *LRU) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	if id.IsData() {
		return true, nil
	}
	l.mx.Lock()
	ok := l.cache.Contains(id)
	l.mx.Unlock()
	if ok {
		return true, nil
	}
	return l.backing.Exists(ctx, id)
}

// Unwrite content from the backing provider and memory
func (l *LRU) Unwrite(ctx context.Context, id identifier.Identifier) error {
	if err := Unwrite(ctx, l.backing, id); err != nil {
		return err
	}
	l.mx.Lock()
	defer l.mx.Unlock()
	// the eviction callback accounts for the removed payload
	l.cache.Remove(id)
	return nil
}

// SupportsUnwrite when the backing provider does
func (l *LRU) SupportsUnwrite() bool { return l.backing.SupportsUnwrite() }
