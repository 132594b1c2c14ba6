package provider

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"go.uber.org/zap"
)

var _ Provider = &Caching{}

// Caching layers a fast cache provider in front of an authoritative backing provider.
//
// Reads are served from the cache when possible, and populate it on a miss.
// Writes go to the backing provider first, then to the cache.
// Cache failures are logged and never surfaced.
type Caching struct {
	backing Provider
	cache   Provider
	o       options
}

// NewCaching builds a read-through, write-through cache
func NewCaching(backing, cache Provider, opts ...Option) *Caching {
	return &Caching{
		backing: backing,
		cache:   cache,
		o:       applyOptions(opts),
	}
}

func (c *Caching) String() string {
	return "caching(" + c.cache.String() + " -> " + c.backing.String() + ")"
}

// Read content
func (c *Caching) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	if data, ok := ReadInline(id); ok {
		return data, nil
	}

	data, err := c.cache.Read(ctx, id)
	if err == nil {
		return data, nil
	}
	if !IsNotFound(err) {
		c.o.l.Warn("cache read failed", zap.Stringer("id", id), zap.String("cache", c.cache.String()), zap.Error(err))
	}

	data, err = c.backing.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	c.populate(ctx, data)
	return data, nil
}

func (c *Caching) populate(ctx context.Context, data []byte) {
	if _, err := c.cache.Write(ctx, data); err != nil {
		c.o.l.Warn("cache write failed", zap.String("cache", c.cache.String()), zap.Error(err))
	}
}

// Write content to the backing provider, then to the cache
func (c *Caching) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	id, err := c.backing.Write(ctx, data)
	if err != nil {
		return identifier.Identifier{}, err
	}
	c.populate(ctx, data)
	return id, nil
}

// Exists checks the cache, then the backing provider
func (c *Caching) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	if id.IsData() {
		return true, nil
	}
	if ok, err := c.cache.Exists(ctx, id); err == nil && ok {
		return true, nil
	}
	return c.backing.Exists(ctx, id)
}

// Unwrite content from the backing provider and the cache
func (c *Caching) Unwrite(ctx context.Context, id identifier.Identifier) error {
	if err := Unwrite(ctx, c.backing, id); err != nil {
		return err
	}
	if c.cache.SupportsUnwrite() {
		if err := c.cache.Unwrite(ctx, id); err != nil {
			c.o.l.Warn("cache unwrite failed", zap.Stringer("id", id), zap.Error(err))
		}
	}
	return nil
}

// SupportsUnwrite when the backing provider does
func (c *Caching) SupportsUnwrite() bool { return c.backing.SupportsUnwrite() }
