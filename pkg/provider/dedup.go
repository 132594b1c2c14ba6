package provider

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var _ Provider = &Deduplicating{}

// Deduplicating coalesces concurrent writes of the same content into a single
// write to the inner provider.
//
// The shared write is not tied to any caller's context: a caller which gives up
// returns early, while the write completes for the remaining callers.
type Deduplicating struct {
	inner   Provider
	group   singleflight.Group
	pending atomic.Int64
	o       options
}

// NewDeduplicating wraps a provider
func NewDeduplicating(inner Provider, opts ...Option) *Deduplicating {
	return &Deduplicating{
		inner: inner,
		o:     applyOptions(opts),
	}
}

func (d *Deduplicating) String() string { return "dedup(" + d.inner.String() + ")" }

// Pending is the number of callers currently joined to an in-flight write
func (d *Deduplicating) Pending() int64 { return d.pending.Load() }

// Read content
func (d *Deduplicating) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	return d.inner.Read(ctx, id)
}

// Write content. Concurrent callers writing the same content share one underlying write.
func (d *Deduplicating) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	key, err := identifier.NewWithAlgorithm(d.o.alg, data)
	if err != nil {
		return identifier.Identifier{}, err
	}

	detached := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key.String(), func() (interface{}, error) {
		d.o.l.Debug("dedup write", zap.Stringer("key", key))
		return d.inner.Write(detached, data)
	})
	// counted once registered with the flight group
	d.pending.Inc()
	defer d.pending.Dec()

	select {
	case res := <-ch:
		if res.Err != nil {
			return identifier.Identifier{}, res.Err
		}
		if res.Shared {
			d.o.l.Debug("dedup write shared", zap.Stringer("key", key))
		}
		return res.Val.(identifier.Identifier), nil
	case <-ctx.Done():
		return identifier.Identifier{}, ctx.Err()
	}
}

// Exists checks for content
func (d *Deduplicating) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	return d.inner.Exists(ctx, id)
}

// Unwrite content
func (d *Deduplicating) Unwrite(ctx context.Context, id identifier.Identifier) error {
	return Unwrite(ctx, d.inner, id)
}

// SupportsUnwrite when the inner provider does
func (d *Deduplicating) SupportsUnwrite() bool { return d.inner.SupportsUnwrite() }
