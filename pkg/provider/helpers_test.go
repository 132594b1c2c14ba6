package provider

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"go.uber.org/atomic"
)

// countingProvider counts the calls reaching an inner provider.
// When gate is set, writes block until it is closed.
type countingProvider struct {
	Provider
	reads   atomic.Int64
	writes  atomic.Int64
	exists  atomic.Int64
	gate    chan struct{}
	readErr error
}

func newCounting(inner Provider) *countingProvider {
	return &countingProvider{Provider: inner}
}

func (c *countingProvider) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	c.reads.Inc()
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.Provider.Read(ctx, id)
}

func (c *countingProvider) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	c.writes.Inc()
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return identifier.Identifier{}, ctx.Err()
		}
	}
	return c.Provider.Write(ctx, data)
}

func (c *countingProvider) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	c.exists.Inc()
	return c.Provider.Exists(ctx, id)
}

// readOnly is a provider without unwrite support
type readOnly struct {
	Provider
}

func (readOnly) SupportsUnwrite() bool { return false }
