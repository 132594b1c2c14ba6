package provider

import (
	"context"
	"strings"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ Provider = &Aggregating{}

// Aggregating reads from an ordered list of providers, falling back to the next one when
// content is missing.
type Aggregating struct {
	providers []Provider
	o         options
}

// NewAggregating builds a provider over an ordered, non-empty list of providers
func NewAggregating(providers []Provider, opts ...Option) (*Aggregating, error) {
	if len(providers) == 0 {
		return nil, status.ErrConfiguration.Wrapf("aggregating provider requires at least one provider")
	}
	return &Aggregating{
		providers: append([]Provider(nil), providers...),
		o:         applyOptions(opts),
	}, nil
}

func (a *Aggregating) String() string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.String())
	}
	return "aggregating(" + strings.Join(names, ", ") + ")"
}

// Read content from the first provider which holds it.
//
// When no provider holds the content, the first error other than not found is returned,
// or status.ErrNotFound.
func (a *Aggregating) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	if data, ok := ReadInline(id); ok {
		return data, nil
	}

	var firstErr error
	for i, p := range a.providers {
		data, err := p.Read(ctx, id)
		if err == nil {
			if a.o.backfill && i > 0 {
				a.backfill(ctx, i, id, data)
			}
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !IsNotFound(err) {
			a.o.l.Warn("aggregated read failed", zap.Stringer("id", id), zap.String("provider", p.String()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, notFound(a, id)
}

func (a *Aggregating) backfill(ctx context.Context, found int, id identifier.Identifier, data []byte) {
	for _, p := range a.providers[:found] {
		if _, err := p.Write(ctx, data); err != nil {
			a.o.l.Warn("backfill failed", zap.Stringer("id", id), zap.String("provider", p.String()), zap.Error(err))
		}
	}
}

// Write content according to the write policy. With WriteAll, the identifier returned
// by the first provider is returned.
func (a *Aggregating) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	if a.o.writePolicy != WriteAll {
		return a.providers[0].Write(ctx, data)
	}

	ids := make([]identifier.Identifier, len(a.providers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		i, p := i, p
		g.Go(func() error {
			id, err := p.Write(gctx, data)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return identifier.Identifier{}, err
	}
	return ids[0], nil
}

// Exists if any provider holds the content
func (a *Aggregating) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	if id.IsData() {
		return true, nil
	}
	var firstErr error
	for _, p := range a.providers {
		ok, err := p.Exists(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

// Unwrite content from all providers
func (a *Aggregating) Unwrite(ctx context.Context, id identifier.Identifier) error {
	if !a.SupportsUnwrite() {
		return status.ErrUnwriteNotSupported.Wrapf("%v", a)
	}
	for _, p := range a.providers {
		if err := p.Unwrite(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SupportsUnwrite when all providers do
func (a *Aggregating) SupportsUnwrite() bool {
	for _, p := range a.providers {
		if !p.SupportsUnwrite() {
			return false
		}
	}
	return true
}
