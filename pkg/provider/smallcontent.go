package provider

import (
	"context"

	"github.com/oneconcern/contentstore/pkg/identifier"
)

var _ Provider = &SmallContent{}

// SmallContent embeds small payloads into data identifiers and delegates larger ones.
//
// Embedded content never reaches the inner provider.
type SmallContent struct {
	inner     Provider
	threshold int
}

// NewSmallContent wraps a provider. The threshold defaults to identifier.DefaultInlineThreshold
// and is set with the InlineThreshold option.
func NewSmallContent(inner Provider, opts ...Option) *SmallContent {
	o := applyOptions(opts)
	threshold := o.threshold
	if threshold > identifier.MaxInlineSize {
		threshold = identifier.MaxInlineSize
	}
	return &SmallContent{
		inner:     inner,
		threshold: threshold,
	}
}

func (s *SmallContent) String() string { return "small-content(" + s.inner.String() + ")" }

// Threshold is the largest inline payload
func (s *SmallContent) Threshold() int { return s.threshold }

// Read content
func (s *SmallContent) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	if data, ok := ReadInline(id); ok {
		return data, nil
	}
	return s.inner.Read(ctx, id)
}

// Write content, inline when small enough
func (s *SmallContent) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	if s.threshold >= 0 && len(data) <= s.threshold {
		return identifier.NewData(data), nil
	}
	return s.inner.Write(ctx, data)
}

// Exists checks for content
func (s *SmallContent) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	if id.IsData() {
		return true, nil
	}
	return s.inner.Exists(ctx, id)
}

// Unwrite content. Inline content has nothing to remove.
func (s *SmallContent) Unwrite(ctx context.Context, id identifier.Identifier) error {
	if id.IsData() {
		return nil
	}
	return Unwrite(ctx, s.inner, id)
}

// SupportsUnwrite when the inner provider does
func (s *SmallContent) SupportsUnwrite() bool { return s.inner.SupportsUnwrite() }
