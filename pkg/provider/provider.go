// Package provider implements content-addressable storage providers.
//
// A Provider stores immutable byte payloads and hands back their Identifier. Providers
// compose: durable backends (memory, local files, bolt, S3, GCS, remote) are wrapped by
// decorators adding inline small content, caching, fallbacks, bounded eviction,
// deduplication of concurrent uploads and instrumentation.
//
// All providers resolve data identifiers (content embedded inline) without touching
// storage, so that both identifier encodings are transparent to consumers.
package provider

import (
	"context"
	"fmt"

	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
)

// Provider is the contract for content-addressable storage.
//
// Read returns an error matching status.ErrNotFound when the content is absent,
// and status.ErrCorruptedContent when stored bytes no longer match their identifier.
//
// Write is idempotent: writing the same bytes twice returns the same identifier.
//
// Unwrite removes content. It returns status.ErrUnwriteNotSupported unless SupportsUnwrite is true.
type Provider interface {
	fmt.Stringer
	Read(context.Context, identifier.Identifier) ([]byte, error)
	Write(context.Context, []byte) (identifier.Identifier, error)
	Exists(context.Context, identifier.Identifier) (bool, error)
	Unwrite(context.Context, identifier.Identifier) error
	SupportsUnwrite() bool
}

// ReadInline resolves a data identifier. It returns false for hash-ref identifiers.
func ReadInline(id identifier.Identifier) ([]byte, bool) {
	if !id.IsData() {
		return nil, false
	}
	return id.Data(), true
}

// Unwrite removes content from a provider, after checking the provider supports it
func Unwrite(ctx context.Context, p Provider, id identifier.Identifier) error {
	if !p.SupportsUnwrite() {
		return status.ErrUnwriteNotSupported.Wrapf("%v", p)
	}
	return p.Unwrite(ctx, id)
}

// IsNotFound tells if an error reports absent content
func IsNotFound(err error) bool {
	return errors.Is(err, status.ErrNotFound)
}

func validate(id identifier.Identifier) error {
	if id.IsZero() {
		return status.ErrInvalid.Wrapf("zero identifier")
	}
	return nil
}

func notFound(p fmt.Stringer, id identifier.Identifier) error {
	return status.ErrNotFound.Wrapf("%v: %v", p, id)
}

func verify(p fmt.Stringer, id identifier.Identifier, data []byte) error {
	if !id.Matches(data) {
		return status.ErrCorruptedContent.Wrapf("%v: content does not match %v", p, id)
	}
	return nil
}
