package provider

import (
	"github.com/oneconcern/contentstore/pkg/identifier"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// WritePolicy tells an aggregating provider where to write content
type WritePolicy uint8

const (
	// WriteFirst writes to the first provider only
	WriteFirst WritePolicy = iota

	// WriteAll writes to all providers concurrently
	WriteAll
)

// Option is a functor to pass optional parameters to providers.
//
// Providers ignore the options which don't apply to them.
type Option func(*options)

type options struct {
	l           *zap.Logger
	alg         identifier.Algorithm
	threshold   int
	backfill    bool
	writePolicy WritePolicy
	maxEntries  int
	maxBytes    int64
	appendOnly  bool
	verifyOnPut bool
	registerer  prometheus.Registerer
	tracer      opentracing.Tracer
	name        string
	observer    func(Event)
	chunkSize   int
	maxParallel int
}

func defaultOptions() options {
	return options{
		l:           zap.NewNop(),
		alg:         identifier.DefaultAlgorithm,
		threshold:   identifier.DefaultInlineThreshold,
		maxEntries:  DefaultLRUEntries,
		chunkSize:   DefaultChunkSize,
		maxParallel: DefaultMaxParallelUploads,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Logger specifies a logger
func Logger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.l = logger
		}
	}
}

// HashAlgorithm sets the algorithm used to fingerprint written content
func HashAlgorithm(alg identifier.Algorithm) Option {
	return func(o *options) {
		if alg.Valid() {
			o.alg = alg
		}
	}
}

// InlineThreshold sets the largest payload embedded in data identifiers by the small-content provider
func InlineThreshold(size int) Option {
	return func(o *options) {
		o.threshold = size
	}
}

// Backfill lets an aggregating provider copy content found in a later provider into earlier ones
func Backfill(enabled bool) Option {
	return func(o *options) {
		o.backfill = enabled
	}
}

// Writes sets the write policy of an aggregating provider
func Writes(policy WritePolicy) Option {
	return func(o *options) {
		o.writePolicy = policy
	}
}

// MaxEntries bounds the number of entries held by an LRU provider
func MaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// MaxBytes bounds the total payload size held by an LRU provider. Zero means no size bound.
func MaxBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// AppendOnly disables unwrite on a store-backed provider
func AppendOnly(enabled bool) Option {
	return func(o *options) {
		o.appendOnly = enabled
	}
}

// VerifyOnPut makes a store-backed provider read back existing content when writing it again,
// to detect a different payload stored under the same identifier.
// Without it, only the size of the stored object is checked.
func VerifyOnPut(enabled bool) Option {
	return func(o *options) {
		o.verifyOnPut = enabled
	}
}

// Registerer sets the prometheus registry for metrics. Metrics are not registered by default.
func Registerer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// Tracer sets the opentracing tracer of an instrumented provider. Default is the global tracer.
func Tracer(tr opentracing.Tracer) Option {
	return func(o *options) {
		o.tracer = tr
	}
}

// Name labels the metrics of a provider
func Name(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Observer registers a callback receiving each operation performed by an instrumented provider
func Observer(fn func(Event)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// ChunkSize sets the size of the chunks written by a chunker
func ChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// MaxParallelUploads bounds the number of chunks a chunker transfers concurrently
func MaxParallelUploads(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}
