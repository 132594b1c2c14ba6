package remote

import (
	"net/http"
	"time"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries is the number of retries of a transient failure by the client
	DefaultMaxRetries = 5

	// DefaultMaxPutSize bounds the payload accepted by the server
	DefaultMaxPutSize = 1 << 30
)

// Option is a functor to pass optional parameters to the remote client and server
type Option func(*options)

type options struct {
	l             *zap.Logger
	tracer        opentracing.Tracer
	registry      *prometheus.Registry
	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
	maxPutSize    int64
	allowUnwrite  bool
	alg           identifier.Algorithm
	chunkSize     int
}

func defaultOptions() options {
	return options{
		l:             zap.NewNop(),
		tracer:        opentracing.NoopTracer{},
		maxRetries:    DefaultMaxRetries,
		retryInterval: 100 * time.Millisecond,
		maxPutSize:    DefaultMaxPutSize,
		allowUnwrite:  true,
		alg:           identifier.DefaultAlgorithm,
		chunkSize:     provider.DefaultChunkSize,
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
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// Tracer specifies an opentracing tracer, propagated over HTTP headers
func Tracer(tr opentracing.Tracer) Option {
	return func(o *options) {
		if tr != nil {
			o.tracer = tr
		}
	}
}

// Registry collects the server metrics, and exposes them on the metrics endpoint
func Registry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// HTTPClient used by the client. Defaults to a client without timeout.
func HTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// MaxRetries of transient failures by the client
func MaxRetries(n uint64) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// RetryInterval is the initial interval between retries, growing exponentially
func RetryInterval(d time.Duration) Option {
	return func(o *options) {
		o.retryInterval = d
	}
}

// MaxPutSize bounds the payload of a plain put accepted by the server. Chunked puts are not bounded.
func MaxPutSize(n int64) Option {
	return func(o *options) {
		o.maxPutSize = n
	}
}

// AllowUnwrite tells the client whether the server is expected to remove content
func AllowUnwrite(enabled bool) Option {
	return func(o *options) {
		o.allowUnwrite = enabled
	}
}

// HashAlgorithm used by the server to tell if put content already exists
func HashAlgorithm(alg identifier.Algorithm) Option {
	return func(o *options) {
		o.alg = alg
	}
}

// ChunkSize of the content streamed to the server chunked endpoint
func ChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}
