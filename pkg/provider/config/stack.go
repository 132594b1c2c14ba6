package config

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/remote"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/storage"
	"github.com/oneconcern/contentstore/pkg/storage/bolt"
	"github.com/oneconcern/contentstore/pkg/storage/gcs"
	"github.com/oneconcern/contentstore/pkg/storage/localfs"
	"github.com/oneconcern/contentstore/pkg/storage/sthree"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Option is a functor to pass optional parameters when instantiating providers
type Option func(*settings)

type settings struct {
	l          *zap.Logger
	tracer     opentracing.Tracer
	registerer prometheus.Registerer
	fs         afero.Fs
	httpClient *http.Client
}

// Logger specifies a logger for all providers
func Logger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.l = l
		}
	}
}

// Tracer specifies the tracer of instrumented providers and stores
func Tracer(tr opentracing.Tracer) Option {
	return func(s *settings) {
		s.tracer = tr
	}
}

// Registerer collects the metrics of the stack
func Registerer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// Fs resolves file locations on some file system. Default is the OS file system.
func Fs(fs afero.Fs) Option {
	return func(s *settings) {
		s.fs = fs
	}
}

// HTTPClient used by remote providers
func HTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// Stack is a provider built from a configuration. It must be closed after use.
type Stack struct {
	provider.Provider

	chunker *provider.Chunker
	closers []io.Closer
}

// Chunker splits large content in chunks stored in the stack
func (s *Stack) Chunker() *provider.Chunker { return s.chunker }

// Close releases the resources held by the providers of the stack
func (s *Stack) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i].Close())
	}
	s.closers = nil
	return err
}

type builder struct {
	c       Config
	s       settings
	opts    []provider.Option
	closers []io.Closer
}

// with extends the common provider options
func (b *builder) with(opts ...provider.Option) []provider.Option {
	return append(append(make([]provider.Option, 0, len(b.opts)+len(opts)), b.opts...), opts...)
}

// Instantiate builds the stack of providers described by a configuration
func Instantiate(ctx context.Context, c Config, opts ...Option) (*Stack, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := settings{
		l:  zap.NewNop(),
		fs: afero.NewOsFs(),
	}
	for _, apply := range opts {
		apply(&s)
	}
	alg, _ := c.algorithm()

	b := &builder{
		c: c,
		s: s,
		opts: []provider.Option{
			provider.Logger(s.l),
			provider.HashAlgorithm(alg),
			provider.AppendOnly(c.AppendOnly),
			provider.Registerer(s.registerer),
			provider.Tracer(s.tracer),
		},
	}
	p, err := b.build(ctx)
	if err != nil {
		_ = (&Stack{closers: b.closers}).Close()
		return nil, err
	}
	chunkSize, _ := c.ChunkBytes()
	s.l.Info("content provider ready", zap.Stringer("provider", p), zap.Int("chunk_size", chunkSize))
	return &Stack{
		Provider: p,
		chunker:  provider.NewChunker(p, b.with(provider.ChunkSize(chunkSize))...),
		closers:  b.closers,
	}, nil
}

func (b *builder) build(ctx context.Context) (provider.Provider, error) {
	p, err := b.open(ctx, b.c.ContentProvider)
	if err != nil {
		return nil, err
	}

	if len(b.c.Fallbacks) > 0 {
		all := []provider.Provider{p}
		for _, uri := range b.c.Fallbacks {
			fallback, err := b.open(ctx, uri)
			if err != nil {
				return nil, err
			}
			all = append(all, fallback)
		}
		if p, err = provider.NewAggregating(all, b.opts...); err != nil {
			return nil, err
		}
	}

	// the first caching provider is consulted first
	for i := len(b.c.CachingProviders) - 1; i >= 0; i-- {
		cache, err := b.open(ctx, b.c.CachingProviders[i])
		if err != nil {
			return nil, err
		}
		p = provider.NewCaching(p, cache, b.opts...)
	}

	if b.c.LRU.Enabled() {
		maxBytes, _ := b.c.LRU.Bytes()
		if p, err = provider.NewLRU(p, b.with(
			provider.MaxEntries(b.c.LRU.MaxEntries),
			provider.MaxBytes(maxBytes),
			provider.Name("lru"),
		)...); err != nil {
			return nil, err
		}
	}

	if b.c.Deduplicate {
		p = provider.NewDeduplicating(p, b.opts...)
	}
	if b.c.SmallContentThreshold > 0 {
		p = provider.NewSmallContent(p, provider.InlineThreshold(b.c.SmallContentThreshold))
	}
	if b.c.Instrument {
		p = provider.NewInstrumented(p, b.with(provider.Name("content"))...)
	}
	return p, nil
}

// open a single provider from its location
func (b *builder) open(ctx context.Context, uri string) (provider.Provider, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	b.s.l.Debug("opening content provider", zap.Stringer("location", loc))

	var store storage.Store
	switch loc.Scheme {
	case SchemeMemory:
		return provider.NewMemory(b.opts...), nil

	case SchemeHTTP, SchemeHTTPS:
		retries, _ := strconv.ParseUint(loc.Params.Get("retries"), 10, 64)
		ropts := []remote.Option{
			remote.Logger(b.s.l),
			remote.Tracer(b.s.tracer),
			remote.HTTPClient(b.s.httpClient),
			remote.AllowUnwrite(!b.c.AppendOnly),
		}
		if retries > 0 {
			ropts = append(ropts, remote.MaxRetries(retries))
		}
		return remote.NewClient(loc.Endpoint(), ropts...)

	case SchemeFile:
		if err := b.s.fs.MkdirAll(loc.Path, 0700); err != nil {
			return nil, status.ErrConfiguration.Wrapf("local provider at %q: %v", loc.Path, err)
		}
		store, err = localfs.NewAtomic(afero.NewBasePathFs(b.s.fs, loc.Path))

	case SchemeBolt:
		var db bolt.Store
		db, err = bolt.New(loc.Path, bolt.Bucket(loc.Params.Get("bucket")), bolt.Logger(b.s.l))
		if err == nil {
			b.closers = append(b.closers, db)
			store = db
		}

	case SchemeS3:
		cfg := aws.NewConfig()
		if region := loc.Params.Get("region"); region != "" {
			cfg = cfg.WithRegion(region)
		}
		if endpoint := loc.Params.Get("endpoint"); endpoint != "" {
			cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
		}
		store, err = sthree.New(sthree.Bucket(loc.Bucket),
			sthree.Prefix(loc.Path),
			sthree.AWSConfig(cfg),
			sthree.Logger(b.s.l),
		)

	case SchemeGCS:
		store, err = gcs.New(ctx, loc.Bucket,
			gcs.Prefix(loc.Path),
			gcs.Credentials(loc.Params.Get("credentials")),
			gcs.Logger(b.s.l),
		)
	}
	if err != nil {
		return nil, status.ErrConfiguration.Wrapf("provider %v: %v", loc, err)
	}

	if b.c.Instrument {
		store = storage.Instrument(b.s.tracer, b.s.l, store)
	}
	verify, _ := strconv.ParseBool(loc.Params.Get("verify"))
	return provider.NewStoreProvider(store, b.with(provider.VerifyOnPut(verify))...), nil
}
