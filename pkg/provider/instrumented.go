package provider

import (
	"context"
	"time"

	"github.com/oneconcern/contentstore/pkg/identifier"
	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

// Event describes an operation performed by an instrumented provider
type Event struct {
	Op       string
	ID       identifier.Identifier
	Size     int
	Duration time.Duration
	Err      error
}

var _ Provider = &Instrumented{}

// Instrumented decorates a provider with metrics, tracing spans, debug logs and an optional observer
type Instrumented struct {
	inner Provider
	name  string
	tr    opentracing.Tracer
	m     *providerMetrics
	o     options
}

// NewInstrumented wraps a provider
func NewInstrumented(inner Provider, opts ...Option) *Instrumented {
	o := applyOptions(opts)
	tr := o.tracer
	if tr == nil {
		tr = opentracing.GlobalTracer()
	}
	name := o.name
	if name == "" {
		name = inner.String()
	}
	return &Instrumented{
		inner: inner,
		name:  name,
		tr:    tr,
		m:     newProviderMetrics(o.registerer),
		o:     o,
	}
}

func (i *Instrumented) String() string { return i.inner.String() }

func (i *Instrumented) start(ctx context.Context, op string) (context.Context, opentracing.Span) {
	name := "provider." + op
	var span opentracing.Span
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		span = i.tr.StartSpan(name, opentracing.ChildOf(parent.Context()))
	} else {
		span = i.tr.StartSpan(name)
	}
	span.SetTag("provider", i.name)
	return opentracing.ContextWithSpan(ctx, span), span
}

func (i *Instrumented) done(span opentracing.Span, t0 time.Time, op string, id identifier.Identifier, size int, err error) {
	d := time.Since(t0)
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.SetTag("error", true)
		span.LogKV("event", "error", "message", err.Error())
	}
	if !id.IsZero() {
		span.SetTag("id", id.String())
	}
	span.Finish()

	i.m.ops.WithLabelValues(i.name, op, outcome).Inc()
	i.m.duration.WithLabelValues(i.name, op).Observe(d.Seconds())
	if size > 0 {
		i.m.bytes.WithLabelValues(i.name, op).Add(float64(size))
	}
	i.o.l.Debug("provider "+op,
		zap.String("provider", i.name),
		zap.Stringer("id", id),
		zap.Int("size", size),
		zap.Duration("duration", d),
		zap.Error(err),
	)
	if i.o.observer != nil {
		i.o.observer(Event{Op: op, ID: id, Size: size, Duration: d, Err: err})
	}
}

// Read content
func (i *Instrumented) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	ctx, span := i.start(ctx, "read")
	t0 := time.Now()
	data, err := i.inner.Read(ctx, id)
	i.done(span, t0, "read", id, len(data), err)
	return data, err
}

// Write content
func (i *Instrumented) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	ctx, span := i.start(ctx, "write")
	t0 := time.Now()
	id, err := i.inner.Write(ctx, data)
	i.done(span, t0, "write", id, len(data), err)
	return id, err
}

// Exists checks for content
func (i *Instrumented) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	ctx, span := i.start(ctx, "exists")
	t0 := time.Now()
	ok, err := i.inner.Exists(ctx, id)
	i.done(span, t0, "exists", id, 0, err)
	return ok, err
}

// Unwrite content
func (i *Instrumented) Unwrite(ctx context.Context, id identifier.Identifier) error {
	ctx, span := i.start(ctx, "unwrite")
	t0 := time.Now()
	err := i.inner.Unwrite(ctx, id)
	i.done(span, t0, "unwrite", id, 0, err)
	return err
}

// SupportsUnwrite when the inner provider does
func (i *Instrumented) SupportsUnwrite() bool { return i.inner.SupportsUnwrite() }
