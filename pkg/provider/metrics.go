package provider

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "contentstore"

// register a collector, reusing an identical collector registered earlier
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	bytes     prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer, name string) *cacheMetrics {
	if name == "" {
		name = "lru"
	}
	labels := prometheus.Labels{"cache": name}
	return &cacheMetrics{
		hits: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "hits_total",
			Help: "Number of reads served from the cache", ConstLabels: labels,
		})),
		misses: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "misses_total",
			Help: "Number of reads missing the cache", ConstLabels: labels,
		})),
		evictions: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "evictions_total",
			Help: "Number of entries evicted from the cache", ConstLabels: labels,
		})),
		bytes: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "bytes",
			Help: "Size of the payloads held in the cache", ConstLabels: labels,
		})),
	}
}

type providerMetrics struct {
	ops      *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newProviderMetrics(reg prometheus.Registerer) *providerMetrics {
	return &providerMetrics{
		ops: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "provider", Name: "operations_total",
			Help: "Number of provider operations, by outcome",
		}, []string{"provider", "op", "outcome"})),
		bytes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "provider", Name: "bytes_total",
			Help: "Number of bytes read or written",
		}, []string{"provider", "op"})),
		duration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "provider", Name: "duration_seconds",
			Help:    "Latency of provider operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"provider", "op"})),
	}
}
