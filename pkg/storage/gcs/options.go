package gcs

import (
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Option is a functor to pass optional parameters to the gcs store
type Option func(*gcs)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(g *gcs) {
		if logger != nil {
			g.l = logger
		}
	}
}

// Prefix namespaces all keys under some path in the bucket
func Prefix(prefix string) Option {
	return func(g *gcs) {
		g.prefix = prefix
	}
}

// Credentials sets the path to a service account credentials file.
// By default, GOOGLE_APPLICATION_CREDENTIALS is used.
func Credentials(file string) Option {
	return func(g *gcs) {
		if file != "" {
			g.clientOpts = append(g.clientOpts, option.WithCredentialsFile(file))
		}
	}
}

// ClientOptions appends options to the google API clients
func ClientOptions(opts ...option.ClientOption) Option {
	return func(g *gcs) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}
