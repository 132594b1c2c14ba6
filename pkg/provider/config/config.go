// Package config builds stacks of content providers from a declarative configuration.
//
// Providers are located by URI:
//
//	memory://
//	file:///abs/path            (alias local://)
//	bolt:///path/to/file.db?bucket=objects
//	s3://bucket/prefix?region=us-west-2&endpoint=http://localhost:9000
//	gcs://bucket/prefix?credentials=/path/to/key.json
//	http://host:port            (remote content server, also https)
//
// A stack reads from its content provider, falling back in order to the fallback providers.
// Caching providers and an in-memory LRU sit in front of these. Small content is embedded inline.
package config

import (
	"math"

	"github.com/docker/go-units"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/spf13/viper"
)

// LRUConfig bounds the in-memory LRU cache. The cache is disabled when both bounds are zero.
type LRUConfig struct {
	MaxEntries int    `mapstructure:"max_entries" json:"maxEntries,omitempty" yaml:"max_entries,omitempty"`
	MaxBytes   string `mapstructure:"max_bytes" json:"maxBytes,omitempty" yaml:"max_bytes,omitempty"`
}

// Enabled tells if an LRU cache is configured
func (c LRUConfig) Enabled() bool {
	return c.MaxEntries > 0 || c.MaxBytes != ""
}

// Bytes parses the byte budget, e.g. "64MiB"
func (c LRUConfig) Bytes() (int64, error) {
	if c.MaxBytes == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(c.MaxBytes)
	if err != nil {
		return 0, status.ErrConfiguration.Wrapf("lru max_bytes %q: %v", c.MaxBytes, err)
	}
	return n, nil
}

// Config describes a stack of content providers
type Config struct {
	ContentProvider       string    `mapstructure:"content_provider" json:"contentProvider" yaml:"content_provider"`
	CachingProviders      []string  `mapstructure:"caching_providers" json:"cachingProviders,omitempty" yaml:"caching_providers,omitempty"`
	Fallbacks             []string  `mapstructure:"fallbacks" json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	LRU                   LRUConfig `mapstructure:"lru" json:"lru,omitempty" yaml:"lru,omitempty"`
	SmallContentThreshold int       `mapstructure:"small_content_threshold" json:"smallContentThreshold,omitempty" yaml:"small_content_threshold,omitempty"`
	HashAlgorithm         string    `mapstructure:"hash_algorithm" json:"hashAlgorithm,omitempty" yaml:"hash_algorithm,omitempty"`
	AppendOnly            bool      `mapstructure:"append_only" json:"appendOnly,omitempty" yaml:"append_only,omitempty"`
	Deduplicate           bool      `mapstructure:"deduplicate" json:"deduplicate,omitempty" yaml:"deduplicate,omitempty"`
	Instrument            bool      `mapstructure:"instrument" json:"instrument,omitempty" yaml:"instrument,omitempty"`
	ChunkSize             string    `mapstructure:"chunk_size" json:"chunkSize,omitempty" yaml:"chunk_size,omitempty"`
}

// ChunkBytes parses the size of the chunks of large content, e.g. "8MiB".
// It defaults to provider.DefaultChunkSize.
func (c Config) ChunkBytes() (int, error) {
	if c.ChunkSize == "" {
		return provider.DefaultChunkSize, nil
	}
	n, err := units.RAMInBytes(c.ChunkSize)
	if err != nil {
		return 0, status.ErrConfiguration.Wrapf("chunk_size %q: %v", c.ChunkSize, err)
	}
	if n <= 0 || n > math.MaxInt32 {
		return 0, status.ErrConfiguration.Wrapf("chunk_size %q is out of range", c.ChunkSize)
	}
	return int(n), nil
}

// Default configuration: an in-memory provider embedding small content
func Default() Config {
	return Config{
		ContentProvider:       "memory://",
		SmallContentThreshold: identifier.DefaultInlineThreshold,
		HashAlgorithm:         identifier.DefaultAlgorithm.String(),
	}
}

// SetDefaults registers the default configuration with viper
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("content_provider", d.ContentProvider)
	v.SetDefault("small_content_threshold", d.SmallContentThreshold)
	v.SetDefault("hash_algorithm", d.HashAlgorithm)
}

// FromViper unmarshals and validates a configuration
func FromViper(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, status.ErrConfiguration.Wrap(err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration without building any provider
func (c Config) Validate() error {
	if c.ContentProvider == "" {
		return status.ErrConfiguration.Wrapf("a content provider is required")
	}
	for _, uri := range append(append([]string{c.ContentProvider}, c.Fallbacks...), c.CachingProviders...) {
		if _, err := ParseLocation(uri); err != nil {
			return err
		}
	}
	if c.SmallContentThreshold < 0 || c.SmallContentThreshold > identifier.MaxInlineSize {
		return status.ErrConfiguration.Wrapf("small content threshold must be between 0 and %d", identifier.MaxInlineSize)
	}
	if c.LRU.MaxEntries < 0 {
		return status.ErrConfiguration.Wrapf("lru max_entries must be positive")
	}
	if _, err := c.LRU.Bytes(); err != nil {
		return err
	}
	if _, err := c.ChunkBytes(); err != nil {
		return err
	}
	_, err := c.algorithm()
	return err
}

func (c Config) algorithm() (identifier.Algorithm, error) {
	if c.HashAlgorithm == "" {
		return identifier.DefaultAlgorithm, nil
	}
	alg, err := identifier.ParseAlgorithm(c.HashAlgorithm)
	if err != nil {
		return 0, status.ErrConfiguration.Wrap(err)
	}
	return alg, nil
}
