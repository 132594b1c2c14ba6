// Copyright © 2018 One Concern

// Package gcs provides a storage.Store backed by a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"io"
	"path"
	"strings"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/contentstore/pkg/storage"
	"github.com/oneconcern/contentstore/pkg/storage/status"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcs struct {
	client         *gcsStorage.Client
	readOnlyClient *gcsStorage.Client
	bucket         string
	prefix         string
	clientOpts     []option.ClientOption
	l              *zap.Logger
}

// New builds a store for a GCS bucket
func New(ctx context.Context, bucket string, opts ...Option) (storage.Store, error) {
	googleStore := &gcs{
		bucket: bucket,
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(googleStore)
	}
	googleStore.prefix = strings.Trim(googleStore.prefix, "/")
	if bucket == "" {
		return nil, status.ErrInvalidResource.Wrapf("gcs: a bucket is required")
	}

	var err error
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx,
		append([]option.ClientOption{option.WithScopes(gcsStorage.ScopeReadOnly)}, googleStore.clientOpts...)...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	googleStore.client, err = gcsStorage.NewClient(ctx,
		append([]option.ClientOption{option.WithScopes(gcsStorage.ScopeFullControl)}, googleStore.clientOpts...)...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return googleStore, nil
}

func (g *gcs) String() string {
	if g.prefix == "" {
		return "gcs://" + g.bucket
	}
	return "gcs://" + g.bucket + "/" + g.prefix
}

func (g *gcs) key(objectName string) string {
	if g.prefix == "" {
		return objectName
	}
	return path.Join(g.prefix, objectName)
}

func (g *gcs) Has(ctx context.Context, objectName string) (bool, error) {
	_, err := g.readOnlyClient.Bucket(g.bucket).Object(g.key(objectName)).Attrs(ctx)
	if err != nil {
		err = toSentinelErrors(err)
		if status.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *gcs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	objectReader, err := g.readOnlyClient.Bucket(g.bucket).Object(g.key(objectName)).NewReader(ctx)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return objectReader, nil
}

func (g *gcs) Put(ctx context.Context, objectName string, reader io.Reader, exclusive bool) error {
	object := g.client.Bucket(g.bucket).Object(g.key(objectName))
	if exclusive {
		// put if not present
		object = object.If(gcsStorage.Conditions{DoesNotExist: true})
	}
	writer := object.NewWriter(ctx)
	if _, err := storage.PipeIO(writer, reader); err != nil {
		_ = writer.Close()
		return toSentinelErrors(err)
	}
	if err := writer.Close(); err != nil {
		g.l.Debug("gcs put failed", zap.String("object", objectName), zap.Error(err))
		return toSentinelErrors(err)
	}
	return nil
}

func (g *gcs) Delete(ctx context.Context, objectName string) error {
	err := toSentinelErrors(g.client.Bucket(g.bucket).Object(g.key(objectName)).Delete(ctx))
	if status.IsNotExist(err) {
		return nil
	}
	return err
}

func (g *gcs) each(ctx context.Context, fn func(string) error) error {
	var query *gcsStorage.Query
	if g.prefix != "" {
		query = &gcsStorage.Query{Prefix: g.prefix + "/"}
	}
	objectsIterator := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, query)
	for {
		attrs, err := objectsIterator.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return toSentinelErrors(err)
		}
		name := attrs.Name
		if g.prefix != "" {
			name = strings.TrimPrefix(name, g.prefix+"/")
		}
		if err := fn(name); err != nil {
			return err
		}
	}
}

func (g *gcs) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := g.each(ctx, func(name string) error {
		keys = append(keys, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (g *gcs) Clear(ctx context.Context) error {
	return g.each(ctx, func(name string) error {
		return g.Delete(ctx, name)
	})
}
