// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
)

const (
	// OverWrite lets Put replace an existing object
	OverWrite = false

	// NoOverWrite makes Put fail with status.ErrExists if the object exists
	NoOverWrite = true
)

// Store implementations know how to write entries to a K/V model.
//
// Typically this is something file system-like. Examples are S3, local FS, NFS, ...
// Implementations of this interface are assumed to be fairly simple: content addressing
// and verification are handled by the content providers layered on top.
//
// Get returns an error matching status.ErrNotExists when the key is absent.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// Sizer is implemented by stores able to tell the size of an object without reading it.
//
// Size returns an error matching status.ErrNotExists when the key is absent.
type Sizer interface {
	Size(context.Context, string) (int64, error)
}

// PipeIO copies a reader to a writer, using the reader's WriteTo when available
func PipeIO(writer io.Writer, reader io.Reader) (int64, error) {
	if wt, ok := reader.(io.WriterTo); ok {
		return wt.WriteTo(writer)
	}
	return io.Copy(writer, reader)
}
