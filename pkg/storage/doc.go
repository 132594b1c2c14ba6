// Copyright © 2018 One Concern

// Package storage defines the blob stores backing content providers.
//
// A Store maps string keys to opaque blobs. Implementations live in sub-packages:
//   - localfs: any afero file system, with atomic writes
//   - bolt: a single bolt database file
//   - sthree: an S3 bucket
//   - gcs: a Google Cloud Storage bucket
//
// Errors are reported with the sentinels of the status sub-package.
// Content addressing is layered on top by pkg/provider.
package storage
