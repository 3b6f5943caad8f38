// Package blobstore provides the object storage abstraction behind the work
// queue and the pattern artifacts.
//
// Store is the interface for writing and reading whole blobs by name.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests and single-process pipelines
//   - LocalStore: local filesystem with atomic write-rename
//   - s3.Store: Amazon S3 (aws-sdk-go-v2)
//   - minio.Store: MinIO and other S3-compatible storage
//
// # Custom Implementations
//
//	type Store interface {
//	    Put(ctx, name, data) error            // Atomic write
//	    Get(ctx, name) ([]byte, error)        // ErrNotFound if missing
//	    List(ctx, prefix) ([]string, error)   // Sorted names
//	    Delete(ctx, name) error               // Missing names are not an error
//	}
package blobstore
