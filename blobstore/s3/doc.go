// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("stitchgo/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// # Features
//
//   - CRC32C-checked single PUTs for small blobs
//   - Multipart uploads via the transfer manager for large blobs
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//   - Custom endpoints with path-style addressing (LocalStack)
package s3
