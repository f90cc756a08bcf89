// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "traces/", s3.Config{Region: "us-east-1"})
//
//	sum, err := tracesim.Simulate(ctx, store, "lasso.trace.zst", ev)
//
// # Features
//
//   - Streaming reads straight from GetObject
//   - Multipart streaming uploads for large traces
//   - CRC32C checksums on uploads
//   - Automatic pagination for listing
package s3
