// Package blobstore provides storage abstraction for model artifacts.
//
// Store is the interface for reading and writing blobs (model files,
// datasets). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with atomic writes
//   - MemoryStore: In-memory store for testing
//   - s3.Store: Amazon S3 with streaming uploads
//   - minio.Store: MinIO and other S3-compatible storage
package blobstore
