// Package blobstore provides whole-object storage for collection snapshots.
//
// Every implementation of [BlobStore] replaces a blob atomically on Put:
// concurrent readers observe either the previous content or the new one,
// never a partial write.
//
// # Implementations
//
//   - [LocalStore]: files under a root directory (temp file, fsync, rename)
//   - [MemoryStore]: in-process map, for tests and ephemeral use
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//   - redis.Store: Redis string keys
package blobstore
