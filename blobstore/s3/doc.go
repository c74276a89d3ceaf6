// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "imgdedup/")
//
// A single PutObject replaces an object atomically: readers see either the
// old or the new snapshot. Uploads go through the transfer manager so large
// collections are sent as multipart uploads, which S3 also commits
// atomically.
package s3
