// Package s3 provides a blobstore.Store implementation backed by
// Amazon S3.
//
// # Basic Usage
//
//	store, err := s3.New(ctx, "my-bucket", "models/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = store.Put(ctx, "model.bin", file, -1)
//
// Credentials come from the default AWS configuration chain
// (environment variables, shared config files, instance roles).
// For an explicit client, use NewStore.
package s3
