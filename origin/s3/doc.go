// Package s3 provides an S3-backed media origin.
//
// Use it when exercise media is published to an S3 bucket rather than a
// public CDN. Downloads go through the s3 manager downloader, which splits
// large objects into concurrent range requests.
//
//	o, err := s3.NewWithDefaultConfig(ctx, "fitstride-media", "exercises/")
//	if err != nil { ... }
//	cache, _ := mediacache.New(mediacache.WithOrigin(o))
package s3
