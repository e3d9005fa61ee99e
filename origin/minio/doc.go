// Package minio provides a media origin for MinIO and other S3-compatible
// object stores.
//
// It is useful for self-hosted deployments and for integration tests that
// run a local MinIO container instead of talking to AWS.
package minio
