package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/fitstride/mediacache/origin"
)

// Origin fetches media assets from MinIO or any S3-compatible endpoint.
//
// Asset URLs are mapped to object keys the same way as the s3 origin:
// http(s) URLs contribute their path, "s3://bucket/key" overrides the
// default bucket, and anything else is taken verbatim as the key.
type Origin struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates a MinIO origin.
// bucket is the default bucket name; rootPrefix is prepended to all keys.
func New(client *minio.Client, bucket, rootPrefix string) *Origin {
	return &Origin{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

// Fetch implements origin.Origin.
func (o *Origin) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key := o.resolve(rawURL)
	if key == "" {
		return nil, fmt.Errorf("%w: empty object key for %q", origin.ErrNotFound, rawURL)
	}

	obj, err := o.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("%w: %s/%s", origin.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}

	return data, nil
}

func (o *Origin) resolve(rawURL string) (bucket, key string) {
	bucket = o.bucket

	if rest, ok := strings.CutPrefix(rawURL, "s3://"); ok {
		b, k, found := strings.Cut(rest, "/")
		if found && b != "" {
			return b, path.Join(o.prefix, k)
		}
		return bucket, path.Join(o.prefix, rest)
	}

	if u, err := url.Parse(rawURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return bucket, path.Join(o.prefix, strings.TrimPrefix(u.Path, "/"))
	}

	return bucket, path.Join(o.prefix, rawURL)
}
