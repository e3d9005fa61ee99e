package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fitstride/mediacache/origin"
)

// Origin fetches media assets from an S3 bucket.
//
// Asset URLs are mapped to object keys as follows:
//
//   - "s3://bucket/key" addresses an explicit bucket, overriding the default
//   - "https://host/path" uses the URL path as the key
//   - anything else is used verbatim as the key
type Origin struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	prefix     string
}

// New creates an S3 origin over an existing client.
// bucket is the default bucket; rootPrefix is prepended to all keys
// (e.g. "media/").
func New(client *s3.Client, bucket, rootPrefix string) *Origin {
	return &Origin{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     rootPrefix,
	}
}

// NewWithDefaultConfig creates an S3 origin using the ambient AWS
// configuration (environment, shared config, instance role).
func NewWithDefaultConfig(ctx context.Context, bucket, rootPrefix string) (*Origin, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

// Fetch implements origin.Origin.
func (o *Origin) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key := o.resolve(rawURL)
	if key == "" {
		return nil, fmt.Errorf("%w: empty object key for %q", origin.ErrNotFound, rawURL)
	}

	buf := manager.NewWriteAtBuffer(nil)
	_, err := o.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: s3://%s/%s", origin.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	return buf.Bytes(), nil
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
