// Package s3 implements the storage collaborator against AWS S3 and
// S3-compatible services (MinIO) using the native AWS SDK. Credentials
// come from the standard AWS chain: AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, AWS_REGION, and AWS_ENDPOINT_URL for
// S3-compatible endpoints.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"falconeri/internal/falconeri/pipeline"
	"falconeri/internal/falconeri/storage"
)

func init() {
	storage.Register("s3", New)
}

// Storage is a storage.Storage backed by AWS S3.
type Storage struct {
	client *s3.Client
}

// New builds a Storage. secrets is accepted to satisfy storage.Factory
// but unused: credentials are read from the environment, matching how
// the rest of the coordination core resolves cloud access.
func New(ctx context.Context, bucketURI string, secrets []pipeline.Secret) (storage.Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &Storage{client: client}, nil
}

func parseS3URL(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// ListPrefix lists every object key under uri's prefix, paginating
// through ListObjectsV2 as needed.
func (s *Storage) ListPrefix(ctx context.Context, uri string) ([]string, error) {
	bucket, prefix, err := parseS3URL(uri)
	if err != nil {
		return nil, err
	}

	var uris []string
	var continuationToken *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", uri, err)
		}
		for _, obj := range out.Contents {
			uris = append(uris, fmt.Sprintf("s3://%s/%s", bucket, aws.ToString(obj.Key)))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	return uris, nil
}

// Download streams the object at uri into w.
func (s *Storage) Download(ctx context.Context, uri string, w io.Writer) error {
	bucket, key, err := parseS3URL(uri)
	if err != nil {
		return err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return fmt.Errorf("get object %s: %w", uri, err)
	}
	defer out.Body.Close()
	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("write %s: %w", uri, err)
	}
	return nil
}

// Upload streams r into the object at uri.
func (s *Storage) Upload(ctx context.Context, uri string, r io.Reader) error {
	bucket, key, err := parseS3URL(uri)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: r})
	if err != nil {
		return fmt.Errorf("put object %s: %w", uri, err)
	}
	return nil
}
