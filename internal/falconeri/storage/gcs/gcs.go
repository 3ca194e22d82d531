// Package gcs implements the storage collaborator against Google Cloud
// Storage using the generated storage/v1 REST client. Credentials come
// from the default application-credentials chain: GOOGLE_APPLICATION_
// CREDENTIALS, the GCE metadata server, or gcloud's user credentials.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"

	"falconeri/internal/falconeri/pipeline"
	"falconeri/internal/falconeri/storage"
)

func init() {
	storage.Register("gs", New)
}

// Storage is a storage.Storage backed by Google Cloud Storage.
type Storage struct {
	svc *storagev1.Service
}

// New builds a Storage using the default application-credentials chain.
// secrets is accepted to satisfy storage.Factory but unused.
func New(ctx context.Context, bucketURI string, secrets []pipeline.Secret) (storage.Storage, error) {
	svc, err := storagev1.NewService(ctx, option.WithScopes(storagev1.DevstorageReadWriteScope))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &Storage{svc: svc}, nil
}

func parseGSURL(uri string) (bucket, object string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse gs uri %q: %w", uri, err)
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("not a gs uri: %q", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// ListPrefix lists every object under uri's prefix, paginating as needed.
func (s *Storage) ListPrefix(ctx context.Context, uri string) ([]string, error) {
	bucket, prefix, err := parseGSURL(uri)
	if err != nil {
		return nil, err
	}

	var uris []string
	call := s.svc.Objects.List(bucket).Prefix(prefix).Context(ctx)
	err = call.Pages(ctx, func(page *storagev1.Objects) error {
		for _, obj := range page.Items {
			uris = append(uris, fmt.Sprintf("gs://%s/%s", bucket, obj.Name))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", uri, err)
	}
	return uris, nil
}

// Download streams the object at uri into w.
func (s *Storage) Download(ctx context.Context, uri string, w io.Writer) error {
	bucket, object, err := parseGSURL(uri)
	if err != nil {
		return err
	}
	resp, err := s.svc.Objects.Get(bucket, object).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("get object %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", uri, err)
	}
	return nil
}

// Upload streams r into the object at uri.
func (s *Storage) Upload(ctx context.Context, uri string, r io.Reader) error {
	bucket, object, err := parseGSURL(uri)
	if err != nil {
		return err
	}
	_, err = s.svc.Objects.Insert(bucket, &storagev1.Object{Name: object}).Media(r).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("put object %s: %w", uri, err)
	}
	return nil
}
