// Package storage isolates the coordination core from the object store a
// pipeline's input and output URIs actually live in, behind the three
// operations Job Admission and the worker-facing docs need: list a
// prefix, download an object, upload an object.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"falconeri/internal/falconeri/pipeline"
)

// Storage is the capability set Job Admission needs to turn a pipeline's
// input URI into InputFiles, and that operators need when inspecting a
// job's output bucket by hand.
type Storage interface {
	// ListPrefix lists every object URI under uri, which must include
	// the bucket's scheme (s3:// or gs://).
	ListPrefix(ctx context.Context, uri string) ([]string, error)

	// Download streams the object at uri to w.
	Download(ctx context.Context, uri string, w io.Writer) error

	// Upload streams r to the object at uri.
	Upload(ctx context.Context, uri string, r io.Reader) error
}

// Factory builds a Storage for a bucket URI, given the secrets a
// pipeline's transform declared (some backends need a credential secret
// by name; most read ambient credentials instead).
type Factory func(ctx context.Context, bucketURI string, secrets []pipeline.Secret) (Storage, error)

var factories = map[string]Factory{}

// Register associates scheme (without "://") with a backend factory. S3
// and GCS register themselves from their respective packages' init, so
// this package has no import-time dependency on either SDK.
func Register(scheme string, f Factory) {
	factories[scheme] = f
}

// ForURI returns the backend registered for bucketURI's scheme.
func ForURI(ctx context.Context, bucketURI string, secrets []pipeline.Secret) (Storage, error) {
	scheme, _, ok := strings.Cut(bucketURI, "://")
	if !ok {
		return nil, fmt.Errorf("cannot find storage backend for %q: no scheme", bucketURI)
	}
	f, ok := factories[scheme]
	if !ok {
		return nil, fmt.Errorf("cannot find storage backend for %s://", scheme)
	}
	return f(ctx, bucketURI, secrets)
}
