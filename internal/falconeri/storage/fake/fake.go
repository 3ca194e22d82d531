// Package fake provides an in-memory storage.Storage for tests that
// exercise Job Admission without touching a real bucket.
package fake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"falconeri/internal/falconeri/storage"
)

// Storage is an in-memory storage.Storage. Objects are seeded with Put
// or written with Upload; both live in the same map.
type Storage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// New returns an empty fake Storage.
func New() *Storage {
	return &Storage{objects: map[string][]byte{}}
}

// Put seeds uri with content, as if a pipeline's input had already been
// staged there.
func (s *Storage) Put(uri string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[uri] = content
}

func (s *Storage) ListPrefix(ctx context.Context, uri string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var uris []string
	for key := range s.objects {
		if strings.HasPrefix(key, uri) {
			uris = append(uris, key)
		}
	}
	sort.Strings(uris)
	return uris, nil
}

func (s *Storage) Download(ctx context.Context, uri string, w io.Writer) error {
	s.mu.Lock()
	content, ok := s.objects[uri]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such object %s", uri)
	}
	_, err := w.Write(content)
	return err
}

func (s *Storage) Upload(ctx context.Context, uri string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[uri] = buf.Bytes()
	s.mu.Unlock()
	return nil
}

var _ storage.Storage = (*Storage)(nil)
