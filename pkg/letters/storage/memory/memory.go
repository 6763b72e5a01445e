package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tendant/simple-letters/pkg/letters"
)

// Store is an in-memory implementation of the letters.BlobStore interface,
// intended for testing and development
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory blob store
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Upload stores the blob in memory and returns its object key
func (s *Store) Upload(ctx context.Context, reader io.Reader, params letters.UploadParams) (string, error) {
	if params.ObjectKey == "" {
		return "", fmt.Errorf("object key is required")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read blob: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[params.ObjectKey] = data

	return params.ObjectKey, nil
}

// GetSignedURL returns a synthetic URL for a stored blob
func (s *Store) GetSignedURL(ctx context.Context, objectKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.objects[objectKey]; !exists {
		return "", fmt.Errorf("object not found: %s", objectKey)
	}
	return "memory://" + objectKey, nil
}

// Delete removes a blob. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectKey)
	return nil
}

// Get returns the stored bytes for a key, for test assertions.
func (s *Store) Get(objectKey string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectKey]
	return data, ok
}
