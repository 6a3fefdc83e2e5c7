// Package storage keeps rendered order documents in object storage and
// hands out time limited download links for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrEmptyKey is returned for operations without an object key
var ErrEmptyKey = errors.New("storage key is required")

// DocumentStore stores rendered documents
type DocumentStore interface {
	// Upload stores data under key
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// DownloadURL returns a link the recipient can fetch the object from
	DownloadURL(ctx context.Context, key string) (string, error)
	// Delete removes the object
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-process DocumentStore used when no bucket is
// configured and in tests
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
	storedAt    time.Time
}

// NewMemoryStore creates a MemoryStore whose links start with baseURL
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://documents"
	}
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string]memoryObject)}
}

// Upload stores a copy of data
func (s *MemoryStore) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType, storedAt: time.Now()}
	return nil
}

// DownloadURL returns the link of a stored object
func (s *MemoryStore) DownloadURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return s.baseURL + "/" + (&url.URL{Path: key}).EscapedPath(), nil
}

// Delete removes an object; missing objects are ignored
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns a stored object and its content type
func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

// Keys returns the stored keys in order
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ DocumentStore = (*MemoryStore)(nil)
