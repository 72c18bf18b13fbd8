package pdfrenderer

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// BlobStore keeps encoded images in memory behind revocable URLs of the form
// <prefix><ulid>. URLs are only meaningful to this process.
type BlobStore struct {
	prefix string

	mu    sync.RWMutex
	blobs map[string]blob
}

type blob struct {
	data        []byte
	contentType string
	created     time.Time
}

// NewBlobStore returns an empty store issuing URLs under prefix, e.g. "/blob/"
func NewBlobStore(prefix string) *BlobStore {
	return &BlobStore{prefix: prefix, blobs: make(map[string]blob)}
}

// CreateObjectURL stores data and returns its URL
func (s *BlobStore) CreateObjectURL(data []byte, contentType string) string {
	id := ulid.Make().String()
	s.mu.Lock()
	s.blobs[id] = blob{data: data, contentType: contentType, created: time.Now()}
	s.mu.Unlock()
	return s.prefix + id
}

// Get returns the blob behind a URL or bare id
func (s *BlobStore) Get(url string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[s.id(url)]
	return b.data, b.contentType, ok
}

// Revoke forgets a URL. It reports whether the URL was live.
func (s *BlobStore) Revoke(url string) bool {
	id := s.id(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[id]
	delete(s.blobs, id)
	return ok
}

// RevokeOlderThan forgets every URL created more than age ago and returns
// how many were revoked
func (s *BlobStore) RevokeOlderThan(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for id, b := range s.blobs {
		if b.created.Before(cutoff) {
			delete(s.blobs, id)
			revoked++
		}
	}
	return revoked
}

// Len is the number of live URLs
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *BlobStore) id(url string) string {
	return strings.TrimPrefix(url, s.prefix)
}
