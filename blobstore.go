package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const minJanitorInterval = time.Millisecond

const blobPrefix = "/blob/"

// BlobStore keeps composite payloads addressable for a short while so the
// viewer can load them. Source documents never go here.
type BlobStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]blob
	now   func() time.Time
}

type blob struct {
	data    []byte
	expires time.Time
}

func NewBlobStore(ttl time.Duration) *BlobStore {
	return &BlobStore{
		ttl:   ttl,
		items: make(map[string]blob),
		now:   time.Now,
	}
}

// Put stores data under a fresh id and returns the local URL for it.
func (s *BlobStore) Put(data []byte) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.items[id] = blob{data: data, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return blobPrefix + id
}

func (s *BlobStore) Get(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if !s.now().Before(b.expires) {
		delete(s.items, id)
		return nil, false
	}
	return b.data, true
}

// Delete releases the blob behind a local URL returned by Put.
func (s *BlobStore) Delete(src string) {
	s.mu.Lock()
	delete(s.items, strings.TrimPrefix(src, blobPrefix))
	s.mu.Unlock()
}

// Sweep drops expired entries and returns how many were removed.
func (s *BlobStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, b := range s.items {
		if !now.Before(b.expires) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Janitor sweeps every interval until ctx is done. Intervals under
// minJanitorInterval are raised to it.
func (s *BlobStore) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(max(interval, minJanitorInterval))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
