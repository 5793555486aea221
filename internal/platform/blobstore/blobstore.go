// Package blobstore keeps exported artefacts (audit archives) in object
// storage. S3Store is used in deployments and MemoryStore in tests and
// development.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrExists     = errors.New("blob already exists")
	ErrMissingKey = errors.New("blob key is required")
)

// Object describes a stored blob.
type Object struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type"`
	SHA256      string            `json:"sha256,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Store is create-only: writing an existing key fails with ErrExists, so an
// archive can never be silently replaced.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) (*Object, error)
	Get(ctx context.Context, key string) ([]byte, *Object, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type storedBlob struct {
	object Object
	body   []byte
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]*storedBlob)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, body []byte, metadata map[string]string) (*Object, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; ok {
		return nil, ErrExists
	}
	obj := Object{
		Key:         key,
		Size:        int64(len(body)),
		ContentType: contentType,
		SHA256:      checksum(body),
		CreatedAt:   time.Now().UTC(),
		Metadata:    metadata,
	}
	data := make([]byte, len(body))
	copy(data, body)
	s.blobs[key] = &storedBlob{object: obj, body: data}
	out := obj
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, *Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	data := make([]byte, len(b.body))
	copy(data, b.body)
	obj := b.object
	return data, &obj, nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Object
	for k, b := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, b.object)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
