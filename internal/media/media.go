// Package media stores submission evidence photos and hands out opaque
// refs for them. The verification pipeline only ever round-trips bytes
// through Save/Load; where they land is this package's business.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a ref does not resolve to stored bytes.
var ErrNotFound = errors.New("media not found")

// Store saves and loads media blobs by opaque ref.
type Store interface {
	Save(ctx context.Context, data []byte) (ref string, err error)
	Load(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// DiskStore keeps each blob as a uuid-named file under a root directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Save(_ context.Context, data []byte) (string, error) {
	ref := uuid.NewString()
	if err := os.WriteFile(filepath.Join(s.root, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("writing media %s: %w", ref, err)
	}
	return ref, nil
}

func (s *DiskStore) Load(_ context.Context, ref string) ([]byte, error) {
	// Refs are uuids we minted; reject anything path-like.
	if _, err := uuid.Parse(ref); err != nil {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.root, ref))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading media %s: %w", ref, err)
	}
	return data, nil
}

func (s *DiskStore) Delete(_ context.Context, ref string) error {
	if _, err := uuid.Parse(ref); err != nil {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.root, ref))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Save(_ context.Context, data []byte) (string, error) {
	ref := uuid.NewString()
	s.mu.Lock()
	s.blobs[ref] = append([]byte(nil), data...)
	s.mu.Unlock()
	return ref, nil
}

func (s *MemStore) Load(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, ref)
	return nil
}
