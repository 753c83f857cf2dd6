// Package memory provides an in-process storage service backed by the
// generic key-value adapter. It exists for tests, examples and as the
// reference implementation of the kv.Store contract.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/raw/kv"
)

// Builder configures a memory service.
type Builder struct {
	root string
}

// New starts building a memory service.
func New() *Builder { return &Builder{} }

// Root sets the working directory; all operations happen under it.
func (b *Builder) Root(root string) *Builder {
	b.root = root
	return b
}

// Build returns the accessor.
func (b *Builder) Build() (raw.Accessor, error) {
	store := &memStore{
		meta: raw.NewMetadata(
			raw.SchemeMemory,
			b.root,
			raw.CapRead|raw.CapWrite|raw.CapList|raw.CapBlocking,
		),
		namespaces: make(map[string]map[string][]byte),
	}
	return kv.NewBackend(store), nil
}

// memStore keeps one map per namespace, guarded by a single RWMutex. Writes
// copy the value so callers cannot alias stored bytes.
type memStore struct {
	meta       raw.Metadata
	mu         sync.RWMutex
	namespaces map[string]map[string][]byte
}

func (s *memStore) Metadata() raw.Metadata { return s.meta }

func (s *memStore) Get(ctx context.Context, namespace, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}
	value, ok := ns[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *memStore) Set(ctx context.Context, namespace, name string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.namespaces[namespace] = ns
	}
	ns[name] = stored
	return nil
}

func (s *memStore) Delete(ctx context.Context, namespace, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.namespaces[namespace]; ok {
		delete(ns, name)
	}
	return nil
}

func (s *memStore) Scan(ctx context.Context, namespace string) ([]kv.ScanEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.namespaces[namespace]
	entries := make([]kv.ScanEntry, 0, len(ns))
	for name, value := range ns {
		entries = append(entries, kv.ScanEntry{Name: name, Size: int64(len(value))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
