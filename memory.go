package delay

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// MemoryStore keeps the most recently saved Archive in process memory. It
// is useful for tests and for hosts that do not need durability
type MemoryStore struct {
	archive *Archive
	mu      sync.Mutex
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, a *Archive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.archive = cloneArchive(a)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if s.archive == nil {
		return emptyArchive(), nil
	}
	return cloneArchive(s.archive), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneArchive(a *Archive) *Archive {
	res := &Archive{
		Clock:   a.Clock,
		Records: make([]json.RawMessage, len(a.Records)),
	}
	for i, r := range a.Records {
		res.Records[i] = slices.Clone(r)
	}
	return res
}
