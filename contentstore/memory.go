package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/udemarket/markethub/common"
)

// MemoryStore is a sha256-addressed in-memory store for tests and memory
// mode. Identical bytes hash to the same reference, so storing the same
// content twice is naturally deduplicated.
type MemoryStore struct {
	mu         sync.RWMutex
	blobs      map[string][]byte
	gatewayURL string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:      map[string][]byte{},
		gatewayURL: "memory://",
	}
}

var _ Client = (*MemoryStore)(nil)

func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		copied := make([]byte, len(data))
		copy(copied, data)
		s.blobs[ref] = copied
	}
	return ref, nil
}

func (s *MemoryStore) Get(ctx context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", common.ErrNotFound, ref)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

func (s *MemoryStore) GatewayURL(ref string) string {
	return s.gatewayURL + ref
}

// Len reports the number of distinct blobs stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
