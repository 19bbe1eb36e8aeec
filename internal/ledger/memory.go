package ledger

import (
	"sync"

	"github.com/pathledger/pathledger/internal/errors"
)

// MemoryStorage is an in-memory Storage, used by tests and as the
// reference for the region contract.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStorage creates an empty in-memory region.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Read returns a copy of the region.
func (s *MemoryStorage) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Resize grows or shrinks the region to exactly n bytes.
func (s *MemoryStorage) Resize(n int) error {
	if n < 0 {
		return errors.Configurationf("negative region size %d", n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]byte, n)
	copy(next, s.data)
	s.data = next
	return nil
}

// Write replaces the region's contents.
func (s *MemoryStorage) Write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(b) != len(s.data) {
		return errors.IOf("write length %d does not match region capacity %d", len(b), len(s.data))
	}

	copy(s.data, b)
	return nil
}
