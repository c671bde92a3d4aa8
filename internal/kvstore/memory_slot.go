package kvstore

import (
	"context"
	"sync"
)

// MemorySlot keeps values in process memory. It loses everything on restart.
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string]string
	quota  int
}

// NewMemorySlot constructs an empty in-memory slot. A non-positive quota
// selects DefaultQuotaBytes.
func NewMemorySlot(quotaBytes int) *MemorySlot {
	if quotaBytes <= 0 {
		quotaBytes = DefaultQuotaBytes
	}
	return &MemorySlot{values: make(map[string]string), quota: quotaBytes}
}

// Get returns the value stored under key.
func (s *MemorySlot) Get(ctx context.Context, key string) (string, bool, error) {
	validKey, err := ValidateKey(key)
	if err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, unavailable("read", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[validKey]
	return value, ok, nil
}

// Put replaces the value stored under key.
func (s *MemorySlot) Put(ctx context.Context, key, value string) error {
	validKey, err := ValidateKey(key)
	if err != nil {
		return err
	}
	if err := checkQuota(validKey, value, s.quota); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("write", err)
	}
	s.mu.Lock()
	s.values[validKey] = value
	s.mu.Unlock()
	return nil
}
