package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultQuotaBytes mirrors the per-origin budget browsers give local storage.
const DefaultQuotaBytes = 5 * 1024 * 1024

const maxKeyLength = 190

var (
	// ErrStorageFull indicates that a value exceeds the slot quota.
	ErrStorageFull = errors.New("kvstore: storage full")
	// ErrStorageUnavailable indicates that the backing store could not be read or written.
	ErrStorageUnavailable = errors.New("kvstore: storage unavailable")
	// ErrInvalidKey indicates that a key is empty or exceeds storage bounds.
	ErrInvalidKey = errors.New("kvstore: invalid key")
)

// Slot is a durable string-valued key-value area.
type Slot interface {
	// Get returns the stored value. A missing key yields found=false and a nil error.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Put replaces the value stored under key.
	Put(ctx context.Context, key, value string) error
}

// ValidateKey normalizes and validates a storage key.
func ValidateKey(rawKey string) (string, error) {
	key := strings.TrimSpace(rawKey)
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if len(key) > maxKeyLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidKey, maxKeyLength)
	}
	return key, nil
}

func checkQuota(key, value string, quota int) error {
	if quota > 0 && len(value) > quota {
		return fmt.Errorf("%w: %q needs %d bytes, quota is %d", ErrStorageFull, key, len(value), quota)
	}
	return nil
}

func unavailable(action string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, action, cause)
}
