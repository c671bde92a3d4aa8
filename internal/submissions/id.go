package submissions

import (
	"sync"
	"time"
)

// IDSource issues submission identifiers.
type IDSource interface {
	NextID() int64
}

// MonotonicIDs derives identifiers from the creation time in milliseconds and
// bumps by one whenever the clock has not advanced past the previous value, so
// identifiers stay unique and increasing within a process.
type MonotonicIDs struct {
	mu    sync.Mutex
	clock func() time.Time
	last  int64
}

// NewMonotonicIDs constructs an IDSource. A nil clock selects time.Now.
func NewMonotonicIDs(clock func() time.Time) *MonotonicIDs {
	if clock == nil {
		clock = time.Now
	}
	return &MonotonicIDs{clock: clock}
}

// NextID returns the next identifier.
func (m *MonotonicIDs) NextID() int64 {
	candidate := m.clock().UnixMilli()
	m.mu.Lock()
	defer m.mu.Unlock()
	if candidate <= m.last {
		candidate = m.last + 1
	}
	m.last = candidate
	return candidate
}
