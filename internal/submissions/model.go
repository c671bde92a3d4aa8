package submissions

import (
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
)

// StatusSubmitted marks a record accepted by the contact form.
const StatusSubmitted = "submitted"

// TimestampLayout renders UTC instants with millisecond precision, matching
// the ISO-8601 strings browsers produce.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrStorageFull re-exports the slot quota failure for callers of the store.
	ErrStorageFull = kvstore.ErrStorageFull
	// ErrStorageUnavailable re-exports the slot outage failure for callers of the store.
	ErrStorageUnavailable = kvstore.ErrStorageUnavailable
)

// Submission is one contact-form entry. It is never mutated after creation.
type Submission struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CreatedAt parses the stored timestamp.
func (s Submission) CreatedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s.Timestamp)
}
