package submissions

import (
	"errors"
	"fmt"

	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
)

var (
	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("submissions: store closed")

	errMissingSlot = errors.New("submissions: storage slot is required")
)

// ServiceError carries a stable code of the form <operation>.<reason>.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opStoreNew = "submissions.store.new"
	opAppend   = "submissions.append"
	opList     = "submissions.list"
	opDelete   = "submissions.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

func storageReason(err error) string {
	switch {
	case errors.Is(err, kvstore.ErrStorageFull):
		return "storage_full"
	case errors.Is(err, kvstore.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, kvstore.ErrInvalidKey):
		return "invalid_key"
	default:
		return "storage_failed"
	}
}
