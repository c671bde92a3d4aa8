package submissions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
	"github.com/UsamaUmmsi/portfolio/backend/internal/metrics"
	"github.com/UsamaUmmsi/portfolio/backend/internal/realtime"
	"go.uber.org/zap"
)

// DefaultKey is the durable slot name the contact form has always used.
const DefaultKey = "contactSubmissions"

var noOpLogger = zap.NewNop()

// Publisher receives change notifications after committed mutations.
type Publisher interface {
	Publish(message realtime.Message)
}

// StoreConfig describes the dependencies of a Store.
type StoreConfig struct {
	Slot      kvstore.Slot
	Key       string
	Publisher Publisher
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Store keeps the submission list in a single durable slot. Every operation
// runs on one worker goroutine in arrival order, so read-modify-write
// sequences never interleave.
type Store struct {
	slot      kvstore.Slot
	key       string
	publisher Publisher
	clock     func() time.Time
	logger    *zap.Logger

	requests  chan storeRequest
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type storeRequest struct {
	ctx   context.Context
	run   func(ctx context.Context) error
	reply chan error
}

// NewStore validates cfg and starts the worker goroutine. Call Close to stop it.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Slot == nil {
		return nil, newServiceError(opStoreNew, "missing_slot", errMissingSlot)
	}
	rawKey := cfg.Key
	if rawKey == "" {
		rawKey = DefaultKey
	}
	key, err := kvstore.ValidateKey(rawKey)
	if err != nil {
		return nil, newServiceError(opStoreNew, "invalid_key", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	store := &Store{
		slot:      cfg.Slot,
		key:       key,
		publisher: cfg.Publisher,
		clock:     clock,
		logger:    logger,
		requests:  make(chan storeRequest),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go store.serve()
	return store, nil
}

// Key returns the durable slot name, which is also the change topic.
func (s *Store) Key() string {
	return s.key
}

// Close stops the worker after the operation in flight finishes.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

// Append adds record to the end of the list. Identifier uniqueness is the
// caller's responsibility.
func (s *Store) Append(ctx context.Context, record Submission) error {
	return s.submit(ctx, "append", func(ctx context.Context) error {
		list, err := s.readForMutation(ctx, opAppend)
		if err != nil {
			return err
		}
		list = append(list, record)
		if err := s.write(ctx, opAppend, list, zap.Int64("submission_id", record.ID)); err != nil {
			return err
		}
		s.publish(realtime.EventSubmissionAppended, record.ID)
		return nil
	})
}

// List returns the stored records in append order. A missing, corrupt, or
// unreadable value yields an empty list.
func (s *Store) List(ctx context.Context) ([]Submission, error) {
	var result []Submission
	err := s.submit(ctx, "list", func(ctx context.Context) error {
		raw, found, err := s.slot.Get(ctx, s.key)
		if err != nil {
			s.logger.Warn("submission list unreadable, treating as empty",
				zap.String("operation", opList),
				zap.String("key", s.key),
				zap.Error(err))
			result = []Submission{}
			return nil
		}
		list, decodeErr := decodeList(raw, found)
		if decodeErr != nil {
			s.logCorrupt(opList, decodeErr)
		}
		result = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the first record whose identifier equals id and keeps the
// relative order of the rest. Unknown identifiers are a no-op.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.submit(ctx, "delete", func(ctx context.Context) error {
		list, err := s.readForMutation(ctx, opDelete)
		if err != nil {
			return err
		}
		index := -1
		for i, record := range list {
			if record.ID == id {
				index = i
				break
			}
		}
		if index < 0 {
			return nil
		}
		remaining := make([]Submission, 0, len(list)-1)
		remaining = append(remaining, list[:index]...)
		remaining = append(remaining, list[index+1:]...)
		if err := s.write(ctx, opDelete, remaining, zap.Int64("submission_id", id)); err != nil {
			return err
		}
		s.publish(realtime.EventSubmissionDeleted, id)
		return nil
	})
}

func (s *Store) submit(ctx context.Context, operation string, run func(ctx context.Context) error) error {
	started := time.Now()
	request := storeRequest{ctx: ctx, run: run, reply: make(chan error, 1)}

	select {
	case <-s.quit:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.requests <- request:
	}

	err := <-request.reply
	metrics.RecordStoreOperation(operation, time.Since(started), err)
	return err
}

func (s *Store) serve() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case request := <-s.requests:
			if err := request.ctx.Err(); err != nil {
				request.reply <- err
				continue
			}
			request.reply <- request.run(request.ctx)
		}
	}
}

// readForMutation differs from List on outages: a mutation must not treat an
// unreadable slot as empty, or the following write would erase it.
func (s *Store) readForMutation(ctx context.Context, operation string) ([]Submission, error) {
	raw, found, err := s.slot.Get(ctx, s.key)
	if err != nil {
		reason := storageReason(err)
		s.logError(operation, reason, err)
		return nil, newServiceError(operation, reason, err)
	}
	list, decodeErr := decodeList(raw, found)
	if decodeErr != nil {
		s.logCorrupt(operation, decodeErr)
	}
	return list, nil
}

func (s *Store) write(ctx context.Context, operation string, list []Submission, fields ...zap.Field) error {
	encoded, err := encodeList(list)
	if err != nil {
		s.logError(operation, "encode_failed", err, fields...)
		return newServiceError(operation, "encode_failed", err)
	}
	if err := s.slot.Put(ctx, s.key, encoded); err != nil {
		reason := storageReason(err)
		s.logError(operation, reason, err, fields...)
		return newServiceError(operation, reason, err)
	}
	return nil
}

func (s *Store) publish(eventType string, id int64) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(realtime.Message{
		Topic:        s.key,
		EventType:    eventType,
		SubmissionID: id,
		Timestamp:    s.clock().UTC(),
	})
}

func (s *Store) logCorrupt(operation string, err error) {
	s.logger.Warn("stored submission list is corrupt, treating as empty",
		zap.String("operation", operation),
		zap.String("key", s.key),
		zap.Error(err))
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.String("key", s.key),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("submission store error", attrs...)
}

// IsStorageFull reports whether err stems from the slot quota.
func IsStorageFull(err error) bool {
	return errors.Is(err, ErrStorageFull)
}

// IsStorageUnavailable reports whether err stems from a slot outage.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
