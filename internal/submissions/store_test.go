package submissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/kvstore"
	"github.com/UsamaUmmsi/portfolio/backend/internal/realtime"
	"go.uber.org/zap"
)

func TestStoreAppendThenListPreservesAppendOrder(t *testing.T) {
	store, _ := newTestStore(t, kvstore.NewMemorySlot(0))
	ctx := context.Background()

	first := mustSubmission(1, "Ada")
	second := mustSubmission(2, "Grace")
	for _, record := range []Submission{first, second} {
		if err := store.Append(ctx, record); err != nil {
			t.Fatalf("unexpected append error: %v", err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0] != first || list[1] != second {
		t.Fatalf("unexpected order: %#v", list)
	}
}

func TestStoreDeleteRemovesExactlyOne(t *testing.T) {
	store, _ := newTestStore(t, kvstore.NewMemorySlot(0))
	ctx := context.Background()

	for id := int64(1); id <= 4; id++ {
		if err := store.Append(ctx, mustSubmission(id, fmt.Sprintf("user-%d", id))); err != nil {
			t.Fatalf("unexpected append error: %v", err)
		}
	}

	if err := store.Delete(ctx, 2); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	expected := []int64{1, 3, 4}
	if len(list) != len(expected) {
		t.Fatalf("expected %d records, got %d", len(expected), len(list))
	}
	for index, id := range expected {
		if list[index].ID != id {
			t.Fatalf("expected id %d at index %d, got %d", id, index, list[index].ID)
		}
	}
}

func TestStoreDeleteUnknownIDIsNoOp(t *testing.T) {
	slot := kvstore.NewMemorySlot(0)
	store, dispatcher := newTestStore(t, slot)
	ctx := context.Background()

	if err := store.Append(ctx, mustSubmission(1, "Ada")); err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	before, _, _ := slot.Get(ctx, DefaultKey)

	events, cleanup := dispatcher.Subscribe(ctx, store.Key())
	defer cleanup()

	if err := store.Delete(ctx, 99); err != nil {
		t.Fatalf("expected no error for unknown id, got %v", err)
	}

	after, _, _ := slot.Get(ctx, DefaultKey)
	if before != after {
		t.Fatalf("expected stored value to stay unchanged, before=%s after=%s", before, after)
	}
	select {
	case msg := <-events:
		t.Fatalf("did not expect a change event, got %#v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoreCorruptValueDegradesToEmpty(t *testing.T) {
	testCases := []struct {
		name  string
		seed  string
		found bool
	}{
		{name: "missing"},
		{name: "blank", seed: "   ", found: true},
		{name: "not-json", seed: "{oops", found: true},
		{name: "object", seed: `{"id":1}`, found: true},
		{name: "null", seed: "null", found: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			slot := kvstore.NewMemorySlot(0)
			if testCase.found {
				if err := slot.Put(context.Background(), DefaultKey, testCase.seed); err != nil {
					t.Fatalf("failed to seed slot: %v", err)
				}
			}
			store, _ := newTestStore(t, slot)

			list, err := store.List(context.Background())
			if err != nil {
				t.Fatalf("expected corrupt value to be tolerated, got %v", err)
			}
			if len(list) != 0 {
				t.Fatalf("expected empty list, got %#v", list)
			}

			record := mustSubmission(5, "Ada")
			if err := store.Append(context.Background(), record); err != nil {
				t.Fatalf("unexpected append error: %v", err)
			}
			list, _ = store.List(context.Background())
			if len(list) != 1 || list[0] != record {
				t.Fatalf("expected single-element list, got %#v", list)
			}
		})
	}
}

func TestStorePersistsDocumentedLayout(t *testing.T) {
	slot := kvstore.NewMemorySlot(0)
	store, _ := newTestStore(t, slot)

	record := Submission{
		ID:        1760000000000,
		Name:      "Ada",
		Email:     "ada@example.com",
		Message:   "Hello\nthere",
		Timestamp: "2025-10-09T08:53:20.000Z",
		Status:    StatusSubmitted,
	}
	if err := store.Append(context.Background(), record); err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}

	raw, _, _ := slot.Get(context.Background(), DefaultKey)
	expected := `[{"id":1760000000000,"name":"Ada","email":"ada@example.com","message":"Hello\nthere","timestamp":"2025-10-09T08:53:20.000Z","status":"submitted"}]`
	if raw != expected {
		t.Fatalf("unexpected persisted layout:\n got %s\nwant %s", raw, expected)
	}
}

func TestStoreSurfacesWriteFailures(t *testing.T) {
	testCases := []struct {
		name     string
		slot     kvstore.Slot
		wantErr  error
		wantCode string
	}{
		{
			name:     "storage-full",
			slot:     kvstore.NewMemorySlot(16),
			wantErr:  ErrStorageFull,
			wantCode: "submissions.append.storage_full",
		},
		{
			name:     "storage-unavailable",
			slot:     &faultySlot{Slot: kvstore.NewMemorySlot(0), putErr: fmt.Errorf("%w: disk gone", kvstore.ErrStorageUnavailable)},
			wantErr:  ErrStorageUnavailable,
			wantCode: "submissions.append.storage_unavailable",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			store, _ := newTestStore(t, testCase.slot)
			err := store.Append(context.Background(), mustSubmission(1, strings.Repeat("a", 32)))
			if !errors.Is(err, testCase.wantErr) {
				t.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
			var serviceErr *ServiceError
			if !errors.As(err, &serviceErr) {
				t.Fatalf("expected ServiceError, got %T", err)
			}
			if serviceErr.Code() != testCase.wantCode {
				t.Fatalf("unexpected code %s", serviceErr.Code())
			}
		})
	}
}

func TestStoreMutationAbortsWhenSlotUnreadable(t *testing.T) {
	memory := kvstore.NewMemorySlot(0)
	if err := memory.Put(context.Background(), DefaultKey, `[{"id":1,"name":"Ada"}]`); err != nil {
		t.Fatalf("failed to seed slot: %v", err)
	}
	slot := &faultySlot{Slot: memory, getErr: fmt.Errorf("%w: locked", kvstore.ErrStorageUnavailable)}
	store, _ := newTestStore(t, slot)

	err := store.Append(context.Background(), mustSubmission(2, "Grace"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("expected list to tolerate outage, got %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected outage to read as empty, got %#v", list)
	}

	raw, _, _ := memory.Get(context.Background(), DefaultKey)
	if raw != `[{"id":1,"name":"Ada"}]` {
		t.Fatalf("expected stored value to survive the outage, got %s", raw)
	}
}

func TestStorePublishesChangeEvents(t *testing.T) {
	store, dispatcher := newTestStore(t, kvstore.NewMemorySlot(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, cleanup := dispatcher.Subscribe(ctx, store.Key())
	defer cleanup()

	if err := store.Append(ctx, mustSubmission(10, "Ada")); err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	if err := store.Delete(ctx, 10); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	expected := []string{realtime.EventSubmissionAppended, realtime.EventSubmissionDeleted}
	for _, eventType := range expected {
		select {
		case msg := <-events:
			if msg.EventType != eventType || msg.SubmissionID != 10 {
				t.Fatalf("unexpected event %#v, want %s", msg, eventType)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("expected %s event", eventType)
		}
	}
}

func TestStoreDeleteDuringInFlightReadIsNeverLost(t *testing.T) {
	memory := kvstore.NewMemorySlot(0)
	store, _ := newTestStore(t, memory)
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		if err := store.Append(ctx, mustSubmission(id, "user")); err != nil {
			t.Fatalf("unexpected append error: %v", err)
		}
	}

	gate := make(chan struct{})
	entered := make(chan struct{})
	gated := &gatedSlot{Slot: memory, gate: gate, entered: entered}
	gatedStore, _ := newTestStore(t, gated)

	listResult := make(chan []Submission, 1)
	go func() {
		list, _ := gatedStore.List(ctx)
		listResult <- list
	}()
	<-entered

	deleteResult := make(chan error, 1)
	go func() {
		deleteResult <- gatedStore.Delete(ctx, 2)
	}()

	select {
	case <-deleteResult:
		t.Fatal("delete must wait for the in-flight read")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	inFlight := <-listResult
	if len(inFlight) != 3 {
		t.Fatalf("expected the in-flight read to see 3 records, got %d", len(inFlight))
	}
	if err := <-deleteResult; err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	final, err := gatedStore.List(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	for _, record := range final {
		if record.ID == 2 {
			t.Fatalf("deleted record reappeared: %#v", final)
		}
	}
	if len(final) != 2 {
		t.Fatalf("expected 2 records after delete, got %d", len(final))
	}
}

func TestStoreSerializesConcurrentMutations(t *testing.T) {
	store, _ := newTestStore(t, kvstore.NewMemorySlot(0))
	ctx := context.Background()

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := store.Append(ctx, mustSubmission(id, "writer")); err != nil {
				t.Errorf("unexpected append error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	for i := 0; i < writers; i += 2 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := store.Delete(ctx, id); err != nil {
				t.Errorf("unexpected delete error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(list) != writers/2 {
		t.Fatalf("expected %d records, got %d", writers/2, len(list))
	}
	for _, record := range list {
		if record.ID%2 != 0 {
			t.Fatalf("odd record %d should have been deleted", record.ID)
		}
	}
}

func TestStoreRejectsOperationsAfterClose(t *testing.T) {
	store, err := NewStore(StoreConfig{Slot: kvstore.NewMemorySlot(0)})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	store.Close()
	store.Close()

	if err := store.Append(context.Background(), mustSubmission(1, "Ada")); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
	if _, err := store.List(context.Background()); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	store, _ := newTestStore(t, kvstore.NewMemorySlot(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Append(ctx, mustSubmission(1, "Ada")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	list, err := store.List(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("expected nothing to be stored, got %#v err=%v", list, err)
	}
}

func TestNewStoreValidatesConfig(t *testing.T) {
	if _, err := NewStore(StoreConfig{}); err == nil {
		t.Fatalf("expected missing slot to be rejected")
	}
	_, err := NewStore(StoreConfig{Slot: kvstore.NewMemorySlot(0), Key: strings.Repeat("k", 200)})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "submissions.store.new.invalid_key" {
		t.Fatalf("expected invalid key error, got %v", err)
	}
}

func TestMonotonicIDsNeverRepeat(t *testing.T) {
	fixed := time.UnixMilli(1760000000000)
	ids := NewMonotonicIDs(func() time.Time { return fixed })

	first := ids.NextID()
	second := ids.NextID()
	third := ids.NextID()
	if first != 1760000000000 {
		t.Fatalf("expected first id to equal creation millis, got %d", first)
	}
	if second != first+1 || third != second+1 {
		t.Fatalf("expected same-tick ids to be bumped, got %d %d %d", first, second, third)
	}
}

func newTestStore(t *testing.T, slot kvstore.Slot) (*Store, *realtime.Dispatcher) {
	t.Helper()
	dispatcher := realtime.NewDispatcher()
	store, err := NewStore(StoreConfig{
		Slot:      slot,
		Publisher: dispatcher,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	t.Cleanup(store.Close)
	return store, dispatcher
}

func mustSubmission(id int64, name string) Submission {
	return Submission{
		ID:        id,
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Message:   "Hello",
		Timestamp: FormatTimestamp(time.UnixMilli(id)),
		Status:    StatusSubmitted,
	}
}

type faultySlot struct {
	kvstore.Slot
	getErr error
	putErr error
}

func (s *faultySlot) Get(ctx context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.Slot.Get(ctx, key)
}

func (s *faultySlot) Put(ctx context.Context, key, value string) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.Slot.Put(ctx, key, value)
}

// gatedSlot blocks the first Get until gate is closed.
type gatedSlot struct {
	kvstore.Slot
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *gatedSlot) Get(ctx context.Context, key string) (string, bool, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.gate
	}
	return s.Slot.Get(ctx, key)
}
