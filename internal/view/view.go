package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/metrics"
	"github.com/UsamaUmmsi/portfolio/backend/internal/realtime"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often a mounted view reloads without a change event.
const DefaultPollInterval = 5 * time.Second

var (
	// ErrAlreadyMounted is returned when Mount is called twice.
	ErrAlreadyMounted = errors.New("view: already mounted")
	// ErrUnmounted is returned when a view is used after Unmount.
	ErrUnmounted = errors.New("view: unmounted")
	// ErrNotMounted is returned by Delete before Mount.
	ErrNotMounted = errors.New("view: not mounted")

	errMissingSource = errors.New("view: submission source is required")
)

// Source is the store surface the view reads from and deletes through.
type Source interface {
	List(ctx context.Context) ([]submissions.Submission, error)
	Delete(ctx context.Context, id int64) error
}

// Subscriber delivers store change notifications.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan realtime.Message, func())
}

// State is the lifecycle position of a view.
type State int

const (
	StateIdle State = iota
	StateMounted
	StateUnmounted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMounted:
		return "mounted"
	case StateUnmounted:
		return "unmounted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config describes a view.
type Config struct {
	Source       Source
	Events       Subscriber
	Topic        string
	PollInterval time.Duration
	// OnRender receives every new snapshot. Calls never overlap and arrive in
	// version order. It must not call Unmount.
	OnRender func(Snapshot)
	Location *time.Location
	Logger   *zap.Logger
}

// View presents the stored submissions newest first and deletes through the
// store. It reloads on mount, on every poll tick, and on every change event.
type View struct {
	source   Source
	events   Subscriber
	topic    string
	interval time.Duration
	onRender func(Snapshot)
	location *time.Location
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	rows      []submissions.Submission
	deleted   map[int64]*pendingDelete
	loads     uint64
	loadErr   error
	deleteErr error
	version   uint64
	cancel    context.CancelFunc
	done      chan struct{}

	renderMu sync.Mutex
	rendered uint64
}

// pendingDelete hides an id until durable state catches up. Once the store
// delete has returned, the first load started after that point is
// authoritative, so copies sharing the id reappear there.
type pendingDelete struct {
	committed bool
	afterLoad uint64
}

// New constructs an idle view.
func New(cfg Config) (*View, error) {
	if cfg.Source == nil {
		return nil, errMissingSource
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{
		source:   cfg.Source,
		events:   cfg.Events,
		topic:    cfg.Topic,
		interval: interval,
		onRender: cfg.OnRender,
		location: location,
		logger:   logger,
		rows:     []submissions.Submission{},
		deleted:  make(map[int64]*pendingDelete),
	}, nil
}

// State reports the lifecycle position.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Mount loads the list once and then keeps it fresh until Unmount or until ctx ends.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	switch v.state {
	case StateMounted:
		v.mu.Unlock()
		return ErrAlreadyMounted
	case StateUnmounted:
		v.mu.Unlock()
		return ErrUnmounted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	v.state = StateMounted
	v.cancel = cancel
	v.done = make(chan struct{})
	v.mu.Unlock()
	metrics.ViewMounted(true)

	var events <-chan realtime.Message
	unsubscribe := func() {}
	if v.events != nil && v.topic != "" {
		events, unsubscribe = v.events.Subscribe(loopCtx, v.topic)
	}

	v.reload(loopCtx)
	go v.run(loopCtx, events, unsubscribe)
	return nil
}

// Unmount stops polling and waits for the loop to exit. No snapshot is
// rendered after Unmount returns. It is safe to call more than once.
func (v *View) Unmount() {
	v.mu.Lock()
	previous := v.state
	v.state = StateUnmounted
	cancel := v.cancel
	done := v.done
	v.mu.Unlock()

	if previous != StateMounted {
		return
	}
	cancel()
	<-done
	// Wait out a render that started before the state flipped.
	v.renderMu.Lock()
	v.renderMu.Unlock() //nolint:staticcheck
	metrics.ViewMounted(false)
}

// Delete removes the row immediately and then deletes it from the store. A
// store failure restores the row on the next reload and is returned.
func (v *View) Delete(ctx context.Context, id int64) error {
	v.mu.Lock()
	if v.state != StateMounted {
		state := v.state
		v.mu.Unlock()
		if state == StateUnmounted {
			return ErrUnmounted
		}
		return ErrNotMounted
	}
	v.rows = withoutID(v.rows, id)
	pending := &pendingDelete{}
	v.deleted[id] = pending
	v.deleteErr = nil
	snapshot := v.bumpLocked()
	v.mu.Unlock()
	v.notify(snapshot)

	err := v.source.Delete(ctx, id)
	if err == nil {
		v.mu.Lock()
		if v.deleted[id] == pending {
			pending.committed = true
			pending.afterLoad = v.loads
		}
		v.mu.Unlock()
		return nil
	}

	v.logger.Warn("submission delete failed", zap.Int64("submission_id", id), zap.Error(err))
	v.mu.Lock()
	if v.state != StateMounted {
		v.mu.Unlock()
		return err
	}
	if v.deleted[id] == pending {
		delete(v.deleted, id)
	}
	v.deleteErr = err
	snapshot = v.bumpLocked()
	v.mu.Unlock()
	v.notify(snapshot)
	return err
}

// Snapshot returns the current rendering model.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) run(ctx context.Context, events <-chan realtime.Message, unsubscribe func()) {
	defer close(v.done)
	defer unsubscribe()
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.reload(ctx)
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			v.reload(ctx)
		}
	}
}

// reload runs only on the mount path and the loop goroutine, never
// concurrently with itself.
func (v *View) reload(ctx context.Context) {
	v.mu.Lock()
	v.loads++
	load := v.loads
	v.mu.Unlock()

	list, err := v.source.List(ctx)
	if ctx.Err() != nil {
		return
	}

	v.mu.Lock()
	if v.state != StateMounted {
		v.mu.Unlock()
		return
	}
	if err != nil {
		v.logger.Warn("submission reload failed", zap.Error(err))
		v.loadErr = err
	} else {
		v.loadErr = nil
		present := make(map[int64]struct{}, len(list))
		for _, record := range list {
			present[record.ID] = struct{}{}
		}
		for id, pending := range v.deleted {
			_, stillStored := present[id]
			if !stillStored || (pending.committed && load > pending.afterLoad) {
				delete(v.deleted, id)
			}
		}
		v.rows = newestFirst(list, v.deleted)
	}
	snapshot := v.bumpLocked()
	v.mu.Unlock()
	v.notify(snapshot)
}

func (v *View) bumpLocked() Snapshot {
	v.version++
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	snapshot := buildSnapshot(v.rows, v.location)
	snapshot.Version = v.version
	switch {
	case v.deleteErr != nil:
		snapshot.Error = deleteFailedMessage
	case v.loadErr != nil:
		snapshot.Error = loadFailedMessage
	}
	return snapshot
}

func (v *View) notify(snapshot Snapshot) {
	if v.onRender == nil {
		return
	}
	v.renderMu.Lock()
	defer v.renderMu.Unlock()

	v.mu.Lock()
	mounted := v.state == StateMounted
	v.mu.Unlock()
	if !mounted || snapshot.Version <= v.rendered {
		return
	}
	v.rendered = snapshot.Version

	defer func() {
		if recovered := recover(); recovered != nil {
			v.logger.Error("submission view render panicked", zap.Any("panic", recovered))
		}
	}()
	v.onRender(snapshot)
}

// newestFirst reverses append order and hides rows pending deletion.
func newestFirst(list []submissions.Submission, hidden map[int64]*pendingDelete) []submissions.Submission {
	rows := make([]submissions.Submission, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if _, ok := hidden[list[i].ID]; ok {
			continue
		}
		rows = append(rows, list[i])
	}
	return rows
}

func withoutID(rows []submissions.Submission, id int64) []submissions.Submission {
	kept := make([]submissions.Submission, 0, len(rows))
	for _, row := range rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	return kept
}
