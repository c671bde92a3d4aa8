package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/metrics"
)

const (
	// EventSubmissionAppended is published after a submission is persisted.
	EventSubmissionAppended = "submission-appended"
	// EventSubmissionDeleted is published after a submission is removed.
	EventSubmissionDeleted = "submission-deleted"

	defaultBufferSize = 16
)

// Message describes one change on a topic. Sequence is assigned by the
// dispatcher and increases by one per published message on the topic, so a
// subscriber that sees a gap knows it missed changes.
type Message struct {
	Topic        string
	EventType    string
	SubmissionID int64
	Sequence     uint64
	Timestamp    time.Time
}

// Option adjusts a Dispatcher.
type Option func(*Dispatcher)

// WithBufferSize sets how many undelivered messages each subscriber holds.
func WithBufferSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.bufferSize = size
		}
	}
}

// Dispatcher fans submission change messages out to the views watching a
// storage key. Publishing never blocks; a subscriber whose buffer is full
// misses the message and relies on its poll to catch up.
type Dispatcher struct {
	mu         sync.Mutex
	topics     map[string]*topicState
	lastID     uint64
	bufferSize int
	clock      func() time.Time
}

type topicState struct {
	sequence    uint64
	subscribers map[uint64]chan Message
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(options ...Option) *Dispatcher {
	d := &Dispatcher{
		topics:     make(map[string]*topicState),
		bufferSize: defaultBufferSize,
		clock:      time.Now,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Subscribe registers interest in topic until ctx ends or the returned
// cancel func runs, whichever comes first. Cancel is idempotent. An empty
// topic yields a closed channel.
func (d *Dispatcher) Subscribe(ctx context.Context, topic string) (<-chan Message, func()) {
	if topic == "" {
		closed := make(chan Message)
		close(closed)
		return closed, func() {}
	}
	stream := make(chan Message, d.bufferSize)

	d.mu.Lock()
	d.lastID++
	id := d.lastID
	state, ok := d.topics[topic]
	if !ok {
		state = &topicState{subscribers: make(map[uint64]chan Message)}
		d.topics[topic] = state
	}
	state.subscribers[id] = stream
	d.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() { d.remove(topic, id) })
	}
	stopWatching := context.AfterFunc(ctx, remove)
	return stream, func() {
		stopWatching()
		remove()
	}
}

// Publish stamps message with the next topic sequence and delivers it to every
// current subscriber of message.Topic. A zero Timestamp is filled in.
func (d *Dispatcher) Publish(message Message) {
	if message.Topic == "" || message.EventType == "" {
		return
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = d.clock().UTC()
	}

	d.mu.Lock()
	state, ok := d.topics[message.Topic]
	if !ok {
		d.mu.Unlock()
		return
	}
	state.sequence++
	message.Sequence = state.sequence
	targets := make([]chan Message, 0, len(state.subscribers))
	for _, stream := range state.subscribers {
		targets = append(targets, stream)
	}
	d.mu.Unlock()

	for _, stream := range targets {
		select {
		case stream <- message:
		default:
			metrics.RecordDroppedEvent(message.EventType)
		}
	}
}

// SubscriberCount reports how many subscribers listen on topic.
func (d *Dispatcher) SubscriberCount(topic string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if state, ok := d.topics[topic]; ok {
		return len(state.subscribers)
	}
	return 0
}

// remove drops the topic entry with its last subscriber, so the next
// subscriber starts a fresh sequence.
func (d *Dispatcher) remove(topic string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.topics[topic]
	if !ok {
		return
	}
	delete(state.subscribers, id)
	if len(state.subscribers) == 0 {
		delete(d.topics, topic)
	}
}
