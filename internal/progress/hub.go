package progress

import (
	"errors"
	"sync"
	"time"
)

// ErrNoFeed is returned when subscribing to an unknown execution id.
var ErrNoFeed = errors.New("no progress feed for execution")

const (
	// defaultBufferSize bounds the replay ring buffer. Sized generously:
	// sessions are short, and readers that fall further behind simply
	// miss trimmed events.
	defaultBufferSize = 2048

	// defaultRetention keeps a finished feed around so a reconnecting
	// client can still replay the terminal event.
	defaultRetention = 2 * time.Minute

	// defaultAbandonTimeout reclaims feeds whose execution never reached
	// a terminal event. Resource-leak guard, not a correctness guarantee.
	defaultAbandonTimeout = 30 * time.Minute
)

// Hub tracks one Feed per execution id. Single-writer, multi-reader:
// the orchestrator publishes, any number of SSE readers subscribe by
// execution id and receive the replay buffer plus the live tail.
type Hub struct {
	mu    sync.Mutex
	feeds map[string]*Feed

	bufferSize     int
	retention      time.Duration
	abandonTimeout time.Duration
}

// NewHub creates a Hub with default buffer and retention settings.
func NewHub() *Hub {
	return &Hub{
		feeds:          make(map[string]*Feed),
		bufferSize:     defaultBufferSize,
		retention:      defaultRetention,
		abandonTimeout: defaultAbandonTimeout,
	}
}

// CreateFeed registers a new feed for an execution id. The feed is
// reclaimed after its terminal event (plus a retention window) or after
// the abandonment timeout, whichever comes first.
func (h *Hub) CreateFeed(executionID string) *Feed {
	f := &Feed{
		id:   executionID,
		hub:  h,
		subs: make(map[chan Event]struct{}),
		max:  h.bufferSize,
	}
	h.mu.Lock()
	h.feeds[executionID] = f
	h.mu.Unlock()

	f.abandonTimer = time.AfterFunc(h.abandonTimeout, func() { h.remove(executionID) })
	return f
}

// Subscribe attaches a reader to an execution's feed. The returned channel
// first yields the buffered events, then the live tail; it is closed after
// the terminal event. cancel detaches the reader and must always be called.
func (h *Hub) Subscribe(executionID string) (<-chan Event, func(), error) {
	h.mu.Lock()
	f, ok := h.feeds[executionID]
	h.mu.Unlock()
	if !ok {
		return nil, nil, ErrNoFeed
	}
	ch, cancel := f.subscribe()
	return ch, cancel, nil
}

func (h *Hub) remove(executionID string) {
	h.mu.Lock()
	f, ok := h.feeds[executionID]
	delete(h.feeds, executionID)
	h.mu.Unlock()
	if ok {
		f.shutdown()
	}
}

// Feed is the ordered event stream of a single execution. Events may
// originate from concurrent test tasks but are serialized here: Publish
// assigns each a sequence number under the feed lock.
type Feed struct {
	id  string
	hub *Hub

	mu     sync.Mutex
	seq    uint64
	buf    []Event
	max    int
	subs   map[chan Event]struct{}
	closed bool

	abandonTimer *time.Timer
}

// Publish appends an event to the replay buffer and fans it out to live
// subscribers. The producer never blocks: a subscriber whose channel is
// full is dropped. Publishing a terminal event closes the feed.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.seq++
	ev.Seq = f.seq

	f.buf = append(f.buf, ev)
	if len(f.buf) > f.max {
		// Oldest dropped first.
		f.buf = f.buf[len(f.buf)-f.max:]
	}

	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			delete(f.subs, ch)
			close(ch)
		}
	}

	terminal := ev.Terminal()
	if terminal {
		f.closed = true
		for ch := range f.subs {
			close(ch)
		}
		f.subs = make(map[chan Event]struct{})
	}
	f.mu.Unlock()

	if terminal {
		f.abandonTimer.Stop()
		time.AfterFunc(f.hub.retention, func() { f.hub.remove(f.id) })
	}
}

func (f *Feed) subscribe() (chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Capacity covers the full replay plus live slack, so the replay
	// below never blocks and ordering matches publication order.
	ch := make(chan Event, f.max+64)
	for _, ev := range f.buf {
		ch <- ev
	}
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (f *Feed) shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.subs = make(map[chan Event]struct{})
		return
	}
	f.closed = true
	for ch := range f.subs {
		close(ch)
	}
	f.subs = make(map[chan Event]struct{})
}
