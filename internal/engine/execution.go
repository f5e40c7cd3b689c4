package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voyagen/streamplus/internal/progress"
)

// State is an execution's position in its lifecycle.
type State string

const (
	StatePending        State = "pending"
	StateResolvingScope State = "resolving_scope"
	StateTesting        State = "testing"
	StateMatching       State = "matching"
	StateScoring        State = "scoring"
	StateAssigning      State = "assigning"
	StateComplete       State = "complete"
	StateFailed         State = "failed"
)

// Execution is one run of the orchestrator, identified by an opaque id and
// observable through its progress feed. Ephemeral: reclaimed with its feed
// once the terminal event is consumed or the abandonment timeout fires.
type Execution struct {
	ID        string    `json:"id"`
	RuleID    int64     `json:"rule_id,omitempty"`
	Kind      string    `json:"kind"` // auto_assign, sorting, all_rules
	StartedAt time.Time `json:"started_at"`

	mu    sync.Mutex
	state State
	feed  *progress.Feed
}

func newExecution(kind string, ruleID int64, feed *progress.Feed) *Execution {
	return &Execution{
		ID:        uuid.NewString(),
		RuleID:    ruleID,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
		state:     StatePending,
		feed:      feed,
	}
}

// State returns the execution's current lifecycle state.
func (e *Execution) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Execution) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// publish forwards an event to the execution's feed, if any. Non-streaming
// executions run without a feed.
func (e *Execution) publish(ev progress.Event) {
	if e.feed != nil {
		e.feed.Publish(ev)
	}
}

// Locker serializes the Assigning step for a shared resource (a channel's
// stream assignment). Concurrent executions targeting the same channel
// must not interleave partial writes; last writer wins.
type Locker interface {
	// Lock acquires the named lock, blocking up to the context deadline.
	// The returned function releases it.
	Lock(ctx context.Context, key string) (func(), error)
}

// localLocker is the in-process fallback used when Redis is not
// configured. Good enough for a single instance.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker creates a per-key in-process Locker.
func NewLocalLocker() Locker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}
