package progress

import (
	"testing"
	"time"
)

func collect(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d events, want %d", len(out), n)
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d events, want %d", len(out), n)
		}
	}
	return out
}

func TestPublishAssignsMonotonicSeq(t *testing.T) {
	hub := NewHub()
	feed := hub.CreateFeed("e1")

	ch, cancel, err := hub.Subscribe("e1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	feed.Publish(Event{Type: TypeStart})
	feed.Publish(Event{Type: TypeInfo})
	feed.Publish(Event{Type: TypeMatching})

	events := collect(t, ch, 3)
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}
}

func TestSubscribeReplaysThenTails(t *testing.T) {
	hub := NewHub()
	feed := hub.CreateFeed("e1")

	feed.Publish(Event{Type: TypeStart, Message: "one"})
	feed.Publish(Event{Type: TypeInfo, Message: "two"})

	// Late subscriber gets the replay first.
	ch, cancel, err := hub.Subscribe("e1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	feed.Publish(Event{Type: TypeMatching, Message: "three"})

	events := collect(t, ch, 3)
	want := []string{"one", "two", "three"}
	for i, ev := range events {
		if ev.Message != want[i] {
			t.Fatalf("event %d = %q, want %q", i, ev.Message, want[i])
		}
	}
}

func TestTerminalEventClosesSubscribers(t *testing.T) {
	hub := NewHub()
	feed := hub.CreateFeed("e1")

	ch, cancel, err := hub.Subscribe("e1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	ok := true
	feed.Publish(Event{Type: TypeComplete, Success: &ok})

	events := collect(t, ch, 1)
	if !events[0].Terminal() {
		t.Fatal("expected terminal event")
	}
	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected channel to be closed after terminal event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after terminal event")
	}

	// Events published after the terminal one are dropped.
	feed.Publish(Event{Type: TypeInfo})
}

func TestSubscribeAfterTerminalReplaysBuffer(t *testing.T) {
	hub := NewHub()
	feed := hub.CreateFeed("e1")

	feed.Publish(Event{Type: TypeStart})
	feed.Publish(Event{Type: TypeComplete})

	// Reconnect after completion: full replay, then closed.
	ch, cancel, err := hub.Subscribe("e1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	events := collect(t, ch, 2)
	if events[1].Type != TypeComplete {
		t.Fatalf("last replayed event is %q, want complete", events[1].Type)
	}
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after replaying a finished feed")
	}
}

func TestRingBufferTrimsOldest(t *testing.T) {
	hub := NewHub()
	hub.bufferSize = 4
	feed := hub.CreateFeed("e1")

	for i := 0; i < 10; i++ {
		feed.Publish(Event{Type: TypeTestProgress, Current: i + 1})
	}

	ch, cancel, err := hub.Subscribe("e1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	events := collect(t, ch, 4)
	if events[0].Seq != 7 || events[3].Seq != 10 {
		t.Fatalf("replay window = seq %d..%d, want 7..10", events[0].Seq, events[3].Seq)
	}
}

func TestUnknownExecution(t *testing.T) {
	hub := NewHub()
	if _, _, err := hub.Subscribe("missing"); err != ErrNoFeed {
		t.Fatalf("err = %v, want ErrNoFeed", err)
	}
}

func TestConcurrentPublishersSerialized(t *testing.T) {
	hub := NewHub()
	feed := hub.CreateFeed("e1")

	ch, cancel, err := hub.Subscribe("e1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	const n = 50
	done := make(chan struct{})
	for w := 0; w < 5; w++ {
		go func() {
			for i := 0; i < n/5; i++ {
				feed.Publish(Event{Type: TypeTestProgress})
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < 5; w++ {
		<-done
	}

	events := collect(t, ch, n)
	for i := 1; i < len(events); i++ {
		if events[i].Seq != events[i-1].Seq+1 {
			t.Fatalf("seq gap between %d and %d", events[i-1].Seq, events[i].Seq)
		}
	}
}
