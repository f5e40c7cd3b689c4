package progress

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// keepaliveInterval paces comment-free keepalive events so proxies do not
// drop an idle connection during a long test phase.
const keepaliveInterval = 15 * time.Second

// ServeSSE streams an execution's events to one client as Server-Sent
// Events, one JSON envelope per message. It replays the buffer, tails the
// live feed, and returns after the terminal event or client disconnect.
// Disconnecting never affects the execution itself.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, executionID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}

	events, cancel, err := hub.Subscribe(executionID)
	if err != nil {
		return err
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-keepalive.C:
			if err := writeEvent(w, flusher, Event{Type: TypeKeepalive}); err != nil {
				return err
			}
		case ev, open := <-events:
			if !open {
				return nil
			}
			if err := writeEvent(w, flusher, ev); err != nil {
				return err
			}
			if ev.Terminal() {
				return nil
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
