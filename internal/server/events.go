package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/shared"
)

// keepAliveInterval spaces SSE comment lines so idle proxies keep the
// connection open.
const keepAliveInterval = 15 * time.Second

// EventsHandler streams change-bus notifications as Server-Sent Events.
type EventsHandler struct {
	bus    *bus.Bus
	logger *log.Logger
}

// NewEventsHandler creates an EventsHandler for the given bus.
func NewEventsHandler(b *bus.Bus, logger *log.Logger) *EventsHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &EventsHandler{bus: b, logger: logger}
}

// Routes returns the method-qualified patterns this handler serves.
func (h *EventsHandler) Routes() []string {
	return []string{"GET /events"}
}

// ServeHTTP subscribes the client to the bus and streams until it
// disconnects or the bus closes. There is no replay; notifications
// published before the subscription are never seen.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case n, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(w, n); err != nil {
				h.logger.Debug("client gone", "err", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent encodes one notification as an SSE message. The event name is
// the signal; the data line is the JSON payload (or null when absent).
func writeEvent(w http.ResponseWriter, n bus.Notification) error {
	data, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Signal, data)
	return err
}
