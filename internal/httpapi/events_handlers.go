package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"jobportal/internal/events"
)

type EventsHandler struct {
	Hub *events.Hub
	// KeepAlive is the interval between pings; 0 means 30s.
	KeepAlive time.Duration
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	// Ping as a proper event envelope
	reqID := events.RequestIDFrom(r.Context())
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", events.New(reqID, events.TypePing, nil).JSON())
	flusher.Flush()

	every := h.KeepAlive
	if every <= 0 {
		every = 30 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-t.C:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", events.New(reqID, events.TypePing, nil).JSON())
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				// hub closed on shutdown
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", evt.JSON())
			flusher.Flush()
		}
	}
}
