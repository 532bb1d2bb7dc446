package httpapi

import (
	"net/http"
	"time"

	"jobportal/internal/events"
	"jobportal/internal/state"
)

type HealthHandler struct {
	Store *state.Store
	Hub   *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	resp := map[string]any{
		"ok":      true,
		"jobs":    len(snap.Jobs),
		"loading": snap.Loading,
		// open event streams
		"subscribers": h.Hub.Len(),
	}
	if snap.Error != "" {
		resp["error"] = snap.Error
	}
	if !snap.LastRefresh.IsZero() {
		resp["last_refresh"] = snap.LastRefresh.UTC().Format(time.RFC3339)
	}
	writeJSON(w, resp)
}
