package httpapi

import "net/http"

// NewMux returns the raw mux so serve can still attach /shutdown (needs srv+token) and /metrics.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Views
	jh := JobsHandler{
		Store:     d.Store,
		Renderer:  d.Renderer,
		CfgVal:    d.CfgVal,
		Validator: d.Validator,
	}
	mux.HandleFunc("/{$}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  toList,
		http.MethodPost: jh.Create,
	}))
	mux.HandleFunc("/jobs/{$}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: toList,
	}))
	mux.HandleFunc("/jobs/new", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.New,
	}))
	mux.HandleFunc("/jobs/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: jh.Refresh,
	}))
	mux.HandleFunc("/jobs/{id}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Detail,
	}))
	mux.HandleFunc("/jobs/{id}/delete", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  jh.ConfirmDelete,
		http.MethodPost: jh.Delete,
	}))
	mux.HandleFunc("/jobs/{id}/delete/cancel", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: jh.CancelDelete,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		OnConfig:    d.OnConfig,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	hh := HealthHandler{Store: d.Store, Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}

// Handler wraps h with the standard middleware stack.
func Handler(h http.Handler) http.Handler {
	return Chain(h, Cors, RequestID, AccessLog, Metrics, Recover)
}

func toList(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusMovedPermanently)
}
