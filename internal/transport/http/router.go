package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter wires the JSON API, the websocket channel, health and metrics.
func NewRouter(engine AssessmentEngine, metrics *Metrics, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	h := NewHandler(engine, metrics, log)
	ws := NewWSHandler(engine, metrics, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.With(RequireUser).Get("/ws/attempts/{id}", ws.ServeWS)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(RequireUser)
		api.Post("/tests", h.Assemble)
		api.Post("/attempts", h.CreateAttempt)
		api.Get("/attempts", h.ListAttempts)
		api.Get("/attempts/{id}", h.AttemptStats)
		api.Get("/attempts/{id}/next", h.NextQuestion)
		api.Post("/attempts/{id}/answers", h.SubmitAnswer)
		api.Post("/attempts/{id}/finalize", h.Finalize)
	})
	return r
}
