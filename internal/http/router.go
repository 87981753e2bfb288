package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voice-order-service/internal/app"
	"voice-order-service/internal/observability/metrics"
	"voice-order-service/internal/service/order"
	"voice-order-service/internal/service/pipeline"
	"voice-order-service/internal/service/repetition"
)

// Deps is what the HTTP surface needs from the application.
type Deps struct {
	Sessions   *pipeline.Manager
	Suppressor *repetition.Suppressor
	Extractor  *order.Extractor
	Metrics    *metrics.Metrics
	Ready      func() bool
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	return NewHandler(Deps{
		Sessions:   application.Sessions,
		Suppressor: application.Suppressor,
		Extractor:  application.Extractor,
		Metrics:    application.Metrics,
		Ready:      application.Ready,
	})
}

// NewHandler builds the router from explicit dependencies.
func NewHandler(d Deps) http.Handler {
	if d.Suppressor == nil {
		d.Suppressor = repetition.New()
	}
	if d.Extractor == nil {
		d.Extractor = order.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.DefaultMetrics
	}
	h := &handler{deps: d}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware(d.Metrics))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if d.Ready != nil && !d.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.createSession)
			r.Get("/", h.listSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.getSession)
				r.Delete("/", h.deleteSession)
				r.Post("/start", h.startSession)
				r.Post("/stop", h.stopSession)
				r.Post("/fragments", h.feedFragment)
				r.Get("/ws", h.streamSession)
			})
		})
		r.Post("/text/clean", h.cleanText)
		r.Post("/text/order", h.extractOrder)
	})

	return r
}
