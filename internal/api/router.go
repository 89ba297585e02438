package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", h.HandleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/parse", h.HandleParseHello)
	r.Post("/api/parse", h.HandleParse)

	r.Get("/job", h.HandleGetJob)
	r.Put("/job", h.HandlePutJob)

	r.Route("/interview", func(r chi.Router) {
		r.Get("/", h.HandleGetInterview)
		r.Post("/start", h.HandleStart)
		r.Post("/messages", h.HandleSubmit)
		r.Post("/reset", h.HandleReset)
		r.Get("/events", h.HandleListEvents)
		r.Post("/notices-token", h.HandleNoticeToken)
	})

	r.Get("/ws/notices", h.HandleNotices)

	return r
}
