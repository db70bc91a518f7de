package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/db/health", h.DBHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/queue/add", h.AddToQueue)
		r.Post("/queue/next", h.NextItems)
		r.Post("/queue/{id}/complete", h.CompleteItem)
		r.Post("/queue/{id}/error", h.FailItem)

		r.Post("/router/route", h.RouteMessage)
		r.Get("/customers/count", h.CustomersCount)

		r.Get("/worker/status", h.WorkerStatus)
		r.Post("/worker/start", h.WorkerStart)
		r.Post("/worker/stop", h.WorkerStop)
	})

	return r
}
