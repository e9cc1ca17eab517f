package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", h.HealthCheck)

	r.Route("/namespaces", func(r chi.Router) {
		r.Get("/", h.ListNamespaces)
		r.Get("/{namespace}", h.GetNamespace)
		r.Post("/{namespace}/tasks/{task}", h.SendTask)
	})

	return r
}
