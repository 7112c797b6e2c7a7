package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions selects the optional surfaces of the router
type RouterOptions struct {
	Metrics bool
}

func NewRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", h.HealthCheck)
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signin", h.SignIn)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(h.auth))

			r.Post("/auth/signout", h.SignOut)
			r.Get("/auth/me", h.Me)
			r.Get("/ws", h.Notices)

			r.Route("/collections", func(r chi.Router) {
				r.Get("/", h.ListCollections)
				r.Post("/", h.AddCollection)
				r.Delete("/", h.ClearCollections)
				r.Post("/reload", h.ReloadCollections)
				r.Get("/export", h.ExportCollections)
				r.Post("/import", h.ImportCollections)
				r.Get("/{id}/parameters", h.GetParameters)
				r.Delete("/{id}", h.DeleteCollection)
			})

			r.Route("/assistant", func(r chi.Router) {
				r.Post("/prompt", h.SuggestPrompt)
				r.Post("/analyze", h.AnalyzeImage)
			})
		})
	})

	return r
}
