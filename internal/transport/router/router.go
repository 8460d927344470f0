package router

import (
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/trunov/mediashrink/internal/metrics"
	"github.com/trunov/mediashrink/internal/transport/handler"
	"github.com/trunov/mediashrink/internal/transport/middleware"
)

func NewRouter(h *handler.Handler, reg *metrics.Registry) chi.Router {
	r := chi.NewRouter()

	// Recoverer sits outside Sentry so a repanicked request still gets a 500.
	r.Use(chimw.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(middleware.RequestLogger(reg))

	r.Get("/health", h.Health)
	r.Get("/metrics", reg.Handler)

	r.Post("/videos/process", h.ProcessVideo)
	r.Post("/image/process", h.ProcessImage)
	r.Get("/status/*", h.GetStatus)

	return r
}

