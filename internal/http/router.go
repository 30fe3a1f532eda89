package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/campus-events/internal/idempotency"
	"github.com/robertarktes/campus-events/internal/observability"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl Limiter, perMinute int, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(rl, perMinute))
		r.Use(IdempotencyMiddleware(idemp))

		r.Post("/v1/checkins/scan", h.ScanTicket)
		r.Post("/v1/checkins/manual", h.ManualCheckIn)

		r.Route("/v1/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateEvent)
			r.Get("/{id}", h.GetEvent)
			r.Put("/{id}", h.UpdateEvent)
			r.Get("/{id}/calendar", h.EventCalendar)
			r.Post("/{id}/registrations", h.Register)
			r.Post("/{id}/sponsorships", h.Sponsor)
			r.Get("/{id}/chat", h.ListChat)
			r.Post("/{id}/chat", h.PostChat)
		})

		r.Get("/v1/users/{id}/tickets", h.UserTickets)
		r.Get("/v1/organizers/{id}/dashboard", h.Dashboard)
		r.Post("/v1/registrations/{id}/certificate", h.RequestCertificate)
	})

	return r
}
