package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/therapease/scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *zap.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Therapist availability and bookable slots
	r.Route("/therapists/{id}", func(r chi.Router) {
		r.Put("/availability", setAvailabilityHandler(cfg.Service))
		r.Get("/availability", getAvailabilityHandler(cfg.Service))
		r.Get("/slots", getBookableSlotsHandler(cfg.Service))
	})

	// Appointment lifecycle
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(cfg.Service))
		r.Post("/{id}/confirm", confirmAppointmentHandler(cfg.Service))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.Post("/{id}/complete", completeAppointmentHandler(cfg.Service))
		r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	})

	// Waiting list
	r.Route("/waitlist", func(r chi.Router) {
		r.Post("/", joinWaitlistHandler(cfg.Service))
		r.Post("/{id}/cancel", leaveWaitlistHandler(cfg.Service))
		r.Post("/{id}/accept", acceptMatchHandler(cfg.Service))
	})

	return r
}
