package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/glowdesk/salon-scheduling/internal/scheduling"
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

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/orgs/{orgID}", func(r chi.Router) {
		r.Route("/employees/{employeeID}", func(r chi.Router) {
			r.Get("/slots", getSlotsHandler(cfg.Service))
			r.Get("/blocks", listBlocksHandler(cfg.Service))
			r.Post("/blocks", createBlockHandler(cfg.Service))
			r.Delete("/blocks/{blockID}", removeBlockHandler(cfg.Service))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", createAppointmentHandler(cfg.Service))
			r.Get("/{id}", getAppointmentHandler(cfg.Service))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Service))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Service))
		})
	})

	return r
}
