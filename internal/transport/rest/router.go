package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/recruiter-reports/internal/division"
	"github.com/frahmantamala/recruiter-reports/internal/hours"
	"github.com/frahmantamala/recruiter-reports/internal/ranking"
	"github.com/frahmantamala/recruiter-reports/internal/transport/middleware"
	"github.com/frahmantamala/recruiter-reports/internal/transport/swagger"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
	"github.com/go-chi/chi"
)

const APIPrefix = "/api/v1"

// Handlers groups the HTTP surface. A nil handler leaves its routes unmounted.
type Handlers struct {
	Divisions   *division.Handler
	UserConfigs *userconfig.Handler
	Ranking     *ranking.Handler
	Hours       *hours.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	Health         *HealthHandler
	Spec           *swagger.Spec
	Verifier       middleware.TokenVerifier
	MetricsPath    string
	Metrics        http.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts RouterOptions, logger *slog.Logger) {
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if opts.Spec != nil {
		router.Get("/openapi.yml", opts.Spec.ServeDocument)
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}
	if opts.Metrics != nil && opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, opts.Metrics)
	}

	router.Route(APIPrefix, func(r chi.Router) {
		if opts.Spec != nil {
			r.Use(opts.Spec.ValidateRequests(logger))
		}

		if opts.Health != nil {
			r.Get("/health", opts.Health.healthCheckHandler)
			r.Get("/ping", opts.Health.pingHandler)
		}

		if h.Divisions != nil {
			r.Get("/divisions", h.Divisions.ListDivisions)
			r.Get("/divisions/{id}", h.Divisions.GetDivision)
		}

		if h.UserConfigs != nil {
			r.Get("/user-configs", h.UserConfigs.ListUserConfigs)
			r.Get("/user-configs/{configID}", h.UserConfigs.GetUserConfig)

			r.Group(func(ar chi.Router) {
				guard(ar, opts.Verifier, logger, true)
				ar.Post("/user-configs", h.UserConfigs.CreateUserConfig)
				ar.Patch("/user-configs/{configID}", h.UserConfigs.UpdateUserConfig)
				ar.Delete("/user-configs/{configID}", h.UserConfigs.DeactivateUserConfig)
			})
		}

		r.Route("/reports", func(rr chi.Router) {
			if h.Ranking != nil {
				rr.Get("/ranking", h.Ranking.GetRanking)
				rr.Get("/ranking/history/{canonicalUserID}", h.Ranking.GetHistory)
				rr.Get("/financials", h.Ranking.GetFinancials)
			}
			if h.Hours != nil {
				rr.Get("/hours", h.Hours.GetHours)
			}

			// Recomputations write snapshots, so any valid token may trigger them.
			rr.Group(func(cr chi.Router) {
				guard(cr, opts.Verifier, logger, false)
				if h.Ranking != nil {
					cr.Post("/ranking/calculate", h.Ranking.CalculateRanking)
				}
				if h.Hours != nil {
					cr.Post("/hours/calculate", h.Hours.CalculateHours)
				}
			})
		})
	})
}

// guard installs bearer authentication on a route group. Without a verifier
// mutations are refused outright rather than left open.
func guard(r chi.Router, verifier middleware.TokenVerifier, logger *slog.Logger, admin bool) {
	if verifier == nil {
		r.Use(middleware.Deny(logger))
		return
	}
	r.Use(middleware.Authenticate(verifier, logger))
	if admin {
		r.Use(middleware.RequireAdmin(logger))
	}
}
