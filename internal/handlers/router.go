package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts every endpoint under /api/v1 plus the operational
// probes at the root.
func NewRouter(h *Handler, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/patterns/detect", h.DetectPatterns)
		r.Post("/patterns/detect", h.DetectPatterns)
		r.Get("/patterns/verify", h.VerifyPatterns)
		r.Post("/patterns/verify", h.VerifyPatterns)
		r.Get("/patterns/team", h.GetTeamPatterns)

		r.Post("/predictions/analyze", h.AnalyzeMatch)
		r.Post("/predictions/track", h.TrackPrediction)
		r.Post("/predictions/shadow", h.ShadowRun)

		r.Post("/feedback", h.SubmitFeedback)

		r.Get("/models", h.ListModels)
		r.Post("/models", h.RegisterModel)
		r.Get("/models/select", h.SelectModel)
		r.Post("/models/auto-prune", h.AutoPruneTemplates)
		r.Post("/experiments", h.CreateExperiment)
		r.Post("/experiments/{id}/evaluate", h.EvaluateExperiment)

		r.Post("/leagues/{id}/refresh-baseline", h.RefreshLeagueBaseline)

		r.Post("/system/install", h.InstallDatabase)
	})

	return r
}
