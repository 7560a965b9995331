package main

import (
	"context"
	"net/http"
	"time"

	"github.com/YuTeChang/VibeBadminton-sub000/internal/livefeed"
	"github.com/YuTeChang/VibeBadminton-sub000/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

const readyTimeout = 3 * time.Second

func newOpsRouter(obs observability.Observability, hub *livefeed.Hub, checks ...healthChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if obs.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
		defer cancel()
		for _, c := range checks {
			if err := c.HealthCheck(ctx); err != nil {
				obs.Logger.WarnContext(ctx, "Readiness check failed", "error", err)
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ready"))
	})

	if hub != nil {
		r.Get("/ws/groups/{"+livefeed.GroupIDParam+"}", hub.ServeWS)
	}
	return r
}
