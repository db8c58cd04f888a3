package app

import (
	"net/http"
	"time"

	middle "project-pulse/internals/middleware"
	"project-pulse/internals/modules/status"
	"project-pulse/internals/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(mc *MonitoringContext) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middle.EchoRequestID)
	r.Use(middle.Logger(mc.Logger))
	r.Use(middle.Metrics(mc.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", mc.statusHandler.Liveness)
	r.Handle("/metrics", promhttp.HandlerFor(mc.Registry, promhttp.HandlerOpts{Registry: mc.Registry}))

	// Static dashboard regenerated by the dashboard task.
	r.Get("/dashboard", http.RedirectHandler("/dashboard/", http.StatusMovedPermanently).ServeHTTP)
	r.Handle("/dashboard/*", http.StripPrefix("/dashboard/", http.FileServer(http.Dir(mc.Config.Dashboard.Dir))))

	if mc.authMW != nil {
		r.Mount("/api/v1", status.Routes(mc.statusHandler, mc.authMW.Handle, middle.RequireRole(security.RoleOperator)))
	} else {
		r.Mount("/api/v1", status.Routes(mc.statusHandler))
	}

	return r
}
