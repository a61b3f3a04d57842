// Package api exposes the license validation engine over HTTP.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/awnumar/memguard"
	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/keygate/license"
)

//go:embed openapi.yaml
var openapiSpec []byte

// API holds the dependencies needed by the REST handlers.
type API struct {
	engine   *license.Engine
	apiKey   *memguard.Enclave
	throttle *requestThrottle
	audit    *auditLogger
	metrics  *apiMetrics
	registry *prometheus.Registry
	version  string
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithThrottleInterval sets the minimum interval between accepted requests
// from one client address.
func WithThrottleInterval(interval time.Duration) Option {
	return func(a *API) {
		a.throttle = newRequestThrottle(interval, time.Now)
	}
}

// WithVersion sets the version string reported by the status endpoint.
func WithVersion(version string) Option {
	return func(a *API) {
		a.version = version
	}
}

// New creates a new API instance. The apiKey is the shared key every request
// body must carry; it is held in a memguard enclave and only opened for the
// duration of each comparison.
func New(engine *license.Engine, apiKey string, opts ...Option) *API {
	a := &API{
		engine:   engine,
		apiKey:   memguard.NewEnclave([]byte(apiKey)),
		registry: prometheus.NewRegistry(),
		version:  "1.0.0",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	if a.throttle == nil {
		a.throttle = newRequestThrottle(defaultThrottleInterval, time.Now)
	}
	a.metrics = newAPIMetrics(a.registry)
	a.throttle.startSweeper()
	return a
}

// Close stops the throttle's background sweeper.
func (a *API) Close() {
	a.throttle.stopSweeper()
}

// ObserveReaped feeds reaper results into the metrics, for wiring as a
// license.WithReapNotify callback.
func (a *API) ObserveReaped(removed int) {
	a.metrics.sessionsReaped.Add(float64(removed))
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", a.Status)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	// Every mutating route sits behind the per-address throttle and the
	// API-key check, in that order (the throttle counts key failures too).
	r.Group(func(r chi.Router) {
		r.Use(a.throttleRequests)
		r.Use(a.requireAPIKey)

		r.Post("/validate-password", a.ValidatePassword)
		r.Post("/validate-password/check-license", a.CheckLicense)
		r.Post("/validate-password/logout", a.Logout)

		r.Post("/admin/add-user", a.AddUser)
		r.Post("/admin/disable-user", a.DisableUser)
		r.Post("/admin/list-users", a.ListUsers)
	})

	return r
}
