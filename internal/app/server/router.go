package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/company"
	"hrpay/internal/domain/employee"
	"hrpay/internal/domain/payslip"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/transport/http/api"
	authhandler "hrpay/internal/transport/http/handlers/auth"
	companyhandler "hrpay/internal/transport/http/handlers/companies"
	employeehandler "hrpay/internal/transport/http/handlers/employees"
	jobshandler "hrpay/internal/transport/http/handlers/jobs"
	payrollhandler "hrpay/internal/transport/http/handlers/payroll"
	payslipshandler "hrpay/internal/transport/http/handlers/payslips"
	"hrpay/internal/transport/http/middleware"
)

// Deps carries the services the HTTP surface is built from.
type Deps struct {
	Config      config.Config
	Log         logrus.FieldLogger
	Metrics     *metrics.Collector
	Ready       func(ctx context.Context) error
	Auth        *auth.Service
	Companies   *company.Service
	Employees   *employee.Service
	Payslips    *payslip.Service
	Jobs        *jobs.Service
	Perms       middleware.PermissionStore
	Idempotency *middleware.IdempotencyStore
}

func NewRouter(d Deps) http.Handler {
	if d.Perms == nil {
		d.Perms = auth.StaticPermissions{}
	}
	window := time.Minute

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(d.Config.IsProduction()))
	router.Use(middleware.Logger(d.Log, d.Metrics))
	router.Use(middleware.Recoverer(d.Log))
	router.Use(middleware.BodyLimit(d.Config.MaxBodyBytes))
	router.Use(middleware.Auth(d.Config.JWTSecret))
	router.Use(middleware.RateLimit(d.Config.RateLimitPerMinute, window, middleware.WithLogger(d.Log)))
	router.Use(middleware.SensitiveMutationRateLimit(d.Config.RateLimitPerMinute, window, middleware.WithLogger(d.Log)))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if d.Config.MetricsEnabled && d.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, d.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(d.Auth, d.Log).RegisterRoutes(r)
		companyhandler.NewHandler(d.Companies, d.Perms, d.Log).RegisterRoutes(r)
		employeehandler.NewHandler(d.Employees, d.Perms, d.Log).RegisterRoutes(r)
		payrollhandler.NewHandler(d.Payslips, d.Perms, d.Log).RegisterRoutes(r)
		payslipshandler.NewHandler(d.Payslips, d.Perms, d.Idempotency, d.Log).RegisterRoutes(r)
		if d.Jobs != nil {
			jobshandler.NewHandler(d.Jobs, d.Perms, d.Log).RegisterRoutes(r)
		}
	})

	return router
}
