package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/company"
	"hrpay/internal/domain/employee"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/domain/payslip"
	"hrpay/internal/platform/cache"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/crypto"
	"hrpay/internal/platform/db"
	"hrpay/internal/platform/events"
	"hrpay/internal/platform/jobs"
	"hrpay/internal/platform/lock"
	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
	"hrpay/internal/platform/storage"
	"hrpay/internal/transport/http/middleware"
)

const (
	lockTTL        = 30 * time.Second
	idempotencyTTL = 24 * time.Hour
	shutdownGrace  = 15 * time.Second
)

// Run wires the platform services, serves HTTP and blocks until SIGINT or
// SIGTERM.
func Run() error {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty; tokens are signed with an empty key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool, cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.WithField("applied", applied).Info("migrations up to date")
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisAddress)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	if redisClient == nil {
		log.Info("REDIS_ADDRESS not set; preview cache, locks and idempotency are disabled")
	} else {
		defer redisClient.Close()
	}

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return fmt.Errorf("encryption: %w", err)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.PubSubEnabled() {
		ps, err := events.NewPubSub(ctx, cfg.PubSubProjectID, cfg.PubSubTopic, cfg.GCSCredentialsJSON)
		if err != nil {
			return fmt.Errorf("pubsub: %w", err)
		}
		publisher = ps
	}
	defer publisher.Close()

	collector := metrics.New()
	runner := jobs.New(pool, log.WithField("module", "jobs"), collector)
	runner.Start(ctx)

	formatter := payroll.DefaultFormatter()
	formatter.Thousands = cfg.ThousandsSeparator

	companies := company.NewService(company.NewStore(pool))
	employees := employee.NewService(employee.NewStore(pool, sealer))
	payslips := payslip.NewService(payslip.NewStore(pool), employees, companies, payslip.Options{
		Cache:       cache.New(redisClient, "hrpay:"),
		CacheTTL:    cfg.PreviewCacheTTL,
		Locker:      lock.New(redisClient, lockTTL, log.WithField("module", "lock")),
		Events:      publisher,
		Storage:     blobs,
		Crypto:      sealer,
		Jobs:        runner,
		Metrics:     collector,
		Log:         log.WithField("module", "payslip"),
		Formatter:   &formatter,
		Concurrency: cfg.BatchConcurrency,
	})

	router := NewRouter(Deps{
		Config:      cfg,
		Log:         log,
		Metrics:     collector,
		Ready:       pool.Ping,
		Auth:        auth.NewService(auth.NewStore(pool), cfg.JWTSecret, log.WithField("module", "auth")),
		Companies:   companies,
		Employees:   employees,
		Payslips:    payslips,
		Jobs:        runner,
		Perms:       auth.StaticPermissions{},
		Idempotency: middleware.NewIdempotencyStore(cache.New(redisClient, "hrpay:idem:"), idempotencyTTL),
	})

	return serve(ctx, log, cfg.Addr, router)
}

func serve(ctx context.Context, log logrus.FieldLogger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("payroll server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
