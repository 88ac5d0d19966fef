package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"hrops/internal/domain/payroll"
	"hrops/internal/platform/config"
	"hrops/internal/platform/db"
	"hrops/internal/platform/jobs"
	"hrops/internal/platform/lock"
	"hrops/internal/platform/logger"
	"hrops/internal/platform/metrics"
	"hrops/internal/store/memory"
	"hrops/internal/store/sqlite"
	"hrops/internal/transport/http/api"
	payrollhandler "hrops/internal/transport/http/handlers/payroll"
	"hrops/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Store   payroll.StoreAPI
	Service *payroll.Service
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
	closers []func()
}

// New opens the configured store and lock backend and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg, Metrics: metrics.New()}

	store, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	locker, err := app.openLocker(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Service = payroll.NewService(store, locker, app.Metrics, cfg.PayrollLockTTL)
	app.Jobs = jobs.New(store)
	app.Router = NewRouter(cfg, app.Service, app.Jobs, app.Metrics)
	return app, nil
}

func (a *App) openStore(ctx context.Context) (payroll.StoreAPI, error) {
	switch a.Config.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), nil
	case config.StoreDriverSQLite:
		store, err := sqlite.New(a.Config.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		pool, err := db.Connect(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect failed: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if a.Config.RunMigrations {
			if err := db.Migrate(ctx, pool, a.Config.MigrationsDir); err != nil {
				return nil, fmt.Errorf("migrations failed: %w", err)
			}
		}
		if a.Config.RunSeed {
			if err := db.Seed(ctx, pool); err != nil {
				return nil, fmt.Errorf("seed failed: %w", err)
			}
		}
		return payroll.NewStore(pool), nil
	}
}

func (a *App) openLocker(ctx context.Context) (lock.Locker, error) {
	if a.Config.RedisAddr == "" {
		return lock.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return lock.NewRedis(client, lock.DefaultRedisPrefix), nil
}

// Close releases the store and lock connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func NewRouter(cfg config.Config, service *payroll.Service, jobRunner *jobs.Service, collector *metrics.Collector) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := service.Ready(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		payrollHandler := payrollhandler.NewHandler(service, jobRunner, cfg.GenerateRateLimit)
		payrollHandler.RegisterRoutes(r)
	})
	return router
}

// Run is the process entry point: it serves until SIGINT or SIGTERM and then
// drains in-flight requests and background jobs.
func Run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFilePath)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Jobs.Start(ctx)
	app.Jobs.Schedule(ctx, cfg.AutoGenerateInterval, payroll.JobPayrollGeneration, func() jobs.RunFunc {
		return app.Service.GenerationJob(payroll.MonthReferenceOf(time.Now()))
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("store", cfg.StoreDriver).Msg("payroll server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	stop()
	app.Jobs.Wait()
	return nil
}
