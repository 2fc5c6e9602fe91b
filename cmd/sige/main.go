package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sige-edu/sige/internal/app"
	"github.com/sige-edu/sige/internal/assignment"
	"github.com/sige-edu/sige/internal/directory"
	"github.com/sige-edu/sige/internal/guard"
	"github.com/sige-edu/sige/internal/identity"
	"github.com/sige-edu/sige/internal/observability"
	"github.com/sige-edu/sige/internal/platform/cache"
	"github.com/sige-edu/sige/internal/platform/db"
	"github.com/sige-edu/sige/internal/policy"
	"github.com/sige-edu/sige/internal/records"
	"github.com/sige-edu/sige/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, scope cache and jobs disabled", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	scopeCache := directory.NewScopeCache(redisClient, cfg.ScopeCacheTTL)
	directoryService := directory.NewService(pool, scopeCache, logger, metrics)
	assignmentService := assignment.NewService(pool, logger, metrics)
	identityService := identity.NewService(pool, logger, metrics)

	evaluator := policy.NewEvaluator(identity.NewStore(pool), directoryService)
	authGuard := guard.New(evaluator, logger, metrics)
	guardMiddleware := guard.Middleware{Guard: authGuard, Logger: logger}

	recordsService := records.NewService(records.NewRepository(pool), authGuard, logger)

	var enqueuer identity.ResyncEnqueuer
	if redisClient != nil {
		client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		enqueuer = client
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Guard:             guardMiddleware,
		DirectoryHandler:  directory.NewHandler(logger, directoryService),
		AssignmentHandler: assignment.NewHandler(logger, assignmentService),
		IdentityHandler:   identity.NewHandler(logger, identityService, enqueuer),
		RecordsHandler:    records.NewHandler(logger, recordsService),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("listening", slog.String("addr", cfg.AppAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
