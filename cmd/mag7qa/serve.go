package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mag7qa/internal/config"
	"github.com/xxxsen/mag7qa/internal/conversation"
	"github.com/xxxsen/mag7qa/internal/filestore"
	"github.com/xxxsen/mag7qa/internal/handler"
	"github.com/xxxsen/mag7qa/internal/index"
	"github.com/xxxsen/mag7qa/internal/job"
	"github.com/xxxsen/mag7qa/internal/metrics"
	"github.com/xxxsen/mag7qa/internal/middleware"
	"github.com/xxxsen/mag7qa/internal/repo"
	"github.com/xxxsen/mag7qa/internal/schedule"
	"github.com/xxxsen/mag7qa/internal/service"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the http api",
		RunE: func(cmd *cobra.Command, args []string) error {
			if *configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			initLogger(cfg)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", *configPath))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, metrics.New())
			if err != nil {
				exitOnIndexError(err)
				return err
			}
			defer a.Close()
			return runServer(ctx, a)
		},
	}
}

func runServer(ctx context.Context, a *app) error {
	cfg := a.cfg
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("index_store", cfg.Index.Store.Type),
		zap.String("index_key", cfg.Index.Key),
	)

	sessions := conversation.NewStore()
	var logStore service.QALogStore
	var qaLogRepo *repo.QALogRepo
	if a.db != nil {
		qaLogRepo = repo.NewQALogRepo(a.db)
		logStore = qaLogRepo
	}
	qaService := service.NewQAService(sessions, a.pipeline, logStore, a.metrics, a.options())

	sched, err := buildScheduler(cfg, a, qaService, qaLogRepo)
	if err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop()

	if cfg.Index.Watch {
		watcher, err := startIndexWatcher(ctx, a)
		if err != nil {
			return err
		}
		if watcher != nil {
			defer func() {
				_ = watcher.Stop()
			}()
		}
	}

	deps := handler.RouterDeps{
		Sessions:  handler.NewSessionHandler(qaService),
		Health:    handler.NewHealthHandler(a.index, a.generator.ModelName(), a.embedder.ModelName()),
		Metrics:   a.metrics.Handler(),
		JWTSecret: []byte(cfg.Server.JWTSecret),
		RateLimit: time.Duration(cfg.Server.RateLimitMS) * time.Millisecond,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.Server.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	return serveUntilDone(ctx, engine.Run)
}

// serveUntilDone runs the listener until ctx ends or the listener itself fails.
func serveUntilDone(ctx context.Context, run func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- run()
	}()
	select {
	case <-ctx.Done():
		logutil.GetLogger(context.Background()).Info("server stopping...")
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		return fmt.Errorf("http server: %w", err)
	}
}

func buildScheduler(cfg *config.Config, a *app, qa *service.QAService, qaLogs *repo.QALogRepo) (*schedule.CronScheduler, error) {
	sched := schedule.NewCronScheduler()
	idle := time.Duration(cfg.Server.SessionIdleMinutes) * time.Minute
	if err := sched.AddJob(job.NewSessionSweepJob(qa, idle), cfg.Jobs.SessionSweepSpec); err != nil {
		return nil, fmt.Errorf("schedule session sweep: %w", err)
	}
	if a.db == nil {
		return sched, nil
	}
	if cfg.Embedding.DBCache {
		cacheRepo := repo.NewEmbeddingCacheRepo(a.db)
		if err := sched.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Jobs.EmbeddingCacheMaxAgeDays), cfg.Jobs.EmbeddingCacheCleanupSpec); err != nil {
			return nil, fmt.Errorf("schedule embedding cache cleanup: %w", err)
		}
	}
	if qaLogs != nil {
		if err := sched.AddJob(job.NewQALogCleanupJob(qaLogs, cfg.Jobs.QALogMaxAgeDays), cfg.Jobs.QALogCleanupSpec); err != nil {
			return nil, fmt.Errorf("schedule qa log cleanup: %w", err)
		}
	}
	return sched, nil
}

// startIndexWatcher reloads the index when its file changes. Only local stores can be watched.
func startIndexWatcher(ctx context.Context, a *app) (*index.Watcher, error) {
	local, ok := a.store.(*filestore.LocalStore)
	if !ok {
		logutil.GetLogger(ctx).Warn("index watch ignored, store is not local", zap.String("store", a.store.Type()))
		return nil, nil
	}
	path, err := local.Path(a.cfg.Index.Key)
	if err != nil {
		return nil, fmt.Errorf("resolve index path: %w", err)
	}
	watcher, err := index.NewWatcher(path, func(ctx context.Context) error {
		if err := a.index.Reload(ctx, a.store, a.cfg.Index.Key); err != nil {
			return err
		}
		a.metrics.SetIndexChunks(a.index.Len())
		logutil.GetLogger(ctx).Info("index reloaded", zap.Int("chunks", a.index.Len()))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("init index watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return nil, fmt.Errorf("start index watcher: %w", err)
	}
	return watcher, nil
}
