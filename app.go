package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"screedflow/config"
	"screedflow/handlers"
	"screedflow/repository"
	"screedflow/services"
	"screedflow/storage"
)

// app is the wired service: store, repository, report requester and sweep.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	repo    *repository.SiteRepository
	reports *services.ReportRequester
	sweep   *services.AlertSweep
	metrics *handlers.Metrics
	closers []func() error

	sweepRunning atomic.Bool
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: handlers.NewMetrics()}

	blobs, activity, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	seed, err := storage.DefaultSeed()
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := storage.NewSnapshotStore(blobs, cfg.SchemaVersion, seed, logger.Named("store"))
	if err != nil {
		a.Close()
		return nil, err
	}

	var notifier repository.Notifier = services.NopPublisher{}
	if cfg.NatsURL != "" {
		pub, err := services.NewNATSPublisher(cfg.NatsURL, logger.Named("nats"))
		if err != nil {
			logger.Warn("notification publishing disabled", zap.Error(err))
		} else {
			notifier = pub
			a.closers = append(a.closers, pub.Close)
		}
	}

	a.repo = repository.NewSiteRepository(store,
		repository.WithActivityLog(activity),
		repository.WithNotifier(notifier),
		repository.WithLogger(logger.Named("repository")),
	)
	if err := a.repo.Open(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var gen services.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("AI reports will use fallback text", zap.Error(err))
		} else {
			gen = g
		}
	}
	a.reports = services.NewReportRequester(gen,
		services.WithTimeout(cfg.AITimeout),
		services.WithReportLogger(logger.Named("reports")),
		services.WithFallbackHook(a.metrics.AIFallback),
	)
	a.sweep = services.NewAlertSweep(a.repo, logger.Named("sweep"))
	return a, nil
}

// openStore selects the blob backend and the activity log that goes with it.
func (a *app) openStore(ctx context.Context) (storage.BlobStore, storage.ActivityLog, error) {
	switch a.cfg.StoreBackend {
	case config.BackendMemory:
		return storage.NewMemoryBlobStore(), storage.NewMemoryActivityLog(), nil

	case config.BackendPostgres:
		db, err := storage.InitDB(a.cfg)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := storage.Migrate(ctx, db, a.logger.Named("migrate")); err != nil {
			return nil, nil, err
		}
		gdb, err := storage.InitGormDB(a.cfg)
		if err != nil {
			return nil, nil, err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return storage.NewGormBlobStore(gdb, a.logger.Named("gorm")), storage.NewSQLActivityLog(db), nil

	case config.BackendRedis:
		rs, err := storage.NewRedisBlobStore(a.cfg, a.logger.Named("redis"))
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, rs.Close)
		return rs, storage.NewMemoryActivityLog(), nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
}

func CORSConfig(origins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "Accept", "Origin",
		"X-Requested-With", "Authorization", "Cache-Control",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS", "HEAD"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

func newEngine(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(CORSConfig(a.cfg.CORSOrigins)))
	handlers.RegisterRoutes(r, handlers.Deps{
		Repo:          a.repo,
		Reports:       a.reports,
		Metrics:       a.metrics,
		Logger:        a.logger,
		Now:           func() time.Time { return time.Now().UTC() },
		SessionSecret: a.cfg.SessionSecret,
		UploadDir:     a.cfg.UploadDir,
	})
	return r
}

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	logger *zap.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in job", zap.String("job", name), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()

		if err := fn(ctx); err != nil {
			logger.Error("job failed", zap.String("job", name), zap.Error(err))
		} else {
			logger.Info("job completed", zap.String("job", name))
		}
	}()
}

// scheduleSweep registers the alert sweep on c.
func scheduleSweep(ctx context.Context, c *cron.Cron, a *app, wg *sync.WaitGroup) error {
	_, err := c.AddFunc(a.cfg.SweepSchedule, func() { a.startSweep(ctx, wg) })
	return err
}

// startSweep runs the alert sweep in the background unless a previous run is still going.
func (a *app) startSweep(ctx context.Context, wg *sync.WaitGroup) bool {
	if !a.sweepRunning.CompareAndSwap(false, true) {
		a.logger.Info("previous sweep still running, skipping")
		return false
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	safeGo(runCtx, wg, "AlertSweep", func(ctx context.Context) error {
		defer cancel()
		defer a.sweepRunning.Store(false)
		raised, err := a.sweep.Run(ctx)
		a.metrics.AlertsRaised("cron", raised)
		return err
	}, a.logger.Named("cron"))
	return true
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var wg sync.WaitGroup
	c := cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))))
	if err := scheduleSweep(ctx, c, a, &wg); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", cfg.SweepSchedule, err)
	}
	c.Start()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newEngine(a),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-c.Stop().Done()
	wg.Wait()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exiting")
	return nil
}
