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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/api"
	"dorm-allocation-backend/internal/db"
	"dorm-allocation-backend/internal/metrics"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/store"
)

// systemActor is recorded in the audit trail for work the service starts itself.
var systemActor = allocation.Actor{ID: 0, RequestID: "startup"}

func main() {
	configFlag := pflag.String("config", "", "path to the YAML configuration file (default $CONFIG_PATH or ./config/config.yaml)")
	pflag.Parse()

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	recorder := metrics.NewRecorder()
	engine := allocation.NewEngine(appStore, cfg.Allocation, logger.Named("allocation"), allocation.WithRecorder(recorder))

	if cfg.Allocation.ReconcileOnStart {
		drifts, err := engine.Reconcile(ctx, systemActor)
		if err != nil {
			logger.Fatal("occupancy reconciliation failed", zap.Error(err))
		}
		logger.Info("occupancy reconciled", zap.Int("drifted_rooms", len(drifts)))
	}

	cache := mw.NewResponseCache(cfg.Server.CacheTTL())
	opts := []api.HandlerOption{api.WithCache(cache)}

	if cfg.Push.Enabled() {
		webpushOptions := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, gormDB, webpushOptions, logger)
		pool.OnDrop(recorder.DroppedEvent)
		pool.Start(ctx)
		opts = append(opts, api.WithNotifier(pool), api.WithWebPush(webpushOptions))
	} else {
		logger.Warn("VAPID keys not configured, room notifications disabled")
	}

	handler := api.NewHandler(engine, appStore, logger, opts...)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimit: rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst: cfg.Server.RateLimitBurst,
		Metrics:   recorder.Handler(),
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("server gracefully stopped")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
