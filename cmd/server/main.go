// Command server boots the mto-gateway HTTP facade: it wires configuration,
// the persistent store, the upstream client, the nine readers, the memory
// cache, the classifier, the assembler, the sync orchestrator and
// scheduler, and the cache admin façade, then serves HTTP until an
// interrupt signal arrives. Grounded on the teacher's cmd/server/main.go
// bootstrap shape (godotenv, graceful shutdown on SIGINT/SIGTERM), with the
// Postgres/NATS-worker-per-feature wiring replaced by the gateway's own
// component graph.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ashgrove-systems/mto-gateway/internal/api"
	"github.com/ashgrove-systems/mto-gateway/internal/assemble"
	"github.com/ashgrove-systems/mto-gateway/internal/cacheadmin"
	"github.com/ashgrove-systems/mto-gateway/internal/classify"
	"github.com/ashgrove-systems/mto-gateway/internal/config"
	"github.com/ashgrove-systems/mto-gateway/internal/memcache"
	"github.com/ashgrove-systems/mto-gateway/internal/queue"
	"github.com/ashgrove-systems/mto-gateway/internal/readers"
	"github.com/ashgrove-systems/mto-gateway/internal/related"
	"github.com/ashgrove-systems/mto-gateway/internal/store"
	"github.com/ashgrove-systems/mto-gateway/internal/syncjob"
	"github.com/ashgrove-systems/mto-gateway/internal/upstream"
)

func main() {
	// absence of a .env file is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("GATEWAY_CONFIG_FILE"))
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := mustLogger(cfg)
	defer log.Sync()

	log.Info("starting mto-gateway", zap.String("app_env", cfg.AppEnv))

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.Migrate(ctx); err != nil {
		cancel()
		log.Fatal("failed to migrate store", zap.Error(err))
	}
	cancel()
	log.Info("store migrated")

	upstreamClient := upstream.NewClient(upstream.Config{
		BaseURL:        cfg.UpstreamURL,
		Account:        cfg.UpstreamAccount,
		User:           cfg.UpstreamUser,
		AppID:          cfg.UpstreamAppID,
		AppSecret:      cfg.UpstreamAppSecret,
		LCID:           cfg.UpstreamLCID,
		ConnectTimeout: cfg.UpstreamConnectTimeout,
		RequestTimeout: cfg.UpstreamRequestTimeout,
		PageSize:       cfg.UpstreamPageSize,
		RetryCount:     cfg.RetryCount,
	}, log)

	rd := readers.New(upstreamClient)

	classifier, err := classify.New(cfg.MaterialClasses)
	if err != nil {
		log.Fatal("failed to build material classifier", zap.Error(err))
	}

	cache := memcache.New(cfg.MemoryCacheMaxSize, cfg.MemoryCacheTTL)

	assembler := assemble.New(rd, st, cache, classifier, time.Duration(cfg.PersistentFreshnessSeconds)*time.Second)
	relatedAgg := related.New(rd)

	var queueMgr *queue.Manager
	if cfg.NATSURL != "" {
		queueMgr, err = queue.NewManager(cfg.NATSURL, log)
		if err != nil {
			log.Warn("failed to connect to nats, progress broadcast disabled", zap.Error(err))
			queueMgr = nil
		} else {
			defer queueMgr.Close()
		}
	}

	admin := cacheadmin.New(cache, st, assembler, queueMgr, log)

	liveSync := config.NewLiveSyncConfig(cfg)

	orchestrator := syncjob.New(rd, st, log, queueMgr, syncjob.Config{
		ChunkDays:             cfg.ChunkDays,
		BatchSize:             cfg.BatchSize,
		ParallelChunks:        cfg.ParallelChunks,
		RetryCount:            cfg.RetryCount,
		ManualSyncDefaultDays: cfg.ManualSyncDefault,
		ManualSyncMinDays:     cfg.ManualSyncMinDays,
		ManualSyncMaxDays:     cfg.ManualSyncMaxDays,
	})

	scheduler := syncjob.NewScheduler(orchestrator, liveSync, log, time.Minute)
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(assembler, relatedAgg, orchestrator, admin, liveSync, log, cfg.CORSOrigins)
	httpServer := api.NewHTTPServer(fmt.Sprintf(":%d", cfg.AppPort), server.Router())

	go func() {
		log.Info("http server listening", zap.Int("port", cfg.AppPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}

func mustLogger(cfg *config.Config) *zap.Logger {
	var zcfg zap.Config
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err == nil {
		zcfg.Level = level
	}
	log, err := zcfg.Build()
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	return log
}
