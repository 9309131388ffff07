// Command server is the entry point for the timeline aggregation
// service: it wires config, logging, storage, providers, and the HTTP
// API together and serves it with graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/config"
	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/gate"
	"github.com/f0rbit/timeline/handler"
	"github.com/f0rbit/timeline/ingest"
	"github.com/f0rbit/timeline/logger"
	appmw "github.com/f0rbit/timeline/middleware"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/refresh"
	"github.com/f0rbit/timeline/router"
	"github.com/f0rbit/timeline/sweep"
	"github.com/f0rbit/timeline/timeline"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("timeline service starting")

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database connection")
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		log.Fatal().Err(err).Msg("database ping failed")
	}
	log.Info().Msg("database connected")

	box, err := crypto.NewBox(cfg.EncryptionKeyHex)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build encryption box — set TOKEN_ENCRYPTION_KEY to a 32-byte hex key")
	}

	profiles := db.NewProfileRepo(sqlDB)
	accounts := db.NewAccountRepo(sqlDB)
	filters := db.NewFilterRepo(sqlDB)
	credentials := db.NewCredentialsRepo(sqlDB)
	apiKeys := db.NewApiKeyRepo(sqlDB)
	rateLimits := db.NewRateLimitRepo(sqlDB)
	settings := db.NewSettingsRepo(sqlDB)

	backend := newBackend(cfg, sqlDB, log)

	var gateCache gate.Cache
	if redisCache, err := gate.NewRedisCache(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis cache init failed — gate falls back to database-only checks")
	} else {
		gateCache = redisCache
		log.Info().Msg("gate cache connected to redis")
	}
	rateGate := gate.New(rateLimits, gateCache)

	providers := map[db.Platform]provider.Provider{
		db.PlatformGitHub:  provider.NewGitHubProvider(),
		db.PlatformReddit:  provider.NewRedditProvider(),
		db.PlatformTwitter: provider.NewTwitterProvider(),
		db.PlatformBluesky: provider.NewBlueskyProvider(),
		db.PlatformYouTube: provider.NewYouTubeProvider(),
		db.PlatformDevpad:  provider.NewDevpadProvider(),
	}

	ingester := ingest.NewIngester(box, rateGate, backend, providers)
	assembler := timeline.NewAssembler(accounts, filters, backend)
	orchestrator := refresh.New(accounts, ingester, assembler, nil)

	sweeper := sweep.New(accounts, ingester, assembler, log)
	scheduler, err := sweep.NewScheduler(sweeper, fmt.Sprintf("@every %s", cfg.SweepInterval))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sweep scheduler")
	}
	scheduler.Start()

	auth := appmw.NewAuthMiddleware(apiKeys, log)

	handlers := router.Handlers{
		Timeline:    handler.NewTimelineHandler(accounts, backend, log),
		Connections: handler.NewConnectionsHandler(profiles, accounts, settings, rateLimits, backend, box, orchestrator, log),
		Profiles:    handler.NewProfilesHandler(profiles, assembler, log),
		Filters:     handler.NewFiltersHandler(profiles, accounts, filters, log),
		Credentials: handler.NewCredentialsHandler(profiles, credentials, box, log),
	}

	ready := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		if pinger, ok := gateCache.(interface{ Ping(context.Context) error }); ok {
			if err := pinger.Ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	r := router.New(auth, handlers, log, cfg.MaxBodyBytes, cfg.CORSOrigins, ready)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("timeline service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	scheduler.Stop(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("timeline service stopped gracefully")
	}
}

// newBackend selects the corpus.Backend implementation: the Postgres +
// S3-compatible CloudBackend when object-store credentials are present,
// falling back to an in-process MemoryBackend for local development.
func newBackend(cfg *config.Config, sqlDB *sql.DB, log zerolog.Logger) corpus.Backend {
	if cfg.ObjectStore.AccessKey == "" {
		log.Warn().Msg("no object store credentials configured — using in-memory snapshot backend (not durable)")
		return corpus.NewMemoryBackend()
	}
	client, err := corpus.NewMinioClient(cfg.ObjectStore.Endpoint, cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, cfg.ObjectStore.UseSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build object store client")
	}
	log.Info().Str("endpoint", cfg.ObjectStore.Endpoint).Str("bucket", cfg.ObjectStore.Bucket).Msg("snapshot backend connected")
	return corpus.NewCloudBackend(sqlDB, client, cfg.ObjectStore.Bucket)
}
