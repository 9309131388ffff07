// Command sweep is a standalone wrapper around the §4.8 scheduled sweep:
// it wires the same storage/provider/ingester/assembler stack as
// cmd/server but runs only the sweep scheduler, with no HTTP surface.
// Useful for deploying the sweep as its own process or cron-triggered
// job, separate from request serving.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/config"
	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/gate"
	"github.com/f0rbit/timeline/ingest"
	"github.com/f0rbit/timeline/logger"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/sweep"
	"github.com/f0rbit/timeline/timeline"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("sweep worker starting")

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

	accounts := db.NewAccountRepo(sqlDB)
	filters := db.NewFilterRepo(sqlDB)
	rateLimits := db.NewRateLimitRepo(sqlDB)

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

	sweeper := sweep.New(accounts, ingester, assembler, log)
	scheduler, err := sweep.NewScheduler(sweeper, fmt.Sprintf("@every %s", cfg.SweepInterval))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sweep scheduler")
	}
	scheduler.Start()
	log.Info().Str("interval", cfg.SweepInterval.String()).Msg("sweep scheduler started")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info().Msg("shutdown signal received")
	scheduler.Stop(context.Background())
	log.Info().Msg("sweep worker stopped")
}

// newBackend selects the corpus.Backend implementation the same way
// cmd/server does: Postgres + S3-compatible CloudBackend when object
// store credentials are present, else an in-process MemoryBackend.
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
