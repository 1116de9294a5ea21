// Command server runs the discovery HTTP API.
//
//	@title			Discovery API
//	@version		1.0
//	@description	Diversified, deduplicated and personalized recommendations.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-discovery-backend/internal/cache"
	"github.com/tbourn/go-discovery-backend/internal/catalog"
	"github.com/tbourn/go-discovery-backend/internal/config"
	"github.com/tbourn/go-discovery-backend/internal/domain"
	httpapi "github.com/tbourn/go-discovery-backend/internal/http"
	"github.com/tbourn/go-discovery-backend/internal/observability"
	"github.com/tbourn/go-discovery-backend/internal/pipeline"
	"github.com/tbourn/go-discovery-backend/internal/repo"
	"github.com/tbourn/go-discovery-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = 10 * time.Minute
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, cfg.Engine, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	log.Info().Int("entries", cat.Len()).Str("path", cfg.CatalogPath).Msg("catalog loaded")

	eng := httpapi.Engine{
		Catalog:  cat,
		Pipeline: pipeline.New(pipelineOptions(cfg.Engine)),
	}
	var lru *cache.LRU[string, domain.RecommendationsData]
	if cfg.Cache.Size > 0 {
		lru = cache.New[string, domain.RecommendationsData](cfg.Cache.Size, cfg.Cache.TTL)
		eng.Cache = lru
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, eng, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		t := time.NewTicker(janitorInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-t.C:
				n, err := repo.PurgeIdempotency(gctx, db, now.UTC())
				if err != nil {
					log.Warn().Err(err).Msg("purge idempotency keys")
				}
				ev := log.Debug().Int64("idempotency_purged", n)
				if lru != nil {
					st := lru.Stats()
					ev = ev.Int64("cache_hits", st.Hits).
						Int64("cache_misses", st.Misses).
						Int64("cache_evictions", st.Evictions).
						Int("cache_size", st.Size)
				}
				ev.Msg("janitor")
			}
		}
	})
	return g.Wait()
}

// pipelineOptions maps the environment tuning onto engine options.
func pipelineOptions(e config.EngineConfig) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.DupThreshold = e.DupThreshold
	opts.CrossThreshold = e.CrossThreshold
	opts.CategoryCap = e.CategoryCap
	opts.DetailCap = e.DetailCap
	opts.MaxBoost = e.MaxBoost
	opts.ExpandTarget = e.ExpandTarget
	opts.Seed = e.Seed
	opts.Transitive = e.Transitive
	opts.VectorFallback = e.VectorFallback
	opts.ContextAware = e.ContextAware
	return opts
}
