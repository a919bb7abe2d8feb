package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/flatboard/internal/adapters/boltstore"
	"github.com/okian/flatboard/internal/adapters/http/api"
	"github.com/okian/flatboard/internal/adapters/redismirror"
	service "github.com/okian/flatboard/internal/app"
	"github.com/okian/flatboard/internal/config"
	"github.com/okian/flatboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	db, err := service.Open(ctx, service.WithConfig(cfg), service.WithLogger(log.Named("database")))
	if err != nil {
		log.Error(ctx, "failed to open store", logger.String("path", cfg.UsersFile), logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := convert(ctx, db, cfg); err != nil {
		log.Error(ctx, "conversion failed", logger.Error(err))
	}

	db.Leaderboard().Start(ctx, cfg.LeaderboardRefresh)
	go startMaintenance(ctx, db, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, db),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
}

// newMux registers the read API and the metrics endpoint.
func newMux(ctx context.Context, db *service.Database) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(db).Register(ctx, mux)
	return mux
}

// startMaintenance runs the configured purges every purge interval until ctx ends.
func startMaintenance(ctx context.Context, db *service.Database, cfg *config.Config) {
	if cfg.PurgeInterval <= 0 || (!cfg.PurgePowerless && cfg.PurgeAfter <= 0) {
		return
	}
	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			maintain(ctx, db, cfg)
		}
	}
}

// maintain runs one maintenance pass and returns the number of purged records.
func maintain(ctx context.Context, db *service.Database, cfg *config.Config) int {
	removed := 0
	if cfg.PurgePowerless {
		removed += db.PurgePowerless(ctx)
	}
	if cfg.PurgeAfter > 0 {
		removed += db.PurgeStaleSince(ctx, cfg.PurgeAfter)
	}
	return removed
}

// convert copies the store into the configured bolt database and Redis
// mirror. Either destination is skipped when not configured.
func convert(ctx context.Context, db *service.Database, cfg *config.Config) error {
	log := logger.Get().Named("convert")

	if cfg.BoltPath != "" {
		dst, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return err
		}
		n := db.ConvertTo(ctx, dst)
		log.Info(ctx, "converted records to bolt", logger.String("path", cfg.BoltPath), logger.Int("records", n))
		if err := dst.Close(); err != nil {
			return err
		}
	}

	if cfg.RedisAddr != "" {
		mirror, err := redismirror.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		n := db.ConvertTo(ctx, mirror)
		log.Info(ctx, "mirrored records to redis", logger.String("addr", cfg.RedisAddr), logger.Int("records", n))
		if err := mirror.Close(); err != nil {
			return err
		}
	}
	return nil
}
