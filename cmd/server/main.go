package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/paramcsv/internal/bank"
	"github.com/JonMunkholm/paramcsv/internal/config"
	"github.com/JonMunkholm/paramcsv/internal/core"
	"github.com/JonMunkholm/paramcsv/internal/logging"
	"github.com/JonMunkholm/paramcsv/internal/schema"
	"github.com/JonMunkholm/paramcsv/internal/store/pgstore"
	"github.com/JonMunkholm/paramcsv/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"schema_dir", cfg.Schema.Dir,
		"param_version", cfg.Schema.Version,
		"persistent", cfg.Database.URL != "",
	)

	// Load param definitions
	schemas, err := schema.LoadDir(cfg.Schema.Dir)
	if err != nil {
		slog.Error("failed to load schemas", "error", err)
		os.Exit(1)
	}
	primary, err := bank.FromSchemas(cfg.Schema.Version, schemas)
	if err != nil {
		slog.Error("failed to build param bank", "error", err)
		os.Exit(1)
	}
	slog.Info("schemas loaded", "tables", primary.Len())

	opts := core.ServiceOptions{
		Separator:            cfg.Import.Delimiter,
		HistoryLimit:         cfg.Import.HistoryLimit,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		MaxImportWait:        cfg.Import.MaxWait,
	}

	// Baseline tables for vanilla-name imports
	if cfg.Schema.VanillaDir != "" {
		vanilla, err := bank.FromSchemas(cfg.Schema.Version, schemas)
		if err != nil {
			slog.Error("failed to build vanilla bank", "error", err)
			os.Exit(1)
		}
		n, err := core.LoadSnapshotDir(vanilla, cfg.Schema.VanillaDir, cfg.Import.Delimiter)
		if err != nil {
			slog.Error("failed to load vanilla tables", "dir", cfg.Schema.VanillaDir, "error", err)
			os.Exit(1)
		}
		slog.Info("vanilla tables loaded", "dir", cfg.Schema.VanillaDir, "files", n)
		opts.Vanilla = vanilla
	}

	ctx := context.Background()

	// Connect to database when persistence is configured
	if cfg.Database.URL != "" {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := pgstore.New(pool)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		opts.Store = store
	}

	// Create service and restore persisted tables
	service := core.NewService(primary, opts)
	if err := service.Load(ctx); err != nil {
		slog.Error("failed to load tables", "error", err)
		os.Exit(1)
	}

	// Create server with config
	server := web.NewServer(service, cfg)

	// Graceful shutdown; also stops background jobs
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Discard staged imports nobody commits
	go service.StartPendingSweeper(sigCtx, core.SweepConfig{
		MaxAge:        cfg.Import.PendingTTL,
		CheckInterval: cfg.Import.SweepInterval,
	})

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sigCtx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests, then let running imports finish
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}
		if n := len(service.PendingImports()); n > 0 {
			slog.Warn("discarding uncommitted imports", "count", n)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}

// connect opens and verifies a pool sized from the database config.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
