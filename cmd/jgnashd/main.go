package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/handlers"
	"github.com/ranlab/jgnash/internal/middleware"
	"github.com/ranlab/jgnash/internal/platform/config"
	"github.com/ranlab/jgnash/internal/storage/memory"
	"github.com/ranlab/jgnash/internal/storage/pgsql"
	"github.com/ranlab/jgnash/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var handler slog.Handler
	if cfg.IsProduction {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dao, cleanup, err := openDAO(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open data store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	e, err := engine.New(ctx, dao, engine.Config{
		Name:                  cfg.EngineName,
		DefaultCurrencySymbol: cfg.DefaultCurrencySymbol,
		TrashRetention:        cfg.TrashRetention,
		TrashSweepInterval:    cfg.TrashSweepInterval,
		BackgroundStartDelay:  cfg.BackgroundStartDelay,
		UpdateOnStartup:       cfg.UpdateOnStartup,
		QuoteSource:           engine.NopQuoteSource{},
	}, logger)
	if err != nil {
		logger.Error("Failed to start engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rate := limiter.Rate{Period: time.Second, Limit: int64(cfg.RateLimitRPS)}
	r.Use(middleware.RateLimit(limiter.New(limitermem.NewStore(), rate)))

	handlers.RegisterRoutes(r, e)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Engine shutdown error", slog.String("error", err.Error()))
	}
}

// openDAO selects the backing store. With PGSQL_URL set it migrates the
// schema and loads the full object graph from PostgreSQL; otherwise the
// ledger lives in memory only.
func openDAO(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.DAO, func(), error) {
	if cfg.DatabaseURL == "" {
		return memory.New(), func() {}, nil
	}

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		return nil, nil, err
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	dao, err := pgsql.Open(ctx, pool)
	if err != nil {
		database.ClosePgxPool(pool)
		return nil, nil, err
	}
	return dao, func() { database.ClosePgxPool(pool) }, nil
}

func runMigrations(databaseURL string, logger *slog.Logger) error {
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
