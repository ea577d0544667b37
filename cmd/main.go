package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/courtform/internal/adapters/http/api"
	"github.com/okian/courtform/internal/adapters/http/swagger"
	"github.com/okian/courtform/internal/adapters/paramsource"
	"github.com/okian/courtform/internal/adapters/roster"
	app "github.com/okian/courtform/internal/app"
	"github.com/okian/courtform/internal/config"
	"github.com/okian/courtform/internal/domain/hyperparams"
	"github.com/okian/courtform/pkg/logger"
	"github.com/okian/courtform/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

var errNoRoster = errors.New("no roster configured: set FORM_ROSTER_FILE or FORM_ROSTER_DSN")

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.SetEnabled(cfg.MetricsEnabled)

	provider, closeRoster, err := newRosterProvider(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "roster provider unavailable", logger.Error(err))
		os.Exit(1)
	}
	defer closeRoster()

	svc := newService(cfg, provider, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newRosterProvider picks Postgres when a DSN is configured, else the file.
// The returned func releases the provider's resources.
func newRosterProvider(ctx context.Context, cfg *config.Config) (roster.Provider, func(), error) {
	switch {
	case cfg.RosterDSN != "":
		pg, err := roster.OpenPostgres(ctx, cfg.RosterDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case cfg.RosterFile != "":
		return roster.NewFileProvider(cfg.RosterFile, roster.WithLogger(logger.Named("roster"))), func() {}, nil
	default:
		return nil, nil, errNoRoster
	}
}

// newParamSource returns nil when no override document is configured.
func newParamSource(cfg *config.Config) hyperparams.Source {
	switch {
	case cfg.HyperparamsURL != "":
		return paramsource.NewHTTP(cfg.HyperparamsURL, paramsource.WithTimeout(cfg.HyperparamsTimeout()))
	case cfg.HyperparamsFile != "":
		return paramsource.NewFile(cfg.HyperparamsFile)
	default:
		return nil
	}
}

func newService(cfg *config.Config, provider roster.Provider, l logger.Logger) *app.Service {
	opts := []app.Option{
		app.WithLogger(l),
		app.WithTours(cfg.TourList()...),
		app.WithRosterProvider(provider),
		app.WithQueueSize(cfg.TriggerQueueSize),
		app.WithRefreshInterval(cfg.RefreshInterval()),
		app.WithHyperparamTimeout(cfg.HyperparamsTimeout()),
	}
	if src := newParamSource(cfg); src != nil {
		opts = append(opts, app.WithHyperparamSource(src))
	}
	return app.New(opts...)
}

func newMux(ctx context.Context, svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// OpenAPI document and ReDoc page.
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
