// Command civicrank serves the static site, the data files written by the
// pipeline and the read API over them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/civicrank/internal/adapters/http/api"
	"github.com/okian/civicrank/internal/adapters/http/site"
	"github.com/okian/civicrank/internal/adapters/http/swagger"
	service "github.com/okian/civicrank/internal/app"
	"github.com/okian/civicrank/internal/config"
	"github.com/okian/civicrank/pkg/logger"
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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := initLogging(ctx, cfg); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// initLogging applies the configured format and level, falling back to info
// on an invalid level.
func initLogging(ctx context.Context, cfg *config.Config) error {
	if err := logger.InitWithOptions(logger.Options{Format: cfg.LogFormat}); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

func newService(cfg *config.Config) *service.Service {
	return service.New(
		service.WithLogger(logger.Named("site")),
		service.WithDataDir(cfg.DataDir),
		service.WithMaxLimit(cfg.MaxLeaderboardLimit),
		service.WithWatch(cfg.WatchData),
	)
}

// newMux registers the API, the API docs and the site on one mux.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux, cfg.DataDir)
	return mux
}

// run serves until ctx is cancelled, then shuts the server down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("data_dir", cfg.DataDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}
