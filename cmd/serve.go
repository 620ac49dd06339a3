package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/nowplay/internal/auth"
	"github.com/desertthunder/nowplay/internal/metrics"
	"github.com/desertthunder/nowplay/internal/playback"
	"github.com/desertthunder/nowplay/internal/repositories"
	"github.com/desertthunder/nowplay/internal/server"
	"github.com/desertthunder/nowplay/internal/services"
	"github.com/desertthunder/nowplay/internal/shared"
	"github.com/desertthunder/nowplay/internal/slug"
	"github.com/desertthunder/nowplay/internal/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Serve starts the HTTP service and blocks until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	spotify, err := services.NewSpotifyClient(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	accounts := repositories.NewAccountRepository(db)
	sessions := repositories.NewSessionRepository(db)
	allocator := slug.NewAllocator(accounts)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	manager := tokens.NewManager(
		accounts, spotify,
		time.Duration(config.Auth.TokenGuardSeconds)*time.Second,
		shared.WithLogger(r.logger, "component", "tokens"),
		collector,
	)

	authService := auth.NewService(
		spotify, accounts, sessions, allocator,
		time.Duration(config.Auth.SessionMaxAgeHours)*time.Hour,
		shared.WithLogger(r.logger, "component", "auth"),
	)

	playbackService := playback.NewService(
		accounts, manager, spotify,
		shared.WithLogger(r.logger, "component", "playback"),
	)

	limiter := server.NewRateLimiter(rate.Limit(2), 60)

	router := server.NewBasicRouter()
	router.Use(
		server.Recovery(r.logger),
		server.Logging(r.logger),
		server.Metrics(collector),
		limiter.Middleware(),
	)
	router.Handler(server.NewAPI(authService, playbackService, collector, r.logger))
	router.Handle("GET /metrics", metrics.Handler(registry))

	srv := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", srv.Addr)
		r.writePlain("Listening on http://%s\nLogin URL: http://%s/login\n", srv.Addr, srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	return nil
}

// serveCommand runs the HTTP service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the now-playing HTTP service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}
