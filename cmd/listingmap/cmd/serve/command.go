// Package serve provides the command that streams the listing map to
// browsers.
package serve

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/appcontext"
	"github.com/agentstation/listingmap/internal/config"
	"github.com/agentstation/listingmap/internal/posting"
	"github.com/agentstation/listingmap/internal/server"
	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// NewCommand creates the serve command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "core",
		Short:   "Serve the live listing map over HTTP",
		Long: `Serve the listing map to browsers.

Every browser connected to /api/v1/updates/ws sees the same map: it first
receives a marker snapshot, then each marker change as it happens. The map
subscribes to the listing store while at least one browser is connected and
pauses when the last one leaves.

Endpoints:
  - GET  /api/v1/markers               marker snapshot
  - POST /api/v1/markers/{handle}/click tap a marker
  - POST /api/v1/camera/fit            frame every listing
  - GET  /api/v1/listings/{id}         listing details
  - POST /api/v1/listings              post a listing
  - GET  /api/v1/geocode?q=            place the search marker
  - GET  /api/v1/updates/stream        read-only SSE event stream
  - GET  /metrics                      Prometheus metrics`,
		Example: `  # Start on the configured address
  listingmap serve

  # Serve a seeded in-memory store on all interfaces
  LISTINGMAP_STORE_SEED=rooms.yaml listingmap serve --host 0.0.0.0 --port 3000

  # Restrict browser origins and disable posting
  listingmap serve --cors-origins https://rooms.example.com --no-posting`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, app)
		},
	}

	cmd.Flags().Int("port", 0, "Server port (overrides server.port)")
	cmd.Flags().String("host", "", "Bind address (overrides server.host)")
	cmd.Flags().StringSlice("cors-origins", nil, "Allowed browser origins (comma-separated)")
	cmd.Flags().Int("rate-limit", 0, "Write requests per minute per IP, 0 to disable (overrides server.rate_limit)")
	cmd.Flags().String("prefix", "", "API path prefix (overrides server.path_prefix)")
	cmd.Flags().Bool("no-metrics", false, "Disable the metrics endpoint")
	cmd.Flags().Bool("no-posting", false, "Disable POST /listings")

	return cmd
}

// runServer starts the API server.
func runServer(cmd *cobra.Command, app appcontext.Interface) error {
	ctx := cmd.Context()
	logger := app.Logger()
	cfg := parseConfig(cmd, app.Config().Server)

	st, err := app.Store(ctx)
	if err != nil {
		return fmt.Errorf("opening listing store: %w", err)
	}

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.MetricsEnabled {
		opts = append(opts, server.WithMetrics(app.Metrics()))
	}
	if app.Config().Server.Posting && !mustGetBool(cmd, "no-posting") {
		opts = append(opts, server.WithPoster(newPoster(app, st)))
	}

	srv, err := server.New(cfg, func(surf surface.Surface) (listingmap.Screen, error) {
		return listingmap.New(st, surf, app.ScreenOptions()...)
	}, opts...)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Start()

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("prefix", cfg.PathPrefix).
		Strs("cors_origins", cfg.CORSOrigins).
		Int("rate_limit", cfg.RateLimit).
		Bool("metrics", cfg.MetricsEnabled).
		Msg("Starting API server")

	return startWithGracefulShutdown(ctx, srv.HTTPServer(), srv, cfg, logger)
}

func newPoster(app appcontext.Interface, st store.Store) server.PosterFunc {
	return func(onPosted func(listings.Listing)) *posting.Poster {
		return posting.New(st,
			posting.WithGeocoder(app.Geocoder()),
			posting.WithLogger(app.Logger()),
			posting.OnPosted(onPosted),
		)
	}
}

// parseConfig merges the configured server settings with explicit flags.
func parseConfig(cmd *cobra.Command, sc config.ServerConfig) server.Config {
	cfg := server.DefaultConfig()
	cfg.Host = sc.Host
	cfg.Port = sc.Port
	cfg.PathPrefix = sc.PathPrefix
	cfg.CORSOrigins = sc.CORSOrigins
	cfg.RateLimit = sc.RateLimit
	cfg.MetricsEnabled = sc.Metrics

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = mustGetInt(cmd, "port")
	}
	if flags.Changed("host") {
		cfg.Host = mustGetString(cmd, "host")
	}
	if flags.Changed("cors-origins") {
		cfg.CORSOrigins = mustGetStringSlice(cmd, "cors-origins")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = mustGetInt(cmd, "rate-limit")
	}
	if flags.Changed("prefix") {
		cfg.PathPrefix = mustGetString(cmd, "prefix")
	}
	if mustGetBool(cmd, "no-metrics") {
		cfg.MetricsEnabled = false
	}
	return cfg
}

// startWithGracefulShutdown starts the HTTP server and shuts it down when
// ctx is cancelled (SIGINT/SIGTERM from main.go).
func startWithGracefulShutdown(ctx context.Context, httpServer *http.Server, srv *server.Server, cfg server.Config, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return err

	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")

		// Use Background() since the parent context is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Background services first: that closes the open streams, which
		// http.Server.Shutdown does not wait for
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

// mustGetInt retrieves an integer flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetStringSlice retrieves a string slice flag value or panics if the flag doesn't exist.
func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
