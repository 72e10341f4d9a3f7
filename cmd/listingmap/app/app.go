// Package app provides the application context and dependency management
// for the listingmap CLI. It resolves configuration once, builds the
// listing store and geocoder lazily, and releases them on shutdown.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/cmd/listingmap/cmd/output"
	"github.com/agentstation/listingmap/internal/appcontext"
	"github.com/agentstation/listingmap/internal/config"
	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/metrics"
	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/internal/store/firestore"
	"github.com/agentstation/listingmap/internal/store/memory"
	"github.com/agentstation/listingmap/internal/transport"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/logging"
)

// Flags are the global command line flags.
type Flags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	LogLevel   string
	Format     string
}

// App represents the listingmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	flags  Flags
	config *config.Config
	logger *zerolog.Logger

	// Lazily built dependencies
	mu       sync.Mutex
	store    store.Store
	closer   io.Closer
	geocoder geocoding.Geocoder
	metrics  *metrics.Metrics
}

var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
// Configuration is resolved when a command runs, after flags are parsed.
func New(version, commit, date, builtBy string, opts ...Option) *App {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the --format flag. Without one it is a table on a
// terminal and text otherwise.
func (a *App) OutputFormat() string {
	return output.Detect(a.flags.Format, os.Stdout)
}

// loadConfig resolves the configuration unless one was injected.
func (a *App) loadConfig() error {
	if a.config != nil && a.flags.ConfigFile == "" {
		return nil
	}
	var opts []config.Option
	if a.flags.ConfigFile != "" {
		opts = append(opts, config.WithFile(a.flags.ConfigFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.config = cfg
	return nil
}

// Store returns the configured listing store, opening it on first use.
// The memory backend is loaded from the seed file when one is set.
func (a *App) Store(ctx context.Context) (store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		return a.store, nil
	}

	cfg := a.config
	switch cfg.Store.Backend {
	case config.BackendFirestore:
		fs, err := firestore.Open(ctx, firestore.Config{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
			Collection:      cfg.Store.Collection,
		}, firestore.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.store, a.closer = fs, fs

	default:
		mem := memory.New(memory.WithLogger(a.logger))
		if cfg.Store.Seed != "" {
			n, err := mem.LoadSeed(cfg.Store.Seed)
			if err != nil {
				return nil, err
			}
			a.logger.Info().Int("listings", n).Str("seed", cfg.Store.Seed).Msg("Loaded seed listings")
		}
		a.store = mem
	}
	return a.store, nil
}

// Geocoder returns the configured geocoder. Lookups are cached for the
// configured TTL and recorded in Metrics.
func (a *App) Geocoder() geocoding.Geocoder {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.geocoder != nil {
		return a.geocoder
	}

	cfg := a.config.Geocoder
	var g geocoding.Geocoder
	switch cfg.Backend {
	case config.GeocoderStatic:
		g = geocoding.DarEsSalaam()
	default:
		topts := []transport.Option{
			transport.WithUserAgent(cfg.UserAgent),
			transport.WithLanguage(a.config.Locale),
		}
		if cfg.APIKey != "" {
			topts = append(topts, transport.WithAuth(transport.KeyAuth("key", cfg.APIKey)))
		}
		g = geocoding.NewNominatim(
			geocoding.WithBaseURL(cfg.BaseURL),
			geocoding.WithTransport(transport.New(topts...)),
			geocoding.WithLogger(a.logger),
		)
	}
	if cfg.CacheTTL > 0 {
		g = geocoding.NewCached(g, cfg.CacheTTL)
	}
	a.geocoder = g
	return g
}

// Metrics returns the process metrics.
func (a *App) Metrics() *metrics.Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.metrics == nil {
		a.metrics = metrics.NewDefault()
	}
	return a.metrics
}

// ScreenOptions returns screen options built from the configuration,
// followed by extra. The geocoder is passed unwrapped; the screen adds
// metrics around it.
func (a *App) ScreenOptions(extra ...listingmap.Option) []listingmap.Option {
	cfg := a.config
	opts := []listingmap.Option{
		listingmap.WithLogger(a.logger),
		listingmap.WithGeocoder(a.Geocoder()),
		listingmap.WithLocale(cfg.Language()),
		listingmap.WithMetrics(a.Metrics()),
		listingmap.WithRetry(cfg.Retry.Backoff, cfg.Retry.MaxBackoff, cfg.Retry.MaxRetries),
		listingmap.WithDefaultCamera(cfg.Map.DefaultCoordinate(), cfg.Map.DefaultZoom),
		listingmap.WithUserZoom(cfg.Map.UserZoom),
	}
	return append(opts, extra...)
}

// Shutdown releases the store connection, if any.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	if err != nil {
		return errors.WrapTransport("close store", err)
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithConfig sets a resolved configuration, skipping config loading.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) { a.config = cfg }
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithStore sets the listing store (useful for testing).
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}
