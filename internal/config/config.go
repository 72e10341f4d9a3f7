// Package config loads listingmap settings from defaults, an optional YAML
// file, .env files and LISTINGMAP_* environment variables, in increasing
// order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

// EnvPrefix prefixes every environment override, e.g. LISTINGMAP_STORE_BACKEND.
const EnvPrefix = "LISTINGMAP"

// Store backends.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
)

// Geocoder backends.
const (
	GeocoderNominatim = "nominatim"
	GeocoderStatic    = "static"
)

// Config holds the resolved settings.
type Config struct {
	ConfigFile string

	Store    StoreConfig
	Firebase FirebaseConfig
	Geocoder GeocoderConfig
	Map      MapConfig
	Server   ServerConfig
	Retry    RetryConfig

	Locale string

	LogLevel  string
	LogFormat string
	LogOutput string
}

// StoreConfig selects the listing store.
type StoreConfig struct {
	Backend    string
	Seed       string
	Collection string
}

// FirebaseConfig locates the Firebase project.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// GeocoderConfig selects the geocoder and its cache.
type GeocoderConfig struct {
	Backend   string
	BaseURL   string
	UserAgent string
	APIKey    string // sent as the "key" query parameter by hosted instances
	CacheTTL  time.Duration
}

// MapConfig holds the camera defaults.
type MapConfig struct {
	DefaultLat  float64
	DefaultLng  float64
	DefaultZoom float64
	UserZoom    float64
}

// DefaultCoordinate returns the configured fallback position.
func (m MapConfig) DefaultCoordinate() listings.Coordinate {
	return listings.Coordinate{Lat: m.DefaultLat, Lng: m.DefaultLng}
}

// ServerConfig configures the browser map server.
type ServerConfig struct {
	Host        string
	Port        int
	PathPrefix  string
	CORSOrigins []string
	RateLimit   int
	Metrics     bool
	Posting     bool
}

// RetryConfig tunes resubscription after transport errors.
type RetryConfig struct {
	Backoff    time.Duration
	MaxBackoff time.Duration
	MaxRetries int
}

// Language parses Locale, falling back to English.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// Option adjusts how Load reads its sources.
type Option func(*loader)

type loader struct {
	file     string
	envFiles []string
	paths    []string
}

// WithFile reads the given config file instead of searching for one.
func WithFile(path string) Option {
	return func(l *loader) { l.file = path }
}

// WithEnvFiles replaces the .env files loaded before reading the
// environment. Later files do not override earlier ones.
func WithEnvFiles(files ...string) Option {
	return func(l *loader) { l.envFiles = files }
}

// WithSearchPaths replaces the directories searched for .listingmap.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(l *loader) { l.paths = paths }
}

func newLoader(opts ...Option) *loader {
	l := &loader{envFiles: []string{".env.local", ".env"}}
	if home, err := os.UserHomeDir(); err == nil {
		l.paths = append(l.paths, home)
	}
	l.paths = append(l.paths, ".")
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.seed", "")
	v.SetDefault("store.collection", constants.ListingsCollection)

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")

	v.SetDefault("geocoder.backend", GeocoderNominatim)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "listingmap/1.0")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.cache_ttl", constants.GeocodeCacheTTL)

	v.SetDefault("map.default_lat", constants.DefaultLatitude)
	v.SetDefault("map.default_lng", constants.DefaultLongitude)
	v.SetDefault("map.default_zoom", constants.DefaultZoom)
	v.SetDefault("map.user_zoom", constants.UserZoom)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.path_prefix", "/api/v1")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.posting", true)

	v.SetDefault("retry.backoff", constants.RetryBackoff)
	v.SetDefault("retry.max_backoff", constants.MaxRetryBackoff)
	v.SetDefault("retry.max_retries", constants.MaxRetries)

	v.SetDefault("locale", "en")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// Load resolves the configuration into a fresh viper instance.
func Load(opts ...Option) (*Config, error) {
	v := viper.New()
	return LoadInto(v, opts...)
}

// LoadInto resolves the configuration into v, which may already carry
// bound command flags.
func LoadInto(v *viper.Viper, opts ...Option) (*Config, error) {
	l := newLoader(opts...)

	for _, f := range l.envFiles {
		// a missing .env file is normal
		_ = godotenv.Load(f)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if l.file != "" {
		v.SetConfigFile(l.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("file", "cannot read "+l.file, err)
		}
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".listingmap")
		for _, p := range l.paths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("file", "cannot parse config", err)
			}
		}
	}

	cfg := &Config{
		ConfigFile: v.ConfigFileUsed(),
		Store: StoreConfig{
			Backend:    strings.ToLower(v.GetString("store.backend")),
			Seed:       v.GetString("store.seed"),
			Collection: v.GetString("store.collection"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("firebase.project_id"),
			CredentialsFile: v.GetString("firebase.credentials_file"),
		},
		Geocoder: GeocoderConfig{
			Backend:   strings.ToLower(v.GetString("geocoder.backend")),
			BaseURL:   v.GetString("geocoder.base_url"),
			UserAgent: v.GetString("geocoder.user_agent"),
			APIKey:    v.GetString("geocoder.api_key"),
			CacheTTL:  v.GetDuration("geocoder.cache_ttl"),
		},
		Map: MapConfig{
			DefaultLat:  v.GetFloat64("map.default_lat"),
			DefaultLng:  v.GetFloat64("map.default_lng"),
			DefaultZoom: v.GetFloat64("map.default_zoom"),
			UserZoom:    v.GetFloat64("map.user_zoom"),
		},
		Server: ServerConfig{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			PathPrefix:  v.GetString("server.path_prefix"),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
			RateLimit:   v.GetInt("server.rate_limit"),
			Metrics:     v.GetBool("server.metrics"),
			Posting:     v.GetBool("server.posting"),
		},
		Retry: RetryConfig{
			Backoff:    v.GetDuration("retry.backoff"),
			MaxBackoff: v.GetDuration("retry.max_backoff"),
			MaxRetries: v.GetInt("retry.max_retries"),
		},
		Locale:    v.GetString("locale"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
		LogOutput: v.GetString("log.output"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and value ranges.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFirestore:
		if c.Firebase.ProjectID == "" {
			return errors.NewConfigError("firebase", "project_id is required for the firestore backend", nil)
		}
	default:
		return errors.NewConfigError("store", "unknown backend "+c.Store.Backend, nil)
	}

	switch c.Geocoder.Backend {
	case GeocoderNominatim, GeocoderStatic:
	default:
		return errors.NewConfigError("geocoder", "unknown backend "+c.Geocoder.Backend, nil)
	}

	if !c.Map.DefaultCoordinate().Valid() {
		return errors.NewConfigError("map", "default coordinate is out of range", nil)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewConfigError("server", "port is out of range", nil)
	}
	if c.Server.RateLimit < 0 {
		return errors.NewConfigError("server", "rate_limit cannot be negative", nil)
	}
	if p := c.Server.PathPrefix; p != "" && (!strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/")) {
		return errors.NewConfigError("server", "path_prefix must start and not end with /", nil)
	}
	if c.Retry.Backoff <= 0 || c.Retry.MaxBackoff < c.Retry.Backoff {
		return errors.NewConfigError("retry", "backoff must be positive and not exceed max_backoff", nil)
	}
	if c.Retry.MaxRetries < 0 {
		return errors.NewConfigError("retry", "max_retries cannot be negative", nil)
	}
	return nil
}
