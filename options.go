package listingmap

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/location"
	"github.com/agentstation/listingmap/internal/metrics"
	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/differ"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

// config holds the options of a Screen.
type config struct {
	logger   *zerolog.Logger
	platform location.Platform
	geocoder geocoding.Geocoder
	locale   language.Tag
	metrics  *metrics.Metrics
	filter   store.Filter

	retryBase  time.Duration
	retryMax   time.Duration
	maxRetries int
	bufferSize int

	center      listings.Coordinate
	defaultZoom float64
	userZoom    float64

	geocodeTimeout time.Duration
	differOpts     []differ.Option
}

func defaultConfig() *config {
	return &config{
		locale:         language.English,
		filter:         store.Available,
		retryBase:      constants.RetryBackoff,
		retryMax:       constants.MaxRetryBackoff,
		maxRetries:     constants.MaxRetries,
		bufferSize:     constants.ChannelBufferSize,
		center:         listings.Coordinate{Lat: constants.DefaultLatitude, Lng: constants.DefaultLongitude},
		defaultZoom:    constants.DefaultZoom,
		userZoom:       constants.UserZoom,
		geocodeTimeout: constants.GeocodeTimeout,
	}
}

// Option is a function that configures a Screen
type Option func(*config) error

// WithLogger sets the logger shared by every component of the screen
func WithLogger(l *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// WithLocationPlatform enables Locate on top of the device location API
func WithLocationPlatform(p location.Platform) Option {
	return func(c *config) error {
		c.platform = p
		return nil
	}
}

// WithGeocoder enables Search
func WithGeocoder(g geocoding.Geocoder) Option {
	return func(c *config) error {
		c.geocoder = g
		return nil
	}
}

// WithLocale selects the language of marker text
func WithLocale(tag language.Tag) Option {
	return func(c *config) error {
		c.locale = tag
		return nil
	}
}

// WithMetrics records reconciliation, subscription and geocoder metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}

// WithFilter replaces the available-only listing filter
func WithFilter(f store.Filter) Option {
	return func(c *config) error {
		c.filter = f
		return nil
	}
}

// WithRetry configures resubscription after transport errors.
// maxRetries of zero retries until the screen is hidden or destroyed.
func WithRetry(base, maxDelay time.Duration, maxRetries int) Option {
	return func(c *config) error {
		if base <= 0 || maxDelay < base {
			return &errors.ValidationError{Field: "retry", Value: base, Message: "backoff must be positive and not exceed the maximum"}
		}
		if maxRetries < 0 {
			return &errors.ValidationError{Field: "retry", Value: maxRetries, Message: "cannot be negative"}
		}
		c.retryBase, c.retryMax, c.maxRetries = base, maxDelay, maxRetries
		return nil
	}
}

// WithBufferSize sets the capacity of the batch queue
func WithBufferSize(n int) Option {
	return func(c *config) error {
		c.bufferSize = n
		return nil
	}
}

// WithDefaultCamera sets where the map opens and where it falls back to
// when location permission is denied
func WithDefaultCamera(center listings.Coordinate, zoom float64) Option {
	return func(c *config) error {
		if !center.Valid() {
			return &errors.ValidationError{Field: "center", Value: center, Message: "is out of range"}
		}
		c.center, c.defaultZoom = center, zoom
		return nil
	}
}

// WithUserZoom sets the zoom used after locating the user or a search result
func WithUserZoom(zoom float64) Option {
	return func(c *config) error {
		c.userZoom = zoom
		return nil
	}
}

// WithGeocodeTimeout bounds a single Search
func WithGeocodeTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.geocodeTimeout = d
		return nil
	}
}

// WithDifferOptions tunes marker change detection
func WithDifferOptions(opts ...differ.Option) Option {
	return func(c *config) error {
		c.differOpts = append(c.differOpts, opts...)
		return nil
	}
}
