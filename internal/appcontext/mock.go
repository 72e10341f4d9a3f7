package appcontext

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/config"
	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/metrics"
	"github.com/agentstation/listingmap/internal/store"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	ConfigFunc        func() *config.Config
	LoggerFunc        func() *zerolog.Logger
	StoreFunc         func(context.Context) (store.Store, error)
	GeocoderFunc      func() geocoding.Geocoder
	MetricsFunc       func() *metrics.Metrics
	ScreenOptionsFunc func(...listingmap.Option) []listingmap.Option
	OutputFormatFunc  func() string
	VersionFunc       func() string
}

var _ Interface = (*Mock)(nil)

// Config returns a config using the mock function or nil.
func (m *Mock) Config() *config.Config {
	if m.ConfigFunc != nil {
		return m.ConfigFunc()
	}
	return nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// Store returns a store using the mock function or nil.
func (m *Mock) Store(ctx context.Context) (store.Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx)
	}
	return nil, nil
}

// Geocoder returns a geocoder using the mock function or nil.
func (m *Mock) Geocoder() geocoding.Geocoder {
	if m.GeocoderFunc != nil {
		return m.GeocoderFunc()
	}
	return nil
}

// Metrics returns metrics using the mock function or nil.
func (m *Mock) Metrics() *metrics.Metrics {
	if m.MetricsFunc != nil {
		return m.MetricsFunc()
	}
	return nil
}

// ScreenOptions returns options using the mock function or extra as-is.
func (m *Mock) ScreenOptions(extra ...listingmap.Option) []listingmap.Option {
	if m.ScreenOptionsFunc != nil {
		return m.ScreenOptionsFunc(extra...)
	}
	return extra
}

// OutputFormat returns output format using the mock function or "text".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "text"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "unknown".
func (m *Mock) BuiltBy() string { return "unknown" }
