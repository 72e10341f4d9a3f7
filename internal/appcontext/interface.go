// Package appcontext provides the application context interface shared by
// every command. Commands accept it rather than the concrete App so they
// can be tested with Mock.
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

// Interface defines what commands need from the application.
type Interface interface {
	// Config returns the resolved configuration.
	Config() *config.Config

	// Logger returns the configured logger instance.
	// Commands should use this for all logging operations.
	Logger() *zerolog.Logger

	// Store returns the configured listing store, opening it on first use.
	Store(ctx context.Context) (store.Store, error)

	// Geocoder returns the configured geocoder behind its cache.
	Geocoder() geocoding.Geocoder

	// Metrics returns the process metrics.
	Metrics() *metrics.Metrics

	// ScreenOptions returns screen options built from the configuration,
	// followed by extra.
	ScreenOptions(extra ...listingmap.Option) []listingmap.Option

	// OutputFormat returns the configured output format (text, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
