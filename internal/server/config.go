package server

import (
	"net"
	"strconv"
	"time"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix   string
	MaxBodyBytes int64

	// CORS settings; "*" or an empty list allows every origin. The same
	// list gates WebSocket upgrades.
	CORSOrigins []string

	// Write requests per minute per IP (0 to disable)
	RateLimit int

	// HTTP timeouts. There is no write timeout: the realtime streams stay
	// open for as long as the map is shown.
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              8080,
		PathPrefix:        "/api/v1",
		MaxBodyBytes:      1 << 20,
		CORSOrigins:       []string{"*"},
		RateLimit:         30,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MetricsEnabled:    true,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
