package serve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap/internal/appcontext"
	"github.com/agentstation/listingmap/internal/config"
)

func TestParseConfig(t *testing.T) {
	sc := config.ServerConfig{
		Host:        "localhost",
		Port:        8080,
		PathPrefix:  "/api/v1",
		CORSOrigins: []string{"*"},
		RateLimit:   30,
		Metrics:     true,
	}

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, host string, port, rate int, origins []string, metrics bool)
	}{
		{
			name: "config values without flags",
			check: func(t *testing.T, host string, port, rate int, origins []string, metrics bool) {
				assert.Equal(t, "localhost", host)
				assert.Equal(t, 8080, port)
				assert.Equal(t, 30, rate)
				assert.Equal(t, []string{"*"}, origins)
				assert.True(t, metrics)
			},
		},
		{
			name: "flags override config",
			args: []string{"--host", "0.0.0.0", "--port", "3000", "--rate-limit", "0", "--cors-origins", "https://a.example,https://b.example", "--no-metrics"},
			check: func(t *testing.T, host string, port, rate int, origins []string, metrics bool) {
				assert.Equal(t, "0.0.0.0", host)
				assert.Equal(t, 3000, port)
				assert.Equal(t, 0, rate, "an explicit zero disables rate limiting")
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)
				assert.False(t, metrics)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(&appcontext.Mock{})
			require.NoError(t, cmd.ParseFlags(tt.args))
			cfg := parseConfig(cmd, sc)
			tt.check(t, cfg.Host, cfg.Port, cfg.RateLimit, cfg.CORSOrigins, cfg.MetricsEnabled)
			assert.Equal(t, "/api/v1", cfg.PathPrefix)
		})
	}
}
