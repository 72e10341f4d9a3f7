package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSForOrigins(t *testing.T) {
	assert.True(t, CORSForOrigins(nil).AllowAll)
	assert.True(t, CORSForOrigins([]string{"*"}).AllowAll)

	cfg := CORSForOrigins([]string{"https://map.example.com"})
	assert.False(t, cfg.AllowAll)
	assert.Contains(t, cfg.AllowedMethods, http.MethodPost)
	assert.Contains(t, cfg.AllowedHeaders, RequestIDHeader)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		config     CORSConfig
		origin     string
		wantOrigin string
	}{
		{"allow all", CORSForOrigins([]string{"*"}), "https://a.example.com", "*"},
		{"listed origin", CORSForOrigins([]string{"https://a.example.com"}), "https://a.example.com", "https://a.example.com"},
		{"case insensitive", CORSForOrigins([]string{"https://A.example.com"}), "https://a.example.com", "https://a.example.com"},
		{"unlisted origin", CORSForOrigins([]string{"https://a.example.com"}), "https://evil.example.com", ""},
		{"no origin header", CORSForOrigins([]string{"https://a.example.com"}), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := CORS(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/markers", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.True(t, called)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORS(DefaultCORSConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/listings", nil)
	req.Header.Set("Origin", "https://a.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called, "preflight is answered by the middleware")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}
