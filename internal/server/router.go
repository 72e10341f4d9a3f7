package server

import (
	"net/http"

	"github.com/agentstation/listingmap/internal/server/handlers"
	"github.com/agentstation/listingmap/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(handlers.Deps{
		Screen:       s.screen,
		Poster:       s.poster,
		Snapshot:     s.snapshot,
		Hub:          s.wsHub,
		SSE:          s.sseBroadcaster,
		Upgrader:     s.upgrader,
		Logger:       s.logger,
		StartTime:    s.startTime,
		MaxBodyBytes: s.config.MaxBodyBytes,
	})

	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Map state and interaction
	mux.HandleFunc("GET "+prefix+"/markers", h.HandleMarkers)
	mux.HandleFunc("POST "+prefix+"/markers/{handle}/click", h.HandleMarkerClick)
	mux.HandleFunc("POST "+prefix+"/camera/fit", h.HandleFit)

	// Listings
	mux.HandleFunc("GET "+prefix+"/listings/{id}", h.HandleGetListing)
	mux.HandleFunc("POST "+prefix+"/listings", h.HandlePostListing)

	// Search
	mux.HandleFunc("GET "+prefix+"/geocode", h.HandleGeocode)
	mux.HandleFunc("DELETE "+prefix+"/geocode", h.HandleClearSearch)

	// Real-time endpoints
	mux.HandleFunc("GET "+prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	if s.config.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// applyMiddleware wraps handler with the middleware chain. Metrics sit
// directly on the mux so they see the matched route.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
		middleware.CORS(middleware.CORSForOrigins(cfg.CORSOrigins)),
	}
	if cfg.RateLimit > 0 {
		chain = append(chain, middleware.RateLimit(middleware.NewRateLimiter(s.ctx, cfg.RateLimit, s.logger)))
	}
	if s.metrics != nil {
		chain = append(chain, middleware.Metrics(s.metrics.ObserveHTTP))
	}

	return middleware.Chain(chain...)(handler)
}
