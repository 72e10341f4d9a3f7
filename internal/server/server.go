// Package server serves a listing map screen to browsers. Every connected
// WebSocket client shows the same map: marker calls made by the screen are
// streamed to all of them, and the screen is visible while at least one
// is connected.
package server

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/metrics"
	"github.com/agentstation/listingmap/internal/posting"
	"github.com/agentstation/listingmap/internal/selection"
	"github.com/agentstation/listingmap/internal/server/events"
	"github.com/agentstation/listingmap/internal/server/events/adapters"
	"github.com/agentstation/listingmap/internal/server/handlers"
	"github.com/agentstation/listingmap/internal/server/sse"
	ws "github.com/agentstation/listingmap/internal/server/websocket"
	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/surface"
)

// ScreenFunc builds the screen drawn on the server's remote surface.
type ScreenFunc func(surface.Surface) (listingmap.Screen, error)

// Option configures a Server.
type Option func(*Server)

// PosterFunc builds the poster behind POST /listings. The server passes
// the callback that must run after every stored listing; build the poster
// with posting.OnPosted(onPosted).
type PosterFunc func(onPosted func(listings.Listing)) *posting.Poster

// WithPoster enables POST /listings. A nil fn leaves posting disabled.
func WithPoster(fn PosterFunc) Option {
	return func(s *Server) { s.newPoster = fn }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	screen         listingmap.Screen
	remote         *Remote
	newPoster      PosterFunc
	poster         *posting.Poster
	metrics        *metrics.Metrics
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startTime      time.Time

	mu      sync.Mutex
	viewers int
}

// New creates a server and its screen. Call Start to run the background
// services.
func New(cfg Config, newScreen ScreenFunc, opts ...Option) (*Server, error) {
	if newScreen == nil {
		return nil, &errors.ValidationError{Field: "screen", Message: "cannot be nil"}
	}

	s := &Server{config: cfg, startTime: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.broker = events.NewBroker(s.logger)
	s.remote = NewRemote(s.broker)

	screen, err := newScreen(s.remote)
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.screen = screen
	if s.newPoster != nil {
		s.poster = s.newPoster(s.posted)
	}

	s.wsHub = ws.NewHub(s.logger,
		ws.WithGreeting(s.greeting),
		ws.OnClientCount(s.presence),
	)
	s.sseBroadcaster = sse.NewBroadcaster(s.logger)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.CORSOrigins),
	}

	s.broker.Subscribe(adapters.NewWebSocketSubscriber(s.wsHub))
	s.broker.Subscribe(adapters.NewSSESubscriber(s.sseBroadcaster))

	s.connectHooks()
	s.logger.Debug().Msg("Server instance created")
	return s, nil
}

// connectHooks publishes screen hooks to the broker.
func (s *Server) connectHooks() {
	s.screen.OnListingAdded(func(l listings.Listing) {
		s.broker.Publish(events.ListingAdded, map[string]any{"listing": l})
	})
	s.screen.OnListingUpdated(func(old, updated listings.Listing) {
		s.broker.Publish(events.ListingUpdated, map[string]any{
			"old_listing": old,
			"new_listing": updated,
		})
	})
	s.screen.OnListingRemoved(func(l listings.Listing) {
		s.broker.Publish(events.ListingRemoved, map[string]any{"listing": l})
	})
	s.screen.OnNavigate(func(id listings.ID) {
		s.broker.Publish(events.ListingSelected, map[string]any{"id": id})
	})
	s.screen.OnNotice(func(n selection.Notice) {
		s.broker.Publish(events.Notice, n)
	})
	s.screen.OnStateChange(func(t subscription.Transition) {
		data := map[string]any{
			"from":       t.From.String(),
			"to":         t.To.String(),
			"generation": t.Generation,
		}
		if t.Err != nil {
			data["error"] = t.Err.Error()
		}
		s.broker.Publish(events.SubscriptionState, data)
	})
}

// posted is the creation flow's refresh signal. A held query picks the
// new listing up on its own; a paused screen resubscribes on resume.
func (s *Server) posted(l listings.Listing) {
	s.screen.RequestRefresh()
	s.broker.Publish(events.ListingPosted, map[string]any{"listing": l})
}

// snapshot is the state a new client starts from.
func (s *Server) snapshot() handlers.Snapshot {
	return handlers.Snapshot{
		Markers: s.screen.Markers(),
		Camera:  s.remote.Camera(),
		State:   s.screen.State().String(),
	}
}

func (s *Server) greeting() ws.Message {
	return ws.Message{
		Type:      string(events.Snapshot),
		Timestamp: utc.Now(),
		Data:      s.snapshot(),
	}
}

// presence shows the screen while at least one map client is connected.
// It runs on the hub loop, so calls are serialized.
func (s *Server) presence(count int) {
	s.mu.Lock()
	prev := s.viewers
	s.viewers = count
	s.mu.Unlock()

	s.metrics.ClientConnected(count - prev)
	s.broker.Publish(events.ViewersChanged, map[string]any{"viewers": count})
	switch {
	case prev == 0 && count > 0:
		s.logger.Info().Msg("First map client connected; showing screen")
		if err := s.screen.Visible(); err != nil {
			s.logger.Warn().Err(err).Msg("Screen could not be shown")
		}
	case prev > 0 && count == 0:
		s.logger.Info().Msg("Last map client left; hiding screen")
		s.screen.Hidden()
	}
}

// Viewers returns the number of connected map clients.
func (s *Server) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewers
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	for _, run := range []func(context.Context){s.broker.Run, s.wsHub.Run, s.sseBroadcaster.Run} {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			run(s.ctx)
		}()
	}
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer returns an http.Server for the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
}

// Shutdown destroys the screen and stops the background services. Open
// streams are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")

	s.screen.Destroy()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Screen returns the served screen.
func (s *Server) Screen() listingmap.Screen {
	return s.screen
}

// Remote returns the surface shared by the map clients.
func (s *Server) Remote() *Remote {
	return s.remote
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// originChecker accepts same-host requests and the listed origins. A "*"
// entry or an empty list accepts every origin.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
