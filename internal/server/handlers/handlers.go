// Package handlers provides the HTTP handlers of the listing map API.
package handlers

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/posting"
	"github.com/agentstation/listingmap/internal/server/sse"
	ws "github.com/agentstation/listingmap/internal/server/websocket"
	"github.com/agentstation/listingmap/pkg/reconciler"
	"github.com/agentstation/listingmap/pkg/surface"
)

// Snapshot is the full map state a new client starts from.
type Snapshot struct {
	Markers []reconciler.Marker `json:"markers"`
	Camera  surface.Camera      `json:"camera"`
	State   string              `json:"state"`
}

// Deps holds what the handlers need.
type Deps struct {
	Screen       listingmap.Screen
	Poster       *posting.Poster // nil disables POST /listings
	Snapshot     func() Snapshot
	Hub          *ws.Hub
	SSE          *sse.Broadcaster
	Upgrader     websocket.Upgrader
	Logger       *zerolog.Logger
	StartTime    time.Time
	MaxBodyBytes int64
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	screen         listingmap.Screen
	poster         *posting.Poster
	snapshot       func() Snapshot
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
	maxBodyBytes   int64
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	return &Handlers{
		screen:         d.Screen,
		poster:         d.Poster,
		snapshot:       d.Snapshot,
		wsHub:          d.Hub,
		sseBroadcaster: d.SSE,
		upgrader:       d.Upgrader,
		logger:         d.Logger,
		startTime:      d.StartTime,
		maxBodyBytes:   d.MaxBodyBytes,
	}
}
