// Package surface defines the boundary between the engine and whatever draws
// the map: a native SDK, a browser over a websocket, or the in-memory
// Recorder used by tests and headless runs.
package surface

import (
	"github.com/agentstation/listingmap/pkg/listings"
)

// Handle identifies a marker on a surface. Handles are assigned by the
// surface and carry no meaning beyond identity; zero is never a valid handle.
type Handle uint64

// MarkerOptions describes how a marker is drawn.
type MarkerOptions struct {
	Position listings.Coordinate `json:"position"`
	Title    string              `json:"title"`
	Snippet  string              `json:"snippet,omitempty"`
	Icon     listings.Icon       `json:"icon"`
}

// Camera is the visible map viewport.
type Camera struct {
	Center listings.Coordinate `json:"center"`
	Zoom   float64             `json:"zoom"`
}

// Surface is the rendering boundary. Implementations must apply calls in
// the order they are made.
type Surface interface {
	// AddMarker draws a new marker and returns its handle.
	AddMarker(opts MarkerOptions) Handle
	// UpdateMarker redraws an existing marker in place.
	UpdateMarker(h Handle, opts MarkerOptions)
	// RemoveMarker erases a marker. Unknown handles are ignored.
	RemoveMarker(h Handle)
	// ClearAll erases every marker.
	ClearAll()
	// MoveCamera recenters the viewport.
	MoveCamera(center listings.Coordinate, zoom float64)
}

// OpKind names a surface call.
type OpKind string

// Surface calls.
const (
	OpAdd    OpKind = "add"
	OpUpdate OpKind = "update"
	OpRemove OpKind = "remove"
	OpClear  OpKind = "clear"
	OpCamera OpKind = "camera"
)

// Op is one recorded or streamed surface call.
type Op struct {
	Kind    OpKind         `json:"kind"`
	Handle  Handle         `json:"handle,omitempty"`
	Options *MarkerOptions `json:"options,omitempty"`
	Camera  *Camera        `json:"camera,omitempty"`
}
