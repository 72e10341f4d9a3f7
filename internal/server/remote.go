package server

import (
	"github.com/agentstation/listingmap/internal/server/events"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// Publisher receives surface events.
type Publisher interface {
	Publish(eventType events.EventType, data any)
}

// Remote is the map surface shared by every connected browser. It keeps
// the authoritative marker set in a Recorder, which assigns the handles,
// and publishes each applied call as a surface.Op. Calls the Recorder
// ignores, such as an update of an unknown handle, are not published.
type Remote struct {
	rec *surface.Recorder
	pub Publisher
}

var _ surface.Surface = (*Remote)(nil)

// NewRemote returns an empty Remote publishing to pub.
func NewRemote(pub Publisher) *Remote {
	return &Remote{rec: surface.NewRecorder(), pub: pub}
}

// AddMarker implements surface.Surface.
func (r *Remote) AddMarker(opts surface.MarkerOptions) surface.Handle {
	h := r.rec.AddMarker(opts)
	r.pub.Publish(events.MarkerAdded, surface.Op{Kind: surface.OpAdd, Handle: h, Options: &opts})
	return h
}

// UpdateMarker implements surface.Surface.
func (r *Remote) UpdateMarker(h surface.Handle, opts surface.MarkerOptions) {
	if _, ok := r.rec.Marker(h); !ok {
		return
	}
	r.rec.UpdateMarker(h, opts)
	r.pub.Publish(events.MarkerUpdated, surface.Op{Kind: surface.OpUpdate, Handle: h, Options: &opts})
}

// RemoveMarker implements surface.Surface.
func (r *Remote) RemoveMarker(h surface.Handle) {
	if _, ok := r.rec.Marker(h); !ok {
		return
	}
	r.rec.RemoveMarker(h)
	r.pub.Publish(events.MarkerRemoved, surface.Op{Kind: surface.OpRemove, Handle: h})
}

// ClearAll implements surface.Surface.
func (r *Remote) ClearAll() {
	r.rec.ClearAll()
	r.pub.Publish(events.MarkersCleared, surface.Op{Kind: surface.OpClear})
}

// MoveCamera implements surface.Surface.
func (r *Remote) MoveCamera(center listings.Coordinate, zoom float64) {
	r.rec.MoveCamera(center, zoom)
	cam := surface.Camera{Center: center, Zoom: zoom}
	r.pub.Publish(events.CameraMoved, surface.Op{Kind: surface.OpCamera, Camera: &cam})
}

// Camera returns the last camera position.
func (r *Remote) Camera() surface.Camera {
	return r.rec.Camera()
}

// Len returns the number of drawn markers.
func (r *Remote) Len() int {
	return len(r.rec.Handles())
}
