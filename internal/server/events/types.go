// Package events fans screen activity out to the realtime transports.
//
// The broker sits between the map screen (its hooks and its remote
// surface) and every transport that streams to browsers (WebSocket, SSE).
// Events are delivered to each subscriber in the order they were
// published, so a client replaying marker events ends up with the same
// markers as the server.
package events

import "github.com/agentstation/utc"

// EventType names an event on the stream.
type EventType string

// Event types.
const (
	// Marker events mirror surface calls one to one.
	MarkerAdded    EventType = "marker.added"
	MarkerUpdated  EventType = "marker.updated"
	MarkerRemoved  EventType = "marker.removed"
	MarkersCleared EventType = "markers.cleared"
	CameraMoved    EventType = "camera.moved"

	// Listing events carry the data-level changes behind marker events.
	ListingAdded    EventType = "listing.added"
	ListingUpdated  EventType = "listing.updated"
	ListingRemoved  EventType = "listing.removed"
	ListingSelected EventType = "listing.selected"
	ListingPosted   EventType = "listing.posted"

	// Screen events.
	Notice            EventType = "notice"
	SubscriptionState EventType = "subscription.state"

	// Transport events.
	ViewersChanged EventType = "viewers.changed"
	Snapshot       EventType = "markers.snapshot"
)

// Event is one entry on the stream.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp utc.Time  `json:"timestamp"`
	Data      any       `json:"data"`
}
