// Package listings defines the rental listing model shared by the store
// adapters, the marker reconciler and the posting flow, together with the
// codec for the persisted document schema.
package listings

import (
	"github.com/agentstation/utc"
)

// ID identifies a listing. Two listings are the same entity iff their ids
// are equal; an id never changes once assigned.
type ID string

// String returns the id as a plain string.
func (id ID) String() string { return string(id) }

// Icon selects the pin artwork for a listing marker.
type Icon string

// Pin artwork.
const (
	IconAvailable       Icon = "available"
	IconOccupied        Icon = "occupied"
	IconCurrentLocation Icon = "current_location"
	IconSearchResult    Icon = "search_result"
)

// Listing is a rentable unit as rendered on the map. The engine never
// mutates a Listing; it only decodes and renders it.
type Listing struct {
	ID          ID         `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Price       float64    `json:"price" yaml:"price"`
	Position    Coordinate `json:"position" yaml:"position"`
	Address     string     `json:"address,omitempty" yaml:"address,omitempty"`
	PostedBy    string     `json:"postedBy,omitempty" yaml:"postedBy,omitempty"`
	Available   bool       `json:"available" yaml:"available"`
	Amenities   []string   `json:"amenities,omitempty" yaml:"amenities,omitempty"`
	Images      []string   `json:"images,omitempty" yaml:"images,omitempty"`
	CreatedAt   utc.Time   `json:"createdAt" yaml:"createdAt"`
}

// Mappable reports whether the listing has a placed coordinate.
func (l Listing) Mappable() bool {
	return !l.Position.IsUnset()
}

// Icon returns the pin for the listing's availability.
func (l Listing) Icon() Icon {
	if l.Available {
		return IconAvailable
	}
	return IconOccupied
}
