package geocoding

import (
	"context"

	"github.com/agentstation/listingmap/pkg/listings"
)

// Observer is told the direction and Outcome of every lookup.
type Observer func(direction, outcome string)

// Observed reports each lookup of a Geocoder to an Observer.
type Observed struct {
	next    Geocoder
	observe Observer
}

var _ Geocoder = (*Observed)(nil)

// NewObserved wraps next.
func NewObserved(next Geocoder, observe Observer) *Observed {
	return &Observed{next: next, observe: observe}
}

// Forward implements Geocoder.
func (o *Observed) Forward(ctx context.Context, query string) (Place, error) {
	p, err := o.next.Forward(ctx, query)
	o.observe(DirectionForward, Outcome(err))
	return p, err
}

// Reverse implements Geocoder.
func (o *Observed) Reverse(ctx context.Context, c listings.Coordinate) (string, error) {
	addr, err := o.next.Reverse(ctx, c)
	o.observe(DirectionReverse, Outcome(err))
	return addr, err
}
