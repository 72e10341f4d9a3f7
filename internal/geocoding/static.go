package geocoding

import (
	"context"
	"strings"

	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

// reverseRadius is how close a coordinate must be to a known place for
// Static.Reverse to name it.
const reverseRadius = 1500.0 // metres

// Static resolves against a fixed table. It serves offline runs and tests.
type Static struct {
	places []Place
}

var _ Geocoder = (*Static)(nil)

// NewStatic returns a Static geocoder over places.
func NewStatic(places ...Place) *Static {
	return &Static{places: places}
}

// DarEsSalaam is a small table of Dar es Salaam neighbourhoods.
func DarEsSalaam() *Static {
	return NewStatic(
		Place{Label: "Kariakoo", Position: listings.Coordinate{Lat: -6.8167, Lng: 39.2750}},
		Place{Label: "Sinza", Position: listings.Coordinate{Lat: -6.7735, Lng: 39.2232}},
		Place{Label: "Mikocheni", Position: listings.Coordinate{Lat: -6.7600, Lng: 39.2500}},
		Place{Label: "Masaki", Position: listings.Coordinate{Lat: -6.7478, Lng: 39.2797}},
		Place{Label: "Posta", Position: listings.Coordinate{Lat: -6.8161, Lng: 39.2894}},
		Place{Label: "Mbezi Beach", Position: listings.Coordinate{Lat: -6.7200, Lng: 39.2200}},
	)
}

// Forward implements Geocoder. Labels match case-insensitively, either
// exactly or as the query's prefix.
func (s *Static) Forward(ctx context.Context, query string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}
	q, err := NormalizeQuery(query)
	if err != nil {
		return Place{}, err
	}
	lq := strings.ToLower(q)
	for _, p := range s.places {
		label := strings.ToLower(p.Label)
		if lq == label || strings.HasPrefix(lq, label+",") || strings.HasPrefix(lq, label+" ") {
			return p, nil
		}
	}
	return Place{}, errors.NewGeocodeNotFound(q)
}

// Reverse implements Geocoder. It names the nearest place within range.
func (s *Static) Reverse(ctx context.Context, c listings.Coordinate) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	best, bestDist := "", reverseRadius
	for _, p := range s.places {
		if d := p.Position.DistanceTo(c); d <= bestDist {
			best, bestDist = p.Label, d
		}
	}
	if best == "" {
		return "", errors.NewGeocodeNotFound(c.String())
	}
	return best, nil
}
