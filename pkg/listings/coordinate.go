package listings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/agentstation/listingmap/pkg/errors"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// IsUnset reports whether c is the (0,0) sentinel the store uses for a
// listing that was never placed on the map. Both components must be zero;
// a listing on the equator or the prime meridian alone is still mapped.
func (c Coordinate) IsUnset() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Valid reports whether c is finite and within WGS84 bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Point returns c as an orb point (longitude first).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// FromPoint converts an orb point back to a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

// DistanceTo returns the geodesic distance to o in metres.
func (c Coordinate) DistanceTo(o Coordinate) float64 {
	return geo.Distance(c.Point(), o.Point())
}

// String formats c as "lat,lng".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseCoordinate parses "lat,lng".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, errors.NewValidationError("coordinate", s, "expected lat,lng")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, errors.NewValidationError("coordinate", s, fmt.Sprintf("latitude: %v", err))
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, errors.NewValidationError("coordinate", s, fmt.Sprintf("longitude: %v", err))
	}
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return Coordinate{}, errors.NewValidationError("coordinate", s, "out of range")
	}
	return c, nil
}

// Bound returns the bounding box of the given coordinates. ok is false when
// coords is empty.
func Bound(coords []Coordinate) (orb.Bound, bool) {
	if len(coords) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, 0, len(coords))
	for _, c := range coords {
		mp = append(mp, c.Point())
	}
	return mp.Bound(), true
}
