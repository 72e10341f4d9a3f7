// Package geocoding turns free-text searches into coordinates and
// coordinates into street addresses.
package geocoding

import (
	"context"
	"strings"

	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

// Place is a resolved location.
type Place struct {
	Position listings.Coordinate `json:"position" yaml:"position"`
	Label    string              `json:"label" yaml:"label"`
}

// Geocoder resolves places. A lookup that finds nothing returns a
// NotFoundError with resource "geocode"; any other failure is a
// GeocodeError.
type Geocoder interface {
	Forward(ctx context.Context, query string) (Place, error)
	Reverse(ctx context.Context, c listings.Coordinate) (string, error)
}

// ErrEmptyQuery is returned, without any lookup, for blank queries.
var ErrEmptyQuery = &errors.ValidationError{Field: "query", Message: "cannot be empty"}

// Direction names a lookup kind in logs and metrics.
const (
	DirectionForward = "forward"
	DirectionReverse = "reverse"
)

// NormalizeQuery trims a search query and rejects blank ones.
func NormalizeQuery(query string) (string, error) {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}

// Outcome classifies a lookup result: "ok", "empty", "not_found" or "error".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyQuery):
		return "empty"
	case errors.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
