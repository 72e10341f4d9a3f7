package geocoding

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/internal/transport"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
)

// DefaultNominatimURL is the public OpenStreetMap instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim is a Geocoder backed by a Nominatim HTTP API.
type Nominatim struct {
	client  *transport.Client
	baseURL string
	logger  *zerolog.Logger
}

var _ Geocoder = (*Nominatim)(nil)

// NominatimOption configures a Nominatim geocoder.
type NominatimOption func(*Nominatim)

// WithBaseURL points the geocoder at another instance.
func WithBaseURL(u string) NominatimOption {
	return func(n *Nominatim) {
		if u != "" {
			n.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTransport replaces the HTTP client.
func WithTransport(c *transport.Client) NominatimOption {
	return func(n *Nominatim) { n.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) NominatimOption {
	return func(n *Nominatim) { n.logger = l }
}

// NewNominatim creates a Nominatim geocoder.
func NewNominatim(opts ...NominatimOption) *Nominatim {
	n := &Nominatim{baseURL: DefaultNominatimURL}
	for _, opt := range opts {
		opt(n)
	}
	if n.client == nil {
		n.client = transport.New()
	}
	n.logger = logging.OrDefault(n.logger)
	return n
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseResult struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Forward implements Geocoder.
func (n *Nominatim) Forward(ctx context.Context, query string) (Place, error) {
	q, err := NormalizeQuery(query)
	if err != nil {
		return Place{}, err
	}

	resp, err := n.client.Get(ctx, n.baseURL+"/search", url.Values{
		"q":      {q},
		"format": {"json"},
		"limit":  {"1"},
	})
	if err != nil {
		return Place{}, errors.NewGeocodeError(DirectionForward, q, err)
	}
	var results []searchResult
	if err := transport.DecodeResponse(resp, &results); err != nil {
		return Place{}, errors.NewGeocodeError(DirectionForward, q, err)
	}
	if len(results) == 0 {
		n.logger.Debug().Str("query", q).Msg("No geocode results")
		return Place{}, errors.NewGeocodeNotFound(q)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Place{}, errors.NewGeocodeError(DirectionForward, q, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Place{}, errors.NewGeocodeError(DirectionForward, q, err)
	}
	place := Place{Position: listings.Coordinate{Lat: lat, Lng: lng}, Label: results[0].DisplayName}
	if place.Label == "" {
		place.Label = q
	}
	n.logger.Debug().Str("query", q).Stringer("position", place.Position).Msg("Geocoded query")
	return place, nil
}

// Reverse implements Geocoder.
func (n *Nominatim) Reverse(ctx context.Context, c listings.Coordinate) (string, error) {
	query := c.String()
	if !c.Valid() {
		return "", errors.NewValidationError("coordinate", query, "is out of range")
	}

	resp, err := n.client.Get(ctx, n.baseURL+"/reverse", url.Values{
		"lat":    {strconv.FormatFloat(c.Lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(c.Lng, 'f', -1, 64)},
		"format": {"json"},
	})
	if err != nil {
		return "", errors.NewGeocodeError(DirectionReverse, query, err)
	}
	var result reverseResult
	if err := transport.DecodeResponse(resp, &result); err != nil {
		return "", errors.NewGeocodeError(DirectionReverse, query, err)
	}
	if result.Error != "" || result.DisplayName == "" {
		return "", errors.NewGeocodeNotFound(query)
	}
	return result.DisplayName, nil
}
