// Package posting is the listing creation flow: validate a draft, name its
// location, store it, and tell the map its markers are stale.
package posting

import (
	"context"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
)

// Poster creates listings.
type Poster struct {
	store    store.Store
	geocoder geocoding.Geocoder
	onPosted []func(listings.Listing)
	newID    func() listings.ID
	now      func() utc.Time
	logger   *zerolog.Logger
}

// Option configures a Poster.
type Option func(*Poster)

// WithGeocoder names new listings by reverse geocoding their position.
func WithGeocoder(g geocoding.Geocoder) Option {
	return func(p *Poster) { p.geocoder = g }
}

// OnPosted registers a callback run after every successful create. The map
// screen uses it as its refresh-requested signal.
func OnPosted(fn func(listings.Listing)) Option {
	return func(p *Poster) { p.onPosted = append(p.onPosted, fn) }
}

// WithIDFunc replaces the uuid generator.
func WithIDFunc(fn func() listings.ID) Option {
	return func(p *Poster) { p.newID = fn }
}

// WithClock replaces the creation time source.
func WithClock(fn func() utc.Time) Option {
	return func(p *Poster) { p.now = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(p *Poster) { p.logger = l }
}

// New creates a Poster writing to s.
func New(s store.Store, opts ...Option) *Poster {
	p := &Poster{
		store: s,
		newID: func() listings.ID { return listings.ID(uuid.NewString()) },
		now:   utc.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDefault(p.logger)
	return p
}

// Post validates and stores a draft and returns the stored listing. A
// failed address lookup is not an error: the listing is stored with
// listings.AddressNotFound.
func (p *Poster) Post(ctx context.Context, d listings.Draft) (listings.Listing, error) {
	if err := d.Validate(); err != nil {
		return listings.Listing{}, err
	}

	address := p.address(ctx, *d.Position)
	l := d.Listing(p.newID(), address, p.now())

	id, err := p.store.Create(ctx, l)
	if err != nil {
		if !errors.IsValidationError(err) {
			err = errors.WrapTransport("create", err)
		}
		return listings.Listing{}, err
	}
	l.ID = id

	p.logger.Info().Str("listing_id", string(id)).Str("address", address).Msg("Posted listing")
	for _, fn := range p.onPosted {
		fn(l)
	}
	return l, nil
}

func (p *Poster) address(ctx context.Context, at listings.Coordinate) string {
	if p.geocoder == nil {
		return listings.AddressNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, constants.GeocodeTimeout)
	defer cancel()
	addr, err := p.geocoder.Reverse(ctx, at)
	if err != nil {
		p.logger.Debug().Err(err).Stringer("position", at).Msg("Reverse geocode failed")
		return listings.AddressNotFound
	}
	return addr
}
