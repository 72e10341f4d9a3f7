package geocoding

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

// miss records a lookup that found nothing, so repeated misses stay local.
type miss struct{}

// Cached memoizes another Geocoder for a TTL. Misses are cached too;
// failures are not.
type Cached struct {
	next   Geocoder
	cache  *cache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ Geocoder = (*Cached)(nil)

// NewCached wraps next. A zero ttl uses constants.GeocodeCacheTTL.
func NewCached(next Geocoder, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = constants.GeocodeCacheTTL
	}
	return &Cached{
		next:  next,
		cache: cache.New(ttl, constants.CacheCleanupInterval),
	}
}

// Forward implements Geocoder.
func (c *Cached) Forward(ctx context.Context, query string) (Place, error) {
	q, err := NormalizeQuery(query)
	if err != nil {
		return Place{}, err
	}
	key := "f:" + strings.ToLower(q)
	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		if place, ok := v.(Place); ok {
			return place, nil
		}
		return Place{}, errors.NewGeocodeNotFound(q)
	}
	c.misses.Add(1)

	place, err := c.next.Forward(ctx, q)
	switch {
	case err == nil:
		c.cache.SetDefault(key, place)
	case errors.IsNotFound(err):
		c.cache.SetDefault(key, miss{})
	}
	return place, err
}

// Reverse implements Geocoder. Coordinates are keyed at five decimals,
// about one metre.
func (c *Cached) Reverse(ctx context.Context, at listings.Coordinate) (string, error) {
	key := fmt.Sprintf("r:%.5f,%.5f", at.Lat, at.Lng)
	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		if addr, ok := v.(string); ok {
			return addr, nil
		}
		return "", errors.NewGeocodeNotFound(at.String())
	}
	c.misses.Add(1)

	addr, err := c.next.Reverse(ctx, at)
	switch {
	case err == nil:
		c.cache.SetDefault(key, addr)
	case errors.IsNotFound(err):
		c.cache.SetDefault(key, miss{})
	}
	return addr, err
}

// Stats returns cache hit and miss counts.
func (c *Cached) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}

// Flush empties the cache.
func (c *Cached) Flush() {
	c.cache.Flush()
}
