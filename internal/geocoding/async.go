package geocoding

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/listings"
)

// Async runs lookups off the caller's goroutine and reports through a
// callback. Blank forward queries are answered at once with ErrEmptyQuery
// and never reach the geocoder.
type Async struct {
	g       Geocoder
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps g. A zero timeout uses constants.GeocodeTimeout.
func NewAsync(g Geocoder, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = constants.GeocodeTimeout
	}
	return &Async{g: g, timeout: timeout}
}

// Forward starts a forward lookup.
func (a *Async) Forward(ctx context.Context, query string, done func(Place, error)) {
	q, err := NormalizeQuery(query)
	if err != nil {
		done(Place{}, err)
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		done(a.g.Forward(ctx, q))
	}()
}

// Reverse starts a reverse lookup.
func (a *Async) Reverse(ctx context.Context, c listings.Coordinate, done func(string, error)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		done(a.g.Reverse(ctx, c))
	}()
}

// Wait blocks until every started lookup has reported.
func (a *Async) Wait() {
	a.wg.Wait()
}
