// Package selection maps marker taps back to listings and routes
// non-fatal notices to the UI. It never fetches listing details itself;
// the navigation target does.
package selection

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/reconciler"
	"github.com/agentstation/listingmap/pkg/surface"
)

// Resolver maps a marker handle to what it stands for.
type Resolver interface {
	Lookup(h surface.Handle) (reconciler.Key, bool)
}

// Navigator opens the details view of a listing.
type Navigator interface {
	Navigate(id listings.ID)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(id listings.ID)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(id listings.ID) { f(id) }

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Coordinator handles marker taps and notices for one screen.
type Coordinator struct {
	resolver Resolver
	logger   *zerolog.Logger

	mu        sync.RWMutex
	navigator Navigator
	notifier  Notifier
}

// New creates a Coordinator. The navigator and notifier may be nil.
func New(r Resolver, nav Navigator, notifier Notifier, logger *zerolog.Logger) *Coordinator {
	return &Coordinator{
		resolver:  r,
		navigator: nav,
		notifier:  notifier,
		logger:    logging.OrDefault(logger),
	}
}

// SetNavigator replaces the navigator.
func (c *Coordinator) SetNavigator(nav Navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigator = nav
}

// SetNotifier replaces the notifier.
func (c *Coordinator) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// OnMarkerClicked resolves a tapped marker. For a listing marker it emits a
// navigation event and returns the id with true, which consumes the tap.
// Reserved and unknown markers return false so the surface applies its
// default behaviour.
func (c *Coordinator) OnMarkerClicked(h surface.Handle) (listings.ID, bool) {
	key, ok := c.resolver.Lookup(h)
	if !ok || key.Reserved() {
		return "", false
	}
	c.mu.RLock()
	nav := c.navigator
	c.mu.RUnlock()

	c.logger.Debug().Str("listing_id", string(key.ID)).Uint64("handle", uint64(h)).Msg("Marker selected")
	if nav != nil {
		nav.Navigate(key.ID)
	}
	return key.ID, true
}

// Notify delivers a notice.
func (c *Coordinator) Notify(n Notice) {
	c.mu.RLock()
	notifier := c.notifier
	c.mu.RUnlock()

	c.logger.Info().Str("kind", string(n.Kind)).Err(n.Err).Msg(n.Message)
	if notifier != nil {
		notifier.Notify(n)
	}
}

// Report classifies err and delivers it as a notice.
func (c *Coordinator) Report(err error) {
	if err == nil {
		return
	}
	c.Notify(NoticeFor(err))
}
