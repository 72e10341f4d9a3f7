package listingmap

import (
	"sync"

	"github.com/agentstation/listingmap/internal/selection"
	"github.com/agentstation/listingmap/internal/subscription"
	"github.com/agentstation/listingmap/pkg/differ"
	"github.com/agentstation/listingmap/pkg/listings"
)

// Hook function types for screen events
type (
	// ListingAddedHook is called when a listing gets a marker
	ListingAddedHook func(l listings.Listing)

	// ListingUpdatedHook is called when a listing with a marker changes
	ListingUpdatedHook func(old, updated listings.Listing)

	// ListingRemovedHook is called when a listing loses its marker
	ListingRemovedHook func(l listings.Listing)

	// NavigateHook is called when a listing marker is tapped
	NavigateHook func(id listings.ID)

	// NoticeHook is called for every non-fatal notice
	NoticeHook func(n selection.Notice)

	// StateChangeHook is called after every subscription transition
	StateChangeHook func(t subscription.Transition)
)

// hooks manages event callbacks of a screen
type hooks struct {
	mu               sync.RWMutex
	onListingAdded   []ListingAddedHook
	onListingUpdated []ListingUpdatedHook
	onListingRemoved []ListingRemovedHook
	onNavigate       []NavigateHook
	onNotice         []NoticeHook
	onStateChange    []StateChangeHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnListingAdded registers a callback for new markers
func (h *hooks) OnListingAdded(fn ListingAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onListingAdded = append(h.onListingAdded, fn)
}

// OnListingUpdated registers a callback for changed listings
func (h *hooks) OnListingUpdated(fn ListingUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onListingUpdated = append(h.onListingUpdated, fn)
}

// OnListingRemoved registers a callback for removed markers
func (h *hooks) OnListingRemoved(fn ListingRemovedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onListingRemoved = append(h.onListingRemoved, fn)
}

// OnNavigate registers a callback for listing taps
func (h *hooks) OnNavigate(fn NavigateHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNavigate = append(h.onNavigate, fn)
}

// OnNotice registers a callback for notices
func (h *hooks) OnNotice(fn NoticeHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNotice = append(h.onNotice, fn)
}

// OnStateChange registers a callback for subscription transitions
func (h *hooks) OnStateChange(fn StateChangeHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStateChange = append(h.onStateChange, fn)
}

// triggerChangeset reports the data-level diff of one pass
func (h *hooks) triggerChangeset(cs *differ.Changeset) {
	if cs == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, l := range cs.Removed {
		for _, fn := range h.onListingRemoved {
			fn(l)
		}
	}
	for _, u := range cs.Updated {
		for _, fn := range h.onListingUpdated {
			fn(u.Existing, u.New)
		}
	}
	for _, l := range cs.Added {
		for _, fn := range h.onListingAdded {
			fn(l)
		}
	}
}

func (h *hooks) triggerNavigate(id listings.ID) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onNavigate {
		fn(id)
	}
}

func (h *hooks) triggerNotice(n selection.Notice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onNotice {
		fn(n)
	}
}

func (h *hooks) triggerStateChange(t subscription.Transition) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onStateChange {
		fn(t)
	}
}
