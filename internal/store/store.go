// Package store defines the Listing Store Client boundary: a live query
// over available listings, a one-shot fetch and a create.
package store

import (
	"context"

	"github.com/agentstation/listingmap/pkg/listings"
)

// Store is a remote listing collection.
type Store interface {
	// Subscribe opens a live query. The handler receives the complete
	// matching set once after opening and again after every change, until
	// the subscription is stopped or fails. A failure is delivered once
	// through OnError and ends the subscription.
	Subscribe(ctx context.Context, filter Filter, h Handler) (Subscription, error)

	// FetchOne reads a single listing. A missing id yields a NotFoundError.
	FetchOne(ctx context.Context, id listings.ID) (listings.Record, error)

	// Create stores a new listing and returns its id. A listing without an
	// id is assigned a fresh one.
	Create(ctx context.Context, l listings.Listing) (listings.ID, error)
}

// Filter restricts a live query.
type Filter struct {
	AvailableOnly bool
}

// Available matches the listings shown on the map.
var Available = Filter{AvailableOnly: true}

// Match reports whether raw fields pass the filter. Records with a missing
// or mistyped availability flag do not match an availability filter.
func (f Filter) Match(fields map[string]any) bool {
	if !f.AvailableOnly {
		return true
	}
	v, _ := fields[listings.FieldAvailable].(bool)
	return v
}

// Handler receives the events of one live query.
type Handler struct {
	OnBatch func(listings.Batch)
	OnError func(error)
}

// Deliver calls OnBatch if set.
func (h Handler) Deliver(b listings.Batch) {
	if h.OnBatch != nil {
		h.OnBatch(b)
	}
}

// Fail calls OnError if set.
func (h Handler) Fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Subscription is the handle of a live query.
type Subscription interface {
	// Stop releases the query. It is safe to call more than once.
	Stop()
}

// StopFunc adapts a function to Subscription.
type StopFunc func()

// Stop implements Subscription.
func (f StopFunc) Stop() { f() }
