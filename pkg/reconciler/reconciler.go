// Package reconciler keeps a map surface in step with a live listing query.
// Each snapshot batch is diffed against the markers already drawn and only
// the difference is applied: removals first, then in-place updates, then
// creates. Markers keep their handle for as long as their listing stays in
// the result set, so selection and open info windows survive refreshes.
package reconciler

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/listingmap/pkg/differ"
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/surface"
)

// Reconciler owns the listing id <-> marker handle mapping of one screen.
// All methods are safe for concurrent use; passes never interleave.
type Reconciler struct {
	surface   surface.Surface
	differ    differ.Differ
	labeler   Labeler
	logger    *zerolog.Logger
	onSkipped func(error)

	mu       sync.Mutex // held for a whole pass
	index    *index
	rendered map[listings.ID]listings.Listing
	released bool
}

// New creates a Reconciler drawing onto s.
func New(s surface.Surface, opts ...Option) (*Reconciler, error) {
	if s == nil {
		return nil, &errors.ValidationError{Field: "surface", Message: "cannot be nil"}
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	r := &Reconciler{
		surface:   s,
		differ:    differ.New(o.diffOpts...),
		labeler:   o.labeler,
		logger:    logging.OrDefault(o.logger),
		onSkipped: o.onSkipped,
		index:     newIndex(),
		rendered:  make(map[listings.ID]listings.Listing),
	}
	return r, nil
}

func (r *Reconciler) lock()   { r.mu.Lock() }
func (r *Reconciler) unlock() { r.mu.Unlock() }

// Reconcile applies a snapshot batch. The batch is the complete current
// result set: ids missing from it lose their marker. Malformed records are
// skipped and reported in the result; a listing that already has a marker
// keeps it unchanged when its new record is malformed. Listings at the unset
// coordinate never get a marker.
func (r *Reconciler) Reconcile(ctx context.Context, batch listings.Batch) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lock()
	defer r.unlock()
	if r.released {
		return nil, errors.ErrInactive
	}

	log := logging.FromContext(ctx)
	if log == logging.Default() {
		log = r.logger
	}

	res := newResult(batch)
	next := r.decode(batch, res, log)
	res.Changeset = r.differ.Listings(r.rendered, next)

	for _, l := range res.Changeset.Removed {
		if h, ok := r.index.remove(listingKey(l.ID)); ok {
			r.surface.RemoveMarker(h)
		}
		delete(r.rendered, l.ID)
		res.Removed = append(res.Removed, l.ID)
	}

	for _, u := range res.Changeset.Updated {
		key := listingKey(u.ID)
		h, ok := r.index.handle(key)
		if !ok {
			continue
		}
		r.rendered[u.ID] = u.New
		opts := r.markerOptions(u.New)
		if r.index.drawn[h] == opts {
			continue
		}
		r.surface.UpdateMarker(h, opts)
		r.index.put(key, h, opts)
		res.Updated = append(res.Updated, u.ID)
	}

	for _, l := range res.Changeset.Added {
		opts := r.markerOptions(l)
		h := r.surface.AddMarker(opts)
		r.index.put(listingKey(l.ID), h, opts)
		r.rendered[l.ID] = l
		res.Created = append(res.Created, l.ID)
	}

	res.finalize(len(r.rendered))
	log.Debug().
		Int("created", len(res.Created)).
		Int("updated", len(res.Updated)).
		Int("removed", len(res.Removed)).
		Int("skipped", len(res.Skipped)).
		Int("excluded", len(res.Excluded)).
		Int("markers", res.Metadata.Markers).
		Dur("took", res.Metadata.Duration).
		Msg("Reconciled listing batch")
	return res, nil
}

// decode builds the next listing set. Later duplicates of an id win.
func (r *Reconciler) decode(batch listings.Batch, res *Result, log *zerolog.Logger) map[listings.ID]listings.Listing {
	next := make(map[listings.ID]listings.Listing, len(batch.Records))
	for _, rec := range batch.Records {
		l, err := listings.Decode(rec)
		if err != nil {
			res.Skipped = append(res.Skipped, err)
			log.Warn().Err(err).Str("listing_id", string(rec.ID)).Msg("Skipping malformed listing")
			if r.onSkipped != nil {
				r.onSkipped(err)
			}
			if prev, ok := r.rendered[rec.ID]; ok {
				if _, seen := next[rec.ID]; !seen {
					next[rec.ID] = prev
				}
			}
			continue
		}
		if !l.Mappable() {
			res.Excluded = append(res.Excluded, l.ID)
			delete(next, l.ID)
			continue
		}
		next[l.ID] = l
	}
	return next
}

func (r *Reconciler) markerOptions(l listings.Listing) surface.MarkerOptions {
	title, snippet := r.labeler.Listing(l)
	return surface.MarkerOptions{
		Position: l.Position,
		Title:    title,
		Snippet:  snippet,
		Icon:     l.Icon(),
	}
}

// Lookup resolves a marker handle to what it stands for.
func (r *Reconciler) Lookup(h surface.Handle) (Key, bool) {
	r.lock()
	defer r.unlock()
	return r.index.key(h)
}

// Handle returns the marker handle of a listing.
func (r *Reconciler) Handle(id listings.ID) (surface.Handle, bool) {
	r.lock()
	defer r.unlock()
	return r.index.handle(listingKey(id))
}

// Listing returns the rendered listing with the given id.
func (r *Reconciler) Listing(id listings.ID) (listings.Listing, bool) {
	r.lock()
	defer r.unlock()
	l, ok := r.rendered[id]
	return l, ok
}

// IDs returns the ids of every listing marker, sorted.
func (r *Reconciler) IDs() []listings.ID {
	r.lock()
	defer r.unlock()
	return slices.Sorted(maps.Keys(r.rendered))
}

// Positions returns the coordinates of every listing marker.
func (r *Reconciler) Positions() []listings.Coordinate {
	r.lock()
	defer r.unlock()
	out := make([]listings.Coordinate, 0, len(r.rendered))
	for _, id := range slices.Sorted(maps.Keys(r.rendered)) {
		out = append(out, r.rendered[id].Position)
	}
	return out
}

// Markers returns every drawn marker, reserved ones included, ordered by
// handle.
func (r *Reconciler) Markers() []Marker {
	r.lock()
	defer r.unlock()
	return r.index.markers()
}

// Len returns the number of listing markers.
func (r *Reconciler) Len() int {
	r.lock()
	defer r.unlock()
	return r.index.listingCount()
}

// Reset removes every listing marker and forgets the rendered set so the
// next batch recreates markers from scratch. Reserved markers are kept.
func (r *Reconciler) Reset() {
	r.lock()
	defer r.unlock()
	if r.released {
		return
	}
	for id := range r.rendered {
		if h, ok := r.index.remove(listingKey(id)); ok {
			r.surface.RemoveMarker(h)
		}
	}
	r.rendered = make(map[listings.ID]listings.Listing)
}

// Clear wipes the whole surface, reserved markers included.
func (r *Reconciler) Clear() {
	r.lock()
	defer r.unlock()
	if r.released {
		return
	}
	r.surface.ClearAll()
	r.index = newIndex()
	r.rendered = make(map[listings.ID]listings.Listing)
}

// Release drops all bookkeeping without touching the surface, which is
// being torn down with its screen. Every later call is a no-op and
// Reconcile returns ErrInactive.
func (r *Reconciler) Release() {
	r.lock()
	defer r.unlock()
	r.released = true
	r.index = newIndex()
	r.rendered = make(map[listings.ID]listings.Listing)
}

// Released reports whether Release was called.
func (r *Reconciler) Released() bool {
	r.lock()
	defer r.unlock()
	return r.released
}
