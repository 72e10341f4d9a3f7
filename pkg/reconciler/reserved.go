package reconciler

import (
	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// SetCurrentLocation places the current-location marker at c, moving the
// existing one in place if there is one.
func (r *Reconciler) SetCurrentLocation(c listings.Coordinate) (surface.Handle, error) {
	return r.setReserved(KindCurrentLocation, surface.MarkerOptions{
		Position: c,
		Title:    r.labeler.CurrentLocation(),
		Icon:     listings.IconCurrentLocation,
	})
}

// SetSearchResult places the search marker, replacing any earlier result.
func (r *Reconciler) SetSearchResult(c listings.Coordinate, label string) (surface.Handle, error) {
	return r.setReserved(KindSearchResult, surface.MarkerOptions{
		Position: c,
		Title:    r.labeler.SearchResult(label),
		Snippet:  label,
		Icon:     listings.IconSearchResult,
	})
}

func (r *Reconciler) setReserved(kind Kind, opts surface.MarkerOptions) (surface.Handle, error) {
	if !opts.Position.Valid() {
		return 0, errors.NewValidationError("position", opts.Position, "is out of range")
	}
	r.lock()
	defer r.unlock()
	if r.released {
		return 0, errors.ErrInactive
	}

	key := reservedKey(kind)
	if h, ok := r.index.handle(key); ok {
		if r.index.drawn[h] != opts {
			r.surface.UpdateMarker(h, opts)
			r.index.put(key, h, opts)
		}
		return h, nil
	}
	h := r.surface.AddMarker(opts)
	r.index.put(key, h, opts)
	return h, nil
}

// ClearReserved removes a reserved marker. It reports whether one existed.
func (r *Reconciler) ClearReserved(kind Kind) bool {
	if kind == KindListing {
		return false
	}
	r.lock()
	defer r.unlock()
	if r.released {
		return false
	}
	h, ok := r.index.remove(reservedKey(kind))
	if ok {
		r.surface.RemoveMarker(h)
	}
	return ok
}

// Reserved returns the handle and options of a reserved marker.
func (r *Reconciler) Reserved(kind Kind) (surface.Handle, surface.MarkerOptions, bool) {
	r.lock()
	defer r.unlock()
	h, ok := r.index.handle(reservedKey(kind))
	if !ok {
		return 0, surface.MarkerOptions{}, false
	}
	return h, r.index.drawn[h], true
}
