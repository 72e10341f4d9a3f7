package reconciler

import (
	"cmp"
	"slices"

	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// Kind separates listing markers from the reserved markers that live
// outside the listing id space.
type Kind uint8

const (
	// KindListing is a marker owned by a listing id.
	KindListing Kind = iota
	// KindCurrentLocation is the single "you are here" marker.
	KindCurrentLocation
	// KindSearchResult is the single search result marker.
	KindSearchResult
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindListing:
		return "listing"
	case KindCurrentLocation:
		return "current_location"
	case KindSearchResult:
		return "search_result"
	default:
		return "unknown"
	}
}

// Key identifies what a marker stands for. Reserved keys have an empty ID,
// so no listing id can collide with them.
type Key struct {
	Kind Kind
	ID   listings.ID
}

// Reserved reports whether k is a non-listing marker.
func (k Key) Reserved() bool {
	return k.Kind != KindListing
}

func listingKey(id listings.ID) Key {
	return Key{Kind: KindListing, ID: id}
}

func reservedKey(kind Kind) Key {
	return Key{Kind: kind}
}

// index is the bidirectional key <-> handle map.
type index struct {
	byKey    map[Key]surface.Handle
	byHandle map[surface.Handle]Key
	drawn    map[surface.Handle]surface.MarkerOptions
}

func newIndex() *index {
	return &index{
		byKey:    make(map[Key]surface.Handle),
		byHandle: make(map[surface.Handle]Key),
		drawn:    make(map[surface.Handle]surface.MarkerOptions),
	}
}

func (ix *index) put(k Key, h surface.Handle, opts surface.MarkerOptions) {
	ix.byKey[k] = h
	ix.byHandle[h] = k
	ix.drawn[h] = opts
}

func (ix *index) handle(k Key) (surface.Handle, bool) {
	h, ok := ix.byKey[k]
	return h, ok
}

func (ix *index) key(h surface.Handle) (Key, bool) {
	k, ok := ix.byHandle[h]
	return k, ok
}

func (ix *index) remove(k Key) (surface.Handle, bool) {
	h, ok := ix.byKey[k]
	if !ok {
		return 0, false
	}
	delete(ix.byKey, k)
	delete(ix.byHandle, h)
	delete(ix.drawn, h)
	return h, true
}

func (ix *index) listingCount() int {
	n := 0
	for k := range ix.byKey {
		if !k.Reserved() {
			n++
		}
	}
	return n
}

// Marker is one drawn marker as the reconciler tracks it.
type Marker struct {
	Handle  surface.Handle        `json:"handle"`
	Kind    string                `json:"kind"`
	ID      listings.ID           `json:"id,omitempty"`
	Options surface.MarkerOptions `json:"options"`
}

func (ix *index) markers() []Marker {
	out := make([]Marker, 0, len(ix.byHandle))
	for h, k := range ix.byHandle {
		out = append(out, Marker{Handle: h, Kind: k.Kind.String(), ID: k.ID, Options: ix.drawn[h]})
	}
	slices.SortFunc(out, func(a, b Marker) int { return cmp.Compare(a.Handle, b.Handle) })
	return out
}
