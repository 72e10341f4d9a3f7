package surface_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

func opts(title string) surface.MarkerOptions {
	return surface.MarkerOptions{
		Position: listings.Coordinate{Lat: 1, Lng: 1},
		Title:    title,
		Icon:     listings.IconAvailable,
	}
}

func TestRecorder(t *testing.T) {
	r := surface.NewRecorder()

	a := r.AddMarker(opts("a"))
	b := r.AddMarker(opts("b"))
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, []surface.Handle{a, b}, r.Handles())

	r.UpdateMarker(a, opts("a2"))
	got, ok := r.Marker(a)
	require.True(t, ok)
	assert.Equal(t, "a2", got.Title)

	r.RemoveMarker(b)
	// unknown handles are ignored
	r.RemoveMarker(b)
	r.UpdateMarker(b, opts("x"))
	assert.Equal(t, []surface.Handle{a}, r.Handles())

	r.MoveCamera(listings.Coordinate{Lat: 2, Lng: 3}, 15)
	assert.Equal(t, surface.Camera{Center: listings.Coordinate{Lat: 2, Lng: 3}, Zoom: 15}, r.Camera())

	assert.Equal(t, 2, r.Count(surface.OpAdd))
	assert.Equal(t, 1, r.Count(surface.OpUpdate))
	assert.Equal(t, 1, r.Count(surface.OpRemove))
	assert.Equal(t, 1, r.Count(surface.OpCamera))
	assert.Len(t, r.Ops(), 5)

	r.Reset()
	assert.Empty(t, r.Ops())
	assert.Len(t, r.Markers(), 1)

	r.ClearAll()
	assert.Empty(t, r.Markers())
	assert.Equal(t, 1, r.Count(surface.OpClear))
}

func TestMulti(t *testing.T) {
	primary := surface.NewRecorder()
	mirror := surface.NewRecorder()
	// offset the mirror's handle space so ids differ between surfaces
	mirror.AddMarker(opts("pre-existing"))

	m := surface.NewMulti(primary, mirror)
	h := m.AddMarker(opts("a"))
	m.UpdateMarker(h, opts("a2"))

	p, ok := primary.Marker(h)
	require.True(t, ok)
	assert.Equal(t, "a2", p.Title)
	assert.Len(t, mirror.Markers(), 2)

	m.RemoveMarker(h)
	assert.Empty(t, primary.Markers())
	assert.Len(t, mirror.Markers(), 1)

	m.MoveCamera(listings.Coordinate{Lat: 5, Lng: 5}, 12)
	assert.Equal(t, primary.Camera(), mirror.Camera())

	m.AddMarker(opts("b"))
	m.ClearAll()
	assert.Empty(t, primary.Markers())
	assert.Empty(t, mirror.Markers())
}
