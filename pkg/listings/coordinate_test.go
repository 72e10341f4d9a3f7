package listings_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap/pkg/listings"
)

func TestCoordinateIsUnset(t *testing.T) {
	assert.True(t, listings.Coordinate{}.IsUnset())
	assert.False(t, listings.Coordinate{Lat: 0, Lng: 39.2}.IsUnset())
	assert.False(t, listings.Coordinate{Lat: -6.8, Lng: 0}.IsUnset())
}

func TestCoordinateValid(t *testing.T) {
	assert.True(t, listings.Coordinate{Lat: -90, Lng: 180}.Valid())
	assert.False(t, listings.Coordinate{Lat: 90.1}.Valid())
	assert.False(t, listings.Coordinate{Lng: -180.5}.Valid())
	assert.False(t, listings.Coordinate{Lat: math.NaN()}.Valid())
	assert.False(t, listings.Coordinate{Lng: math.Inf(1)}.Valid())
}

func TestCoordinatePointRoundTrip(t *testing.T) {
	c := listings.Coordinate{Lat: -6.7924, Lng: 39.2083}
	p := c.Point()
	assert.Equal(t, 39.2083, p.Lon())
	assert.Equal(t, -6.7924, p.Lat())
	assert.Equal(t, c, listings.FromPoint(p))
}

func TestCoordinateDistance(t *testing.T) {
	a := listings.Coordinate{Lat: 0, Lng: 1}
	b := listings.Coordinate{Lat: 0, Lng: 2}
	// one degree of longitude on the equator
	assert.InDelta(t, 111_195, a.DistanceTo(b), 500)
	assert.Zero(t, a.DistanceTo(a))
}

func TestParseCoordinate(t *testing.T) {
	c, err := listings.ParseCoordinate(" -6.8, 39.28 ")
	require.NoError(t, err)
	assert.Equal(t, listings.Coordinate{Lat: -6.8, Lng: 39.28}, c)
	assert.Equal(t, "-6.8,39.28", c.String())

	for _, bad := range []string{"", "1", "a,b", "1,x", "100,0"} {
		_, err := listings.ParseCoordinate(bad)
		assert.Error(t, err, bad)
	}
}

func TestBound(t *testing.T) {
	_, ok := listings.Bound(nil)
	assert.False(t, ok)

	b, ok := listings.Bound([]listings.Coordinate{{Lat: 1, Lng: 2}, {Lat: -1, Lng: 5}})
	require.True(t, ok)
	assert.Equal(t, listings.Coordinate{Lat: 0, Lng: 3.5}, listings.FromPoint(b.Center()))
}
