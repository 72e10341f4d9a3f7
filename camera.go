package listingmap

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/agentstation/listingmap/pkg/listings"
	"github.com/agentstation/listingmap/pkg/surface"
)

// minFitZoom keeps a fitted camera from zooming out to the whole world.
const minFitZoom = 2.0

// fitCamera frames positions. A single position, or several at the same
// spot, gets maxZoom.
func fitCamera(positions []listings.Coordinate, maxZoom float64) (surface.Camera, bool) {
	if len(positions) == 0 {
		return surface.Camera{}, false
	}
	mp := make(orb.MultiPoint, 0, len(positions))
	for _, p := range positions {
		mp = append(mp, p.Point())
	}
	bound := mp.Bound()
	center := bound.Center()

	return surface.Camera{
		Center: listings.FromPoint(center),
		Zoom:   zoomFor(bound, maxZoom),
	}, true
}

// zoomFor picks the largest web-mercator zoom at which the bound's wider
// side still fits one 256px tile width.
func zoomFor(b orb.Bound, maxZoom float64) float64 {
	span := math.Max(b.Right()-b.Left(), b.Top()-b.Bottom())
	if span <= 0 {
		return maxZoom
	}
	z := math.Floor(math.Log2(360 / span))
	return math.Max(minFitZoom, math.Min(maxZoom, z))
}
