package spatial

import (
	"math"

	"go-parkspot/types"
)

// DefaultMarginDegrees is roughly 2.2 km of latitude.
const DefaultMarginDegrees = 0.02

// BoundingBoxFor builds the query box around c. Live tracking and manual
// overrides both go through here so the two refresh paths behave the same.
// A non-positive or non-finite margin falls back to DefaultMarginDegrees.
// Edges are clamped to the valid coordinate ranges; there is no wrap across
// the antimeridian.
func BoundingBoxFor(c types.Coordinate, marginDegrees float64) types.BoundingBox {
	if !(marginDegrees > 0) || math.IsInf(marginDegrees, 0) {
		marginDegrees = DefaultMarginDegrees
	}
	return types.BoundingBox{
		MinLat: clamp(c.Latitude-marginDegrees, -90, 90),
		MaxLat: clamp(c.Latitude+marginDegrees, -90, 90),
		MinLon: clamp(c.Longitude-marginDegrees, -180, 180),
		MaxLon: clamp(c.Longitude+marginDegrees, -180, 180),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
