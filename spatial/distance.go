package spatial

import (
	"github.com/golang/geo/s2"

	"go-parkspot/types"
)

const EarthRadiusMeters = 6371000.0

// DistanceMeters is the great-circle distance between a and b.
func DistanceMeters(a, b types.Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
