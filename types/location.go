package types

import (
	"fmt"
	"math"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" firestore:"lat"`
	Longitude float64 `json:"longitude" firestore:"lon"`
}

// Valid reports whether both components are finite and inside their ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// BoundingBox is an axis-aligned lat/lon rectangle. MinLat <= MaxLat and
// MinLon <= MaxLon always hold for boxes built by the spatial package.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// Contains is inclusive on every edge.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// Place is a single geocoding hit.
type Place struct {
	Name       string     `json:"name"`
	Address    string     `json:"address,omitempty"`
	Coordinate Coordinate `json:"coordinate"`
}

type TrackingMode string

const (
	TrackingLive       TrackingMode = "live"
	TrackingOverridden TrackingMode = "overridden"
)
