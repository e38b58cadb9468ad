package types

import (
	"strings"
	"time"
)

type VehicleType string

const (
	Car        VehicleType = "car"
	Motorcycle VehicleType = "motorcycle"
	Truck      VehicleType = "truck"
)

// ParseVehicleType is case-insensitive and trims whitespace.
func ParseVehicleType(s string) (VehicleType, bool) {
	switch VehicleType(strings.ToLower(strings.TrimSpace(s))) {
	case Car:
		return Car, true
	case Motorcycle:
		return Motorcycle, true
	case Truck:
		return Truck, true
	}
	return "", false
}

// ParkingEvent is one "I parked here" report. Events fetched from the store
// carry the store id; locally built events carry a temporary pending key
// until the store confirms them.
type ParkingEvent struct {
	ID              string      `json:"id"`
	Pending         bool        `json:"pending,omitempty"`
	UserID          string      `json:"userId,omitempty"`
	Coordinate      Coordinate  `json:"coordinate"`
	VehicleType     VehicleType `json:"vehicleType"`
	Weight          float64     `json:"weight"`
	Timestamp       time.Time   `json:"timestamp"`
	Rain            bool        `json:"rain"`
	NearbyEvent     bool        `json:"nearbyEvent"`
	DurationMinutes int         `json:"durationMinutes,omitempty"`
	Purpose         string      `json:"purpose,omitempty"`
	EaseRating      *int        `json:"easeRating,omitempty"`
	Message         string      `json:"message,omitempty"`
	Test            bool        `json:"test,omitempty"`
}

// CellKey identifies a density cell: the coordinate scaled by 1000 and rounded.
type CellKey struct {
	Lat int64 `json:"lat"`
	Lon int64 `json:"lon"`
}

type DensityCell struct {
	Key    CellKey    `json:"key"`
	Center Coordinate `json:"center"`
	Weight float64    `json:"weight"`
	Count  int        `json:"count"`
}

type Recommendation string

const (
	Plenty   Recommendation = "Plenty"
	Moderate Recommendation = "Moderate"
	High     Recommendation = "High"
)

// Label is the human readable text shown next to the forecast.
func (r Recommendation) Label() string {
	switch r {
	case Plenty:
		return "Plenty of slots"
	case Moderate:
		return "Moderate demand"
	default:
		return "High demand"
	}
}

type PredictionSource string

const (
	SourceModel    PredictionSource = "model"
	SourceEstimate PredictionSource = "estimate"
)

type SeriesPoint struct {
	Label        string `json:"label"`
	ValuePercent int    `json:"value"`
}

// PredictionResult is never persisted; a nil *PredictionResult means the
// forecast is unavailable.
type PredictionResult struct {
	Coordinate              Coordinate       `json:"coordinate"`
	CurrentOccupancyPercent int              `json:"currentOccupancy"`
	ConfidencePercent       int              `json:"confidence"`
	ShortTermSeries         []SeriesPoint    `json:"nextHours"`
	Recommendation          Recommendation   `json:"recommendation"`
	LocationID              string           `json:"locationId,omitempty"`
	Source                  PredictionSource `json:"source"`
}

// Conditions are the context flags sent along with prediction requests.
type Conditions struct {
	Rain        bool `json:"rain"`
	NearbyEvent bool `json:"is_event"`
}

type SubmissionStatus string

const (
	SubmissionIdle       SubmissionStatus = "idle"
	SubmissionSubmitting SubmissionStatus = "submitting"
	SubmissionSucceeded  SubmissionStatus = "succeeded"
	SubmissionFailed     SubmissionStatus = "failed"
)
