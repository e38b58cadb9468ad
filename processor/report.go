package processor

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"go-parkspot/db"
	"go-parkspot/metrics"
	"go-parkspot/types"
)

const (
	DefaultDurationMinutes = 30
	DefaultPurpose         = "shopping"
)

// Report is the questionnaire payload as the client sends it. Numeric
// fields tolerate numbers, numeric strings and booleans.
type Report struct {
	Lat             types.Numeric `json:"lat"`
	Lon             types.Numeric `json:"lon"`
	VehicleType     string        `json:"vehicleType"`
	Rain            types.Numeric `json:"rain"`
	IsEvent         types.Numeric `json:"is_event"`
	ParkingDuration types.Numeric `json:"parking_duration"`
	UserPurpose     string        `json:"user_purpose"`
	EaseRating      types.Numeric `json:"easeRating"`
	Message         string        `json:"message"`
	Test            types.Numeric `json:"test"`
	UserID          string        `json:"userId"`
	Weight          types.Numeric `json:"weight"`
}

// Submitter validates parking reports and writes them to the event store.
type Submitter struct {
	store db.EventStore
	now   func() time.Time
	log   *slog.Logger
}

func NewSubmitter(store db.EventStore, log *slog.Logger) *Submitter {
	return &Submitter{store: store, now: time.Now, log: log}
}

// Normalize checks the required fields and coerces the optional ones. The
// returned error is a *types.ValidationError naming every bad field.
func (s *Submitter) Normalize(r Report) (types.ParkingEvent, error) {
	var bad []string

	lat, latOk := r.Lat.Value()
	if !latOk || lat < -90 || lat > 90 {
		bad = append(bad, "lat")
	}
	lon, lonOk := r.Lon.Value()
	if !lonOk || lon < -180 || lon > 180 {
		bad = append(bad, "lon")
	}
	vehicle, vehicleOk := types.ParseVehicleType(r.VehicleType)
	if !vehicleOk {
		bad = append(bad, "vehicleType")
	}
	if len(bad) > 0 {
		return types.ParkingEvent{}, &types.ValidationError{Fields: bad}
	}

	ev := types.ParkingEvent{
		UserID:          strings.TrimSpace(r.UserID),
		Coordinate:      types.Coordinate{Latitude: lat, Longitude: lon},
		VehicleType:     vehicle,
		Weight:          1,
		Timestamp:       s.now(),
		Rain:            r.Rain.Bool(),
		NearbyEvent:     r.IsEvent.Bool(),
		DurationMinutes: DefaultDurationMinutes,
		Purpose:         DefaultPurpose,
		Message:         strings.TrimSpace(r.Message),
		Test:            r.Test.Bool(),
	}

	if d, ok := r.ParkingDuration.Value(); ok && math.Round(d) > 0 {
		ev.DurationMinutes = int(math.Round(d))
	}
	if p := strings.TrimSpace(r.UserPurpose); p != "" {
		ev.Purpose = p
	}
	if v, ok := r.EaseRating.Value(); ok {
		rating := int(math.Round(v))
		if rating >= 1 && rating <= 10 {
			ev.EaseRating = &rating
		}
	}
	if w, ok := r.Weight.Value(); ok && w > 0 {
		ev.Weight = w
	}
	return ev, nil
}

// Write stores a normalized event and returns it with the store's id.
// Store failures come back as *types.StoreWriteError or
// *types.TransportError.
func (s *Submitter) Write(ctx context.Context, ev types.ParkingEvent) (types.ParkingEvent, error) {
	id, err := s.store.Write(ctx, ev)
	if err != nil {
		var te *types.TransportError
		var se *types.StoreWriteError
		switch {
		case errors.As(err, &te):
			metrics.ReportsTotal.WithLabelValues("transport_error").Inc()
		case errors.As(err, &se):
			metrics.ReportsTotal.WithLabelValues("store_error").Inc()
		default:
			metrics.ReportsTotal.WithLabelValues("store_error").Inc()
			err = &types.StoreWriteError{Message: err.Error()}
		}
		s.log.Warn("parking report write failed", "err", err)
		return types.ParkingEvent{}, err
	}

	metrics.ReportsTotal.WithLabelValues("ok").Inc()
	s.log.Info("parking report saved", "id", id, "vehicleType", ev.VehicleType, "coordinate", ev.Coordinate.String())
	ev.ID = id
	ev.Pending = false
	return ev, nil
}

// Submit validates r and writes it. No store call is made for an invalid
// report.
func (s *Submitter) Submit(ctx context.Context, r Report) (types.ParkingEvent, error) {
	ev, err := s.Normalize(r)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("invalid").Inc()
		return types.ParkingEvent{}, err
	}
	return s.Write(ctx, ev)
}
