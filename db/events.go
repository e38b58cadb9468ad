package db

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"go-parkspot/metrics"
	"go-parkspot/types"
)

// Query reads the newest max documents and keeps those inside bbox.
// Firestore cannot range-filter two fields at once, so the box is applied
// client side and fewer than max events may come back.
func (s *FirestoreStore) Query(ctx context.Context, bbox types.BoundingBox, max int) ([]types.ParkingEvent, error) {
	q := s.client.Collection(s.collection).
		OrderBy("timestamp", firestore.Desc)
	if max > 0 {
		q = q.Limit(max)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var events []types.ParkingEvent
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			metrics.EventQueriesTotal.WithLabelValues("error").Inc()
			return nil, classify("query parking events", err, false)
		}

		ev, ok := eventFromData(doc.Ref.ID, doc.Data())
		if !ok || !bbox.Contains(ev.Coordinate) {
			continue
		}
		events = append(events, ev)
	}

	metrics.EventQueriesTotal.WithLabelValues("ok").Inc()
	return events, nil
}

// Write adds ev as a new document; the timestamp is assigned by the server.
func (s *FirestoreStore) Write(ctx context.Context, ev types.ParkingEvent) (string, error) {
	ref, _, err := s.client.Collection(s.collection).Add(ctx, eventData(ev))
	if err != nil {
		return "", classify("write parking event", err, true)
	}
	return ref.ID, nil
}

// CheckConnection runs a one document query against the collection.
func (s *FirestoreStore) CheckConnection(ctx context.Context) error {
	iter := s.client.Collection(s.collection).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err != nil && err != iterator.Done {
		return classify("check connection", err, false)
	}
	return nil
}

func eventData(ev types.ParkingEvent) map[string]interface{} {
	data := map[string]interface{}{
		"userId":           nil,
		"lat":              ev.Coordinate.Latitude,
		"lon":              ev.Coordinate.Longitude,
		"vehicleType":      string(ev.VehicleType),
		"event":            "parked",
		"weight":           ev.Weight,
		"rain":             boolToInt(ev.Rain),
		"is_event":         boolToInt(ev.NearbyEvent),
		"parking_duration": ev.DurationMinutes,
		"user_purpose":     ev.Purpose,
		"easeRating":       nil,
		"message":          ev.Message,
		"test":             ev.Test,
		"timestamp":        firestore.ServerTimestamp,
	}
	if ev.UserID != "" {
		data["userId"] = ev.UserID
	}
	if ev.EaseRating != nil {
		data["easeRating"] = *ev.EaseRating
	}
	return data
}

// eventFromData decodes a stored document. Documents were written by
// several client versions, so numbers may arrive as ints, floats or
// strings. A document without a numeric lat/lon is skipped.
func eventFromData(id string, data map[string]interface{}) (types.ParkingEvent, bool) {
	lat, latOk := toFloat(data["lat"])
	lon, lonOk := toFloat(data["lon"])
	if !latOk || !lonOk {
		return types.ParkingEvent{}, false
	}
	ev := types.ParkingEvent{
		ID:         id,
		Coordinate: types.Coordinate{Latitude: lat, Longitude: lon},
		Weight:     1,
	}
	if !ev.Coordinate.Valid() {
		return types.ParkingEvent{}, false
	}

	if vt, ok := data["vehicleType"].(string); ok {
		if parsed, ok := types.ParseVehicleType(vt); ok {
			ev.VehicleType = parsed
		} else {
			ev.VehicleType = types.VehicleType(vt)
		}
	}
	if w, ok := toFloat(data["weight"]); ok && w > 0 {
		ev.Weight = w
	}
	if ts, ok := data["timestamp"].(time.Time); ok {
		ev.Timestamp = ts
	}
	if uid, ok := data["userId"].(string); ok {
		ev.UserID = uid
	}
	ev.Rain = toBool(data["rain"])
	ev.NearbyEvent = toBool(data["is_event"])
	if d, ok := toFloat(data["parking_duration"]); ok {
		ev.DurationMinutes = int(math.Round(d))
	}
	if p, ok := data["user_purpose"].(string); ok {
		ev.Purpose = p
	}
	if r, ok := toFloat(data["easeRating"]); ok {
		rating := int(math.Round(r))
		if rating >= 1 && rating <= 10 {
			ev.EaseRating = &rating
		}
	}
	if m, ok := data["message"].(string); ok {
		ev.Message = m
	}
	ev.Test = toBool(data["test"])
	return ev, true
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int64:
		f = float64(n)
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "true" || s == "yes" || s == "1"
	}
	f, ok := toFloat(v)
	return ok && f != 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
