package viewstate

import (
	"fmt"

	"go-parkspot/spatial"
	"go-parkspot/types"
)

// EventSet holds confirmed events in display order plus reports still
// waiting for the store. Pending entries are never listed; they only become
// visible once the store confirms them. Every method returns a new set.
type EventSet struct {
	order   []string
	byID    map[string]types.ParkingEvent
	pending map[string]types.ParkingEvent
}

// List returns confirmed events, newest first.
func (s EventSet) List() []types.ParkingEvent {
	out := make([]types.ParkingEvent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s EventSet) Len() int { return len(s.order) }

func (s EventSet) PendingLen() int { return len(s.pending) }

func (s EventSet) Get(id string) (types.ParkingEvent, bool) {
	ev, ok := s.byID[id]
	return ev, ok
}

func (s EventSet) hasPending(key string) bool {
	_, ok := s.pending[key]
	return ok
}

// replace swaps the confirmed events for events. Duplicate ids keep their
// first occurrence.
func (s EventSet) replace(events []types.ParkingEvent) EventSet {
	next := EventSet{
		order:   make([]string, 0, len(events)),
		byID:    make(map[string]types.ParkingEvent, len(events)),
		pending: s.pending,
	}
	for _, ev := range events {
		if _, dup := next.byID[ev.ID]; dup {
			continue
		}
		next.order = append(next.order, ev.ID)
		next.byID[ev.ID] = ev
	}
	return next
}

func (s EventSet) addPending(key string, ev types.ParkingEvent) EventSet {
	pending := make(map[string]types.ParkingEvent, len(s.pending)+1)
	for k, v := range s.pending {
		pending[k] = v
	}
	ev.ID = key
	ev.Pending = true
	pending[key] = ev
	s.pending = pending
	return s
}

func (s EventSet) removePending(key string) EventSet {
	pending := make(map[string]types.ParkingEvent, len(s.pending))
	for k, v := range s.pending {
		if k != key {
			pending[k] = v
		}
	}
	s.pending = pending
	return s
}

// confirm drops the pending entry and prepends the stored event.
func (s EventSet) confirm(key string, ev types.ParkingEvent) EventSet {
	ev.Pending = false
	s = s.removePending(key)
	return s.replace(append([]types.ParkingEvent{ev}, s.List()...))
}

// stage buffers the results of one coordinate generation until both the
// event query and the prediction have resolved.
type stage struct {
	gen   uint64
	coord types.Coordinate

	eventsDone bool
	eventsErr  error
	events     []types.ParkingEvent

	predDone   bool
	prediction *types.PredictionResult
}

// Model is the reconciled view state. It is only ever changed by Update.
type Model struct {
	Active        *types.Coordinate
	Mode          types.TrackingMode
	Data          *types.Coordinate
	Events        EventSet
	Grid          spatial.Grid
	Prediction    *types.PredictionResult
	Submission    types.SubmissionStatus
	SubmissionErr string
	Conditions    types.Conditions
	Generation    uint64
	LocationOff   bool

	margin         float64
	eventsSeq      uint64
	predSeq        uint64
	eventsInFlight bool
	predInFlight   bool
	staged         *stage
	dismissToken   uint64
}

func NewModel(marginDegrees float64) Model {
	return Model{
		Mode:       types.TrackingLive,
		Grid:       spatial.Grid{},
		Submission: types.SubmissionIdle,
		margin:     marginDegrees,
	}
}

type QuickStats struct {
	Reports    int    `json:"reports"`
	Heat       string `json:"heat"`
	Confidence string `json:"confidence"`
	Advice     string `json:"advice,omitempty"`
}

// Snapshot is the immutable view handed to presentation.
type Snapshot struct {
	ActiveCoordinate *types.Coordinate       `json:"activeCoordinate"`
	TrackingMode     types.TrackingMode      `json:"trackingMode"`
	DataCoordinate   *types.Coordinate       `json:"dataCoordinate"`
	Events           []types.ParkingEvent    `json:"events"`
	Heat             []spatial.HeatPoint     `json:"heat"`
	Prediction       *types.PredictionResult `json:"prediction"`
	Submission       types.SubmissionStatus  `json:"submissionStatus"`
	SubmissionError  string                  `json:"submissionError,omitempty"`
	Conditions       types.Conditions        `json:"conditions"`
	Stats            QuickStats              `json:"stats"`
	Generation       uint64                  `json:"generation"`
	Refreshing       bool                    `json:"refreshing"`
	LocationOff      bool                    `json:"locationOff"`
}

func (m Model) Snapshot() Snapshot {
	events := m.Events.List()
	stats := QuickStats{Reports: len(events), Heat: "Calm", Confidence: "--"}
	if len(events) > 0 {
		stats.Heat = "Live"
	}
	if m.Prediction != nil && m.Prediction.ConfidencePercent > 0 {
		stats.Confidence = fmt.Sprintf("%d%%", m.Prediction.ConfidencePercent)
	}
	if m.Prediction != nil {
		stats.Advice = m.Prediction.Recommendation.Label()
	}

	return Snapshot{
		ActiveCoordinate: copyCoord(m.Active),
		TrackingMode:     m.Mode,
		DataCoordinate:   copyCoord(m.Data),
		Events:           events,
		Heat:             spatial.HeatPoints(m.Grid),
		Prediction:       copyPrediction(m.Prediction),
		Submission:       m.Submission,
		SubmissionError:  m.SubmissionErr,
		Conditions:       m.Conditions,
		Stats:            stats,
		Generation:       m.Generation,
		Refreshing:       m.eventsInFlight || m.predInFlight,
		LocationOff:      m.LocationOff,
	}
}

func copyCoord(c *types.Coordinate) *types.Coordinate {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func copyPrediction(p *types.PredictionResult) *types.PredictionResult {
	if p == nil {
		return nil
	}
	v := *p
	v.ShortTermSeries = append([]types.SeriesPoint(nil), p.ShortTermSeries...)
	return &v
}
