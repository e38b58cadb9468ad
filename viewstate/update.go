package viewstate

import (
	"go-parkspot/spatial"
	"go-parkspot/types"
)

// Msg is an input to Update: a position change, a fetch result or a user
// action.
type Msg interface{ isMsg() }

type LiveTick struct{ Coordinate types.Coordinate }

type Override struct{ Coordinate types.Coordinate }

// Resume returns to live tracking. Last is the most recent live fix, if any.
type Resume struct{ Last *types.Coordinate }

type LocationUnavailable struct{}

type EventsLoaded struct {
	Gen, Seq uint64
	BBox     types.BoundingBox
	Events   []types.ParkingEvent
	Err      error
}

// PredictionLoaded carries a nil Result when the forecast is unavailable.
type PredictionLoaded struct {
	Gen, Seq   uint64
	Coordinate types.Coordinate
	Result     *types.PredictionResult
}

type RefreshRequested struct{ Events, Prediction bool }

type ConditionsChanged struct{ Conditions types.Conditions }

type SubmitStarted struct {
	Key   string
	Event types.ParkingEvent
}

type ReportWritten struct {
	Key   string
	Event types.ParkingEvent
	Err   error
}

type DismissTimerFired struct{ Token uint64 }

type Dismissed struct{}

func (LiveTick) isMsg()            {}
func (Override) isMsg()            {}
func (Resume) isMsg()              {}
func (LocationUnavailable) isMsg() {}
func (EventsLoaded) isMsg()        {}
func (PredictionLoaded) isMsg()    {}
func (RefreshRequested) isMsg()    {}
func (ConditionsChanged) isMsg()   {}
func (SubmitStarted) isMsg()       {}
func (ReportWritten) isMsg()       {}
func (DismissTimerFired) isMsg()   {}
func (Dismissed) isMsg()           {}

// Cmd is a side effect requested by Update. The coordinator loop runs them.
type Cmd interface{ isCmd() }

type FetchEvents struct {
	Gen, Seq   uint64
	Coordinate types.Coordinate
	BBox       types.BoundingBox
}

type FetchPrediction struct {
	Gen, Seq   uint64
	Coordinate types.Coordinate
	Conditions types.Conditions
}

type WriteReport struct {
	Key   string
	Event types.ParkingEvent
}

type StartDismissTimer struct{ Token uint64 }

// Dropped reports an input that was discarded: a superseded fetch result or
// a live tick arriving while overridden.
type Dropped struct {
	Kind string
	Gen  uint64
}

type FetchFailed struct {
	Kind string
	Err  error
}

// Rejected answers a SubmitStarted that arrived while another report was
// still being written.
type Rejected struct{ Err error }

func (FetchEvents) isCmd()       {}
func (FetchPrediction) isCmd()   {}
func (WriteReport) isCmd()       {}
func (StartDismissTimer) isCmd() {}
func (Dropped) isCmd()           {}
func (FetchFailed) isCmd()       {}
func (Rejected) isCmd()          {}

// Update is the only place the model changes. It does no I/O: everything
// asynchronous is returned as a Cmd and comes back later as a Msg.
func Update(m Model, msg Msg) (Model, []Cmd) {
	switch msg := msg.(type) {
	case LiveTick:
		// the mode is checked when the tick is applied, not when it was sent
		if m.Mode == types.TrackingOverridden {
			return m, []Cmd{Dropped{Kind: "live_tick", Gen: m.Generation}}
		}
		if m.Active != nil && *m.Active == msg.Coordinate {
			return m, nil
		}
		m.LocationOff = false
		return startGeneration(m, msg.Coordinate)

	case Override:
		m.Mode = types.TrackingOverridden
		return startGeneration(m, msg.Coordinate)

	case Resume:
		m.Mode = types.TrackingLive
		if msg.Last == nil || (m.Active != nil && *m.Active == *msg.Last) {
			return m, nil
		}
		return startGeneration(m, *msg.Last)

	case LocationUnavailable:
		m.LocationOff = true
		return m, nil

	case EventsLoaded:
		return eventsLoaded(m, msg)

	case PredictionLoaded:
		return predictionLoaded(m, msg)

	case RefreshRequested:
		if m.Active == nil {
			return m, nil
		}
		var cmds []Cmd
		if msg.Events {
			var cmd Cmd
			m, cmd = fetchEvents(m)
			cmds = append(cmds, cmd)
		}
		if msg.Prediction {
			var cmd Cmd
			m, cmd = fetchPrediction(m)
			cmds = append(cmds, cmd)
		}
		return m, cmds

	case ConditionsChanged:
		if msg.Conditions == m.Conditions {
			return m, nil
		}
		m.Conditions = msg.Conditions
		if m.Active == nil {
			return m, nil
		}
		var cmd Cmd
		m, cmd = fetchPrediction(m)
		return m, []Cmd{cmd}

	case SubmitStarted:
		if m.Submission == types.SubmissionSubmitting {
			return m, []Cmd{Rejected{Err: types.ErrSubmissionInFlight}}
		}
		m.Submission = types.SubmissionSubmitting
		m.SubmissionErr = ""
		m.dismissToken++
		m.Events = m.Events.addPending(msg.Key, msg.Event)
		return m, []Cmd{WriteReport{Key: msg.Key, Event: msg.Event}}

	case ReportWritten:
		return reportWritten(m, msg)

	case DismissTimerFired:
		if msg.Token == m.dismissToken && m.Submission == types.SubmissionSucceeded {
			m.Submission = types.SubmissionIdle
		}
		return m, nil

	case Dismissed:
		if m.Submission == types.SubmissionSucceeded || m.Submission == types.SubmissionFailed {
			m.Submission = types.SubmissionIdle
			m.SubmissionErr = ""
			m.dismissToken++
		}
		return m, nil
	}
	return m, nil
}

// startGeneration moves the active coordinate and fetches events and the
// prediction for it. Results from older generations are discarded on
// arrival.
func startGeneration(m Model, c types.Coordinate) (Model, []Cmd) {
	m.Active = &c
	m.Generation++
	m.staged = &stage{gen: m.Generation, coord: c}

	m, events := fetchEvents(m)
	m, prediction := fetchPrediction(m)
	return m, []Cmd{events, prediction}
}

func fetchEvents(m Model) (Model, Cmd) {
	m.eventsSeq++
	m.eventsInFlight = true
	c := *m.Active
	return m, FetchEvents{
		Gen:        m.Generation,
		Seq:        m.eventsSeq,
		Coordinate: c,
		BBox:       spatial.BoundingBoxFor(c, m.margin),
	}
}

func fetchPrediction(m Model) (Model, Cmd) {
	m.predSeq++
	m.predInFlight = true
	return m, FetchPrediction{
		Gen:        m.Generation,
		Seq:        m.predSeq,
		Coordinate: *m.Active,
		Conditions: m.Conditions,
	}
}

func eventsLoaded(m Model, msg EventsLoaded) (Model, []Cmd) {
	if msg.Gen != m.Generation || msg.Seq != m.eventsSeq {
		return m, []Cmd{Dropped{Kind: "events", Gen: msg.Gen}}
	}
	m.eventsInFlight = false

	var cmds []Cmd
	if msg.Err != nil {
		cmds = append(cmds, FetchFailed{Kind: "events", Err: msg.Err})
	}

	if m.staged != nil {
		st := *m.staged
		st.eventsDone = true
		st.eventsErr = msg.Err
		st.events = msg.Events
		m.staged = &st
		return maybeCommit(m), cmds
	}

	if msg.Err == nil {
		m = applyEvents(m, msg.Events)
	}
	return m, cmds
}

func predictionLoaded(m Model, msg PredictionLoaded) (Model, []Cmd) {
	if msg.Gen != m.Generation || msg.Seq != m.predSeq ||
		m.Active == nil || *m.Active != msg.Coordinate {
		return m, []Cmd{Dropped{Kind: "prediction", Gen: msg.Gen}}
	}
	m.predInFlight = false

	if m.staged != nil {
		st := *m.staged
		st.predDone = true
		st.prediction = msg.Result
		m.staged = &st
		return maybeCommit(m), nil
	}

	// unavailable keeps the previous forecast
	if msg.Result != nil {
		m.Prediction = msg.Result
	}
	return m, nil
}

// maybeCommit applies a staged generation once both of its fetches are in.
// Events, grid and prediction change in the same step.
func maybeCommit(m Model) Model {
	st := m.staged
	if st == nil || !st.eventsDone || !st.predDone {
		return m
	}
	// Data names the coordinate the listed events belong to, so a failed
	// query leaves it on the previous one
	if st.eventsErr == nil {
		coord := st.coord
		m.Data = &coord
		m = applyEvents(m, st.events)
	}
	if st.prediction != nil {
		m.Prediction = st.prediction
	}
	m.staged = nil
	return m
}

// applyEvents replaces the confirmed event set with a query result and
// rebuilds the grid from scratch. A report confirmed while the query was in
// flight is never lost here: confirmation issues a newer query, so the older
// result is dropped as superseded.
func applyEvents(m Model, events []types.ParkingEvent) Model {
	m.Events = m.Events.replace(events)
	m.Grid = spatial.Aggregate(m.Events.List())
	return m
}

func reportWritten(m Model, msg ReportWritten) (Model, []Cmd) {
	if !m.Events.hasPending(msg.Key) {
		return m, nil
	}
	if msg.Err != nil {
		m.Events = m.Events.removePending(msg.Key)
		m.Submission = types.SubmissionFailed
		m.SubmissionErr = types.UserMessage(msg.Err)
		return m, nil
	}

	m.Events = m.Events.confirm(msg.Key, msg.Event)
	m.Grid = spatial.Aggregate(m.Events.List())

	m.Submission = types.SubmissionSucceeded
	m.SubmissionErr = ""
	m.dismissToken++
	cmds := []Cmd{StartDismissTimer{Token: m.dismissToken}}

	if m.Active != nil {
		var cmd Cmd
		m, cmd = fetchEvents(m)
		cmds = append(cmds, cmd)
	}
	return m, cmds
}
