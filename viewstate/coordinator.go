package viewstate

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go-parkspot/metrics"
	"go-parkspot/processor"
	"go-parkspot/types"
)

const pendingPrefix = "pending-"

var ErrStopped = errors.New("view state coordinator stopped")

type EventQuerier interface {
	Query(ctx context.Context, bbox types.BoundingBox, max int) ([]types.ParkingEvent, error)
}

type PredictionFetcher interface {
	Fetch(ctx context.Context, c types.Coordinate, cond types.Conditions) *types.PredictionResult
}

type ReportWriter interface {
	Normalize(r processor.Report) (types.ParkingEvent, error)
	Write(ctx context.Context, ev types.ParkingEvent) (types.ParkingEvent, error)
}

type Config struct {
	MarginDegrees float64
	MaxResults    int
	ToastDuration time.Duration
}

type writeResult struct {
	event types.ParkingEvent
	err   error
}

type envelope struct {
	msg   Msg
	reply chan error
	done  chan writeResult
}

// Coordinator owns the view state. A single goroutine (Run) applies every
// message through Update, so the model needs no locks; readers get
// immutable snapshots.
type Coordinator struct {
	events      EventQuerier
	predictions PredictionFetcher
	reports     ReportWriter
	cfg         Config
	log         *slog.Logger

	after  func(time.Duration) <-chan time.Time
	newKey func() string

	inbox   chan envelope
	stopped chan struct{}
	snap    atomic.Pointer[Snapshot]
	model   Model
}

func New(events EventQuerier, predictions PredictionFetcher, reports ReportWriter, cfg Config, log *slog.Logger) *Coordinator {
	if cfg.ToastDuration <= 0 {
		cfg.ToastDuration = 3 * time.Second
	}
	c := &Coordinator{
		events:      events,
		predictions: predictions,
		reports:     reports,
		cfg:         cfg,
		log:         log,
		after:       time.After,
		newKey:      uuid.NewString,
		inbox:       make(chan envelope, 64),
		stopped:     make(chan struct{}),
		model:       NewModel(cfg.MarginDegrees),
	}
	c.publish()
	return c
}

// Run processes messages until ctx is done. Fetches started by the loop use
// ctx, so cancelling it also cancels them.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-c.inbox:
			c.apply(ctx, env)
		}
	}
}

func (c *Coordinator) apply(ctx context.Context, env envelope) {
	next, cmds := Update(c.model, env.msg)
	c.model = next

	var rejected error
	dropped := false
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case Rejected:
			rejected = cmd.Err
		case Dropped:
			dropped = true
			c.exec(ctx, cmd, env)
		default:
			c.exec(ctx, cmd, env)
		}
	}
	if _, ok := env.msg.(LiveTick); ok && !dropped && len(cmds) > 0 {
		metrics.LocationUpdatesTotal.WithLabelValues("applied").Inc()
	}
	if env.reply != nil {
		env.reply <- rejected
	}
	c.publish()
}

func (c *Coordinator) exec(ctx context.Context, cmd Cmd, env envelope) {
	switch cmd := cmd.(type) {
	case FetchEvents:
		go func() {
			events, err := c.events.Query(ctx, cmd.BBox, c.cfg.MaxResults)
			c.send(EventsLoaded{Gen: cmd.Gen, Seq: cmd.Seq, BBox: cmd.BBox, Events: events, Err: err})
		}()
	case FetchPrediction:
		go func() {
			res := c.predictions.Fetch(ctx, cmd.Coordinate, cmd.Conditions)
			c.send(PredictionLoaded{Gen: cmd.Gen, Seq: cmd.Seq, Coordinate: cmd.Coordinate, Result: res})
		}()
	case WriteReport:
		go func() {
			ev, err := c.reports.Write(ctx, cmd.Event)
			c.send(ReportWritten{Key: cmd.Key, Event: ev, Err: err})
			if env.done != nil {
				env.done <- writeResult{event: ev, err: err}
			}
		}()
	case StartDismissTimer:
		go func() {
			select {
			case <-c.after(c.cfg.ToastDuration):
				c.send(DismissTimerFired{Token: cmd.Token})
			case <-ctx.Done():
			}
		}()
	case Dropped:
		if cmd.Kind == "live_tick" {
			metrics.LocationUpdatesTotal.WithLabelValues("suppressed").Inc()
		} else {
			metrics.StaleResultsTotal.WithLabelValues(cmd.Kind).Inc()
		}
		c.log.Debug("dropped superseded input", "kind", cmd.Kind, "generation", cmd.Gen)
	case FetchFailed:
		c.log.Warn("refresh failed, keeping previous data", "kind", cmd.Kind, "err", cmd.Err)
	}
}

func (c *Coordinator) send(msg Msg) bool {
	select {
	case c.inbox <- envelope{msg: msg}:
		return true
	case <-c.stopped:
		return false
	}
}

func (c *Coordinator) publish() {
	s := c.model.Snapshot()
	c.snap.Store(&s)
}

// Snapshot returns the latest committed view state.
func (c *Coordinator) Snapshot() Snapshot {
	return *c.snap.Load()
}

func (c *Coordinator) LiveTick(coord types.Coordinate) { c.send(LiveTick{Coordinate: coord}) }

func (c *Coordinator) Override(coord types.Coordinate) { c.send(Override{Coordinate: coord}) }

func (c *Coordinator) Resume(last *types.Coordinate) { c.send(Resume{Last: last}) }

// LocationUnavailable marks the no-location state after a denied permission.
func (c *Coordinator) LocationUnavailable() { c.send(LocationUnavailable{}) }

func (c *Coordinator) Refresh(events, prediction bool) {
	c.send(RefreshRequested{Events: events, Prediction: prediction})
}

func (c *Coordinator) SetConditions(cond types.Conditions) {
	c.send(ConditionsChanged{Conditions: cond})
}

func (c *Coordinator) Dismiss() { c.send(Dismissed{}) }

// Submit validates r, writes it and waits for the store's answer. A report
// that fails validation is returned to the caller and leaves the view state
// untouched. The report only shows up in the event set once the store has
// confirmed it. A second
// call while a write is in flight fails with types.ErrSubmissionInFlight.
func (c *Coordinator) Submit(ctx context.Context, r processor.Report) (types.ParkingEvent, error) {
	ev, err := c.reports.Normalize(r)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("invalid").Inc()
		return types.ParkingEvent{}, err
	}

	env := envelope{
		msg:   SubmitStarted{Key: pendingPrefix + c.newKey(), Event: ev},
		reply: make(chan error, 1),
		done:  make(chan writeResult, 1),
	}
	select {
	case c.inbox <- env:
	case <-c.stopped:
		return types.ParkingEvent{}, ErrStopped
	case <-ctx.Done():
		return types.ParkingEvent{}, ctx.Err()
	}

	select {
	case err := <-env.reply:
		if err != nil {
			return types.ParkingEvent{}, err
		}
	case <-c.stopped:
		return types.ParkingEvent{}, ErrStopped
	}

	select {
	case res := <-env.done:
		return res.event, res.err
	case <-c.stopped:
		return types.ParkingEvent{}, ErrStopped
	case <-ctx.Done():
		return types.ParkingEvent{}, ctx.Err()
	}
}
