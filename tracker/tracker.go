package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go-parkspot/metrics"
	"go-parkspot/types"
)

// Sink receives position changes. The view state coordinator implements it
// and decides at application time whether a live tick may move the active
// coordinate.
type Sink interface {
	LiveTick(c types.Coordinate)
	Override(c types.Coordinate)
	Resume(last *types.Coordinate)
}

// Tracker acquires the device position and forwards live ticks and manual
// overrides to its sink.
type Tracker struct {
	provider LocationProvider
	sink     Sink
	opts     WatchOptions
	log      *slog.Logger

	mu      sync.Mutex
	last    *types.Coordinate
	sub     Subscription
	stopped bool
}

func New(provider LocationProvider, sink Sink, opts WatchOptions, log *slog.Logger) *Tracker {
	return &Tracker{provider: provider, sink: sink, opts: opts, log: log}
}

// Start asks for permission, applies the initial fix if there is one and
// subscribes to the position stream. A denied permission returns
// types.ErrPermissionDenied and nothing is subscribed.
func (t *Tracker) Start(ctx context.Context) error {
	granted, err := t.provider.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("request location permission: %w", err)
	}
	if !granted {
		return types.ErrPermissionDenied
	}

	if pos, err := t.provider.CurrentPosition(ctx); err != nil {
		t.log.Info("no initial position fix", "err", err)
	} else {
		t.handle(Update{Coordinate: pos})
	}

	sub, err := t.provider.Watch(t.opts, t.handle)
	if err != nil {
		return fmt.Errorf("watch position: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		sub.Cancel()
		return nil
	}
	t.sub = sub
	return nil
}

func (t *Tracker) handle(u Update) {
	if u.Err == nil && !u.Coordinate.Valid() {
		u.Err = ErrInvalidFix
	}
	if u.Err != nil {
		// the last good fix stays authoritative
		metrics.LocationUpdatesTotal.WithLabelValues("error").Inc()
		t.log.Warn("location stream error", "err", u.Err)
		return
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	c := u.Coordinate
	t.last = &c
	t.mu.Unlock()

	t.sink.LiveTick(c)
}

// CurrentPosition is the last good live fix.
func (t *Tracker) CurrentPosition() (types.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return types.Coordinate{}, false
	}
	return *t.last, true
}

// Override switches to a manually chosen coordinate. Live ticks stop moving
// the active coordinate until Resume or the next override.
func (t *Tracker) Override(c types.Coordinate) error {
	if !c.Valid() {
		return &types.ValidationError{Fields: []string{"latitude", "longitude"}}
	}
	metrics.LocationUpdatesTotal.WithLabelValues("override").Inc()
	t.sink.Override(c)
	return nil
}

// Resume goes back to live tracking, handing over the last live fix.
func (t *Tracker) Resume() {
	var last *types.Coordinate
	if c, ok := t.CurrentPosition(); ok {
		last = &c
	}
	t.sink.Resume(last)
}

// Stop unsubscribes from the position stream.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.sub != nil {
		t.sub.Cancel()
		t.sub = nil
	}
}
