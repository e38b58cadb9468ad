package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-parkspot/spatial"
	"go-parkspot/types"
)

var (
	ErrNoFix      = errors.New("no position fix yet")
	ErrInvalidFix = errors.New("invalid position fix")
)

// WatchOptions bound how often a provider delivers updates.
type WatchOptions struct {
	MinDistanceMeters float64
	MinInterval       time.Duration
}

var DefaultWatchOptions = WatchOptions{
	MinDistanceMeters: 5,
	MinInterval:       5 * time.Second,
}

// Update is one delivery from the position stream. Err is set for stream
// errors; the stream keeps running after them.
type Update struct {
	Coordinate types.Coordinate
	At         time.Time
	Err        error
}

type Subscription interface {
	Cancel()
}

// LocationProvider is the device location collaborator.
type LocationProvider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (types.Coordinate, error)
	Watch(opts WatchOptions, onUpdate func(Update)) (Subscription, error)
}

// PushProvider is a LocationProvider fed by the device over HTTP. Fixes are
// delivered to each watcher only when they moved far enough and enough time
// passed since that watcher's previous delivery.
type PushProvider struct {
	granted bool
	now     func() time.Time

	mu       sync.Mutex
	current  *types.Coordinate
	watchers map[int]*watcher
	nextID   int
}

type watcher struct {
	opts     WatchOptions
	onUpdate func(Update)
	last     *types.Coordinate
	lastAt   time.Time
}

func NewPushProvider(granted bool) *PushProvider {
	return &PushProvider{
		granted:  granted,
		now:      time.Now,
		watchers: make(map[int]*watcher),
	}
}

func (p *PushProvider) RequestPermission(ctx context.Context) (bool, error) {
	return p.granted, ctx.Err()
}

func (p *PushProvider) CurrentPosition(ctx context.Context) (types.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return types.Coordinate{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return types.Coordinate{}, ErrNoFix
	}
	return *p.current, nil
}

func (p *PushProvider) Watch(opts WatchOptions, onUpdate func(Update)) (Subscription, error) {
	if !p.granted {
		return nil, types.ErrPermissionDenied
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = &watcher{opts: opts, onUpdate: onUpdate}
	return &pushSubscription{provider: p, id: id}, nil
}

// Push records a fix from the device. An invalid fix is reported to every
// watcher as a stream error and returned.
func (p *PushProvider) Push(c types.Coordinate, at time.Time) error {
	if !p.granted {
		return types.ErrPermissionDenied
	}
	if at.IsZero() {
		at = p.now()
	}

	var deliver []func()
	p.mu.Lock()
	if !c.Valid() {
		for _, w := range p.watchers {
			fn := w.onUpdate
			deliver = append(deliver, func() { fn(Update{At: at, Err: ErrInvalidFix}) })
		}
	} else {
		fix := c
		p.current = &fix
		for _, w := range p.watchers {
			if !w.due(fix, at) {
				continue
			}
			w.last = &fix
			w.lastAt = at
			fn := w.onUpdate
			deliver = append(deliver, func() { fn(Update{Coordinate: fix, At: at}) })
		}
	}
	p.mu.Unlock()

	// callbacks run outside the lock so they may cancel their subscription
	for _, fn := range deliver {
		fn()
	}
	if !c.Valid() {
		return ErrInvalidFix
	}
	return nil
}

func (w *watcher) due(c types.Coordinate, at time.Time) bool {
	if w.last == nil {
		return true
	}
	if at.Sub(w.lastAt) < w.opts.MinInterval {
		return false
	}
	return spatial.DistanceMeters(*w.last, c) >= w.opts.MinDistanceMeters
}

type pushSubscription struct {
	provider *PushProvider
	id       int
	once     sync.Once
}

func (s *pushSubscription) Cancel() {
	s.once.Do(func() {
		s.provider.mu.Lock()
		delete(s.provider.watchers, s.id)
		s.provider.mu.Unlock()
	})
}
