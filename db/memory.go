package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-parkspot/types"
)

// MemoryStore is an EventStore kept in process memory. It backs local
// development when no Firestore credentials are configured.
type MemoryStore struct {
	mu     sync.Mutex
	events []types.ParkingEvent // newest first
	now    func() time.Time
}

func NewMemoryStore(seed ...types.ParkingEvent) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, ev := range seed {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		s.events = append(s.events, ev)
	}
	return s
}

func (s *MemoryStore) Query(ctx context.Context, bbox types.BoundingBox, max int) ([]types.ParkingEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.TransportError{Op: "query parking events", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.ParkingEvent
	for i, ev := range s.events {
		if max > 0 && i >= max {
			break
		}
		if bbox.Contains(ev.Coordinate) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) Write(ctx context.Context, ev types.ParkingEvent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &types.TransportError{Op: "write parking event", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = uuid.NewString()
	ev.Pending = false
	ev.Timestamp = s.now()
	s.events = append([]types.ParkingEvent{ev}, s.events...)
	return ev.ID, nil
}

func (s *MemoryStore) CheckConnection(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
