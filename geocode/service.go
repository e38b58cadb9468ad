package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go-parkspot/metrics"
	"go-parkspot/types"
)

// Service answers location searches. Providers are tried in order; a
// failing provider falls through to the next one.
type Service struct {
	providers []Provider
	cache     Cache
	log       *slog.Logger
}

// NewService skips nil providers; cache may be nil.
func NewService(cache Cache, log *slog.Logger, providers ...Provider) *Service {
	s := &Service{cache: cache, log: log}
	for _, p := range providers {
		if p != nil {
			s.providers = append(s.providers, p)
		}
	}
	return s
}

// Search returns at most MaxPlaces places. A blank query returns nothing
// without calling any provider.
func (s *Service) Search(ctx context.Context, query string) ([]types.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.Place{}, nil
	}

	if s.cache != nil {
		if places, ok := s.cache.Get(ctx, query); ok {
			metrics.GeocodeCacheHitsTotal.Inc()
			return places, nil
		}
	}

	var errs []error
	for _, p := range s.providers {
		places, err := p.Search(ctx, query)
		if err != nil {
			metrics.GeocodeRequestsTotal.WithLabelValues(p.Name(), "error").Inc()
			s.log.Warn("geocoding failed", "provider", p.Name(), "query", query, "err", err)
			errs = append(errs, err)
			continue
		}
		metrics.GeocodeRequestsTotal.WithLabelValues(p.Name(), "ok").Inc()
		if len(places) > MaxPlaces {
			places = places[:MaxPlaces]
		}
		if s.cache != nil {
			s.cache.Set(ctx, query, places)
		}
		return places, nil
	}

	if len(errs) == 0 {
		return []types.Place{}, nil
	}
	return nil, errors.Join(errs...)
}
