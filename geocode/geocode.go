package geocode

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"go-parkspot/types"
)

// MaxPlaces caps every search result.
const MaxPlaces = 5

// Provider turns a free-text query into candidate places.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]types.Place, error)
}

// GoogleProvider uses the Google Maps Geocoding API.
type GoogleProvider struct {
	client *maps.Client
}

// NewGoogleProvider creates a maps client for apiKey (MAPS_CREDENTIALS).
func NewGoogleProvider(apiKey string) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("MAPS_CREDENTIALS not set")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

func (g *GoogleProvider) Name() string { return "google" }

// Search forward geocodes query; no results is not an error.
func (g *GoogleProvider) Search(ctx context.Context, query string) ([]types.Place, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		return nil, &types.TransportError{Op: "google geocode", Err: err}
	}
	return placesFromGoogle(results), nil
}

func placesFromGoogle(results []maps.GeocodingResult) []types.Place {
	places := make([]types.Place, 0, len(results))
	for _, r := range results {
		c := types.Coordinate{Latitude: r.Geometry.Location.Lat, Longitude: r.Geometry.Location.Lng}
		if !c.Valid() {
			continue
		}
		places = append(places, types.Place{
			Name:       r.FormattedAddress,
			Address:    r.FormattedAddress,
			Coordinate: c,
		})
		if len(places) == MaxPlaces {
			break
		}
	}
	return places
}
