package geocode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"go-parkspot/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "MG Road, Bengaluru", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `[
			{"display_name": "MG Road, Bengaluru", "lat": "12.9756", "lon": "77.6067"},
			{"display_name": "broken", "lat": "n/a", "lon": "77.6"}
		]`)
	}))
	defer srv.Close()

	places, err := NewNominatimProvider(srv.URL+"/").Search(context.Background(), "MG Road, Bengaluru")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "MG Road, Bengaluru", places[0].Name)
	assert.Equal(t, types.Coordinate{Latitude: 12.9756, Longitude: 77.6067}, places[0].Coordinate)
}

func TestNominatimErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewNominatimProvider(srv.URL).Search(context.Background(), "anything")
	var te *types.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestPlacesFromGoogle(t *testing.T) {
	results := make([]maps.GeocodingResult, 7)
	for i := range results {
		results[i].FormattedAddress = "place"
		results[i].Geometry.Location = maps.LatLng{Lat: 12.9, Lng: 77.6}
	}
	results[0].Geometry.Location = maps.LatLng{Lat: 200, Lng: 0}

	places := placesFromGoogle(results)
	assert.Len(t, places, MaxPlaces)
	assert.Equal(t, types.Coordinate{Latitude: 12.9, Longitude: 77.6}, places[0].Coordinate)
}

type fakeProvider struct {
	name   string
	places []types.Place
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(context.Context, string) ([]types.Place, error) {
	f.calls++
	return f.places, f.err
}

type mapCache map[string][]types.Place

func (m mapCache) Get(_ context.Context, q string) ([]types.Place, bool) {
	p, ok := m[cacheKey(q)]
	return p, ok
}

func (m mapCache) Set(_ context.Context, q string, places []types.Place) {
	m[cacheKey(q)] = places
}

func TestServiceBlankQuery(t *testing.T) {
	p := &fakeProvider{name: "google"}
	places, err := NewService(nil, quietLogger(), p).Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Equal(t, 0, p.calls)
}

func TestServiceFallsBackAndCaches(t *testing.T) {
	google := &fakeProvider{name: "google", err: &types.TransportError{Op: "google geocode", Err: errors.New("REQUEST_DENIED")}}
	osm := &fakeProvider{name: "nominatim", places: make([]types.Place, 8)}
	cache := mapCache{}
	svc := NewService(cache, quietLogger(), google, nil, osm)

	places, err := svc.Search(context.Background(), "Brigade Road")
	require.NoError(t, err)
	assert.Len(t, places, MaxPlaces)
	assert.Equal(t, 1, google.calls)
	assert.Equal(t, 1, osm.calls)

	_, err = svc.Search(context.Background(), "  brigade   ROAD ")
	require.NoError(t, err)
	assert.Equal(t, 1, osm.calls, "second lookup served from cache")
}

func TestServiceAllProvidersFail(t *testing.T) {
	a := &fakeProvider{name: "google", err: errors.New("a")}
	b := &fakeProvider{name: "nominatim", err: errors.New("b")}
	_, err := NewService(nil, quietLogger(), a, b).Search(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestRedisCacheMissWhenUnreachable(t *testing.T) {
	assert.Nil(t, OpenRedis("", "", 0))

	rc := OpenRedis("127.0.0.1:1", "", 0)
	defer rc.Close()
	var buf bytes.Buffer
	cache := NewRedisCache(rc, time.Minute, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cache.Set(ctx, "q", []types.Place{{Name: "x"}})
	assert.Contains(t, buf.String(), "geocode cache write failed")
	_, ok := cache.Get(ctx, "q")
	assert.False(t, ok)
	assert.Equal(t, "geocode:mg road", cacheKey("  MG   Road "))
}
