package routes

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-parkspot/db"
	"go-parkspot/geocode"
	"go-parkspot/mlmodel"
	"go-parkspot/processor"
	"go-parkspot/tracker"
	"go-parkspot/types"
	"go-parkspot/viewstate"
)

func newTestRouter(t *testing.T) (*gin.Engine, *db.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := db.NewMemoryStore(types.ParkingEvent{
		ID:          "seed",
		Coordinate:  types.Coordinate{Latitude: 12.9005, Longitude: 77.6005},
		VehicleType: types.Car,
		Weight:      1,
	})
	coord := viewstate.New(store, mlmodel.NewOrchestrator(mlmodel.Estimator{}, time.Second, log),
		processor.NewSubmitter(store, log), viewstate.Config{MarginDegrees: 0.02, MaxResults: 50}, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = coord.Run(ctx)
		close(done)
	}()

	positions := tracker.NewPushProvider(true)
	track := tracker.New(positions, coord, tracker.DefaultWatchOptions, log)
	require.NoError(t, track.Start(ctx))

	t.Cleanup(func() {
		track.Stop()
		cancel()
		<-done
	})

	r := SetupRouter(Deps{
		ViewState: coord,
		Locator:   track,
		Positions: positions,
		Search:    geocode.NewService(nil, log),
		Store:     store,
		Log:       log,
	})
	return r, store
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func state(t *testing.T, r *gin.Engine) viewstate.Snapshot {
	t.Helper()
	w := do(r, http.MethodGet, "/api/parking/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap viewstate.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestPositionToReportRoundTrip(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/parking/position", `{"latitude": 12.9, "longitude": 77.6}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		s := state(t, r)
		return s.DataCoordinate != nil && s.Prediction != nil && len(s.Events) == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap := state(t, r)
	assert.Equal(t, types.TrackingLive, snap.TrackingMode)
	assert.Equal(t, types.SourceEstimate, snap.Prediction.Source)
	assert.Len(t, snap.Heat, 1)
	assert.NotEmpty(t, snap.Stats.Advice)

	w = do(r, http.MethodPost, "/api/parking/reports", `{"vehicleType": "motorcycle", "rain": "1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, store.Len())

	require.Eventually(t, func() bool {
		s := state(t, r)
		return len(s.Events) == 2 && s.Submission == types.SubmissionSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	w = do(r, http.MethodPost, "/api/parking/dismiss", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOverrideThenResume(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/parking/override", `{"latitude": 48.85, "longitude": 2.35}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		s := state(t, r)
		return s.TrackingMode == types.TrackingOverridden && s.DataCoordinate != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, state(t, r).Events)

	w = do(r, http.MethodPost, "/api/parking/resume", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		return state(t, r).TrackingMode == types.TrackingLive
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOperationalEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)

	w := do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = do(r, http.MethodGet, "/api/parking/search?q=", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"places": []}`, w.Body.String())
}
