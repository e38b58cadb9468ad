package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-parkspot/processor"
	"go-parkspot/tracker"
	"go-parkspot/types"
	"go-parkspot/viewstate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeViewState struct {
	snap       viewstate.Snapshot
	refreshes  [][2]bool
	conditions []types.Conditions
	dismissed  int
	submitted  []processor.Report
	submitErr  error
}

func (f *fakeViewState) Snapshot() viewstate.Snapshot { return f.snap }

func (f *fakeViewState) Refresh(events, prediction bool) {
	f.refreshes = append(f.refreshes, [2]bool{events, prediction})
}

func (f *fakeViewState) SetConditions(cond types.Conditions) {
	f.conditions = append(f.conditions, cond)
}

func (f *fakeViewState) Dismiss() { f.dismissed++ }

func (f *fakeViewState) Submit(_ context.Context, r processor.Report) (types.ParkingEvent, error) {
	f.submitted = append(f.submitted, r)
	if _, err := processor.NewSubmitter(nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Normalize(r); err != nil {
		return types.ParkingEvent{}, err
	}
	if f.submitErr != nil {
		return types.ParkingEvent{}, f.submitErr
	}
	lat, _ := r.Lat.Value()
	lon, _ := r.Lon.Value()
	return types.ParkingEvent{ID: "doc-1", Coordinate: types.Coordinate{Latitude: lat, Longitude: lon}, VehicleType: types.Car}, nil
}

type fakeLocator struct {
	overrides []types.Coordinate
	resumed   int
}

func (f *fakeLocator) Override(c types.Coordinate) error {
	if !c.Valid() {
		return &types.ValidationError{Fields: []string{"latitude", "longitude"}}
	}
	f.overrides = append(f.overrides, c)
	return nil
}

func (f *fakeLocator) Resume() { f.resumed++ }

type fakeSearcher struct {
	places []types.Place
	err    error
}

func (f fakeSearcher) Search(context.Context, string) ([]types.Place, error) {
	return f.places, f.err
}

type fakeChecker struct{ err error }

func (f fakeChecker) CheckConnection(context.Context) error { return f.err }

func serve(h gin.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, strings.Split(target, "?")[0], h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPostReportStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"created", nil, http.StatusCreated},
		{"validation", &types.ValidationError{Fields: []string{"vehicleType"}}, http.StatusBadRequest},
		{"in flight", types.ErrSubmissionInFlight, http.StatusConflict},
		{"store", &types.StoreWriteError{Message: "PERMISSION_DENIED"}, http.StatusBadGateway},
		{"transport", &types.TransportError{Op: "write", Err: errors.New("reset")}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vs := &fakeViewState{submitErr: tc.err}
			w := serve(func(c *gin.Context) { PostReport(c, vs) }, http.MethodPost, "/reports",
				`{"lat": 12.9, "lon": 77.6, "vehicleType": "car"}`)
			assert.Equal(t, tc.status, w.Code)
			if tc.err != nil {
				assert.Contains(t, w.Body.String(), types.UserMessage(tc.err))
			}
		})
	}
}

func TestPostReportUsesActiveCoordinate(t *testing.T) {
	active := types.Coordinate{Latitude: 12.9, Longitude: 77.6}
	vs := &fakeViewState{snap: viewstate.Snapshot{ActiveCoordinate: &active}}

	w := serve(func(c *gin.Context) { PostReport(c, vs) }, http.MethodPost, "/reports",
		`{"vehicleType": "car", "rain": 1, "easeRating": "8"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, vs.submitted, 1)
	lat, ok := vs.submitted[0].Lat.Value()
	require.True(t, ok)
	assert.Equal(t, 12.9, lat)

	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "doc-1", body.ID)
}

func TestPostReportWithoutLocationIsRejected(t *testing.T) {
	vs := &fakeViewState{}
	w := serve(func(c *gin.Context) { PostReport(c, vs) }, http.MethodPost, "/reports", `{"vehicleType": "car"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "lat, lon")

	// only one half of a coordinate is never completed from the active location
	active := types.Coordinate{Latitude: 12.9, Longitude: 77.6}
	vs = &fakeViewState{snap: viewstate.Snapshot{ActiveCoordinate: &active}}
	w = serve(func(c *gin.Context) { PostReport(c, vs) }, http.MethodPost, "/reports", `{"lat": 12.9, "vehicleType": "car"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "lon")
}

func TestPostPosition(t *testing.T) {
	feed := tracker.NewPushProvider(true)
	h := func(c *gin.Context) { PostPosition(c, feed) }

	w := serve(h, http.MethodPost, "/position", `{"latitude": 12.9, "longitude": 77.6, "timestamp": "2024-05-01T09:00:00Z"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	pos, err := feed.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Coordinate{Latitude: 12.9, Longitude: 77.6}, pos)

	w = serve(h, http.MethodPost, "/position", `{"latitude": 12.9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, http.MethodPost, "/position", `{"latitude": 95, "longitude": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	denied := tracker.NewPushProvider(false)
	w = serve(func(c *gin.Context) { PostPosition(c, denied) }, http.MethodPost, "/position",
		`{"latitude": 12.9, "longitude": 77.6}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOverrideAndResume(t *testing.T) {
	loc := &fakeLocator{}
	w := serve(func(c *gin.Context) { PostOverride(c, loc) }, http.MethodPost, "/override", `{"latitude": 48.85, "longitude": 2.35}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []types.Coordinate{{Latitude: 48.85, Longitude: 2.35}}, loc.overrides)

	w = serve(func(c *gin.Context) { PostOverride(c, loc) }, http.MethodPost, "/override", `{"latitude": 91, "longitude": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(func(c *gin.Context) { PostResume(c, loc) }, http.MethodPost, "/resume", ``)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, loc.resumed)
}

func TestPostRefreshTargets(t *testing.T) {
	vs := &fakeViewState{}
	h := func(c *gin.Context) { PostRefresh(c, vs) }

	assert.Equal(t, http.StatusAccepted, serve(h, http.MethodPost, "/refresh?target=events", "").Code)
	assert.Equal(t, http.StatusAccepted, serve(h, http.MethodPost, "/refresh?target=prediction", "").Code)
	assert.Equal(t, http.StatusAccepted, serve(h, http.MethodPost, "/refresh", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodPost, "/refresh?target=map", "").Code)

	assert.Equal(t, [][2]bool{{true, false}, {false, true}, {true, true}}, vs.refreshes)
}

func TestPutConditionsAndDismiss(t *testing.T) {
	vs := &fakeViewState{}
	w := serve(func(c *gin.Context) { PutConditions(c, vs) }, http.MethodPut, "/conditions", `{"rain": 1, "is_event": "0"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []types.Conditions{{Rain: true}}, vs.conditions)

	w = serve(func(c *gin.Context) { PostDismiss(c, vs) }, http.MethodPost, "/dismiss", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, vs.dismissed)
}

func TestSearchAndHealth(t *testing.T) {
	w := serve(func(c *gin.Context) { SearchPlaces(c, fakeSearcher{}) }, http.MethodGet, "/search?q=", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"places": []}`, w.Body.String())

	w = serve(func(c *gin.Context) { SearchPlaces(c, fakeSearcher{err: errors.New("down")}) }, http.MethodGet, "/search?q=x", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w = serve(func(c *gin.Context) { Health(c, fakeChecker{}, log) }, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(func(c *gin.Context) { Health(c, fakeChecker{err: errors.New("unreachable")}, log) }, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
