package mlmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go-parkspot/types"
)

// Predictor produces an occupancy forecast for a coordinate.
type Predictor interface {
	Predict(ctx context.Context, c types.Coordinate, cond types.Conditions) (*types.PredictionResult, error)
}

type MLRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rain      int     `json:"rain"`
	IsEvent   int     `json:"is_event"`
}

type MLResponse struct {
	OccupancyRate *float64        `json:"occupancy_rate"`
	LocationID    json.RawMessage `json:"location_id"`
	Confidence    *float64        `json:"confidence,omitempty"`
}

var ErrMalformedResponse = errors.New("malformed prediction response")

// Client calls the hosted parking model's /predict endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Predict(ctx context.Context, coord types.Coordinate, cond types.Conditions) (*types.PredictionResult, error) {
	payload, err := json.Marshal(MLRequest{
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Rain:      boolToInt(cond.Rain),
		IsEvent:   boolToInt(cond.NearbyEvent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ML request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create ML request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Op: "predict", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.TransportError{Op: "predict", Err: fmt.Errorf("ML model returned status: %s", resp.Status)}
	}

	var mlResp MLResponse
	if err := json.NewDecoder(resp.Body).Decode(&mlResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if mlResp.OccupancyRate == nil || math.IsNaN(*mlResp.OccupancyRate) || math.IsInf(*mlResp.OccupancyRate, 0) {
		return nil, fmt.Errorf("%w: missing occupancy_rate", ErrMalformedResponse)
	}

	current := ClampPercent(*mlResp.OccupancyRate)
	confidence := 0
	if mlResp.Confidence != nil && !math.IsNaN(*mlResp.Confidence) {
		confidence = ClampPercent(*mlResp.Confidence)
	}

	return &types.PredictionResult{
		Coordinate:              coord,
		CurrentOccupancyPercent: current,
		ConfidencePercent:       confidence,
		ShortTermSeries:         ShortTermSeries(coord, current),
		Recommendation:          Recommend(current),
		LocationID:              locationID(mlResp.LocationID),
		Source:                  types.SourceModel,
	}, nil
}

// locationID keeps the identifier opaque: strings are unquoted, anything
// else is kept as its JSON text.
func locationID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
