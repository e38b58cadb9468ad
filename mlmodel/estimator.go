package mlmodel

import (
	"context"
	"fmt"
	"math"

	"go-parkspot/types"
)

// Estimator derives a forecast from the coordinate alone. It is a
// presentation fallback used when no model backend is configured, not a
// forecast: the same coordinate always yields the same numbers.
type Estimator struct{}

func (Estimator) Predict(ctx context.Context, c types.Coordinate, _ types.Conditions) (*types.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, fmt.Errorf("estimate: invalid coordinate %v", c)
	}

	base, modifier := normalizedPosition(c)
	current := clampInt(int(math.Round(100-(base*40+modifier*30))), 5, 95)
	confidence := clampInt(int(math.Round(70+modifier*15)), 45, 98)

	return &types.PredictionResult{
		Coordinate:              c,
		CurrentOccupancyPercent: current,
		ConfidencePercent:       confidence,
		ShortTermSeries:         ShortTermSeries(c, current),
		Recommendation:          Recommend(current),
		Source:                  types.SourceEstimate,
	}, nil
}

// ShortTermSeries smooths the current estimate into four 30 minute steps.
// The perturbation is a fixed function of the coordinate, never random.
func ShortTermSeries(c types.Coordinate, current int) []types.SeriesPoint {
	base, modifier := normalizedPosition(c)
	series := make([]types.SeriesPoint, 0, 4)
	for idx := 0; idx < 4; idx++ {
		delta := float64(idx) * 0.18
		v := float64(current) + math.Sin(base+float64(idx))*10 - modifier*6 + delta*15
		label := "Now"
		if idx > 0 {
			label = fmt.Sprintf("%dm", idx*30)
		}
		series = append(series, types.SeriesPoint{
			Label:        label,
			ValuePercent: clampInt(int(math.Round(v)), 5, 97),
		})
	}
	return series
}

func Recommend(current int) types.Recommendation {
	switch {
	case current > 70:
		return types.Plenty
	case current > 40:
		return types.Moderate
	default:
		return types.High
	}
}

// ClampPercent rounds v and clamps it to [0,100].
func ClampPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return clampInt(int(math.Round(math.Min(math.Max(v, -1), 101))), 0, 100)
}

func normalizedPosition(c types.Coordinate) (base, modifier float64) {
	return (c.Latitude + 90) / 180, (c.Longitude + 180) / 360
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
