package mlmodel

import (
	"context"
	"log/slog"
	"time"

	"go-parkspot/metrics"
	"go-parkspot/types"
)

const DefaultTimeout = 5 * time.Second

// Orchestrator runs a Predictor under a hard timeout. Every failure mode
// (timeout, transport, malformed response) collapses into a nil result, so
// callers never see transport errors.
type Orchestrator struct {
	predictor Predictor
	timeout   time.Duration
	after     func(time.Duration) <-chan time.Time
	log       *slog.Logger
}

func NewOrchestrator(predictor Predictor, timeout time.Duration, log *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		predictor: predictor,
		timeout:   timeout,
		after:     time.After,
		log:       log,
	}
}

type outcome struct {
	result *types.PredictionResult
	err    error
}

// Fetch returns the forecast for c, or nil when it is unavailable. The
// in-flight request is cancelled when the timeout fires.
func (o *Orchestrator) Fetch(ctx context.Context, c types.Coordinate, cond types.Conditions) *types.PredictionResult {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := o.predictor.Predict(ctx, c, cond)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		metrics.PredictionDurationMs.Observe(float64(time.Since(start).Milliseconds()))
		if out.err != nil || out.result == nil {
			metrics.PredictionsTotal.WithLabelValues("unavailable").Inc()
			o.log.Warn("prediction unavailable", "coordinate", c.String(), "err", out.err)
			return nil
		}
		res := sanitize(*out.result, c)
		metrics.PredictionsTotal.WithLabelValues(string(res.Source)).Inc()
		return &res
	case <-o.after(o.timeout):
		cancel()
		metrics.PredictionsTotal.WithLabelValues("timeout").Inc()
		o.log.Warn("prediction timed out", "coordinate", c.String(), "timeout", o.timeout)
		return nil
	case <-ctx.Done():
		metrics.PredictionsTotal.WithLabelValues("unavailable").Inc()
		return nil
	}
}

// sanitize tags the result with the requested coordinate and enforces the
// percentage bounds whatever the predictor returned.
func sanitize(res types.PredictionResult, c types.Coordinate) types.PredictionResult {
	res.Coordinate = c
	res.CurrentOccupancyPercent = clampInt(res.CurrentOccupancyPercent, 0, 100)
	res.ConfidencePercent = clampInt(res.ConfidencePercent, 0, 100)
	series := make([]types.SeriesPoint, len(res.ShortTermSeries))
	for i, p := range res.ShortTermSeries {
		p.ValuePercent = clampInt(p.ValuePercent, 0, 100)
		series[i] = p
	}
	res.ShortTermSeries = series
	if res.Recommendation == "" {
		res.Recommendation = Recommend(res.CurrentOccupancyPercent)
	}
	return res
}
