package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-parkspot/types"
)

func TestBoundingBoxForDefaultMargin(t *testing.T) {
	c := types.Coordinate{Latitude: 12.9, Longitude: 77.6}
	box := BoundingBoxFor(c, DefaultMarginDegrees)

	assert.InDelta(t, 12.88, box.MinLat, 1e-9)
	assert.InDelta(t, 12.92, box.MaxLat, 1e-9)
	assert.InDelta(t, 77.58, box.MinLon, 1e-9)
	assert.InDelta(t, 77.62, box.MaxLon, 1e-9)
	assert.True(t, box.Contains(c))
	assert.Equal(t, box, BoundingBoxFor(c, DefaultMarginDegrees))
}

func TestBoundingBoxForInvariants(t *testing.T) {
	coords := []types.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 90, Longitude: 180},
		{Latitude: -90, Longitude: -180},
		{Latitude: 89.999, Longitude: -179.999},
		{Latitude: -33.86, Longitude: 151.21},
	}
	margins := []float64{0.0001, 0.02, 1, 45, 500}

	for _, c := range coords {
		for _, m := range margins {
			box := BoundingBoxFor(c, m)
			assert.LessOrEqual(t, box.MinLat, box.MaxLat, "lat %v margin %v", c, m)
			assert.LessOrEqual(t, box.MinLon, box.MaxLon, "lon %v margin %v", c, m)
			assert.GreaterOrEqual(t, box.MinLat, -90.0)
			assert.LessOrEqual(t, box.MaxLat, 90.0)
			assert.GreaterOrEqual(t, box.MinLon, -180.0)
			assert.LessOrEqual(t, box.MaxLon, 180.0)
		}
	}
}

func TestBoundingBoxForBadMarginFallsBack(t *testing.T) {
	c := types.Coordinate{Latitude: 10, Longitude: 10}
	want := BoundingBoxFor(c, DefaultMarginDegrees)

	assert.Equal(t, want, BoundingBoxFor(c, 0))
	assert.Equal(t, want, BoundingBoxFor(c, -1))
	assert.Equal(t, want, BoundingBoxFor(c, math.NaN()))
}

func TestAggregateBucketsByThreeDecimals(t *testing.T) {
	events := []types.ParkingEvent{
		{ID: "a", Coordinate: types.Coordinate{Latitude: 12.90012, Longitude: 77.60041}},
		{ID: "b", Coordinate: types.Coordinate{Latitude: 12.90049, Longitude: 77.59990}, Weight: 2},
		{ID: "c", Coordinate: types.Coordinate{Latitude: 12.9051, Longitude: 77.6}},
	}
	grid := Aggregate(events)
	require.Len(t, grid, 2)

	cell := grid[types.CellKey{Lat: 12900, Lon: 77600}]
	assert.Equal(t, 3.0, cell.Weight)
	assert.Equal(t, 2, cell.Count)
	assert.InDelta(t, 12.9, cell.Center.Latitude, 1e-9)

	other := grid[types.CellKey{Lat: 12905, Lon: 77600}]
	assert.Equal(t, 1.0, other.Weight)
}

func TestAggregateSkipsInvalidCoordinates(t *testing.T) {
	events := []types.ParkingEvent{
		{ID: "nan", Coordinate: types.Coordinate{Latitude: math.NaN(), Longitude: 1}},
		{ID: "range", Coordinate: types.Coordinate{Latitude: 95, Longitude: 1}},
		{ID: "inf", Coordinate: types.Coordinate{Latitude: 1, Longitude: math.Inf(1)}},
		{ID: "ok", Coordinate: types.Coordinate{Latitude: 1, Longitude: 1}},
	}
	grid := Aggregate(events)
	require.Len(t, grid, 1)
	_, zeroCell := grid[types.CellKey{}]
	assert.False(t, zeroCell, "invalid points must not fall into the 0,0 cell")
}

func TestAggregateIsPure(t *testing.T) {
	events := []types.ParkingEvent{
		{ID: "a", Coordinate: types.Coordinate{Latitude: 1.0001, Longitude: 2.0001}},
		{ID: "b", Coordinate: types.Coordinate{Latitude: 1.0002, Longitude: 2.0002}, Weight: 3},
		{ID: "c", Coordinate: types.Coordinate{Latitude: -5, Longitude: 40}},
	}
	first := Aggregate(events)
	second := Aggregate(events)
	assert.Equal(t, first, second)
	assert.Equal(t, HeatPoints(first), HeatPoints(second))
}

func TestHeatPointsNormalization(t *testing.T) {
	events := []types.ParkingEvent{
		{ID: "a", Coordinate: types.Coordinate{Latitude: 1, Longitude: 1}, Weight: 4},
		{ID: "b", Coordinate: types.Coordinate{Latitude: 2, Longitude: 2}},
	}
	points := HeatPoints(Aggregate(events))
	require.Len(t, points, 2)
	assert.Equal(t, 1.0, points[0].Intensity)
	assert.Equal(t, 0.25, points[1].Intensity)

	assert.Empty(t, HeatPoints(Aggregate(nil)))
	assert.Equal(t, 1.0, Grid{}.MaxWeight())
}

func TestHeatPointsSmallWeightsUseUnitDenominator(t *testing.T) {
	grid := Grid{
		{Lat: 1, Lon: 1}: {Key: types.CellKey{Lat: 1, Lon: 1}, Weight: 0.5},
	}
	points := HeatPoints(grid)
	require.Len(t, points, 1)
	assert.Equal(t, 0.5, points[0].Intensity)
}

func TestDistanceMeters(t *testing.T) {
	a := types.Coordinate{Latitude: 0, Longitude: 0}
	b := types.Coordinate{Latitude: 0, Longitude: 1}
	assert.InDelta(t, 111195, DistanceMeters(a, b), 50)
	assert.Zero(t, DistanceMeters(a, a))
}
