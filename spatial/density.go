package spatial

import (
	"math"
	"sort"

	"go-parkspot/types"
)

// cellScale rounds coordinates to 3 decimal places (about 111 m).
const cellScale = 1000.0

// Grid maps a cell key to its aggregated weight.
type Grid map[types.CellKey]types.DensityCell

// HeatPoint is a cell with its weight normalized into [0,1] for rendering.
type HeatPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Weight    float64 `json:"weight"`
	Intensity float64 `json:"intensity"`
}

// CellKeyFor snaps c onto the fixed grid.
func CellKeyFor(c types.Coordinate) types.CellKey {
	return types.CellKey{
		Lat: int64(math.Round(c.Latitude * cellScale)),
		Lon: int64(math.Round(c.Longitude * cellScale)),
	}
}

// Aggregate buckets events into density cells. It is a pure function of the
// input set and is rebuilt from scratch on every change. Events without a
// valid coordinate are skipped; a missing or non-positive weight counts as 1.
func Aggregate(events []types.ParkingEvent) Grid {
	grid := make(Grid, len(events))
	for _, ev := range events {
		if !ev.Coordinate.Valid() {
			continue
		}
		key := CellKeyFor(ev.Coordinate)
		cell, ok := grid[key]
		if !ok {
			cell = types.DensityCell{
				Key: key,
				Center: types.Coordinate{
					Latitude:  float64(key.Lat) / cellScale,
					Longitude: float64(key.Lon) / cellScale,
				},
			}
		}
		cell.Weight += EventWeight(ev)
		cell.Count++
		grid[key] = cell
	}
	return grid
}

// EventWeight returns the weight an event contributes to its cell.
func EventWeight(ev types.ParkingEvent) float64 {
	if !(ev.Weight > 0) || math.IsInf(ev.Weight, 0) {
		return 1
	}
	return ev.Weight
}

// MaxWeight is the largest cell weight, never less than 1.
func (g Grid) MaxWeight() float64 {
	top := 1.0
	for _, cell := range g {
		if cell.Weight > top {
			top = cell.Weight
		}
	}
	return top
}

// HeatPoints normalizes every cell by the heaviest one. Output is ordered by
// cell key so repeated calls on the same grid give identical slices.
func HeatPoints(g Grid) []HeatPoint {
	keys := make([]types.CellKey, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Lat != keys[j].Lat {
			return keys[i].Lat < keys[j].Lat
		}
		return keys[i].Lon < keys[j].Lon
	})

	denom := g.MaxWeight()
	points := make([]HeatPoint, 0, len(keys))
	for _, k := range keys {
		cell := g[k]
		points = append(points, HeatPoint{
			Latitude:  cell.Center.Latitude,
			Longitude: cell.Center.Longitude,
			Weight:    cell.Weight,
			Intensity: cell.Weight / denom,
		})
	}
	return points
}
