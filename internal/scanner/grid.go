package scanner

import (
	"math"

	"github.com/sells-group/territory-cli/internal/model"
)

// GridStepDegrees is the fixed tiling step of the scan grid, in degrees of
// latitude and longitude.
const GridStepDegrees = 0.5

// GridPoints tiles the bounding box on a fixed step and returns the search
// points in row-major order (latitude outer, longitude inner). The grid
// covers [south, north) x [west, east); points sit on the southwest corner of
// each cell. The ordering is deterministic so scans are reproducible.
func GridPoints(b model.BoundingBox, step float64) []model.SearchPoint {
	rows, cols := gridDims(b, step)
	if rows <= 0 || cols <= 0 {
		return nil
	}

	pts := make([]model.SearchPoint, 0, rows*cols)
	for r := 0; r < rows; r++ {
		lat := b.South + float64(r)*step
		for c := 0; c < cols; c++ {
			pts = append(pts, model.SearchPoint{
				Lat: lat,
				Lng: b.West + float64(c)*step,
				Row: r,
				Col: c,
			})
		}
	}
	return pts
}

// CellCount returns how many grid cells a scan of the box will visit.
func CellCount(b model.BoundingBox, step float64) int {
	rows, cols := gridDims(b, step)
	if rows <= 0 || cols <= 0 {
		return 0
	}
	return rows * cols
}

func gridDims(b model.BoundingBox, step float64) (rows, cols int) {
	if step <= 0 {
		return 0, 0
	}
	rows = int(math.Ceil((b.North - b.South) / step))
	cols = int(math.Ceil((b.East - b.West) / step))
	return rows, cols
}
