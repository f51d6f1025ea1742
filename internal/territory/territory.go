// Package territory evaluates rep territory polygons against dealer and
// client coordinates.
package territory

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/territory-cli/internal/model"
)

// Polygon is a closed territory boundary in lat/lng coordinates.
type Polygon struct {
	ring *geom.LinearRing
}

// NewPolygon builds a polygon from an ordered vertex list. The ring is
// closed automatically if the last vertex does not repeat the first.
// At least three distinct vertices are required.
func NewPolygon(vertices []model.LatLng) (*Polygon, error) {
	if len(vertices) < 3 {
		return nil, eris.Errorf("territory: polygon needs at least 3 vertices, got %d", len(vertices))
	}

	// go-geom works in XY order, so lng is X and lat is Y.
	flat := make([]float64, 0, (len(vertices)+1)*2)
	for _, v := range vertices {
		flat = append(flat, v.Lng, v.Lat)
	}
	first, last := vertices[0], vertices[len(vertices)-1]
	if first != last {
		flat = append(flat, first.Lng, first.Lat)
	}

	return &Polygon{ring: geom.NewLinearRingFlat(geom.XY, flat)}, nil
}

// Contains reports whether the point falls inside the polygon.
func (p *Polygon) Contains(lat, lng float64) bool {
	return xy.IsPointInRing(geom.XY, geom.Coord{lng, lat}, p.ring.FlatCoords())
}

// DealersWithin filters dealers to those inside the polygon.
func (p *Polygon) DealersWithin(dealers []model.Dealer) []model.Dealer {
	var inside []model.Dealer
	for _, d := range dealers {
		if p.Contains(d.Lat, d.Lng) {
			inside = append(inside, d)
		}
	}
	return inside
}

// ClientsWithin filters clients to those inside the polygon.
func (p *Polygon) ClientsWithin(clients []model.Client) []model.Client {
	var inside []model.Client
	for _, c := range clients {
		if p.Contains(c.Lat, c.Lng) {
			inside = append(inside, c)
		}
	}
	return inside
}

// RepFor returns the first rep whose territory contains the point, or nil.
// Reps without a valid territory polygon are skipped.
func RepFor(reps []model.Rep, lat, lng float64) *model.Rep {
	for i := range reps {
		poly, err := NewPolygon(reps[i].Territory)
		if err != nil {
			continue
		}
		if poly.Contains(lat, lng) {
			return &reps[i]
		}
	}
	return nil
}

// palette holds the default rep colors, assigned round-robin as reps are
// created.
var palette = []string{
	"#e63946", "#457b9d", "#2a9d8f", "#e9c46a",
	"#f4a261", "#9b5de5", "#00b4d8", "#ef476f",
}

// NextColor picks a color for the nth rep.
func NextColor(n int) string {
	if n < 0 {
		n = 0
	}
	return palette[n%len(palette)]
}
