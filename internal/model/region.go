// Package model defines the core domain types shared across the CLI,
// scanner, store, and HTTP API.
package model

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// BoundingBox is a latitude/longitude aligned box.
type BoundingBox struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// Contains reports whether the point falls inside the box.
func (b BoundingBox) Contains(p LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// Region is a named geographic area used as the unit of scanning and dealer
// scoping. Regions are static configuration, defined at process start.
type Region struct {
	Name   string      `json:"name" yaml:"name"`
	Bounds BoundingBox `json:"bounds" yaml:"bounds"`
	Center LatLng      `json:"center" yaml:"center"`
	// Cities is descriptive only; it is never used by the scanner.
	Cities []string `json:"cities,omitempty" yaml:"cities,omitempty"`
}

// SearchPoint is one grid-cell center used for one batch of search requests.
// Ephemeral: generated per scan, never persisted.
type SearchPoint struct {
	Lat float64
	Lng float64
	Row int
	Col int
}
