package model

import "time"

// Rep is a sales representative. Territory holds the vertices of the rep's
// territory polygon in drawing order; an empty slice means no territory yet.
type Rep struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Color     string    `json:"color"`
	Visible   bool      `json:"visible"`
	Territory []LatLng  `json:"territory,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client is an imported customer location, optionally linked to a rep and to
// a matched dealer.
type Client struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Lat            float64 `json:"lat,omitempty"`
	Lng            float64 `json:"lng,omitempty"`
	RepID          string  `json:"repId,omitempty"`
	MatchedPlaceID string  `json:"matchedPlaceId,omitempty"`
	Source         string  `json:"source,omitempty"`
}
