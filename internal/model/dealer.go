package model

// DealerStatus tracks whether a dealer has been claimed by a representative.
type DealerStatus string

const (
	// DealerAvailable means the dealer is unclaimed.
	DealerAvailable DealerStatus = "available"
	// DealerAssigned means the dealer belongs to a representative.
	DealerAssigned DealerStatus = "assigned"
)

// Candidate is one raw place-search result that passed the dealer classifier.
// Candidates live only inside a scan session; the ones that survive
// deduplication are promoted to Dealer records at finalization.
type Candidate struct {
	PlaceID     string   `json:"placeId"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"reviews"`
	Types       []string `json:"types,omitempty"`
}

// Dealer is a persisted, deduplicated dealership record scoped to a region.
// PlaceID is unique within a region; a rescan replaces the region's whole set
// but preserves assignment status for place IDs that are found again.
type Dealer struct {
	PlaceID     string       `json:"placeId"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Lat         float64      `json:"lat"`
	Lng         float64      `json:"lng"`
	Rating      float64      `json:"rating"`
	RatingCount int          `json:"reviews"`
	Phone       string       `json:"phone,omitempty"`
	Region      string       `json:"region"`
	Status      DealerStatus `json:"status"`
	AssignedRep string       `json:"assignedTo,omitempty"`
}

// NewDealer promotes a candidate to an available dealer in the given region.
func NewDealer(c Candidate, region string) Dealer {
	return Dealer{
		PlaceID:     c.PlaceID,
		Name:        c.Name,
		Address:     c.Address,
		Lat:         c.Lat,
		Lng:         c.Lng,
		Rating:      c.Rating,
		RatingCount: c.RatingCount,
		Region:      region,
		Status:      DealerAvailable,
	}
}
