package scanner

import (
	"sync/atomic"
	"time"

	"github.com/sells-group/territory-cli/internal/model"
)

// session is the ephemeral state of one in-progress sweep of one region.
// It is owned by the scanner goroutine running the sweep; only the cancelled
// flag is touched from other goroutines.
type session struct {
	region    model.Region
	started   time.Time
	cancelled atomic.Bool

	// candidates is keyed by place ID; order preserves first-seen insertion
	// order so finalization is deterministic.
	candidates map[string]model.Candidate
	order      []string

	cellsDone int
	failures  int
}

func newSession(region model.Region) *session {
	return &session{
		region:     region,
		started:    time.Now(),
		candidates: make(map[string]model.Candidate),
	}
}

// add inserts a candidate unless its place ID was already seen. First seen
// wins; duplicates are discarded, never merged.
func (s *session) add(c model.Candidate) bool {
	if _, seen := s.candidates[c.PlaceID]; seen {
		return false
	}
	s.candidates[c.PlaceID] = c
	s.order = append(s.order, c.PlaceID)
	return true
}

func (s *session) all() []model.Candidate {
	out := make([]model.Candidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.candidates[id])
	}
	return out
}
