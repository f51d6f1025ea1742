// Package scanner drives exhaustive, cancellable dealer sweeps over the
// regions in the catalog. A sweep tiles the region's bounding box on a fixed
// grid, issues one place search per grid cell and query term, deduplicates
// results by place ID, classifies them heuristically, and replaces the
// region's persisted dealer set in a single write at the end.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/territory-cli/internal/model"
	"github.com/sells-group/territory-cli/internal/regions"
	"github.com/sells-group/territory-cli/pkg/places"
)

// SearchRadiusMeters is the radius of each per-cell search request.
const SearchRadiusMeters = 25000

// interRequestDelay throttles consecutive search requests. Tuned for the
// provider's rate limits; deliberately not user-configurable.
const interRequestDelay = 200 * time.Millisecond

// SearchTerms are issued per search point, in order. One generic term per
// supported locale.
var SearchTerms = []string{
	"car dealership",
	"concessionnaire automobile",
}

// Failure taxonomy. Unknown region and unavailable search are detected before
// any work starts; per-request failures during the sweep never surface here.
var (
	ErrUnknownRegion     = eris.New("scanner: unknown region")
	ErrSearchUnavailable = eris.New("scanner: place search not configured")
	ErrScanInProgress    = eris.New("scanner: scan already in progress for region")
)

// Store is the slice of the dealer registry the scanner needs: one read at
// scan start to recover prior assignments, one atomic write at finalization.
type Store interface {
	Dealers(ctx context.Context, region string) ([]model.Dealer, error)
	ReplaceDealers(ctx context.Context, region string, dealers []model.Dealer) error
}

// Result is the outcome of one finished sweep.
type Result struct {
	Region          string
	Dealers         []model.Dealer
	CellsProcessed  int
	TotalCells      int
	RequestFailures int
	Cancelled       bool
	Elapsed         time.Duration
}

// Scanner owns the per-region session registry. Safe for concurrent use;
// concurrent scans of distinct regions are allowed, a second scan of the same
// region is rejected.
type Scanner struct {
	catalog *regions.Catalog
	client  places.Client
	store   Store
	sink    Sink
	limiter *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a scanner. A nil sink defaults to NopSink; client may be nil,
// in which case every Scan fails with ErrSearchUnavailable.
func New(catalog *regions.Catalog, client places.Client, store Store, sink Sink) *Scanner {
	if sink == nil {
		sink = NopSink{}
	}
	return &Scanner{
		catalog:  catalog,
		client:   client,
		store:    store,
		sink:     sink,
		limiter:  rate.NewLimiter(rate.Every(interRequestDelay), 1),
		sessions: make(map[string]*session),
	}
}

// Scan sweeps the named region. It blocks until the sweep finalizes; progress
// is streamed to the sink. Cancellation (via Cancel or ctx) stops the sweep
// at the next search-point boundary and still persists what was found.
func (s *Scanner) Scan(ctx context.Context, regionName string) (*Result, error) {
	if s.client == nil {
		return nil, ErrSearchUnavailable
	}

	region, err := s.catalog.Get(regionName)
	if err != nil {
		return nil, eris.Wrapf(ErrUnknownRegion, "%q", regionName)
	}

	sess, err := s.register(region)
	if err != nil {
		return nil, err
	}
	defer s.unregister(regionName)

	// Prior assignments are recovered from the registry before any searching
	// so finalization can preserve them.
	prior, err := s.store.Dealers(ctx, regionName)
	if err != nil {
		return nil, eris.Wrapf(err, "scanner: read prior dealers for %s", regionName)
	}

	log := zap.L().With(zap.String("component", "scanner"), zap.String("region", regionName))

	points := GridPoints(region.Bounds, GridStepDegrees)
	log.Info("starting scan",
		zap.Int("cells", len(points)),
		zap.Int("terms", len(SearchTerms)),
	)

	for _, pt := range points {
		// Cooperative cancellation, checked once per step boundary. An
		// in-flight request is always allowed to complete first.
		if sess.cancelled.Load() || ctx.Err() != nil {
			break
		}

		s.sweepPoint(ctx, sess, pt, log)
		sess.cellsDone++

		s.sink.Progress(Progress{
			Region:          regionName,
			CellsProcessed:  sess.cellsDone,
			TotalCells:      len(points),
			CandidatesFound: len(sess.order),
			RequestFailures: sess.failures,
		})
	}

	return s.finalize(ctx, sess, prior, len(points))
}

// Cancel flags the active session for the region, if any. Idempotent: with no
// active session it is a no-op.
func (s *Scanner) Cancel(regionName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[regionName]; ok {
		sess.cancelled.Store(true)
	}
}

// Scanning reports whether the region has an active session.
func (s *Scanner) Scanning(regionName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[regionName]
	return ok
}

func (s *Scanner) register(region model.Region) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[region.Name]; ok {
		return nil, eris.Wrapf(ErrScanInProgress, "%q", region.Name)
	}
	sess := newSession(region)
	s.sessions[region.Name] = sess
	return sess, nil
}

func (s *Scanner) unregister(regionName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, regionName)
}

// sweepPoint issues one request per search term at the point. Request
// failures are absorbed: counted, reported, skipped.
func (s *Scanner) sweepPoint(ctx context.Context, sess *session, pt model.SearchPoint, log *zap.Logger) {
	for _, term := range SearchTerms {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		resp, err := s.client.Nearby(ctx, places.NearbyRequest{
			Keyword:      term,
			Lat:          pt.Lat,
			Lng:          pt.Lng,
			RadiusMeters: SearchRadiusMeters,
		})
		if err != nil {
			sess.failures++
			log.Warn("request failed, skipping",
				zap.Int("row", pt.Row),
				zap.Int("col", pt.Col),
				zap.String("term", term),
				zap.Error(err),
			)
			s.sink.RequestFailed(sess.region.Name, pt, term, err)
			continue
		}

		for _, r := range resp.Results {
			if !IsDealerCandidate(r.Name, r.Types) {
				continue
			}
			sess.add(model.Candidate{
				PlaceID:     r.PlaceID,
				Name:        r.Name,
				Address:     r.Vicinity,
				Lat:         r.Geometry.Location.Lat,
				Lng:         r.Geometry.Location.Lng,
				Rating:      r.Rating,
				RatingCount: r.UserRatingsTotal,
				Types:       r.Types,
			})
		}
	}
}

// finalize replaces the region's persisted dealers with the session's
// candidate set in a single write, preserving assignment status for place IDs
// that were assigned before the scan. Runs for cancelled scans too: partial
// results are persisted, not discarded.
func (s *Scanner) finalize(ctx context.Context, sess *session, prior []model.Dealer, totalCells int) (*Result, error) {
	assigned := make(map[string]model.Dealer)
	for _, d := range prior {
		if d.Status == model.DealerAssigned {
			assigned[d.PlaceID] = d
		}
	}

	dealers := make([]model.Dealer, 0, len(sess.order))
	for _, c := range sess.all() {
		d := model.NewDealer(c, sess.region.Name)
		if prev, ok := assigned[d.PlaceID]; ok {
			d.Status = prev.Status
			d.AssignedRep = prev.AssignedRep
		}
		dealers = append(dealers, d)
	}

	// The write must happen even when the scan context was interrupted;
	// cancellation means "stop sweeping", never "drop what was found".
	if err := s.store.ReplaceDealers(context.WithoutCancel(ctx), sess.region.Name, dealers); err != nil {
		return nil, eris.Wrapf(err, "scanner: persist dealers for %s", sess.region.Name)
	}

	cancelled := sess.cancelled.Load() || ctx.Err() != nil
	res := &Result{
		Region:          sess.region.Name,
		Dealers:         dealers,
		CellsProcessed:  sess.cellsDone,
		TotalCells:      totalCells,
		RequestFailures: sess.failures,
		Cancelled:       cancelled,
		Elapsed:         time.Since(sess.started),
	}

	s.sink.Done(Summary{
		Region:          res.Region,
		DealersFound:    len(dealers),
		CellsProcessed:  res.CellsProcessed,
		TotalCells:      res.TotalCells,
		RequestFailures: res.RequestFailures,
		Cancelled:       cancelled,
		Elapsed:         res.Elapsed,
	})

	return res, nil
}
