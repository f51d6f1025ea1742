package scanner

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/territory-cli/internal/model"
	"github.com/sells-group/territory-cli/internal/regions"
	"github.com/sells-group/territory-cli/pkg/places"
)

// testRegion tiles into 2 rows x 3 cols = 6 cells at the 0.5 degree step.
var testRegion = model.Region{
	Name:   "Testland",
	Bounds: model.BoundingBox{South: 0, North: 1, West: 0, East: 1.5},
	Center: model.LatLng{Lat: 0.5, Lng: 0.75},
}

// stubClient implements places.Client with a programmable response function.
type stubClient struct {
	mu      sync.Mutex
	calls   []places.NearbyRequest
	respond func(req places.NearbyRequest) (*places.NearbyResponse, error)
}

func (c *stubClient) Nearby(_ context.Context, req places.NearbyRequest) (*places.NearbyResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()
	if c.respond == nil {
		return &places.NearbyResponse{Status: "ZERO_RESULTS"}, nil
	}
	return c.respond(req)
}

// stubStore implements Store in memory.
type stubStore struct {
	mu           sync.Mutex
	prior        map[string][]model.Dealer
	replaced     map[string][]model.Dealer
	replaceCalls int
	dealersErr   error
	replaceErr   error
}

func newStubStore() *stubStore {
	return &stubStore{
		prior:    make(map[string][]model.Dealer),
		replaced: make(map[string][]model.Dealer),
	}
}

func (s *stubStore) Dealers(_ context.Context, region string) ([]model.Dealer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dealersErr != nil {
		return nil, s.dealersErr
	}
	return s.prior[region], nil
}

func (s *stubStore) ReplaceDealers(_ context.Context, region string, dealers []model.Dealer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaceCalls++
	s.replaced[region] = dealers
	return nil
}

// recordSink captures all reports and can cancel the scan after a given
// number of cells (through the scanner or a context).
type recordSink struct {
	mu        sync.Mutex
	scanner   *Scanner
	ctxCancel context.CancelFunc
	cancelAt  int
	region    string

	progress  []Progress
	failures  int
	summaries []Summary
}

func (s *recordSink) Progress(p Progress) {
	s.mu.Lock()
	s.progress = append(s.progress, p)
	s.mu.Unlock()
	if s.cancelAt > 0 && p.CellsProcessed == s.cancelAt {
		if s.scanner != nil {
			s.scanner.Cancel(s.region)
		}
		if s.ctxCancel != nil {
			s.ctxCancel()
		}
	}
}

func (s *recordSink) RequestFailed(string, model.SearchPoint, string, error) {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
}

func (s *recordSink) Done(sum Summary) {
	s.mu.Lock()
	s.summaries = append(s.summaries, sum)
	s.mu.Unlock()
}

func newTestScanner(client places.Client, store Store, sink Sink) *Scanner {
	s := New(regions.New(testRegion), client, store, sink)
	s.limiter = rate.NewLimiter(rate.Inf, 1) // no throttling in tests
	return s
}

// dealerResult builds a raw result that the classifier always accepts.
func dealerResult(id, name string, lat, lng float64) places.Result {
	r := places.Result{
		PlaceID:          id,
		Name:             name,
		Vicinity:         "1 Main St",
		Rating:           4.5,
		UserRatingsTotal: 10,
		Types:            []string{"car_dealer"},
	}
	r.Geometry.Location.Lat = lat
	r.Geometry.Location.Lng = lng
	return r
}

func cellID(req places.NearbyRequest) string {
	return fmt.Sprintf("%.1f:%.1f:%s", req.Lat, req.Lng, req.Keyword)
}

func TestScan_VisitsEveryCellAndTermInOrder(t *testing.T) {
	client := &stubClient{}
	s := newTestScanner(client, newStubStore(), nil)

	res, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)

	assert.Equal(t, 6, res.TotalCells)
	assert.Equal(t, 6, res.CellsProcessed)
	assert.False(t, res.Cancelled)
	require.Len(t, client.calls, 6*len(SearchTerms))

	// Row-major cell order, fixed term order within each cell.
	i := 0
	for _, pt := range GridPoints(testRegion.Bounds, GridStepDegrees) {
		for _, term := range SearchTerms {
			call := client.calls[i]
			assert.Equal(t, pt.Lat, call.Lat)
			assert.Equal(t, pt.Lng, call.Lng)
			assert.Equal(t, term, call.Keyword)
			assert.Equal(t, SearchRadiusMeters, call.RadiusMeters)
			i++
		}
	}
}

func TestScan_ProgressIsMonotonic(t *testing.T) {
	sink := &recordSink{}
	s := newTestScanner(&stubClient{}, newStubStore(), sink)

	_, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)

	require.Len(t, sink.progress, 6)
	for i, p := range sink.progress {
		assert.Equal(t, i+1, p.CellsProcessed)
		assert.Equal(t, 6, p.TotalCells)
		assert.Equal(t, "Testland", p.Region)
	}
	require.Len(t, sink.summaries, 1)
	assert.Equal(t, 6, sink.summaries[0].CellsProcessed)
}

func TestScan_DedupFirstSeenWins(t *testing.T) {
	client := &stubClient{
		respond: func(req places.NearbyRequest) (*places.NearbyResponse, error) {
			// The same place ID shows up from two different search points
			// with diverging fields; the first occurrence must win.
			if req.Lat == 0 && req.Lng == 0 && req.Keyword == SearchTerms[0] {
				return &places.NearbyResponse{Status: "OK", Results: []places.Result{
					dealerResult("dup-1", "Honda First Seen", 0.1, 0.1),
				}}, nil
			}
			if req.Lat == 0.5 && req.Lng == 0.5 {
				return &places.NearbyResponse{Status: "OK", Results: []places.Result{
					dealerResult("dup-1", "Honda Seen Again", 0.6, 0.6),
				}}, nil
			}
			return &places.NearbyResponse{Status: "ZERO_RESULTS"}, nil
		},
	}
	store := newStubStore()
	s := newTestScanner(client, store, nil)

	res, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)

	require.Len(t, res.Dealers, 1)
	assert.Equal(t, "dup-1", res.Dealers[0].PlaceID)
	assert.Equal(t, "Honda First Seen", res.Dealers[0].Name)
	assert.Equal(t, 0.1, res.Dealers[0].Lat)
	assert.Equal(t, res.Dealers, store.replaced["Testland"])
}

func TestScan_FiltersNonDealers(t *testing.T) {
	client := &stubClient{
		respond: func(req places.NearbyRequest) (*places.NearbyResponse, error) {
			if req.Lat == 0 && req.Lng == 0 && req.Keyword == SearchTerms[0] {
				pizza := places.Result{PlaceID: "pz-1", Name: "Joe's Pizza", Types: []string{"restaurant"}}
				return &places.NearbyResponse{Status: "OK", Results: []places.Result{
					pizza,
					dealerResult("d-1", "Mazda Ottawa", 0.1, 0.1),
				}}, nil
			}
			return &places.NearbyResponse{Status: "ZERO_RESULTS"}, nil
		},
	}
	s := newTestScanner(client, newStubStore(), nil)

	res, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)
	require.Len(t, res.Dealers, 1)
	assert.Equal(t, "d-1", res.Dealers[0].PlaceID)
}

func TestScan_PreservesAssignments(t *testing.T) {
	store := newStubStore()
	store.prior["Testland"] = []model.Dealer{
		{PlaceID: "keep-1", Name: "Toyota Testland", Region: "Testland", Status: model.DealerAssigned, AssignedRep: "rep-x"},
		{PlaceID: "gone-1", Name: "Ford Testland", Region: "Testland", Status: model.DealerAssigned, AssignedRep: "rep-y"},
		{PlaceID: "avail-1", Name: "Kia Testland", Region: "Testland", Status: model.DealerAvailable},
	}

	client := &stubClient{
		respond: func(req places.NearbyRequest) (*places.NearbyResponse, error) {
			if req.Lat == 0 && req.Lng == 0 && req.Keyword == SearchTerms[0] {
				return &places.NearbyResponse{Status: "OK", Results: []places.Result{
					dealerResult("keep-1", "Toyota Testland", 0.1, 0.1),
					dealerResult("new-1", "Subaru Testland", 0.2, 0.2),
				}}, nil
			}
			return &places.NearbyResponse{Status: "ZERO_RESULTS"}, nil
		},
	}
	s := newTestScanner(client, store, nil)

	res, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)

	byID := make(map[string]model.Dealer)
	for _, d := range res.Dealers {
		byID[d.PlaceID] = d
	}
	require.Len(t, byID, 2)

	// Re-found assigned dealer keeps its rep.
	assert.Equal(t, model.DealerAssigned, byID["keep-1"].Status)
	assert.Equal(t, "rep-x", byID["keep-1"].AssignedRep)

	// Fresh discovery starts available.
	assert.Equal(t, model.DealerAvailable, byID["new-1"].Status)
	assert.Empty(t, byID["new-1"].AssignedRep)

	// Dealers not re-found are dropped, assignment and all.
	assert.NotContains(t, byID, "gone-1")
	assert.NotContains(t, byID, "avail-1")
}

func TestScan_CancelAfterNCells(t *testing.T) {
	client := &stubClient{
		respond: func(req places.NearbyRequest) (*places.NearbyResponse, error) {
			if req.Keyword != SearchTerms[0] {
				return &places.NearbyResponse{Status: "ZERO_RESULTS"}, nil
			}
			return &places.NearbyResponse{Status: "OK", Results: []places.Result{
				dealerResult(cellID(req), "Honda "+cellID(req), req.Lat, req.Lng),
			}}, nil
		},
	}
	store := newStubStore()
	sink := &recordSink{cancelAt: 2, region: "Testland"}
	s := newTestScanner(client, store, sink)
	sink.scanner = s

	res, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 2, res.CellsProcessed)
	assert.Equal(t, 6, res.TotalCells)
	require.Len(t, client.calls, 2*len(SearchTerms))

	// Only candidates from the first two cells survive, and they are
	// persisted, not discarded.
	require.Len(t, res.Dealers, 2)
	assert.Equal(t, res.Dealers, store.replaced["Testland"])
	assert.Equal(t, 1, store.replaceCalls)

	// Session is gone; a new scan may start.
	assert.False(t, s.Scanning("Testland"))
}

func TestScan_ContextCancelStillPersists(t *testing.T) {
	client := &stubClient{
		respond: func(req places.NearbyRequest) (*places.NearbyResponse, error) {
			return &places.NearbyResponse{Status: "OK", Results: []places.Result{
				dealerResult(cellID(req), "Auto "+cellID(req), req.Lat, req.Lng),
			}}, nil
		},
	}
	store := newStubStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordSink{cancelAt: 1, ctxCancel: cancel}
	s := newTestScanner(client, store, sink)

	res, err := s.Scan(ctx, "Testland")
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.CellsProcessed)
	assert.Equal(t, 1, store.replaceCalls)
	assert.NotEmpty(t, store.replaced["Testland"])
}

func TestScan_RequestFailureIsolation(t *testing.T) {
	// Every (cell, term) pair yields one unique dealer; one pair fails.
	failing := fmt.Sprintf("%.1f:%.1f:%s", 0.5, 0.0, SearchTerms[1])

	respond := func(failPair bool) func(places.NearbyRequest) (*places.NearbyResponse, error) {
		return func(req places.NearbyRequest) (*places.NearbyResponse, error) {
			if cellID(req) == failing {
				if failPair {
					return nil, eris.New("connection reset")
				}
				return &places.NearbyResponse{Status: "ZERO_RESULTS"}, nil
			}
			return &places.NearbyResponse{Status: "OK", Results: []places.Result{
				dealerResult(cellID(req), "Ford "+cellID(req), req.Lat, req.Lng),
			}}, nil
		}
	}

	sink := &recordSink{}
	failStore := newStubStore()
	s := newTestScanner(&stubClient{respond: respond(true)}, failStore, sink)
	res, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err, "per-request failures must never abort the scan")
	assert.Equal(t, 6, res.CellsProcessed)
	assert.Equal(t, 1, res.RequestFailures)
	assert.Equal(t, 1, sink.failures)

	// Equivalent to the same scan with that pair returning no results.
	ctrlStore := newStubStore()
	ctrl := newTestScanner(&stubClient{respond: respond(false)}, ctrlStore, nil)
	ctrlRes, err := ctrl.Scan(context.Background(), "Testland")
	require.NoError(t, err)
	assert.Equal(t, ctrlRes.Dealers, res.Dealers)
}

func TestScan_RescanIsIdempotent(t *testing.T) {
	respond := func(req places.NearbyRequest) (*places.NearbyResponse, error) {
		if req.Keyword != SearchTerms[0] {
			return &places.NearbyResponse{Status: "ZERO_RESULTS"}, nil
		}
		return &places.NearbyResponse{Status: "OK", Results: []places.Result{
			dealerResult(cellID(req), "Nissan "+cellID(req), req.Lat, req.Lng),
		}}, nil
	}
	store := newStubStore()
	s := newTestScanner(&stubClient{respond: respond}, store, nil)

	first, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)

	// The registry now holds the first result set; scan again.
	store.prior["Testland"] = store.replaced["Testland"]
	second, err := s.Scan(context.Background(), "Testland")
	require.NoError(t, err)

	assert.Equal(t, first.Dealers, second.Dealers)
}

func TestScan_UnknownRegion(t *testing.T) {
	s := newTestScanner(&stubClient{}, newStubStore(), nil)
	_, err := s.Scan(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownRegion))
}

func TestScan_SearchUnavailable(t *testing.T) {
	s := New(regions.New(testRegion), nil, newStubStore(), nil)
	_, err := s.Scan(context.Background(), "Testland")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSearchUnavailable))
}

func TestScan_RejectsConcurrentScanOfSameRegion(t *testing.T) {
	s := newTestScanner(&stubClient{}, newStubStore(), nil)

	// Simulate an active session for the region.
	s.mu.Lock()
	s.sessions["Testland"] = newSession(testRegion)
	s.mu.Unlock()

	_, err := s.Scan(context.Background(), "Testland")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrScanInProgress))
}

func TestScan_PriorDealerReadFailureIsFatal(t *testing.T) {
	client := &stubClient{}
	store := newStubStore()
	store.dealersErr = eris.New("disk on fire")
	s := newTestScanner(client, store, nil)

	_, err := s.Scan(context.Background(), "Testland")
	require.Error(t, err)
	assert.Empty(t, client.calls, "no search work before preconditions pass")
}

func TestCancel_NoActiveSessionIsNoOp(t *testing.T) {
	s := newTestScanner(&stubClient{}, newStubStore(), nil)
	s.Cancel("Testland") // must not panic or error
	assert.False(t, s.Scanning("Testland"))
}
