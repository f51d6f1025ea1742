package scanner

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/model"
)

// Progress is emitted after every completed search point. CellsProcessed is
// monotonically non-decreasing for the lifetime of a scan.
type Progress struct {
	Region          string `json:"region"`
	CellsProcessed  int    `json:"cellsProcessed"`
	TotalCells      int    `json:"totalCells"`
	CandidatesFound int    `json:"candidatesFound"`
	RequestFailures int    `json:"requestFailures"`
}

// Summary is emitted once when a scan finalizes, whether it ran to completion
// or was cancelled part way.
type Summary struct {
	Region          string        `json:"region"`
	DealersFound    int           `json:"totalDealersFound"`
	CellsProcessed  int           `json:"cellsProcessed"`
	TotalCells      int           `json:"totalCells"`
	RequestFailures int           `json:"requestFailures"`
	Cancelled       bool          `json:"cancelled"`
	Elapsed         time.Duration `json:"-"`
}

// Sink receives scan progress. Implementations must be fast; the scanner
// calls them synchronously between search points.
type Sink interface {
	Progress(p Progress)
	RequestFailed(region string, point model.SearchPoint, term string, err error)
	Done(s Summary)
}

// NopSink discards all progress reports.
type NopSink struct{}

func (NopSink) Progress(Progress)                                      {}
func (NopSink) RequestFailed(string, model.SearchPoint, string, error) {}
func (NopSink) Done(Summary)                                           {}

// LogSink reports progress through the global zap logger.
type LogSink struct{}

func (LogSink) Progress(p Progress) {
	zap.L().Info("scan progress",
		zap.String("region", p.Region),
		zap.Int("cells", p.CellsProcessed),
		zap.Int("total_cells", p.TotalCells),
		zap.Int("candidates", p.CandidatesFound),
	)
}

func (LogSink) RequestFailed(region string, point model.SearchPoint, term string, err error) {
	zap.L().Warn("search request failed",
		zap.String("region", region),
		zap.Int("row", point.Row),
		zap.Int("col", point.Col),
		zap.String("term", term),
		zap.Error(err),
	)
}

func (LogSink) Done(s Summary) {
	zap.L().Info("scan complete",
		zap.String("region", s.Region),
		zap.Int("dealers", s.DealersFound),
		zap.Int("failures", s.RequestFailures),
		zap.Bool("cancelled", s.Cancelled),
		zap.Duration("elapsed", s.Elapsed),
	)
}
