package importer

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/territory-cli/internal/model"
	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/internal/territory"
	"github.com/sells-group/territory-cli/pkg/geocode"
)

// geocodeConcurrency caps parallel geocoding calls during an import.
const geocodeConcurrency = 5

// Importer loads client rows, geocodes those without coordinates, matches
// them against the dealer registry, and assigns reps by territory.
type Importer struct {
	store    store.Store
	geocoder geocode.Geocoder
	log      *zap.Logger
}

// Report summarizes an import run.
type Report struct {
	Source   string  `json:"source"`
	Total    int     `json:"total"`
	Matched  int     `json:"matched"`
	Review   int     `json:"reviewRequired"`
	NoMatch  int     `json:"noMatch"`
	Geocoded int     `json:"geocoded"`
	Matches  []Match `json:"-"`
}

// New creates an Importer. The geocoder may be nil, in which case rows
// without coordinates keep a zero location.
func New(s store.Store, g geocode.Geocoder) *Importer {
	return &Importer{
		store:    s,
		geocoder: g,
		log:      zap.L().With(zap.String("component", "importer")),
	}
}

// Run imports the file for the given region and persists the resulting
// clients. Match confidence decides linkage; rep assignment comes from
// territory polygons.
func (im *Importer) Run(ctx context.Context, path, region string) (*Report, error) {
	rows, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	dealers, err := im.store.Dealers(ctx, region)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read dealers for %s", region)
	}
	reps, err := im.store.Reps(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read reps")
	}

	report := &Report{Source: filepath.Base(path), Total: len(rows)}

	geocoded, err := im.geocodeMissing(ctx, rows, report)
	if err != nil {
		return nil, err
	}

	clients := make([]model.Client, 0, len(geocoded))
	for _, row := range geocoded {
		m := BestMatch(row, dealers)
		report.Matches = append(report.Matches, m)

		c := model.Client{
			ID:      uuid.NewString(),
			Name:    row.Name,
			Address: row.Address,
			Lat:     row.Lat,
			Lng:     row.Lng,
			Source:  report.Source,
		}
		switch m.Kind {
		case MatchAuto:
			report.Matched++
			c.MatchedPlaceID = m.Dealer.PlaceID
		case MatchReview:
			report.Review++
		default:
			report.NoMatch++
		}

		if rep := territory.RepFor(reps, c.Lat, c.Lng); rep != nil {
			c.RepID = rep.ID
		}
		clients = append(clients, c)
	}

	if err := im.store.SaveClients(ctx, clients); err != nil {
		return nil, eris.Wrap(err, "importer: save clients")
	}

	im.log.Info("import complete",
		zap.String("source", report.Source),
		zap.Int("total", report.Total),
		zap.Int("matched", report.Matched),
		zap.Int("review", report.Review),
		zap.Int("no_match", report.NoMatch),
		zap.Int("geocoded", report.Geocoded),
	)
	return report, nil
}

// geocodeMissing fills in coordinates for rows that have an address but no
// lat/lng. Individual geocode failures leave the row unlocated rather than
// failing the import.
func (im *Importer) geocodeMissing(ctx context.Context, rows []Row, report *Report) ([]Row, error) {
	if im.geocoder == nil {
		return rows, nil
	}

	out := make([]Row, len(rows))
	copy(out, rows)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(geocodeConcurrency)

	for i := range out {
		if out[i].Address == "" || out[i].Lat != 0 || out[i].Lng != 0 {
			continue
		}
		eg.Go(func() error {
			res, err := im.geocoder.Geocode(gCtx, out[i].Address)
			if err != nil {
				im.log.Warn("geocode failed",
					zap.String("address", out[i].Address),
					zap.Error(err),
				)
				return nil
			}
			if res.Matched {
				out[i].Lat = res.Latitude
				out[i].Lng = res.Longitude
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "importer: geocode batch")
	}

	for i := range out {
		if rows[i].Lat == 0 && rows[i].Lng == 0 && (out[i].Lat != 0 || out[i].Lng != 0) {
			report.Geocoded++
		}
	}
	return out, nil
}
