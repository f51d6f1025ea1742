// Package store persists dealers, representatives, and clients. Two
// implementations exist: SQLite for single-user installs and Postgres for
// shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/model"
)

// Store is the persistence interface for the territory registry.
//
// ReplaceDealers swaps a region's entire dealer set in one transaction; a
// reader never observes a partially-updated region. Assignment preservation
// across rescans is the scanner's job, not the store's.
type Store interface {
	// Dealers
	Dealers(ctx context.Context, region string) ([]model.Dealer, error)
	DealerRegions(ctx context.Context) ([]string, error)
	ReplaceDealers(ctx context.Context, region string, dealers []model.Dealer) error
	AssignDealer(ctx context.Context, region, placeID, repID string) error
	UnassignDealer(ctx context.Context, region, placeID string) error

	// Representatives
	Reps(ctx context.Context) ([]model.Rep, error)
	GetRep(ctx context.Context, id string) (*model.Rep, error)
	SaveRep(ctx context.Context, rep model.Rep) error
	DeleteRep(ctx context.Context, id string) error

	// Clients
	Clients(ctx context.Context) ([]model.Client, error)
	SaveClients(ctx context.Context, clients []model.Client) error
	DeleteClient(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Backup is a full snapshot of the registry, used by backup export/import.
type Backup struct {
	ExportedAt time.Time                 `json:"exportedAt"`
	Dealers    map[string][]model.Dealer `json:"dealers"`
	Reps       []model.Rep               `json:"reps"`
	Clients    []model.Client            `json:"clients"`
}

// Export snapshots every entity in the store.
func Export(ctx context.Context, s Store) (*Backup, error) {
	regionNames, err := s.DealerRegions(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "backup: list regions")
	}

	b := &Backup{
		ExportedAt: time.Now().UTC(),
		Dealers:    make(map[string][]model.Dealer, len(regionNames)),
	}
	for _, region := range regionNames {
		dealers, err := s.Dealers(ctx, region)
		if err != nil {
			return nil, eris.Wrapf(err, "backup: dealers for %s", region)
		}
		b.Dealers[region] = dealers
	}

	if b.Reps, err = s.Reps(ctx); err != nil {
		return nil, eris.Wrap(err, "backup: reps")
	}
	if b.Clients, err = s.Clients(ctx); err != nil {
		return nil, eris.Wrap(err, "backup: clients")
	}
	return b, nil
}

// Import restores a snapshot into the store. Existing data for the regions,
// reps, and clients present in the backup is overwritten.
func Import(ctx context.Context, s Store, b *Backup) error {
	for region, dealers := range b.Dealers {
		if err := s.ReplaceDealers(ctx, region, dealers); err != nil {
			return eris.Wrapf(err, "restore: dealers for %s", region)
		}
	}
	for _, rep := range b.Reps {
		if err := s.SaveRep(ctx, rep); err != nil {
			return eris.Wrapf(err, "restore: rep %s", rep.ID)
		}
	}
	if len(b.Clients) > 0 {
		if err := s.SaveClients(ctx, b.Clients); err != nil {
			return eris.Wrap(err, "restore: clients")
		}
	}
	return nil
}
