package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/regions"
	"github.com/sells-group/territory-cli/internal/store"
	"github.com/sells-group/territory-cli/pkg/geocode"
	"github.com/sells-group/territory-cli/pkg/places"
)

// openStore builds the configured store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		s, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// loadCatalog returns the builtin regions, merged with the configured region
// file when one is set.
func loadCatalog() (*regions.Catalog, error) {
	catalog := regions.Builtin()
	if cfg.Regions.File != "" {
		if err := catalog.LoadFile(cfg.Regions.File); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// newPlacesClient returns nil when no Google key is configured; the scanner
// maps that to its search-unavailable failure.
func newPlacesClient() places.Client {
	if cfg.Google.Key == "" {
		return nil
	}
	return places.NewClient(cfg.Google.Key, places.WithBaseURL(cfg.Google.PlacesBaseURL))
}

func newGeocoder() geocode.Geocoder {
	if cfg.Google.Key == "" || !cfg.Import.GeocodeMissing {
		return nil
	}
	return geocode.NewGoogle(cfg.Google.Key, geocode.WithBaseURL(cfg.Google.GeocodeBaseURL))
}
