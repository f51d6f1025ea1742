package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dealers (
	place_id     TEXT NOT NULL,
	region       TEXT NOT NULL,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL DEFAULT '',
	lat          DOUBLE PRECISION NOT NULL DEFAULT 0,
	lng          DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating_count INTEGER NOT NULL DEFAULT 0,
	phone        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'available',
	assigned_rep TEXT,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (region, place_id)
);

CREATE TABLE IF NOT EXISTS reps (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	color      TEXT NOT NULL DEFAULT '',
	visible    BOOLEAN NOT NULL DEFAULT true,
	territory  JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clients (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	address          TEXT NOT NULL DEFAULT '',
	lat              DOUBLE PRECISION NOT NULL DEFAULT 0,
	lng              DOUBLE PRECISION NOT NULL DEFAULT 0,
	rep_id           TEXT,
	matched_place_id TEXT,
	source           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_dealers_region ON dealers(region);
CREATE INDEX IF NOT EXISTS idx_dealers_status ON dealers(region, status);
CREATE INDEX IF NOT EXISTS idx_clients_rep ON clients(rep_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Dealers(ctx context.Context, region string) ([]model.Dealer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT place_id, region, name, address, lat, lng, rating, rating_count, phone, status, assigned_rep
		 FROM dealers WHERE region = $1 ORDER BY name`,
		region,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query dealers for %s", region)
	}
	defer rows.Close()

	var dealers []model.Dealer
	for rows.Next() {
		var d model.Dealer
		var assignedRep *string
		if err := rows.Scan(&d.PlaceID, &d.Region, &d.Name, &d.Address, &d.Lat, &d.Lng,
			&d.Rating, &d.RatingCount, &d.Phone, &d.Status, &assignedRep); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dealer")
		}
		if assignedRep != nil {
			d.AssignedRep = *assignedRep
		}
		dealers = append(dealers, d)
	}
	return dealers, eris.Wrap(rows.Err(), "postgres: iterate dealers")
}

func (s *PostgresStore) DealerRegions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT region FROM dealers ORDER BY region`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query dealer regions")
	}
	defer rows.Close()

	var regions []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region")
		}
		regions = append(regions, r)
	}
	return regions, eris.Wrap(rows.Err(), "postgres: iterate regions")
}

func (s *PostgresStore) ReplaceDealers(ctx context.Context, region string, dealers []model.Dealer) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace dealers")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM dealers WHERE region = $1`, region); err != nil {
		return eris.Wrapf(err, "postgres: clear dealers for %s", region)
	}

	now := time.Now().UTC()
	for _, d := range dealers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO dealers (place_id, region, name, address, lat, lng, rating, rating_count, phone, status, assigned_rep, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			d.PlaceID, region, d.Name, d.Address, d.Lat, d.Lng,
			d.Rating, d.RatingCount, d.Phone, string(d.Status), nullable(d.AssignedRep), now,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert dealer %s", d.PlaceID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace dealers")
}

func (s *PostgresStore) AssignDealer(ctx context.Context, region, placeID, repID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dealers SET status = $1, assigned_rep = $2, updated_at = now() WHERE region = $3 AND place_id = $4`,
		string(model.DealerAssigned), repID, region, placeID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: assign dealer %s", placeID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: dealer %s not found", placeID)
	}
	return nil
}

func (s *PostgresStore) UnassignDealer(ctx context.Context, region, placeID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dealers SET status = $1, assigned_rep = NULL, updated_at = now() WHERE region = $2 AND place_id = $3`,
		string(model.DealerAvailable), region, placeID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: unassign dealer %s", placeID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: dealer %s not found", placeID)
	}
	return nil
}

func (s *PostgresStore) Reps(ctx context.Context) ([]model.Rep, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, color, visible, territory, created_at FROM reps ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query reps")
	}
	defer rows.Close()

	var reps []model.Rep
	for rows.Next() {
		rep, err := scanPgRep(rows)
		if err != nil {
			return nil, err
		}
		reps = append(reps, *rep)
	}
	return reps, eris.Wrap(rows.Err(), "postgres: iterate reps")
}

func (s *PostgresStore) GetRep(ctx context.Context, id string) (*model.Rep, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, email, color, visible, territory, created_at FROM reps WHERE id = $1`, id,
	)
	rep, err := scanPgRep(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: rep %s not found", id)
	}
	return rep, err
}

func (s *PostgresStore) SaveRep(ctx context.Context, rep model.Rep) error {
	territory, err := json.Marshal(rep.Territory)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal territory")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reps (id, name, email, color, visible, territory, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, email = EXCLUDED.email, color = EXCLUDED.color,
		   visible = EXCLUDED.visible, territory = EXCLUDED.territory`,
		rep.ID, rep.Name, rep.Email, rep.Color, rep.Visible, territory, rep.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save rep %s", rep.ID)
}

func (s *PostgresStore) DeleteRep(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reps WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete rep %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: rep %s not found", id)
	}
	return nil
}

func (s *PostgresStore) Clients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, address, lat, lng, rep_id, matched_place_id, source FROM clients ORDER BY name, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query clients")
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		var repID, matched *string
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Lat, &c.Lng, &repID, &matched, &c.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: scan client")
		}
		if repID != nil {
			c.RepID = *repID
		}
		if matched != nil {
			c.MatchedPlaceID = *matched
		}
		clients = append(clients, c)
	}
	return clients, eris.Wrap(rows.Err(), "postgres: iterate clients")
}

func (s *PostgresStore) SaveClients(ctx context.Context, clients []model.Client) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save clients")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range clients {
		if _, err := tx.Exec(ctx,
			`INSERT INTO clients (id, name, address, lat, lng, rep_id, matched_place_id, source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name, address = EXCLUDED.address, lat = EXCLUDED.lat,
			   lng = EXCLUDED.lng, rep_id = EXCLUDED.rep_id,
			   matched_place_id = EXCLUDED.matched_place_id, source = EXCLUDED.source`,
			c.ID, c.Name, c.Address, c.Lat, c.Lng,
			nullable(c.RepID), nullable(c.MatchedPlaceID), c.Source,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert client %s", c.ID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save clients")
}

func (s *PostgresStore) DeleteClient(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete client %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: client %s not found", id)
	}
	return nil
}

func scanPgRep(row pgx.Row) (*model.Rep, error) {
	var rep model.Rep
	var territory []byte
	if err := row.Scan(&rep.ID, &rep.Name, &rep.Email, &rep.Color, &rep.Visible, &territory, &rep.CreatedAt); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan rep")
	}
	if err := json.Unmarshal(territory, &rep.Territory); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode territory for %s", rep.ID)
	}
	return &rep, nil
}
