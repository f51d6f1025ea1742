package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/territory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dealers (
	place_id     TEXT NOT NULL,
	region       TEXT NOT NULL,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL DEFAULT '',
	lat          REAL NOT NULL DEFAULT 0,
	lng          REAL NOT NULL DEFAULT 0,
	rating       REAL NOT NULL DEFAULT 0,
	rating_count INTEGER NOT NULL DEFAULT 0,
	phone        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'available',
	assigned_rep TEXT,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (region, place_id)
);

CREATE TABLE IF NOT EXISTS reps (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	color      TEXT NOT NULL DEFAULT '',
	visible    INTEGER NOT NULL DEFAULT 1,
	territory  TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS clients (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	address          TEXT NOT NULL DEFAULT '',
	lat              REAL NOT NULL DEFAULT 0,
	lng              REAL NOT NULL DEFAULT 0,
	rep_id           TEXT,
	matched_place_id TEXT,
	source           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_dealers_region ON dealers(region);
CREATE INDEX IF NOT EXISTS idx_dealers_status ON dealers(region, status);
CREATE INDEX IF NOT EXISTS idx_clients_rep ON clients(rep_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Dealers(ctx context.Context, region string) ([]model.Dealer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id, region, name, address, lat, lng, rating, rating_count, phone, status, assigned_rep
		 FROM dealers WHERE region = ? ORDER BY name`,
		region,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query dealers for %s", region)
	}
	defer rows.Close() //nolint:errcheck

	var dealers []model.Dealer
	for rows.Next() {
		var d model.Dealer
		var assignedRep sql.NullString
		if err := rows.Scan(&d.PlaceID, &d.Region, &d.Name, &d.Address, &d.Lat, &d.Lng,
			&d.Rating, &d.RatingCount, &d.Phone, &d.Status, &assignedRep); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dealer")
		}
		d.AssignedRep = assignedRep.String
		dealers = append(dealers, d)
	}
	return dealers, eris.Wrap(rows.Err(), "sqlite: iterate dealers")
}

func (s *SQLiteStore) DealerRegions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT region FROM dealers ORDER BY region`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query dealer regions")
	}
	defer rows.Close() //nolint:errcheck

	var regions []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan region")
		}
		regions = append(regions, r)
	}
	return regions, eris.Wrap(rows.Err(), "sqlite: iterate regions")
}

func (s *SQLiteStore) ReplaceDealers(ctx context.Context, region string, dealers []model.Dealer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace dealers")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM dealers WHERE region = ?`, region); err != nil {
		return eris.Wrapf(err, "sqlite: clear dealers for %s", region)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dealers (place_id, region, name, address, lat, lng, rating, rating_count, phone, status, assigned_rep, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare dealer insert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, d := range dealers {
		if _, err := stmt.ExecContext(ctx, d.PlaceID, region, d.Name, d.Address, d.Lat, d.Lng,
			d.Rating, d.RatingCount, d.Phone, string(d.Status), nullable(d.AssignedRep), now); err != nil {
			return eris.Wrapf(err, "sqlite: insert dealer %s", d.PlaceID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace dealers")
}

func (s *SQLiteStore) AssignDealer(ctx context.Context, region, placeID, repID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dealers SET status = ?, assigned_rep = ?, updated_at = ? WHERE region = ? AND place_id = ?`,
		string(model.DealerAssigned), repID, time.Now().UTC(), region, placeID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: assign dealer %s", placeID)
	}
	return checkRowsAffected(res, "dealer", placeID)
}

func (s *SQLiteStore) UnassignDealer(ctx context.Context, region, placeID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dealers SET status = ?, assigned_rep = NULL, updated_at = ? WHERE region = ? AND place_id = ?`,
		string(model.DealerAvailable), time.Now().UTC(), region, placeID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: unassign dealer %s", placeID)
	}
	return checkRowsAffected(res, "dealer", placeID)
}

func (s *SQLiteStore) Reps(ctx context.Context) ([]model.Rep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, color, visible, territory, created_at FROM reps ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query reps")
	}
	defer rows.Close() //nolint:errcheck

	var reps []model.Rep
	for rows.Next() {
		rep, err := scanRep(rows)
		if err != nil {
			return nil, err
		}
		reps = append(reps, *rep)
	}
	return reps, eris.Wrap(rows.Err(), "sqlite: iterate reps")
}

func (s *SQLiteStore) GetRep(ctx context.Context, id string) (*model.Rep, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, color, visible, territory, created_at FROM reps WHERE id = ?`, id,
	)
	rep, err := scanRep(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: rep %s not found", id)
	}
	return rep, err
}

func (s *SQLiteStore) SaveRep(ctx context.Context, rep model.Rep) error {
	territory, err := json.Marshal(rep.Territory)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal territory")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reps (id, name, email, color, visible, territory, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, email = excluded.email, color = excluded.color,
		   visible = excluded.visible, territory = excluded.territory`,
		rep.ID, rep.Name, rep.Email, rep.Color, rep.Visible, string(territory), rep.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save rep %s", rep.ID)
}

func (s *SQLiteStore) DeleteRep(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reps WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete rep %s", id)
	}
	return checkRowsAffected(res, "rep", id)
}

func (s *SQLiteStore) Clients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, lat, lng, rep_id, matched_place_id, source FROM clients ORDER BY name, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query clients")
	}
	defer rows.Close() //nolint:errcheck

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		var repID, matched sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Lat, &c.Lng, &repID, &matched, &c.Source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		c.RepID = repID.String
		c.MatchedPlaceID = matched.String
		clients = append(clients, c)
	}
	return clients, eris.Wrap(rows.Err(), "sqlite: iterate clients")
}

func (s *SQLiteStore) SaveClients(ctx context.Context, clients []model.Client) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save clients")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clients (id, name, address, lat, lng, rep_id, matched_place_id, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, address = excluded.address, lat = excluded.lat,
		   lng = excluded.lng, rep_id = excluded.rep_id,
		   matched_place_id = excluded.matched_place_id, source = excluded.source`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare client upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, c := range clients {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Address, c.Lat, c.Lng,
			nullable(c.RepID), nullable(c.MatchedPlaceID), c.Source); err != nil {
			return eris.Wrapf(err, "sqlite: upsert client %s", c.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save clients")
}

func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete client %s", id)
	}
	return checkRowsAffected(res, "client", id)
}

// repScanner abstracts *sql.Row and *sql.Rows for scanRep.
type repScanner interface {
	Scan(dest ...any) error
}

func scanRep(row repScanner) (*model.Rep, error) {
	var rep model.Rep
	var territory string
	if err := row.Scan(&rep.ID, &rep.Name, &rep.Email, &rep.Color, &rep.Visible, &territory, &rep.CreatedAt); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan rep")
	}
	if err := json.Unmarshal([]byte(territory), &rep.Territory); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode territory for %s", rep.ID)
	}
	return &rep, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
