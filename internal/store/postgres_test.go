package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Dealers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rep := "rep-1"
	mock.ExpectQuery(`SELECT place_id, region, name, address, lat, lng, rating, rating_count, phone, status, assigned_rep`).
		WithArgs("ontario").
		WillReturnRows(pgxmock.NewRows([]string{
			"place_id", "region", "name", "address", "lat", "lng",
			"rating", "rating_count", "phone", "status", "assigned_rep",
		}).
			AddRow("p1", "ontario", "Alpha Motors", "123 Main St", 43.65, -79.38, 4.2, 87, "555-0100", "assigned", &rep).
			AddRow("p2", "ontario", "Beta Auto", "", 0.0, 0.0, 0.0, 0, "", "available", (*string)(nil)))

	got, err := s.Dealers(context.Background(), "ontario")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.DealerAssigned, got[0].Status)
	assert.Equal(t, "rep-1", got[0].AssignedRep)
	assert.Empty(t, got[1].AssignedRep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceDealers_Transactional(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM dealers WHERE region = \$1`).
		WithArgs("ontario").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`INSERT INTO dealers`).
		WithArgs("p1", "ontario", "Alpha Motors", "123 Main St", 43.65, -79.38,
			4.2, 87, "555-0100", "available", nil, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.ReplaceDealers(context.Background(), "ontario", []model.Dealer{{
		PlaceID: "p1", Name: "Alpha Motors", Address: "123 Main St",
		Lat: 43.65, Lng: -79.38, Rating: 4.2, RatingCount: 87,
		Phone: "555-0100", Region: "ontario", Status: model.DealerAvailable,
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceDealers_RollsBackOnInsertError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM dealers WHERE region = \$1`).
		WithArgs("ontario").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO dealers`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.ReplaceDealers(context.Background(), "ontario", []model.Dealer{{
		PlaceID: "p1", Name: "Alpha Motors", Status: model.DealerAvailable,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert dealer p1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AssignDealer_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE dealers SET status = \$1, assigned_rep = \$2`).
		WithArgs("assigned", "rep-1", "ontario", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.AssignDealer(context.Background(), "ontario", "missing", "rep-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRep_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, email, color, visible, territory, created_at FROM reps WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRep(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRep_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO reps .* ON CONFLICT`).
		WithArgs("rep-1", "Jamie Tremblay", "jamie@example.com", "#e63946", true,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveRep(context.Background(), model.Rep{
		ID: "rep-1", Name: "Jamie Tremblay", Email: "jamie@example.com",
		Color: "#e63946", Visible: true,
		Territory: []model.LatLng{{Lat: 43, Lng: -80}},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteClient(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM clients WHERE id = \$1`).
		WithArgs("c1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteClient(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
