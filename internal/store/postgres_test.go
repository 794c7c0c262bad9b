package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokyo3/bestwines/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS wines").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertMatch(t *testing.T) {
	st, mock := newMockPostgres(t)

	m := model.WineMatch{
		VivinoWineID:  "w1",
		ProductNumber: "1001",
		MatchScore:    88.5,
		MatchType:     model.MatchPartial,
		MatchMethod:   model.MethodAI,
		AIReasoning:   "same wine, different vintage",
	}

	mock.ExpectExec("INSERT INTO wine_matches").
		WithArgs("w1", "1001", 88.5, "partial", "ai", "same wine, different vintage", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.UpsertMatch(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMatch(t *testing.T) {
	st, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM wine_matches").
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{
			"vivino_wine_id", "product_number", "match_score", "match_type", "match_method",
			"coalesce", "verified", "created_at", "updated_at",
		}).AddRow("w1", "1001", 92.0, "exact", "ai", "same wine", true, now, now))

	m, err := st.GetMatch(context.Background(), "w1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "1001", m.ProductNumber)
	assert.Equal(t, model.MatchExact, m.MatchType)
	assert.True(t, m.Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMatch_NotFound(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT (.+) FROM wine_matches").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{
			"vivino_wine_id", "product_number", "match_score", "match_type", "match_method",
			"coalesce", "verified", "created_at", "updated_at",
		}))

	m, err := st.GetMatch(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetWine_NotFound(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT data FROM wines").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"data"}))

	w, err := st.GetWine(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetVerified(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE wine_matches SET verified").
		WithArgs(true, "w1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, st.SetVerified(context.Background(), "w1", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetVerified_NotFound(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE wine_matches SET verified").
		WithArgs(true, "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.SetVerified(context.Background(), "nope", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceCatalog(t *testing.T) {
	st, mock := newMockPostgres(t)

	products := []model.RetailerProduct{
		{ProductNumber: "1001", NameBold: "Barolo"},
		{ProductNumber: "1002", NameBold: "Rioja"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM products").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCopyFrom(pgx.Identifier{"products"}, []string{"product_number", "data"}).
		WillReturnResult(2)
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := st.ReplaceCatalog(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendUpdateLog(t *testing.T) {
	st, mock := newMockPostgres(t)

	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(10 * time.Minute)
	summary := model.RunSummary{
		ID:           "run-1",
		ToplistID:    "t1",
		ToplistName:  "Top Reds",
		WinesFound:   25,
		MatchesFound: 18,
		Status:       model.RunStatusComplete,
		StartedAt:    started,
		CompletedAt:  completed,
	}

	mock.ExpectExec("INSERT INTO update_log").
		WithArgs("run-1", "t1", "Top Reds", 25, 18, "complete", "", started, completed).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.AppendUpdateLog(context.Background(), summary))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListUpdateLog(t *testing.T) {
	st, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM update_log").
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "toplist_id", "toplist_name", "wines_found", "matches_found",
			"status", "coalesce", "started_at", "completed_at",
		}).
			AddRow("run-2", "t1", "Top Reds", 25, 18, "complete", "", now, now).
			AddRow("run-1", "t1", "Top Reds", 25, 10, "partial", "one wine failed", now.Add(-time.Hour), now.Add(-time.Hour)))

	log, err := st.ListUpdateLog(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "run-2", log[0].ID)
	assert.Equal(t, model.RunStatusPartial, log[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
