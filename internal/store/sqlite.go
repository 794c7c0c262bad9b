package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tokyo3/bestwines/internal/model"
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
CREATE TABLE IF NOT EXISTS wines (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS toplists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS products (
	product_number TEXT PRIMARY KEY,
	data           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS wine_matches (
	vivino_wine_id TEXT PRIMARY KEY REFERENCES wines(id),
	product_number TEXT NOT NULL,
	match_score    REAL NOT NULL,
	match_type     TEXT NOT NULL,
	match_method   TEXT NOT NULL,
	ai_reasoning   TEXT,
	verified       INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS update_log (
	id            TEXT PRIMARY KEY,
	toplist_id    TEXT NOT NULL,
	toplist_name  TEXT NOT NULL,
	wines_found   INTEGER NOT NULL,
	matches_found INTEGER NOT NULL,
	status        TEXT NOT NULL,
	error_message TEXT,
	started_at    DATETIME NOT NULL,
	completed_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_toplists_name ON toplists(name);
CREATE INDEX IF NOT EXISTS idx_wine_matches_product ON wine_matches(product_number);
CREATE INDEX IF NOT EXISTS idx_update_log_completed ON update_log(completed_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertWine(ctx context.Context, wine model.VivinoWine) error {
	now := time.Now().UTC()
	data, err := json.Marshal(wine)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal wine")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wines (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		wine.ID, string(data), now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert wine %s", wine.ID)
}

func (s *SQLiteStore) GetWine(ctx context.Context, wineID string) (*model.VivinoWine, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM wines WHERE id = ?`, wineID)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get wine %s", wineID)
	}

	var w model.VivinoWine
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal wine")
	}
	return &w, nil
}

func (s *SQLiteStore) ListWinesByToplist(ctx context.Context, toplistID string) ([]model.VivinoWine, error) {
	tl, err := s.GetToplist(ctx, toplistID)
	if err != nil || tl == nil {
		return nil, err
	}

	wines := make([]model.VivinoWine, 0, len(tl.WineIDs))
	for _, id := range tl.WineIDs {
		w, err := s.GetWine(ctx, id)
		if err != nil {
			return nil, err
		}
		if w != nil {
			wines = append(wines, *w)
		}
	}
	return wines, nil
}

func (s *SQLiteStore) UpsertToplist(ctx context.Context, toplist model.Toplist) error {
	toplist.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(toplist)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal toplist")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO toplists (id, name, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data, updated_at = excluded.updated_at`,
		toplist.ID, toplist.Name, string(data), toplist.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert toplist %s", toplist.ID)
}

func (s *SQLiteStore) GetToplist(ctx context.Context, toplistID string) (*model.Toplist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM toplists WHERE id = ?`, toplistID)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get toplist %s", toplistID)
	}

	var tl model.Toplist
	if err := json.Unmarshal([]byte(data), &tl); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal toplist")
	}
	return &tl, nil
}

func (s *SQLiteStore) ListToplists(ctx context.Context) ([]model.Toplist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM toplists ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list toplists")
	}
	defer rows.Close()

	var out []model.Toplist
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan toplist")
		}
		var tl model.Toplist
		if err := json.Unmarshal([]byte(data), &tl); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal toplist")
		}
		out = append(out, tl)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list toplists iterate")
}

func (s *SQLiteStore) ReplaceCatalog(ctx context.Context, products []model.RetailerProduct) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin catalog replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear products")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (product_number, data) VALUES (?, ?)
		ON CONFLICT(product_number) DO UPDATE SET data = excluded.data`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare product insert")
	}
	defer stmt.Close()

	count := 0
	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal product")
		}
		if _, err := stmt.ExecContext(ctx, p.ProductNumber, string(data)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert product %s", p.ProductNumber)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit catalog replace")
	}
	return count, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.RetailerProduct, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM products ORDER BY product_number`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close()

	var out []model.RetailerProduct
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		var p model.RetailerProduct
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list products iterate")
}

func (s *SQLiteStore) GetProduct(ctx context.Context, productNumber string) (*model.RetailerProduct, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM products WHERE product_number = ?`, productNumber)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", productNumber)
	}

	var p model.RetailerProduct
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal product")
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertMatch(ctx context.Context, m model.WineMatch) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}

	// On rerun the decision fields update in place; verified and created_at
	// belong to the existing row.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wine_matches
			(vivino_wine_id, product_number, match_score, match_type, match_method, ai_reasoning, verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(vivino_wine_id) DO UPDATE SET
			product_number = excluded.product_number,
			match_score    = excluded.match_score,
			match_type     = excluded.match_type,
			match_method   = excluded.match_method,
			ai_reasoning   = excluded.ai_reasoning,
			updated_at     = excluded.updated_at`,
		m.VivinoWineID, m.ProductNumber, m.MatchScore, string(m.MatchType), string(m.MatchMethod),
		m.AIReasoning, m.Verified, m.CreatedAt, now,
	)
	return eris.Wrapf(err, "sqlite: upsert match for wine %s", m.VivinoWineID)
}

func (s *SQLiteStore) GetMatch(ctx context.Context, wineID string) (*model.WineMatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT vivino_wine_id, product_number, match_score, match_type, match_method,
			ai_reasoning, verified, created_at, updated_at
		 FROM wine_matches WHERE vivino_wine_id = ?`,
		wineID,
	)
	return scanMatch(row)
}

func (s *SQLiteStore) ListMatchesByToplist(ctx context.Context, toplistID string) ([]model.WineMatch, error) {
	tl, err := s.GetToplist(ctx, toplistID)
	if err != nil || tl == nil {
		return nil, err
	}

	var out []model.WineMatch
	for _, id := range tl.WineIDs {
		m, err := s.GetMatch(ctx, id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *SQLiteStore) SetVerified(ctx context.Context, wineID string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wine_matches SET verified = ?, updated_at = ? WHERE vivino_wine_id = ?`,
		verified, time.Now().UTC(), wineID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set verified for wine %s", wineID)
	}
	return checkRowsAffected(res, "match", wineID)
}

func (s *SQLiteStore) AppendUpdateLog(ctx context.Context, summary model.RunSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_log
			(id, toplist_id, toplist_name, wines_found, matches_found, status, error_message, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.ToplistID, summary.ToplistName, summary.WinesFound, summary.MatchesFound,
		string(summary.Status), summary.ErrorMessage, summary.StartedAt, summary.CompletedAt,
	)
	return eris.Wrap(err, "sqlite: append update log")
}

func (s *SQLiteStore) ListUpdateLog(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, toplist_id, toplist_name, wines_found, matches_found, status, error_message, started_at, completed_at
		 FROM update_log ORDER BY completed_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list update log")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var rs model.RunSummary
		var errMsg sql.NullString
		if err := rows.Scan(&rs.ID, &rs.ToplistID, &rs.ToplistName, &rs.WinesFound, &rs.MatchesFound,
			&rs.Status, &errMsg, &rs.StartedAt, &rs.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan update log")
		}
		rs.ErrorMessage = errMsg.String
		out = append(out, rs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list update log iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMatch(row scannable) (*model.WineMatch, error) {
	var m model.WineMatch
	var reasoning sql.NullString

	err := row.Scan(&m.VivinoWineID, &m.ProductNumber, &m.MatchScore, &m.MatchType, &m.MatchMethod,
		&reasoning, &m.Verified, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan match")
	}
	m.AIReasoning = reasoning.String
	return &m, nil
}
