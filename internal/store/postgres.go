package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tokyo3/bestwines/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, mainly for tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS wines (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS toplists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
	product_number TEXT PRIMARY KEY,
	data           JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS wine_matches (
	vivino_wine_id TEXT PRIMARY KEY REFERENCES wines(id),
	product_number TEXT NOT NULL,
	match_score    DOUBLE PRECISION NOT NULL,
	match_type     TEXT NOT NULL,
	match_method   TEXT NOT NULL,
	ai_reasoning   TEXT,
	verified       BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS update_log (
	id            TEXT PRIMARY KEY,
	toplist_id    TEXT NOT NULL,
	toplist_name  TEXT NOT NULL,
	wines_found   INTEGER NOT NULL,
	matches_found INTEGER NOT NULL,
	status        TEXT NOT NULL,
	error_message TEXT,
	started_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_toplists_name ON toplists(name);
CREATE INDEX IF NOT EXISTS idx_wine_matches_product ON wine_matches(product_number);
CREATE INDEX IF NOT EXISTS idx_update_log_completed ON update_log(completed_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) UpsertWine(ctx context.Context, wine model.VivinoWine) error {
	data, err := json.Marshal(wine)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal wine")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO wines (id, data, created_at, updated_at) VALUES ($1, $2, now(), now())
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		wine.ID, data,
	)
	return eris.Wrapf(err, "postgres: upsert wine %s", wine.ID)
}

func (s *PostgresStore) GetWine(ctx context.Context, wineID string) (*model.VivinoWine, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM wines WHERE id = $1`, wineID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get wine %s", wineID)
	}

	var w model.VivinoWine
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal wine")
	}
	return &w, nil
}

func (s *PostgresStore) ListWinesByToplist(ctx context.Context, toplistID string) ([]model.VivinoWine, error) {
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

func (s *PostgresStore) UpsertToplist(ctx context.Context, toplist model.Toplist) error {
	toplist.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(toplist)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal toplist")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO toplists (id, name, data, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		toplist.ID, toplist.Name, data, toplist.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert toplist %s", toplist.ID)
}

func (s *PostgresStore) GetToplist(ctx context.Context, toplistID string) (*model.Toplist, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM toplists WHERE id = $1`, toplistID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get toplist %s", toplistID)
	}

	var tl model.Toplist
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal toplist")
	}
	return &tl, nil
}

func (s *PostgresStore) ListToplists(ctx context.Context) ([]model.Toplist, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM toplists ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list toplists")
	}
	defer rows.Close()

	var out []model.Toplist
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan toplist")
		}
		var tl model.Toplist
		if err := json.Unmarshal(data, &tl); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal toplist")
		}
		out = append(out, tl)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list toplists iterate")
}

func (s *PostgresStore) ReplaceCatalog(ctx context.Context, products []model.RetailerProduct) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin catalog replace")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return 0, eris.Wrap(err, "postgres: clear products")
	}

	rows := make([][]any, 0, len(products))
	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal product")
		}
		rows = append(rows, []any{p.ProductNumber, data})
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"products"}, []string{"product_number", "data"}, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy products")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit catalog replace")
	}
	return int(n), nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.RetailerProduct, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM products ORDER BY product_number`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var out []model.RetailerProduct
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		var p model.RetailerProduct
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list products iterate")
}

func (s *PostgresStore) GetProduct(ctx context.Context, productNumber string) (*model.RetailerProduct, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM products WHERE product_number = $1`, productNumber).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %s", productNumber)
	}

	var p model.RetailerProduct
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal product")
	}
	return &p, nil
}

func (s *PostgresStore) UpsertMatch(ctx context.Context, m model.WineMatch) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wine_matches
			(vivino_wine_id, product_number, match_score, match_type, match_method, ai_reasoning, verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 ON CONFLICT (vivino_wine_id) DO UPDATE SET
			product_number = EXCLUDED.product_number,
			match_score    = EXCLUDED.match_score,
			match_type     = EXCLUDED.match_type,
			match_method   = EXCLUDED.match_method,
			ai_reasoning   = EXCLUDED.ai_reasoning,
			updated_at     = now()`,
		m.VivinoWineID, m.ProductNumber, m.MatchScore, string(m.MatchType), string(m.MatchMethod),
		m.AIReasoning, m.Verified,
	)
	return eris.Wrapf(err, "postgres: upsert match for wine %s", m.VivinoWineID)
}

func (s *PostgresStore) GetMatch(ctx context.Context, wineID string) (*model.WineMatch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT vivino_wine_id, product_number, match_score, match_type, match_method,
			COALESCE(ai_reasoning, ''), verified, created_at, updated_at
		 FROM wine_matches WHERE vivino_wine_id = $1`,
		wineID,
	)

	var m model.WineMatch
	err := row.Scan(&m.VivinoWineID, &m.ProductNumber, &m.MatchScore, &m.MatchType, &m.MatchMethod,
		&m.AIReasoning, &m.Verified, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get match for wine %s", wineID)
	}
	return &m, nil
}

func (s *PostgresStore) ListMatchesByToplist(ctx context.Context, toplistID string) ([]model.WineMatch, error) {
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

func (s *PostgresStore) SetVerified(ctx context.Context, wineID string, verified bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE wine_matches SET verified = $1, updated_at = now() WHERE vivino_wine_id = $2`,
		verified, wineID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set verified for wine %s", wineID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("match not found for wine %s", wineID)
	}
	return nil
}

func (s *PostgresStore) AppendUpdateLog(ctx context.Context, summary model.RunSummary) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO update_log
			(id, toplist_id, toplist_name, wines_found, matches_found, status, error_message, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		summary.ID, summary.ToplistID, summary.ToplistName, summary.WinesFound, summary.MatchesFound,
		string(summary.Status), summary.ErrorMessage, summary.StartedAt, summary.CompletedAt,
	)
	return eris.Wrap(err, "postgres: append update log")
}

func (s *PostgresStore) ListUpdateLog(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, toplist_id, toplist_name, wines_found, matches_found, status, COALESCE(error_message, ''), started_at, completed_at
		 FROM update_log ORDER BY completed_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list update log")
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var rs model.RunSummary
		if err := rows.Scan(&rs.ID, &rs.ToplistID, &rs.ToplistName, &rs.WinesFound, &rs.MatchesFound,
			&rs.Status, &rs.ErrorMessage, &rs.StartedAt, &rs.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan update log")
		}
		out = append(out, rs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list update log iterate")
}
