package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/tokyo3/bestwines/internal/model"
)

// JSONStore implements Store as a single JSON document on disk. Writes go
// through a temp file plus rename so a crash never leaves a half-written
// database. Good enough for the single-process deployments this tool runs in.
type JSONStore struct {
	path string

	mu   sync.RWMutex
	data jsonDocument
}

type jsonDocument struct {
	Wines     map[string]model.VivinoWine      `json:"wines"`
	Toplists  map[string]model.Toplist         `json:"toplists"`
	Products  map[string]model.RetailerProduct `json:"products"`
	Matches   map[string]model.WineMatch       `json:"matches"` // keyed by wine id
	UpdateLog []model.RunSummary               `json:"update_log"`
}

// NewJSON opens or creates a JSON store at path.
func NewJSON(path string) (*JSONStore, error) {
	s := &JSONStore{
		path: path,
		data: emptyDocument(),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, eris.Wrapf(err, "json store: read %s", path)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, eris.Wrapf(err, "json store: parse %s", path)
	}
	// Maps may be null in hand-edited files.
	if s.data.Wines == nil {
		s.data.Wines = map[string]model.VivinoWine{}
	}
	if s.data.Toplists == nil {
		s.data.Toplists = map[string]model.Toplist{}
	}
	if s.data.Products == nil {
		s.data.Products = map[string]model.RetailerProduct{}
	}
	if s.data.Matches == nil {
		s.data.Matches = map[string]model.WineMatch{}
	}
	return s, nil
}

func emptyDocument() jsonDocument {
	return jsonDocument{
		Wines:    map[string]model.VivinoWine{},
		Toplists: map[string]model.Toplist{},
		Products: map[string]model.RetailerProduct{},
		Matches:  map[string]model.WineMatch{},
	}
}

// flush writes the document atomically. Caller must hold mu.
func (s *JSONStore) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return eris.Wrap(err, "json store: marshal")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "json store: mkdir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".bestwines-*.tmp")
	if err != nil {
		return eris.Wrap(err, "json store: create temp")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "json store: write temp")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "json store: close temp")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "json store: rename")
	}
	return nil
}

func (s *JSONStore) Migrate(context.Context) error { return nil }

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) UpsertWine(_ context.Context, wine model.VivinoWine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.data.Wines[wine.ID]; ok {
		wine.CreatedAt = existing.CreatedAt
	} else if wine.CreatedAt.IsZero() {
		wine.CreatedAt = now
	}
	wine.UpdatedAt = now
	s.data.Wines[wine.ID] = wine
	return s.flush()
}

func (s *JSONStore) GetWine(_ context.Context, wineID string) (*model.VivinoWine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.data.Wines[wineID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *JSONStore) ListWinesByToplist(_ context.Context, toplistID string) ([]model.VivinoWine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tl, ok := s.data.Toplists[toplistID]
	if !ok {
		return nil, nil
	}

	wines := make([]model.VivinoWine, 0, len(tl.WineIDs))
	for _, id := range tl.WineIDs {
		if w, ok := s.data.Wines[id]; ok {
			wines = append(wines, w)
		}
	}
	return wines, nil
}

func (s *JSONStore) UpsertToplist(_ context.Context, toplist model.Toplist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	toplist.UpdatedAt = time.Now().UTC()
	s.data.Toplists[toplist.ID] = toplist
	return s.flush()
}

func (s *JSONStore) GetToplist(_ context.Context, toplistID string) (*model.Toplist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tl, ok := s.data.Toplists[toplistID]
	if !ok {
		return nil, nil
	}
	return &tl, nil
}

func (s *JSONStore) ListToplists(_ context.Context) ([]model.Toplist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Toplist, 0, len(s.data.Toplists))
	for _, tl := range s.data.Toplists {
		out = append(out, tl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *JSONStore) ReplaceCatalog(_ context.Context, products []model.RetailerProduct) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Products = make(map[string]model.RetailerProduct, len(products))
	for _, p := range products {
		s.data.Products[p.ProductNumber] = p
	}
	if err := s.flush(); err != nil {
		return 0, err
	}
	return len(s.data.Products), nil
}

func (s *JSONStore) ListProducts(_ context.Context) ([]model.RetailerProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RetailerProduct, 0, len(s.data.Products))
	for _, p := range s.data.Products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductNumber < out[j].ProductNumber })
	return out, nil
}

func (s *JSONStore) GetProduct(_ context.Context, productNumber string) (*model.RetailerProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.Products[productNumber]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *JSONStore) UpsertMatch(_ context.Context, m model.WineMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.data.Matches[m.VivinoWineID]; ok {
		m.Verified = existing.Verified
		m.CreatedAt = existing.CreatedAt
	} else if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	s.data.Matches[m.VivinoWineID] = m
	return s.flush()
}

func (s *JSONStore) GetMatch(_ context.Context, wineID string) (*model.WineMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data.Matches[wineID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *JSONStore) ListMatchesByToplist(_ context.Context, toplistID string) ([]model.WineMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tl, ok := s.data.Toplists[toplistID]
	if !ok {
		return nil, nil
	}

	var out []model.WineMatch
	for _, id := range tl.WineIDs {
		if m, ok := s.data.Matches[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *JSONStore) SetVerified(_ context.Context, wineID string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.data.Matches[wineID]
	if !ok {
		return eris.Errorf("match not found for wine %s", wineID)
	}
	m.Verified = verified
	m.UpdatedAt = time.Now().UTC()
	s.data.Matches[wineID] = m
	return s.flush()
}

func (s *JSONStore) AppendUpdateLog(_ context.Context, summary model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.UpdateLog = append(s.data.UpdateLog, summary)
	return s.flush()
}

func (s *JSONStore) ListUpdateLog(_ context.Context, limit int) ([]model.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := make([]model.RunSummary, len(s.data.UpdateLog))
	copy(log, s.data.UpdateLog)
	sort.Slice(log, func(i, j int) bool { return log[i].CompletedAt.After(log[j].CompletedAt) })
	if limit > 0 && len(log) > limit {
		log = log[:limit]
	}
	return log, nil
}
