package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/match"
	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/internal/store"
	"github.com/tokyo3/bestwines/pkg/vivino"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeSource returns canned toplists or an error.
type fakeSource struct {
	toplists []vivino.Toplist
	err      error
}

func (f *fakeSource) Toplists(context.Context) ([]vivino.Toplist, error) {
	return f.toplists, f.err
}

func newPipelineStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewJSON(filepath.Join(t.TempDir(), "bestwines.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newFallbackOrchestrator(st store.Store) *match.Orchestrator {
	ranker := match.NewRanker(match.NewScorer(0, 0), 8, true)
	return match.NewOrchestrator(st, ranker, nil, match.DefaultBands(), 70.0, 2)
}

func testToplist() vivino.Toplist {
	return vivino.Toplist{
		ID:   "t1",
		Name: "Top Italian Reds",
		URL:  "https://example.com/top-italian-reds",
		Wines: []vivino.Wine{
			{Name: "Barolo Cannubi", Vintage: 2019, Rating: 4.4, Producer: "Marchesi di Barolo"},
			{Name: "Completely Unknown Bottling", Vintage: 1999},
		},
	}
}

func TestRun_FullFlow(t *testing.T) {
	st := newPipelineStore(t)
	ctx := context.Background()

	_, err := st.ReplaceCatalog(ctx, []model.RetailerProduct{
		{ProductNumber: "1001", NameBold: "Barolo", NameThin: "Cannubi", CategoryL1: "Vin", Year: 2019},
	})
	require.NoError(t, err)

	p := New(st, &fakeSource{toplists: []vivino.Toplist{testToplist()}}, newFallbackOrchestrator(st), nil)

	summaries, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "t1", s.ToplistID)
	assert.Equal(t, 2, s.WinesFound)
	assert.Equal(t, 1, s.MatchesFound)
	assert.Equal(t, model.RunStatusComplete, s.Status)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CompletedAt.Before(s.StartedAt))

	// Toplist and wines are persisted with stable derived IDs.
	tl, err := st.GetToplist(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, tl)
	require.Len(t, tl.WineIDs, 2)

	wines, err := st.ListWinesByToplist(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, wines, 2)
	assert.Equal(t, "Barolo Cannubi", wines[0].Name)

	m, err := st.GetMatch(ctx, tl.WineIDs[0])
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "1001", m.ProductNumber)

	// The run is recorded in the update log.
	log, err := st.ListUpdateLog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, s.ID, log[0].ID)
}

func TestRun_StableWineIDsAcrossRuns(t *testing.T) {
	st := newPipelineStore(t)
	ctx := context.Background()

	p := New(st, &fakeSource{toplists: []vivino.Toplist{testToplist()}}, newFallbackOrchestrator(st), nil)

	_, err := p.Run(ctx)
	require.NoError(t, err)
	first, err := st.GetToplist(ctx, "t1")
	require.NoError(t, err)

	_, err = p.Run(ctx)
	require.NoError(t, err)
	second, err := st.GetToplist(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, first.WineIDs, second.WineIDs, "reruns must reuse the same wine IDs")
}

func TestRun_SourceError(t *testing.T) {
	st := newPipelineStore(t)
	p := New(st, &fakeSource{err: eris.New("scrape blocked")}, newFallbackOrchestrator(st), nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape blocked")
}

func TestRun_EmptySource(t *testing.T) {
	st := newPipelineStore(t)
	p := New(st, &fakeSource{}, newFallbackOrchestrator(st), nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
}

func TestRun_EmptyCatalogStillCompletes(t *testing.T) {
	st := newPipelineStore(t)
	p := New(st, &fakeSource{toplists: []vivino.Toplist{testToplist()}}, newFallbackOrchestrator(st), nil)

	summaries, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, model.RunStatusComplete, summaries[0].Status)
	assert.Zero(t, summaries[0].MatchesFound)
}

func TestRun_MultipleToplistsIsolated(t *testing.T) {
	st := newPipelineStore(t)
	ctx := context.Background()

	second := vivino.Toplist{
		ID:    "t2",
		Name:  "Top Whites",
		URL:   "https://example.com/top-whites",
		Wines: []vivino.Wine{{Name: "Chablis Premier Cru", Vintage: 2021}},
	}
	p := New(st, &fakeSource{toplists: []vivino.Toplist{testToplist(), second}}, newFallbackOrchestrator(st), nil)

	summaries, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	log, err := st.ListUpdateLog(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, log, 2, "each toplist gets its own update-log entry")
}
