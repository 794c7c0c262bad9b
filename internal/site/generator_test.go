package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/internal/store"
)

func seededStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewJSON(filepath.Join(t.TempDir(), "bestwines.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.UpsertWine(ctx, model.VivinoWine{ID: "w1", Name: "Barolo Cannubi", Vintage: 2019, Rating: 4.4}))
	require.NoError(t, st.UpsertWine(ctx, model.VivinoWine{ID: "w2", Name: "Rioja Crianza", Vintage: 2018}))
	require.NoError(t, st.UpsertToplist(ctx, model.Toplist{
		ID: "t1", Name: "Top Reds", URL: "https://example.com/top-reds", WineIDs: []string{"w1", "w2"},
	}))
	_, err = st.ReplaceCatalog(ctx, []model.RetailerProduct{
		{ProductNumber: "1001", NameBold: "Barolo", NameThin: "Cannubi", CategoryL1: "Vin", Price: 299},
	})
	require.NoError(t, err)
	require.NoError(t, st.UpsertMatch(ctx, model.WineMatch{
		VivinoWineID:  "w1",
		ProductNumber: "1001",
		MatchScore:    92,
		MatchType:     model.MatchExact,
		MatchMethod:   model.MethodAI,
	}))
	require.NoError(t, st.AppendUpdateLog(ctx, model.RunSummary{
		ID: "run-1", ToplistID: "t1", ToplistName: "Top Reds",
		WinesFound: 2, MatchesFound: 1, Status: model.RunStatusComplete,
	}))
	return st
}

func TestGenerate(t *testing.T) {
	st := seededStore(t)
	out := t.TempDir()

	g := NewGenerator(st, out, "Best Wines")
	require.NoError(t, g.Generate(context.Background()))

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "Best Wines")
	assert.Contains(t, string(index), "Top Reds")
	assert.Contains(t, string(index), "toplists/t1.html")

	page, err := os.ReadFile(filepath.Join(out, "toplists", "t1.html"))
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "Barolo Cannubi")
	assert.Contains(t, html, "Rioja Crianza")
	assert.Contains(t, html, "https://www.systembolaget.se/sortiment/vin/?q=1001")
}

func TestGenerate_EmptyStore(t *testing.T) {
	st, err := store.NewJSON(filepath.Join(t.TempDir(), "bestwines.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	out := t.TempDir()
	g := NewGenerator(st, out, "Best Wines")
	require.NoError(t, g.Generate(context.Background()))

	_, err = os.Stat(filepath.Join(out, "index.html"))
	assert.NoError(t, err, "index is rendered even with no toplists")
}

func TestGenerate_Rerun(t *testing.T) {
	st := seededStore(t)
	out := t.TempDir()
	g := NewGenerator(st, out, "Best Wines")

	require.NoError(t, g.Generate(context.Background()))
	require.NoError(t, g.Generate(context.Background()), "output files are overwritten in place")
}
