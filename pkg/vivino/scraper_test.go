package vivino

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toplistFixture = `<!DOCTYPE html>
<html>
<head>
<title>Best Barolo Wines</title>
<script type="application/ld+json">
{"@type":"Organization","name":"Example"}
</script>
<script type="application/ld+json">
{
  "@type": "ItemList",
  "name": "Best Barolo Wines Right Now",
  "itemListElement": [
    {
      "@type": "ListItem",
      "item": {
        "@type": "Wine",
        "name": "Barolo Cannubi 2019",
        "url": "https://example.com/wines/barolo-cannubi",
        "image": "https://example.com/images/barolo.jpg",
        "brand": {"name": "Marchesi di Barolo"},
        "aggregateRating": {"ratingValue": "4.4"},
        "countryOfOrigin": "Italy"
      }
    },
    {
      "@type": "ListItem",
      "item": {
        "@type": "Wine",
        "name": "Barolo Riserva",
        "brand": {"name": "Pio Cesare"},
        "aggregateRating": {"ratingValue": 4.6}
      }
    }
  ]
}
</script>
</head>
<body>irrelevant markup</body>
</html>`

func TestParseToplistHTML(t *testing.T) {
	pageURL := "https://example.com/toplists/best-barolo"
	tl := ParseToplistHTML(toplistFixture, pageURL)

	assert.Equal(t, "Best Barolo Wines Right Now", tl.Name)
	assert.Equal(t, pageURL, tl.URL)
	assert.NotEmpty(t, tl.ID)
	require.Len(t, tl.Wines, 2)

	first := tl.Wines[0]
	assert.Equal(t, "Barolo Cannubi 2019", first.Name)
	assert.Equal(t, 2019, first.Vintage, "vintage is read from the wine name")
	assert.Equal(t, "Marchesi di Barolo", first.Producer)
	assert.Equal(t, "Italy", first.Country)
	assert.InDelta(t, 4.4, first.Rating, 0.001)
	assert.Equal(t, "https://example.com/wines/barolo-cannubi", first.SourceURL)

	second := tl.Wines[1]
	assert.Zero(t, second.Vintage)
	assert.Equal(t, pageURL, second.SourceURL, "wines without a URL fall back to the page URL")
	assert.InDelta(t, 4.6, second.Rating, 0.001)
}

func TestParseToplistHTML_NoStructuredData(t *testing.T) {
	tl := ParseToplistHTML("<html><body>nothing here</body></html>",
		"https://example.com/toplists/best-value-reds")

	assert.Empty(t, tl.Wines)
	assert.Equal(t, "Best Value Reds", tl.Name, "name falls back to the URL slug")
}

func TestScraper_Toplists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(toplistFixture))
	}))
	defer srv.Close()

	s := NewScraper([]string{srv.URL + "/toplists/best-barolo"}, WithScrapeRate(1000))

	lists, err := s.Toplists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Len(t, lists[0].Wines, 2)
}

func TestScraper_EmptyPageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>no wines</body></html>"))
	}))
	defer srv.Close()

	s := NewScraper([]string{srv.URL}, WithScrapeRate(1000))

	_, err := s.Toplists(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wines found")
}

func TestScraper_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewScraper([]string{srv.URL}, WithScrapeRate(1000))

	_, err := s.Toplists(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
