package systembolaget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokyo3/bestwines/internal/resilience"
)

func TestSearch_SendsKeyAndParams(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		_ = json.NewEncoder(w).Encode(SearchPage{})
	}))
	defer srv.Close()

	c := NewClient("secret-key", WithBaseURL(srv.URL), WithRateLimit(1000))

	_, err := c.Search(context.Background(), SearchQuery{
		TextQuery:      "barolo",
		Page:           2,
		Size:           15,
		CategoryLevel1: "Vin",
		VolumeMinML:    375,
		VolumeMaxML:    1500,
	})
	require.NoError(t, err)
	require.NotNil(t, gotReq)

	assert.Equal(t, "secret-key", gotReq.Header.Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "/productsearch/search", gotReq.URL.Path)

	q := gotReq.URL.Query()
	assert.Equal(t, "barolo", q.Get("textQuery"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "15", q.Get("size"))
	assert.Equal(t, "Vin", q.Get("categoryLevel1"))
	assert.Equal(t, "375", q.Get("volume.min"))
	assert.Equal(t, "1500", q.Get("volume.max"))
	assert.Equal(t, "Score", q.Get("sortBy"))
}

func TestSearch_DefaultsPageAndSize(t *testing.T) {
	var q map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_ = json.NewEncoder(w).Encode(SearchPage{})
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRateLimit(1000), WithPageSize(50))

	_, err := c.Search(context.Background(), SearchQuery{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, q["page"])
	assert.Equal(t, []string{"50"}, q["size"])
	assert.NotContains(t, q, "textQuery")
	assert.NotContains(t, q, "volume.min")
}

func TestSearch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid subscription key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL), WithRateLimit(1000))

	_, err := c.Search(context.Background(), SearchQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSearch_RetriesServerErrors(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(SearchPage{
			Products: []Product{{ProductNumber: "1001"}},
		})
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRateLimit(1000),
		WithRetryPolicy(resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, Jitter: 0}))

	sp, err := c.Search(context.Background(), SearchQuery{})
	require.NoError(t, err)
	require.Len(t, sp.Products, 1)
	assert.Equal(t, 3, requests)
}

func TestSearch_NoRetryOnClientError(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL), WithRateLimit(1000),
		WithRetryPolicy(resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, Jitter: 0}))

	_, err := c.Search(context.Background(), SearchQuery{})
	require.Error(t, err)
	assert.Equal(t, 1, requests, "a 401 must not be retried")
}

func TestFetchWineCatalog_PagesUntilDone(t *testing.T) {
	pages := map[string]SearchPage{}
	for i := 1; i <= 3; i++ {
		var p SearchPage
		p.Products = []Product{
			{ProductNumber: fmt.Sprintf("%d001", i), ProductNameBold: "Wine", CategoryLevel1: "Vin"},
			{ProductNumber: fmt.Sprintf("%d002", i), ProductNameBold: "Wine", CategoryLevel1: "Vin"},
		}
		p.Metadata.Page = i
		p.Metadata.TotalPages = 3
		pages[fmt.Sprintf("%d", i)] = p
	}

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "Vin", r.URL.Query().Get("categoryLevel1"))
		_ = json.NewEncoder(w).Encode(pages[r.URL.Query().Get("page")])
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRateLimit(1000), WithPageSize(2))

	products, err := c.FetchWineCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 6)
	assert.Equal(t, 3, requests, "must stop at totalPages")
	assert.Equal(t, "1001", products[0].ProductNumber)
	assert.Equal(t, "3002", products[5].ProductNumber)
}

func TestFetchWineCatalog_StopsOnEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p SearchPage
		if r.URL.Query().Get("page") == "1" {
			p.Products = []Product{{ProductNumber: "1001"}}
		}
		_ = json.NewEncoder(w).Encode(p)
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithRateLimit(1000))

	products, err := c.FetchWineCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestValidateKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "good" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(SearchPage{})
	}))
	defer srv.Close()

	ok, err := NewClient("good", WithBaseURL(srv.URL), WithRateLimit(1000)).ValidateKey(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewClient("bad", WithBaseURL(srv.URL), WithRateLimit(1000)).ValidateKey(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
}

func TestImageURL(t *testing.T) {
	assert.Equal(t,
		"https://product-cdn.systembolaget.se/productimages/1001/1001_400.webp?q=75&w=768",
		ImageURL("1001"))
}
