// Package systembolaget is a client for the public Systembolaget
// e-commerce product search API.
package systembolaget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tokyo3/bestwines/internal/resilience"
)

const (
	defaultBaseURL    = "https://api-extern.systembolaget.se/sb-api-ecommerce/v1"
	defaultRatePerSec = 3.0
	defaultPageSize   = 30

	// Product images live on a separate CDN keyed by product number.
	imageURLFormat = "https://product-cdn.systembolaget.se/productimages/%s/%s_400.webp?q=75&w=768"
)

// Client searches the Systembolaget product catalog.
type Client interface {
	// Search runs one product search request and returns a single page.
	Search(ctx context.Context, q SearchQuery) (*SearchPage, error)
	// FetchWineCatalog pages through the wine category and returns every
	// product.
	FetchWineCatalog(ctx context.Context) ([]Product, error)
	// ValidateKey reports whether the subscription key is accepted.
	ValidateKey(ctx context.Context) (bool, error)
}

// SearchQuery holds the supported productsearch parameters. Zero values are
// omitted from the request.
type SearchQuery struct {
	TextQuery      string
	Page           int
	Size           int
	CategoryLevel1 string
	VolumeMinML    int
	VolumeMaxML    int
}

// SearchPage is one page of search results.
type SearchPage struct {
	Products []Product `json:"products"`
	Metadata struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
		TotalCount int `json:"totalCount"`
		NextPage   int `json:"nextPage"`
		PriorPage  int `json:"priorPage"`
		PageSize   int `json:"pageSize"`
	} `json:"metadata"`
}

// Product is one catalog entry as the API returns it.
type Product struct {
	ProductNumber     string  `json:"productNumber"`
	ProductNameBold   string  `json:"productNameBold"`
	ProductNameThin   string  `json:"productNameThin"`
	Price             float64 `json:"price"`
	Volume            float64 `json:"volume"` // milliliters
	Country           string  `json:"country"`
	CategoryLevel1    string  `json:"categoryLevel1"`
	CategoryLevel2    string  `json:"categoryLevel2"`
	ProducerName      string  `json:"producerName"`
	Vintage           int     `json:"vintage"`
	AlcoholPercentage float64 `json:"alcoholPercentage"`
	PackagingLevel1   string  `json:"packagingLevel1"`
	OriginLevel1      string  `json:"originLevel1"`
	IsDiscontinued    bool    `json:"isDiscontinued"`
}

// ImageURL returns the CDN image location for a product number.
func ImageURL(productNumber string) string {
	return fmt.Sprintf(imageURLFormat, productNumber, productNumber)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default requests-per-second cap.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithPageSize overrides the catalog paging size.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRetryPolicy overrides the default retry behavior.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	subscriptionKey string
	baseURL         string
	pageSize        int
	limiter         *rate.Limiter
	retry           resilience.Policy
	http            *http.Client
}

// NewClient creates a Systembolaget API client.
func NewClient(subscriptionKey string, opts ...Option) Client {
	c := &httpClient{
		subscriptionKey: subscriptionKey,
		baseURL:         defaultBaseURL,
		pageSize:        defaultPageSize,
		limiter:         rate.NewLimiter(rate.Limit(defaultRatePerSec), 1),
		retry:           defaultRetryPolicy(),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func defaultRetryPolicy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.OnRetry = resilience.LogRetries("systembolaget", "search")
	return p
}

func (c *httpClient) Search(ctx context.Context, q SearchQuery) (*SearchPage, error) {
	params := url.Values{}
	params.Set("sortBy", "Score")
	params.Set("sortDirection", "Ascending")
	if q.TextQuery != "" {
		params.Set("textQuery", q.TextQuery)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	size := q.Size
	if size < 1 {
		size = c.pageSize
	}
	params.Set("size", strconv.Itoa(size))
	if q.CategoryLevel1 != "" {
		params.Set("categoryLevel1", q.CategoryLevel1)
	}
	if q.VolumeMinML > 0 {
		params.Set("volume.min", strconv.Itoa(q.VolumeMinML))
	}
	if q.VolumeMaxML > 0 {
		params.Set("volume.max", strconv.Itoa(q.VolumeMaxML))
	}

	// Each attempt takes a fresh limiter token so retries stay within the
	// API rate cap.
	return resilience.RetryVal(ctx, c.retry, func(ctx context.Context) (*SearchPage, error) {
		return c.doSearch(ctx, params)
	})
}

func (c *httpClient) doSearch(ctx context.Context, params url.Values) (*SearchPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "systembolaget: rate limit wait")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/productsearch/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "systembolaget: create request")
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "systembolaget: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "systembolaget: read response")
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("systembolaget: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.MarkTransient(err, resp.StatusCode)
		}
		return nil, err
	}

	var result SearchPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "systembolaget: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) FetchWineCatalog(ctx context.Context) ([]Product, error) {
	var all []Product

	for page := 1; ; page++ {
		sp, err := c.Search(ctx, SearchQuery{
			Page:           page,
			Size:           c.pageSize,
			CategoryLevel1: "Vin",
		})
		if err != nil {
			return nil, eris.Wrapf(err, "systembolaget: catalog page %d", page)
		}
		if len(sp.Products) == 0 {
			break
		}
		all = append(all, sp.Products...)

		zap.L().Debug("catalog page fetched",
			zap.Int("page", page),
			zap.Int("products", len(sp.Products)),
			zap.Int("total", len(all)),
		)

		if sp.Metadata.TotalPages > 0 && page >= sp.Metadata.TotalPages {
			break
		}
	}

	zap.L().Info("wine catalog fetched", zap.Int("products", len(all)))
	return all, nil
}

func (c *httpClient) ValidateKey(ctx context.Context) (bool, error) {
	_, err := c.Search(ctx, SearchQuery{Page: 1, Size: 1})
	if err != nil {
		return false, err
	}
	return true, nil
}
