package vivino

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultScrapeUA = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	defaultScrapeRate = 1.0
)

var (
	ldJSONRe = regexp.MustCompile(`(?s)<script type="application/ld\+json">(.*?)</script>`)
	yearRe   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// ScrapeOption configures the scraper.
type ScrapeOption func(*Scraper)

// WithScrapeRate overrides the default requests-per-second cap.
func WithScrapeRate(perSec float64) ScrapeOption {
	return func(s *Scraper) {
		if perSec > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithScrapeHTTPClient overrides the default http.Client.
func WithScrapeHTTPClient(hc *http.Client) ScrapeOption {
	return func(s *Scraper) {
		s.http = hc
	}
}

// Scraper pulls toplists by fetching the public pages and reading the
// structured data blocks embedded in them. It is given the list of page
// URLs to visit; discovery is out of scope.
type Scraper struct {
	urls    []string
	limiter *rate.Limiter
	http    *http.Client
}

// NewScraper creates a Scraper over the given toplist page URLs.
func NewScraper(urls []string, opts ...ScrapeOption) *Scraper {
	s := &Scraper{
		urls:    urls,
		limiter: rate.NewLimiter(rate.Limit(defaultScrapeRate), 1),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scraper) Toplists(ctx context.Context) ([]Toplist, error) {
	var out []Toplist
	for _, u := range s.urls {
		tl, err := s.scrapePage(ctx, u)
		if err != nil {
			return nil, eris.Wrapf(err, "vivino: scrape %s", u)
		}
		out = append(out, *tl)
	}
	return out, nil
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL string) (*Toplist, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", defaultScrapeUA)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "en")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	tl := ParseToplistHTML(string(body), pageURL)
	if len(tl.Wines) == 0 {
		return nil, eris.New("no wines found in page; markup may have changed")
	}

	zap.L().Info("toplist scraped",
		zap.String("url", pageURL),
		zap.String("name", tl.Name),
		zap.Int("wines", len(tl.Wines)),
	)
	return tl, nil
}

// ldItemList mirrors the schema.org ItemList structure the toplist pages
// embed.
type ldItemList struct {
	Type            string `json:"@type"`
	Name            string `json:"name"`
	ItemListElement []struct {
		Type string `json:"@type"`
		Item ldWine `json:"item"`
	} `json:"itemListElement"`
}

type ldWine struct {
	Type            string `json:"@type"`
	Name            string `json:"name"`
	Image           string `json:"image"`
	URL             string `json:"url"`
	Brand           struct {
		Name string `json:"name"`
	} `json:"brand"`
	AggregateRating struct {
		RatingValue json.Number `json:"ratingValue"`
	} `json:"aggregateRating"`
	CountryOfOrigin string `json:"countryOfOrigin"`
}

// ParseToplistHTML extracts the toplist from a page's structured data
// blocks. Exported for tests against saved fixtures.
func ParseToplistHTML(html, pageURL string) *Toplist {
	tl := &Toplist{
		ID:   uuid.NewSHA1(wineNamespace, []byte(pageURL)).String(),
		Name: slugToName(pageURL),
		URL:  pageURL,
	}

	for _, m := range ldJSONRe.FindAllStringSubmatch(html, -1) {
		var list ldItemList
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &list); err != nil {
			continue
		}
		if list.Type != "ItemList" {
			continue
		}
		if list.Name != "" {
			tl.Name = list.Name
		}
		for _, el := range list.ItemListElement {
			w := el.Item
			if w.Name == "" {
				continue
			}
			rating, _ := w.AggregateRating.RatingValue.Float64()
			wine := Wine{
				Name:      w.Name,
				Rating:    rating,
				Producer:  w.Brand.Name,
				Country:   w.CountryOfOrigin,
				ImageURL:  w.Image,
				SourceURL: w.URL,
			}
			if wine.SourceURL == "" {
				wine.SourceURL = pageURL
			}
			if y := yearRe.FindString(w.Name); y != "" {
				wine.Vintage, _ = strconv.Atoi(y)
			}
			tl.Wines = append(tl.Wines, wine)
		}
	}
	return tl
}

// slugToName turns the trailing URL path segment into a readable list name.
func slugToName(pageURL string) string {
	trimmed := strings.TrimRight(pageURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	words := strings.Split(strings.ReplaceAll(trimmed, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
