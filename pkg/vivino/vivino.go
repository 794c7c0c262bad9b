// Package vivino loads wine toplists, either from a curated seed file or by
// scraping the public toplist pages.
package vivino

import (
	"context"
	"strconv"

	"github.com/google/uuid"
)

// wineNamespace seeds deterministic wine IDs so the same wine keeps the
// same ID across scrapes.
var wineNamespace = uuid.MustParse("8f2f7f06-5b77-4f6e-9f3a-2a1d3cf6b9d4")

// Toplist is one ranked list of wines from a source page.
type Toplist struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category" json:"category"`
	Wines    []Wine `yaml:"wines" json:"wines"`
}

// Wine is one entry of a toplist.
type Wine struct {
	Name              string   `yaml:"name" json:"name"`
	Rating            float64  `yaml:"rating" json:"rating"`
	Vintage           int      `yaml:"vintage" json:"vintage"`
	Producer          string   `yaml:"producer" json:"producer"`
	Region            string   `yaml:"region" json:"region"`
	Country           string   `yaml:"country" json:"country"`
	WineStyle         string   `yaml:"wine_style" json:"wine_style"`
	AlcoholPercentage float64  `yaml:"alcohol_percentage" json:"alcohol_percentage"`
	GrapeVarieties    []string `yaml:"grape_varieties" json:"grape_varieties"`
	ImageURL          string   `yaml:"image_url" json:"image_url"`
	SourceURL         string   `yaml:"source_url" json:"source_url"`
}

// ID derives a stable identifier from the wine name and vintage.
func (w Wine) ID() string {
	return uuid.NewSHA1(wineNamespace, []byte(w.Name+"|"+strconv.Itoa(w.Vintage))).String()
}

// Source provides toplists. Implementations: the YAML seed file and the
// HTTP page scraper.
type Source interface {
	// Toplists returns the toplists this source knows about, wines included.
	Toplists(ctx context.Context) ([]Toplist, error)
}
