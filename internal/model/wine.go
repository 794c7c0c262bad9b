package model

import "time"

// VivinoWine is a wine scraped from a Vivino toplist page. Wines are
// immutable once scraped; only image data is backfilled later.
type VivinoWine struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Rating            float64   `json:"rating"`
	Vintage           int       `json:"vintage,omitempty"` // 0 = unknown
	Producer          string    `json:"producer,omitempty"`
	Region            string    `json:"region,omitempty"`
	Country           string    `json:"country,omitempty"`
	WineStyle         string    `json:"wine_style,omitempty"`
	WineType          string    `json:"wine_type,omitempty"`
	AlcoholPercentage float64   `json:"alcohol_percentage,omitempty"`
	GrapeVarieties    []string  `json:"grape_varieties,omitempty"`
	FoodPairings      []string  `json:"food_pairings,omitempty"`
	IsOrganic         bool      `json:"is_organic,omitempty"`
	ImageURL          string    `json:"image_url,omitempty"`
	SourceURL         string    `json:"source_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Toplist groups the wines scraped from one source page. WineIDs preserves
// the page ranking order.
type Toplist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Category  string    `json:"category,omitempty"`
	WineIDs   []string  `json:"wine_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}
