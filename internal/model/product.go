package model

import "strings"

// RetailerProduct is one Systembolaget catalog entry. Reference data,
// refreshed by catalog sync and never mutated by the matcher.
type RetailerProduct struct {
	ProductNumber     string  `json:"product_number"`
	NameBold          string  `json:"name_bold"`
	NameThin          string  `json:"name_thin,omitempty"`
	Price             float64 `json:"price"`
	VolumeML          int     `json:"volume_ml,omitempty"`
	CategoryL1        string  `json:"category_l1,omitempty"`
	CategoryL2        string  `json:"category_l2,omitempty"`
	Country           string  `json:"country,omitempty"`
	AlcoholPercentage float64 `json:"alcohol_percentage,omitempty"`
	Producer          string  `json:"producer,omitempty"`
	Year              int     `json:"year,omitempty"`
	StockStatus       string  `json:"stock_status,omitempty"`
}

// FullName joins the bold and thin name parts the way Systembolaget
// displays them.
func (p RetailerProduct) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.NameBold) + " " + strings.TrimSpace(p.NameThin))
}

// IsWine reports whether the product sits in the wine category tree.
// Used by the ranker prefilter only; it must never decide a match.
func (p RetailerProduct) IsWine() bool {
	return strings.EqualFold(p.CategoryL1, "Vin")
}
