// Package marketplace models used-vehicle listings and extracts them from
// the marketplace's detail pages.
package marketplace

import (
	"fmt"
	"strconv"
	"strings"
)

// ListingRecord is the canonical unit of data flowing through the pipeline.
// The JSON tags double as the cache file schema.
type ListingRecord struct {
	URL string `json:"url"`

	Make          string `json:"make,omitempty"`
	Model         string `json:"model,omitempty"`
	Trim          string `json:"trim,omitempty"`
	Year          int    `json:"year,omitempty"`
	ExteriorColor string `json:"exterior_color,omitempty"`
	InteriorColor string `json:"interior_color,omitempty"`
	Drivetrain    string `json:"drivetrain,omitempty"`
	Engine        string `json:"engine,omitempty"`
	FuelType      string `json:"fuel_type,omitempty"`
	Doors         string `json:"doors,omitempty"`

	// Price and Mileage hold cleaned numeric strings ("24500", "45000");
	// separators and currency/unit suffixes are stripped at extraction time.
	Price   string `json:"price,omitempty"`
	Mileage string `json:"mileage,omitempty"`

	Images []string `json:"images,omitempty"`

	// Ranking overlay, populated only after the ranking step. ID is
	// positional within one ranking batch and has no meaning outside it.
	ID     int    `json:"id,omitempty"`
	Rank   int    `json:"rank,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Empty reports whether the record is unusable downstream.
func (r ListingRecord) Empty() bool {
	return r.URL == ""
}

// PriceValue coerces the price string to a number.
func (r ListingRecord) PriceValue() (float64, error) {
	s := CleanNumeric(r.Price)
	if s == "" {
		return 0, fmt.Errorf("listing %s: no price", r.URL)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("listing %s: bad price %q: %w", r.URL, r.Price, err)
	}
	return v, nil
}

// MileageValue coerces the mileage string to a number.
func (r ListingRecord) MileageValue() (int, error) {
	s := CleanNumeric(r.Mileage)
	if s == "" {
		return 0, fmt.Errorf("listing %s: no mileage", r.URL)
	}
	// Mileage occasionally arrives with a decimal part; truncate it.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("listing %s: bad mileage %q: %w", r.URL, r.Mileage, err)
	}
	return int(v), nil
}

// CleanNumeric strips thousand separators, currency symbols and unit
// suffixes from a commercial attribute string, leaving digits and at most
// one decimal point: "$12,345.00" -> "12345.00", "45,000 km" -> "45000".
func CleanNumeric(s string) string {
	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot && b.Len() > 0:
			seenDot = true
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(b.String(), ".")
}
