// Package rank filters listings against user criteria, orders them, and
// asks an LLM for a justified shortlist.
package rank

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/carhound/carhound/internal/logger"
	"github.com/carhound/carhound/internal/marketplace"
)

// FilterConfigError reports malformed filter criteria. Unlike per-record
// problems it aborts the whole filtering step.
type FilterConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *FilterConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FilterConfigError) Unwrap() error {
	return e.Err
}

// ParseYearRange parses "2019-2024" or a single year; both ends are
// inclusive.
func ParseYearRange(s string) (int, int, error) {
	s = strings.TrimSpace(s)

	if start, end, ok := strings.Cut(s, "-"); ok {
		sv, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil {
			return 0, 0, &FilterConfigError{Field: "year range", Value: s, Err: err}
		}
		ev, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil {
			return 0, 0, &FilterConfigError{Field: "year range", Value: s, Err: err}
		}
		if sv > ev {
			return 0, 0, &FilterConfigError{Field: "year range", Value: s,
				Err: fmt.Errorf("start year after end year")}
		}
		return sv, ev, nil
	}

	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, &FilterConfigError{Field: "year range", Value: s, Err: err}
	}
	return y, y, nil
}

// FilterAndRank keeps the records matching the bounds and orders them
// ascending by (price, mileage), ties keeping input order.
//
// A zero maxMileage or maxPrice means unbounded. Records whose price,
// mileage or year cannot be coerced to a number are excluded and logged,
// not defaulted to zero.
func FilterAndRank(records []marketplace.ListingRecord, maxMileage int, yearRange string, maxPrice float64) ([]marketplace.ListingRecord, error) {
	yearStart, yearEnd, err := ParseYearRange(yearRange)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		rec     marketplace.ListingRecord
		price   float64
		mileage int
	}

	var candidates []candidate
	for _, rec := range records {
		price, err := rec.PriceValue()
		if err != nil {
			logger.Debug("excluding listing without usable price", "url", rec.URL, "price", rec.Price)
			continue
		}
		mileage, err := rec.MileageValue()
		if err != nil {
			logger.Debug("excluding listing without usable mileage", "url", rec.URL, "mileage", rec.Mileage)
			continue
		}
		if rec.Year == 0 {
			logger.Debug("excluding listing without model year", "url", rec.URL)
			continue
		}

		if maxPrice > 0 && price > maxPrice {
			continue
		}
		if maxMileage > 0 && mileage > maxMileage {
			continue
		}
		if rec.Year < yearStart || rec.Year > yearEnd {
			continue
		}

		candidates = append(candidates, candidate{rec: rec, price: price, mileage: mileage})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].price != candidates[j].price {
			return candidates[i].price < candidates[j].price
		}
		return candidates[i].mileage < candidates[j].mileage
	})

	out := make([]marketplace.ListingRecord, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.rec)
	}
	return out, nil
}
