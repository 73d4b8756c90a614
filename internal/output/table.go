// Package output renders the ranked listings as a table and exports them
// to structured formats.
package output

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/carhound/carhound/internal/marketplace"
)

const notAvailable = "N/A"

// RenderTable writes the ranked listings as a formatted table.
func RenderTable(w io.Writer, records []marketplace.ListingRecord, title string) {
	fmt.Fprintf(w, "\n%s:\n\n", title)

	if len(records) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{
		"Rank", "Make", "Model", "Year", "Mileage", "Price",
		"Color", "Reason", "Configuration", "URL",
	})

	for _, rec := range records {
		t.AppendRow(table.Row{
			orNA(fmt.Sprintf("%d", rec.Rank), rec.Rank != 0),
			orNA(rec.Make, rec.Make != ""),
			orNA(rec.Model, rec.Model != ""),
			orNA(fmt.Sprintf("%d", rec.Year), rec.Year != 0),
			formatMileage(rec),
			formatPrice(rec),
			orNA(rec.ExteriorColor, rec.ExteriorColor != ""),
			orNA(rec.Reason, rec.Reason != ""),
			orNA(rec.Trim, rec.Trim != ""),
			orNA(rec.URL, rec.URL != ""),
		})
	}

	t.Render()
}

func formatMileage(rec marketplace.ListingRecord) string {
	v, err := rec.MileageValue()
	if err != nil {
		return notAvailable
	}
	return humanize.Comma(int64(v)) + " km"
}

func formatPrice(rec marketplace.ListingRecord) string {
	v, err := rec.PriceValue()
	if err != nil {
		return notAvailable
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func orNA(s string, ok bool) string {
	if !ok {
		return notAvailable
	}
	return s
}
