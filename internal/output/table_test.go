package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/carhound/carhound/internal/marketplace"
)

// --- Table Rendering Tests ---

func TestRenderTableTitle(t *testing.T) {
	var buf bytes.Buffer

	RenderTable(&buf, nil, "Top Car Recommendations")

	if !strings.Contains(buf.String(), "Top Car Recommendations:") {
		t.Errorf("output should contain the title, got %q", buf.String())
	}
}

func TestRenderTableEmpty(t *testing.T) {
	var buf bytes.Buffer

	RenderTable(&buf, []marketplace.ListingRecord{}, "Results")

	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("empty input should print a notice, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "RANK") {
		t.Error("empty input should not render a table header")
	}
}

func TestRenderTableRows(t *testing.T) {
	var buf bytes.Buffer
	records := []marketplace.ListingRecord{
		{
			Rank:          1,
			Make:          "Mazda",
			Model:         "CX-5",
			Trim:          "GT",
			Year:          2021,
			Mileage:       "41000",
			Price:         "28500",
			ExteriorColor: "Soul Red",
			Reason:        "Low mileage for the price",
			URL:           "https://example.com/a/1",
		},
		{
			Rank:    2,
			Make:    "Toyota",
			Model:   "RAV4",
			Year:    2022,
			Mileage: "15000",
			Price:   "33000.50",
			URL:     "https://example.com/a/2",
		},
	}

	RenderTable(&buf, records, "Results")
	out := buf.String()

	for _, want := range []string{
		"Mazda", "CX-5", "GT", "2021", "41,000 km", "$28,500.00",
		"Soul Red", "Low mileage for the price",
		"Toyota", "RAV4", "15,000 km", "$33,000.50",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableMissingFields(t *testing.T) {
	var buf bytes.Buffer
	records := []marketplace.ListingRecord{
		{Make: "Honda", Model: "CR-V"},
	}

	RenderTable(&buf, records, "Results")

	if !strings.Contains(buf.String(), "N/A") {
		t.Errorf("missing fields should render as N/A:\n%s", buf.String())
	}
}

func TestRenderTableUnparseableNumbers(t *testing.T) {
	var buf bytes.Buffer
	records := []marketplace.ListingRecord{
		{Make: "Ford", Model: "Escape", Price: "Call for price", Mileage: "unknown"},
	}

	RenderTable(&buf, records, "Results")
	out := buf.String()

	if strings.Contains(out, "$") {
		t.Errorf("unparseable price should not render a dollar amount:\n%s", out)
	}
	if strings.Contains(out, " km") {
		t.Errorf("unparseable mileage should not render a km amount:\n%s", out)
	}
}
