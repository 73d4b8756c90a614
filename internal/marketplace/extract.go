package marketplace

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/carhound/carhound/internal/logger"
)

// vdpMarker is the global the marketplace assigns its vehicle detail page
// model to. Everything the pipeline needs lives in that object.
const vdpMarker = "window['ngVdpModel'] ="

// inchMarkRe matches an unescaped inch mark inside a JSON string value,
// e.g. `"19" Alloy Wheels"`. The site does not escape these.
var inchMarkRe = regexp.MustCompile(`([0-9])"(\s+[A-Za-z])`)

// Extractor parses detail pages into ListingRecords. Extraction is best
// effort: any failure is logged and yields a zero record, never an error.
// Markup changes break scraping silently, so failures are counted and
// reported at the end of a run.
type Extractor struct {
	failures atomic.Int64
}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Failures returns the number of pages that could not be parsed.
func (e *Extractor) Failures() int64 {
	return e.failures.Load()
}

// Extract parses a detail page into a ListingRecord. A page without the
// expected embedded model, or with one that cannot be repaired into valid
// JSON, produces a zero record.
func (e *Extractor) Extract(html, sourceURL string) ListingRecord {
	payload, ok := findModelPayload(html)
	if !ok {
		e.failures.Add(1)
		logger.Warn("no embedded vehicle model on page", "url", sourceURL)
		return ListingRecord{}
	}

	var model vdpModel
	if err := json.Unmarshal([]byte(payload), &model); err != nil {
		e.failures.Add(1)
		logger.Warn("embedded vehicle model is not valid JSON", "url", sourceURL, "error", err)
		return ListingRecord{}
	}

	rec := ListingRecord{
		URL:     sourceURL,
		Make:    model.Hero.Make,
		Model:   model.Hero.Model,
		Trim:    model.Hero.Trim,
		Price:   CleanNumeric(model.Hero.Price),
		Mileage: CleanNumeric(model.Hero.Mileage),
	}

	if y, err := model.Hero.Year.Int64(); err == nil {
		rec.Year = int(y)
	}

	for _, spec := range model.Specifications.Specs {
		switch spec.Key {
		case "Kilometres":
			if rec.Mileage == "" {
				rec.Mileage = CleanNumeric(spec.Value)
			}
		case "Exterior Colour":
			rec.ExteriorColor = spec.Value
		case "Interior Colour":
			rec.InteriorColor = spec.Value
		case "Drivetrain":
			rec.Drivetrain = spec.Value
		case "Engine":
			rec.Engine = spec.Value
		case "Fuel Type":
			rec.FuelType = spec.Value
		case "Doors":
			rec.Doors = spec.Value
		}
	}

	for _, item := range model.Gallery.Items {
		if item.Type == "photo" && item.GalleryURL != "" {
			rec.Images = append(rec.Images, item.GalleryURL)
		}
	}

	return rec
}

// vdpModel mirrors the slice of the embedded page model the pipeline uses.
type vdpModel struct {
	Hero struct {
		Make    string      `json:"make"`
		Model   string      `json:"model"`
		Trim    string      `json:"trim"`
		Year    json.Number `json:"year"`
		Price   string      `json:"price"`
		Mileage string      `json:"mileage"`
	} `json:"hero"`
	Specifications struct {
		Specs []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"specs"`
	} `json:"specifications"`
	Gallery struct {
		Items []struct {
			Type       string `json:"type"`
			GalleryURL string `json:"galleryUrl"`
		} `json:"items"`
	} `json:"gallery"`
}

// findModelPayload locates the script block carrying the vdp model and
// slices out the JSON object assigned to it. Repairs run before slicing:
// an unescaped inch mark would otherwise desync the string tracking in
// sliceObject.
func findModelPayload(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var payload string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, vdpMarker)
		if idx < 0 {
			return true
		}
		payload = sliceObject(repairJSON(text[idx+len(vdpMarker):]))
		return payload == ""
	})

	return payload, payload != ""
}

// sliceObject returns the first balanced {...} object in s, honouring
// string literals and escape sequences.
func sliceObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// repairJSON applies targeted fixes for the ways the site's embedded model
// deviates from valid JSON. Both are observed in live pages; anything else
// still fails parsing and is handled by the caller.
func repairJSON(payload string) string {
	// The site escapes single quotes, which JSON does not allow.
	payload = strings.ReplaceAll(payload, `\'`, `'`)
	// Unescaped inch marks in trim and spec values: `19" Alloy Wheels`.
	payload = inchMarkRe.ReplaceAllString(payload, `$1\"$2`)
	return payload
}
