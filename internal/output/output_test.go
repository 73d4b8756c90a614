package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/carhound/carhound/internal/marketplace"
)

// --- Writer Factory Tests ---

func TestNewWriterFormats(t *testing.T) {
	var buf bytes.Buffer

	for _, format := range []Format{FormatJSON, FormatJSONL, FormatYAML} {
		w, err := NewWriter(&buf, format)
		if err != nil {
			t.Errorf("NewWriter(%s) returned error: %v", format, err)
		}
		if w == nil {
			t.Errorf("NewWriter(%s) returned nil writer", format)
		}
	}
}

func TestNewWriterUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer

	_, err := NewWriter(&buf, Format("xml"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "xml") {
		t.Errorf("error should name the format, got %q", err.Error())
	}
}

// --- JSON Writer Tests ---

func TestJSONWriterProducesArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)

	records := []marketplace.ListingRecord{
		{Make: "Mazda", Model: "CX-5", Year: 2021, Price: "28500"},
		{Make: "Toyota", Model: "RAV4", Year: 2022, Price: "33000"},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	var decoded []marketplace.ListingRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
	if decoded[0].Make != "Mazda" || decoded[1].Model != "RAV4" {
		t.Errorf("decoded records do not match input: %+v", decoded)
	}
}

func TestJSONWriterEmptyFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

// --- JSONL Writer Tests ---

func TestJSONLWriterOneLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)

	records := []marketplace.ListingRecord{
		{Make: "Honda", Model: "CR-V"},
		{Make: "Subaru", Model: "Forester"},
		{Make: "Kia", Model: "Sportage"},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var rec marketplace.ListingRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

// --- YAML Writer Tests ---

func TestYAMLWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewYAMLWriter(&buf)

	rec := marketplace.ListingRecord{
		Make:    "Mazda",
		Model:   "CX-5",
		Year:    2021,
		Mileage: "41000",
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	var decoded []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(decoded))
	}
}
