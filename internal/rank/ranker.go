package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/carhound/carhound/internal/llm"
	"github.com/carhound/carhound/internal/logger"
	"github.com/carhound/carhound/internal/marketplace"
)

const (
	// DefaultMaxBatch bounds how many candidates go to the ranking
	// service in one request.
	DefaultMaxBatch = 50

	// DefaultTopN is the shortlist size asked of the service.
	DefaultTopN = 10

	defaultMaxTokens = 1500
)

// The service is asked to echo 'id' untouched; it is the only join key
// back to the original records.
const promptTemplate = "As an expert car advisor, select the top %d best-value cars from the list below. " +
	"Consider car configuration, mileage, year, price and everything you know about the car made in that year. " +
	"Provide a one-sentence reason for each and include what configuration made you choose this car " +
	"(e.g., platinum edition, panoramic roof, etc.). Each entry in your output should include 'id', 'Rk' (Rank), " +
	"'Rsn' (Reason), and the car attributes 'Mk', 'Md', 'Yr', 'Mi', 'Pr', 'Cfg'.\n\n" +
	"Cars:\n%s\n\n" +
	"Use the same field names as provided, including 'id'. Do not modify the 'id'. " +
	"Provide your output as a JSON array."

// Ranker sends candidate listings to an LLM and merges its shortlist back
// onto the originals.
type Ranker struct {
	provider llm.Provider
	maxBatch int
	topN     int
}

// Option configures the ranker.
type Option func(*Ranker)

// WithMaxBatch sets the maximum number of candidates sent to the service.
func WithMaxBatch(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.maxBatch = n
		}
	}
}

// WithTopN sets the shortlist size.
func WithTopN(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.topN = n
		}
	}
}

// NewRanker creates a Ranker over the given provider.
func NewRanker(provider llm.Provider, opts ...Option) *Ranker {
	r := &Ranker{
		provider: provider,
		maxBatch: DefaultMaxBatch,
		topN:     DefaultTopN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// reducedCar is the shortened-field-name projection sent to the service,
// kept small to limit payload size. URLs and images never leave the
// process.
type reducedCar struct {
	ID      int    `json:"id"`
	Make    string `json:"Mk"`
	Model   string `json:"Md"`
	Year    int    `json:"Yr"`
	Mileage string `json:"Mi"`
	Price   string `json:"Pr"`
	Config  string `json:"Cfg"`
}

// rankedEntry is one element of the service's response array.
type rankedEntry struct {
	ID     int    `json:"id"`
	Rank   int    `json:"Rk"`
	Reason string `json:"Rsn"`
}

// Rank asks the service for a shortlist and merges it back onto the
// original records. Ranking is strictly best effort: any failure is
// logged and degrades to an empty result, never an aborted run.
func (r *Ranker) Rank(ctx context.Context, records []marketplace.ListingRecord) []marketplace.ListingRecord {
	if len(records) == 0 {
		return nil
	}

	batch := records
	if len(batch) > r.maxBatch {
		logger.Info("truncating ranking batch", "candidates", len(records), "max", r.maxBatch)
		batch = batch[:r.maxBatch]
	}

	// Positional batch-local ids; the join key for the response.
	cars := make([]reducedCar, len(batch))
	for i, rec := range batch {
		batch[i].ID = i
		cars[i] = reducedCar{
			ID:      i,
			Make:    rec.Make,
			Model:   rec.Model,
			Year:    rec.Year,
			Mileage: rec.Mileage,
			Price:   rec.Price,
			Config:  rec.Trim,
		}
	}

	payload, err := json.Marshal(cars)
	if err != nil {
		logger.Error("failed to encode ranking request", "error", err)
		return nil
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(promptTemplate, r.topN, payload)},
		},
		MaxTokens:   defaultMaxTokens,
		Temperature: 0, // deterministic output
	})
	if err != nil {
		logger.Error("ranking service call failed", "provider", r.provider.Name(), "error", err)
		return nil
	}

	entries, err := parseShortlist(resp.Content)
	if err != nil {
		logger.Error("ranking service returned unusable output", "provider", r.provider.Name(), "error", err)
		return nil
	}

	return mergeShortlist(batch, entries)
}

// parseShortlist decodes the service output, stripping the markdown
// fences and prose some models wrap around the array.
func parseShortlist(content string) ([]rankedEntry, error) {
	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var entries []rankedEntry
	if err := json.Unmarshal([]byte(content[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("decode shortlist: %w", err)
	}
	return entries, nil
}

// mergeShortlist joins the response entries back on id. The response is
// authoritative only for rank and reason; every other displayed attribute
// comes from the original record, not the model's possibly-altered copy.
func mergeShortlist(batch []marketplace.ListingRecord, entries []rankedEntry) []marketplace.ListingRecord {
	byID := make(map[int]marketplace.ListingRecord, len(batch))
	for _, rec := range batch {
		byID[rec.ID] = rec
	}

	out := make([]marketplace.ListingRecord, 0, len(entries))
	for _, entry := range entries {
		rec, ok := byID[entry.ID]
		if !ok {
			logger.Warn("ranking response references unknown id", "id", entry.ID)
			rec = marketplace.ListingRecord{ID: entry.ID}
		}
		rec.Rank = entry.Rank
		rec.Reason = entry.Reason
		out = append(out, rec)
	}
	return out
}
