package marketplace

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BaseURL is the marketplace root.
const BaseURL = "https://www.autotrader.ca"

// listingLinkSelector matches the anchors a search results page uses for
// listing detail links. Brittle by nature; revisit when discovery drops to
// zero across all terms.
const listingLinkSelector = "a.detail-price-area, a.inner-link"

// SearchQuery describes one search against the listing-search endpoint.
type SearchQuery struct {
	Make       string
	Model      string
	PostalCode string
	RadiusKM   int
	MaxResults int
}

// URL renders the query against the given marketplace base.
func (q SearchQuery) URL(base string) string {
	params := []string{
		"loc=" + q.PostalCode,
		"make=" + q.Make,
		"mdl=" + q.Model,
		fmt.Sprintf("prx=%d", q.RadiusKM),
		fmt.Sprintf("rcp=%d", q.MaxResults),
	}
	// The endpoint rejects '+'-encoded spaces, so encode them by hand.
	return base + "/cars/?" + strings.ReplaceAll(strings.Join(params, "&"), " ", "%20")
}

// ParseSearchTerm splits a user search term into make and optional model:
// "Mazda CX-5" -> ("Mazda", "CX-5"), "Porsche" -> ("Porsche", "").
func ParseSearchTerm(term string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(term), " ", 2)
	if len(parts) == 2 {
		return parts[0], strings.TrimSpace(parts[1])
	}
	return parts[0], ""
}

// ListingLinks extracts unique listing detail URLs from a search results
// page, resolved against base. Discovery order is preserved but carries no
// meaning; only uniqueness matters.
func ListingLinks(html, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find(listingLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := baseURL.ResolveReference(linkURL).String()

		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})

	return links
}
