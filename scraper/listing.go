package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sorinflow/models"
)

// Card selectors, most specific first. Divar ships markup changes without
// notice, so each is tried in turn and the first that yields cards wins.
var cardSelectors = []string{
	"a.kt-post-card__action",
	"div.post-card-item a",
	"article a[href*='/v/']",
	"a[href*='/v/']",
}

// ParseListingPage extracts the post summaries from one search-results page.
// An empty slice with no error means the page held no cards, which callers
// treat as the end of pagination.
func ParseListingPage(html, baseURL string) ([]models.ListingSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			break
		}
	}
	if cards == nil || cards.Length() == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var out []models.ListingSummary
	cards.Each(func(_ int, card *goquery.Selection) {
		s, ok := parseCard(card, baseURL)
		if !ok || seen[s.ExternalID] {
			return
		}
		seen[s.ExternalID] = true
		out = append(out, s)
	})
	return out, nil
}

func parseCard(card *goquery.Selection, baseURL string) (models.ListingSummary, bool) {
	var s models.ListingSummary

	href, ok := card.Attr("href")
	if !ok || !strings.Contains(href, "/v/") {
		return s, false
	}

	s.URL = absoluteURL(baseURL, href)
	s.ExternalID = externalIDFromURL(s.URL)
	if s.ExternalID == "" {
		return s, false
	}

	s.Title = strings.TrimSpace(card.Find(".kt-post-card__title, .post-title, h2, h3").First().Text())

	card.Find(".kt-post-card__description, .post-description, span.description").Each(func(_ int, d *goquery.Selection) {
		if text := strings.TrimSpace(d.Text()); text != "" {
			s.Descriptions = append(s.Descriptions, text)
		}
	})
	if bottom := strings.TrimSpace(card.Find(".kt-post-card__bottom-description, .post-location").First().Text()); bottom != "" {
		s.Descriptions = append(s.Descriptions, bottom)
	}

	img := card.Find(".kt-image-block__image, img").First()
	if src, ok := img.Attr("src"); ok {
		s.ThumbnailURL = src
	} else if src, ok := img.Attr("data-src"); ok {
		s.ThumbnailURL = src
	}

	return s, true
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}

// SummaryFromURL builds a minimal summary for a single ad-hoc listing URL.
func SummaryFromURL(rawURL string) models.ListingSummary {
	return models.ListingSummary{
		ExternalID: externalIDFromURL(rawURL),
		URL:        rawURL,
	}
}

// externalIDFromURL returns the post token, the last path segment of a
// /v/<slug>/<token> URL.
func externalIDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segs := strings.Split(path, "/")
	return segs[len(segs)-1]
}
