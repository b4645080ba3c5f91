package scraper

import (
	"os"
	"path/filepath"
	"testing"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}

func TestParseListingPage(t *testing.T) {
	html := loadFixture(t, "listing_page.html")

	summaries, err := ParseListingPage(html, "https://divar.ir")
	if err != nil {
		t.Fatal(err)
	}

	// Four cards in the fixture: one without a post link is skipped and one
	// duplicates an earlier external id.
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	first := summaries[0]
	if first.ExternalID != "wZjYtR2a" {
		t.Errorf("ExternalID = %q, want wZjYtR2a", first.ExternalID)
	}
	if first.URL != "https://divar.ir/v/آپارتمان-۸۵متری-دوخوابه/wZjYtR2a" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Title != "آپارتمان ۸۵ متری دو خوابه" {
		t.Errorf("Title = %q", first.Title)
	}
	if len(first.Descriptions) != 3 {
		t.Errorf("Descriptions = %v, want 3 entries", first.Descriptions)
	}
	if first.ThumbnailURL != "https://s100.divarcdn.com/static/thumbnails/1.jpg" {
		t.Errorf("ThumbnailURL = %q", first.ThumbnailURL)
	}

	second := summaries[1]
	if second.ExternalID != "QZkm7x8b" {
		t.Errorf("second ExternalID = %q", second.ExternalID)
	}
	if second.URL != "https://divar.ir/v/ویلای-دوبلکس/QZkm7x8b" {
		t.Errorf("absolute URL rewritten: %q", second.URL)
	}
	if second.ThumbnailURL != "https://s100.divarcdn.com/static/thumbnails/2.jpg" {
		t.Errorf("data-src thumbnail not picked up: %q", second.ThumbnailURL)
	}
}

func TestParseListingPageEmpty(t *testing.T) {
	summaries, err := ParseListingPage("<html><body><p>نتیجه‌ای یافت نشد</p></body></html>", "https://divar.ir")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Errorf("got %d summaries from empty page", len(summaries))
	}
}

func TestExternalIDFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://divar.ir/v/some-slug/wZjYtR2a", "wZjYtR2a"},
		{"/v/slug/AbC123", "AbC123"},
		{"https://divar.ir/", ""},
	}
	for _, tc := range cases {
		if got := externalIDFromURL(tc.url); got != tc.want {
			t.Errorf("externalIDFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
