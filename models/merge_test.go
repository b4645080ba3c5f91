package models

import "testing"

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }
func boolp(v bool) *bool    { return &v }

func TestMergeOverwritesPopulatedFields(t *testing.T) {
	dst := Property{
		ExternalID: "abc123",
		TagNumber:  "SF-1700000000-X9K2Q1",
		Title:      "old title",
		TotalPrice: int64p(1_000_000_000),
		Rooms:      intp(2),
	}
	src := Property{
		Title:       "new title",
		TotalPrice:  int64p(1_200_000_000),
		Area:        intp(85),
		HasElevator: boolp(true),
		CityName:    "tehran",
	}

	Merge(&dst, &src)

	if dst.Title != "new title" {
		t.Errorf("Title = %q, want %q", dst.Title, "new title")
	}
	if *dst.TotalPrice != 1_200_000_000 {
		t.Errorf("TotalPrice = %d, want 1200000000", *dst.TotalPrice)
	}
	if dst.Area == nil || *dst.Area != 85 {
		t.Errorf("Area = %v, want 85", dst.Area)
	}
	if dst.HasElevator == nil || !*dst.HasElevator {
		t.Error("HasElevator not carried over")
	}
	if dst.CityName != "tehran" {
		t.Errorf("CityName = %q, want tehran", dst.CityName)
	}
}

func TestMergePreservesAbsentFields(t *testing.T) {
	dst := Property{
		Title:       "title",
		Description: "long description",
		Rooms:       intp(3),
		PhoneNumber: "09121234567",
		Images:      []string{"https://s100.divarcdn.com/a.jpg"},
	}
	src := Property{Title: "title v2"}

	Merge(&dst, &src)

	if dst.Description != "long description" {
		t.Errorf("Description wiped: %q", dst.Description)
	}
	if dst.Rooms == nil || *dst.Rooms != 3 {
		t.Errorf("Rooms wiped: %v", dst.Rooms)
	}
	if dst.PhoneNumber != "09121234567" {
		t.Errorf("PhoneNumber wiped: %q", dst.PhoneNumber)
	}
	if len(dst.Images) != 1 {
		t.Errorf("Images wiped: %v", dst.Images)
	}
}

func TestMergeNeverTouchesTag(t *testing.T) {
	dst := Property{TagNumber: "SF-1700000000-X9K2Q1"}
	src := Property{TagNumber: "SF-1800000000-ZZZZZZ", Title: "t"}

	Merge(&dst, &src)

	if dst.TagNumber != "SF-1700000000-X9K2Q1" {
		t.Errorf("TagNumber changed to %q", dst.TagNumber)
	}
}

func TestMergeImagesDownloadedIsSticky(t *testing.T) {
	dst := Property{ImagesDownloaded: true}
	Merge(&dst, &Property{})
	if !dst.ImagesDownloaded {
		t.Error("ImagesDownloaded reset by empty merge")
	}
}
