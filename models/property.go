package models

import (
	"encoding/json"
	"time"
)

// ListingSummary is what a search-results card yields. It only lives long
// enough for the orchestrator to decide whether the detail page is worth
// fetching; it is never persisted as-is.
type ListingSummary struct {
	ExternalID   string   `json:"external_id"`
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Descriptions []string `json:"descriptions"`
	CategoryHint string   `json:"category_hint"`
}

// Property is a normalized real-estate listing keyed by the site's own id.
// Numeric and boolean fields are pointers so "not extracted" survives the
// merge-on-upsert path without clobbering previously stored values.
type Property struct {
	ID         int64  `json:"id" db:"id"`
	TagNumber  string `json:"tag_number" db:"tag_number"`
	ExternalID string `json:"external_id" db:"external_id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// Pricing: sale listings fill total/per-meter, rentals fill rent/deposit.
	TotalPrice    *int64 `json:"total_price" db:"total_price"`
	PricePerMeter *int64 `json:"price_per_meter" db:"price_per_meter"`
	RentPrice     *int64 `json:"rent_price" db:"rent_price"`
	Deposit       *int64 `json:"deposit" db:"deposit"`

	Area        *int `json:"area" db:"area"`
	LandArea    *int `json:"land_area" db:"land_area"`
	BuiltArea   *int `json:"built_area" db:"built_area"`
	Rooms       *int `json:"rooms" db:"rooms"`
	YearBuilt   *int `json:"year_built" db:"year_built"`
	Floor       *int `json:"floor" db:"floor"`
	TotalFloors *int `json:"total_floors" db:"total_floors"`
	Frontage    *int `json:"frontage" db:"frontage"`

	HasElevator *bool `json:"has_elevator" db:"has_elevator"`
	HasParking  *bool `json:"has_parking" db:"has_parking"`
	HasStorage  *bool `json:"has_storage" db:"has_storage"`
	HasBalcony  *bool `json:"has_balcony" db:"has_balcony"`

	BuildingDirection string `json:"building_direction" db:"building_direction"`
	UnitStatus        string `json:"unit_status" db:"unit_status"`
	DocumentType      string `json:"document_type" db:"document_type"`
	UsageType         string `json:"usage_type" db:"usage_type"`
	BuildingAge       string `json:"building_age" db:"building_age"`
	PropertyType      string `json:"property_type" db:"property_type"`
	ListingType       string `json:"listing_type" db:"listing_type"` // buy, rent

	CityName     string   `json:"city_name" db:"city_name"`
	District     string   `json:"district" db:"district"`
	Neighborhood string   `json:"neighborhood" db:"neighborhood"`
	Address      string   `json:"address" db:"address"`
	Latitude     *float64 `json:"latitude" db:"latitude"`
	Longitude    *float64 `json:"longitude" db:"longitude"`

	CategoryName string `json:"category_name" db:"category_name"`

	PhoneNumber string `json:"phone_number" db:"phone_number"`
	SellerName  string `json:"seller_name" db:"seller_name"`

	URL              string   `json:"url" db:"url"`
	ThumbnailURL     string   `json:"thumbnail_url" db:"thumbnail_url"`
	Images           []string `json:"images" db:"images"`
	ImagesDownloaded bool     `json:"images_downloaded" db:"images_downloaded"`

	Features  []string        `json:"features" db:"features"`
	Amenities []string        `json:"amenities" db:"amenities"`
	RawData   json.RawMessage `json:"raw_data" db:"raw_data"`

	IsActive bool `json:"is_active" db:"is_active"`

	PostedAt  *time.Time `json:"posted_at" db:"posted_at"`
	ScrapedAt time.Time  `json:"scraped_at" db:"scraped_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Listing type values
const (
	ListingTypeBuy  = "buy"
	ListingTypeRent = "rent"
)
