package models

import "time"

// Merge copies every populated field of src onto dst. Absent values (nil
// pointers, empty strings, empty slices) leave dst untouched, so records are
// filled in monotonically across re-scrapes; there is no way to clear a field
// through scraping. The tag number, external id and audit timestamps are
// never taken from src.
func Merge(dst, src *Property) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Description != "" {
		dst.Description = src.Description
	}

	if src.TotalPrice != nil {
		dst.TotalPrice = src.TotalPrice
	}
	if src.PricePerMeter != nil {
		dst.PricePerMeter = src.PricePerMeter
	}
	if src.RentPrice != nil {
		dst.RentPrice = src.RentPrice
	}
	if src.Deposit != nil {
		dst.Deposit = src.Deposit
	}

	if src.Area != nil {
		dst.Area = src.Area
	}
	if src.LandArea != nil {
		dst.LandArea = src.LandArea
	}
	if src.BuiltArea != nil {
		dst.BuiltArea = src.BuiltArea
	}
	if src.Rooms != nil {
		dst.Rooms = src.Rooms
	}
	if src.YearBuilt != nil {
		dst.YearBuilt = src.YearBuilt
	}
	if src.Floor != nil {
		dst.Floor = src.Floor
	}
	if src.TotalFloors != nil {
		dst.TotalFloors = src.TotalFloors
	}
	if src.Frontage != nil {
		dst.Frontage = src.Frontage
	}

	if src.HasElevator != nil {
		dst.HasElevator = src.HasElevator
	}
	if src.HasParking != nil {
		dst.HasParking = src.HasParking
	}
	if src.HasStorage != nil {
		dst.HasStorage = src.HasStorage
	}
	if src.HasBalcony != nil {
		dst.HasBalcony = src.HasBalcony
	}

	if src.BuildingDirection != "" {
		dst.BuildingDirection = src.BuildingDirection
	}
	if src.UnitStatus != "" {
		dst.UnitStatus = src.UnitStatus
	}
	if src.DocumentType != "" {
		dst.DocumentType = src.DocumentType
	}
	if src.UsageType != "" {
		dst.UsageType = src.UsageType
	}
	if src.BuildingAge != "" {
		dst.BuildingAge = src.BuildingAge
	}
	if src.PropertyType != "" {
		dst.PropertyType = src.PropertyType
	}
	if src.ListingType != "" {
		dst.ListingType = src.ListingType
	}

	if src.CityName != "" {
		dst.CityName = src.CityName
	}
	if src.District != "" {
		dst.District = src.District
	}
	if src.Neighborhood != "" {
		dst.Neighborhood = src.Neighborhood
	}
	if src.Address != "" {
		dst.Address = src.Address
	}
	if src.Latitude != nil {
		dst.Latitude = src.Latitude
	}
	if src.Longitude != nil {
		dst.Longitude = src.Longitude
	}

	if src.CategoryName != "" {
		dst.CategoryName = src.CategoryName
	}
	if src.PhoneNumber != "" {
		dst.PhoneNumber = src.PhoneNumber
	}
	if src.SellerName != "" {
		dst.SellerName = src.SellerName
	}

	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.ThumbnailURL != "" {
		dst.ThumbnailURL = src.ThumbnailURL
	}
	if len(src.Images) > 0 {
		dst.Images = src.Images
	}
	if src.ImagesDownloaded {
		dst.ImagesDownloaded = true
	}

	if len(src.Features) > 0 {
		dst.Features = src.Features
	}
	if len(src.Amenities) > 0 {
		dst.Amenities = src.Amenities
	}
	if len(src.RawData) > 0 {
		dst.RawData = src.RawData
	}

	if src.PostedAt != nil {
		dst.PostedAt = src.PostedAt
	}
	dst.UpdatedAt = time.Now()
}
