package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sorinflow/models"
	"sorinflow/normalize"
)

// Categories that leak into cards from Divar's navigation chrome. Text
// containing any of them is not a property feature.
var unwantedFeatureKeywords = []string{
	"خودرو", "موبایل", "تلویزیون", "کالای دیجیتال",
	"وسایل شخصی", "خدمات", "استخدام", "حیوانات",
	"صندلی", "نیمکت", "اسباب", "گوشی", "لامپ",
	"پرنده", "عروس", "یخچال", "میز", "رایانه",
	"آموزش", "نظافت", "باغبانی", "تعمیر", "حمل",
	"فروشگاه", "مغازه", "کافه", "رستوران",
}

var amenityKeywords = []string{
	"پارکینگ", "انباری", "آسانسور", "بالکن", "لابی", "سرایدار",
	"استخر", "سونا", "جکوزی", "سالن ورزش", "روف گاردن",
	"کولر", "شوفاژ", "پکیج", "رادیاتور", "اسپلیت", "چیلر",
	"کف", "پارکت", "سرامیک", "موزاییک", "سنگ", "کاشی",
	"کمد", "دیواری", "شومینه",
	"سرویس", "آشپزخانه", "هود", "کابینت", "گاز",
	"اسکلت", "فلزی", "بتنی", "نورگیر", "حیاط", "مشجر",
	"برق", "آب", "تلفن", "فاضلاب",
	"شمالی", "جنوبی", "شرقی", "غربی",
	"نوساز", "بازسازی", "نقاشی", "کناف",
}

var phonePattern = regexp.MustCompile(`0?9[0-9]{9}`)

// ParseDetailPage extracts everything a post page exposes without further
// interaction. The phone number needs a button click and is filled in by the
// session layer afterwards.
func ParseDetailPage(html string) (*models.Property, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	p := &models.Property{IsActive: true}

	p.Title = strings.TrimSpace(doc.Find("h1.kt-page-title__title, h1, .post-title").First().Text())
	p.Description = strings.TrimSpace(doc.Find(".kt-description-row__text").First().Text())

	parsePriceRows(doc, p)
	parseDetailRows(doc, p)
	parseLocation(doc, p)
	p.Features = parseFeatures(doc)
	p.Amenities = parseAmenities(doc, p.Description)
	p.Images = parseImages(doc)

	return p, nil
}

// Price rows carry a Persian label next to a formatted amount. Labels are
// routed by keyword; the more specific ones must be checked first because
// "قیمت" alone also matches "قیمت هر متر".
func parsePriceRows(doc *goquery.Document, p *models.Property) {
	doc.Find(".kt-base-row").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find(".kt-base-row__title, .kt-unexpandable-row__title").First().Text())
		value := strings.TrimSpace(row.Find(".kt-unexpandable-row__value, .kt-base-row__end").First().Text())
		if label == "" || value == "" {
			return
		}

		amount, ok := normalize.Int64(value)
		if !ok {
			return
		}

		switch {
		case strings.Contains(label, "قیمت هر متر"):
			p.PricePerMeter = &amount
		case strings.Contains(label, "قیمت"):
			p.TotalPrice = &amount
		case strings.Contains(label, "اجاره"):
			p.RentPrice = &amount
		case strings.Contains(label, "ودیعه"), strings.Contains(label, "رهن"):
			p.Deposit = &amount
		}
	})
}

func parseDetailRows(doc *goquery.Document, p *models.Property) {
	doc.Find(".kt-group-row-item, .kt-base-row, .kt-unexpandable-row").Each(func(_ int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find(".kt-group-row-item__title, .kt-base-row__title, .kt-unexpandable-row__title").First().Text())
		value := strings.TrimSpace(row.Find(".kt-group-row-item__value, .kt-base-row__end, .kt-unexpandable-row__value").First().Text())
		if label == "" || value == "" {
			return
		}
		routeDetailRow(label, value, p)
	})
}

// routeDetailRow assigns one label/value pair to its field. Unknown labels
// are ignored.
// hasAmenity reads a دارد/ندارد cell. The negative form contains the
// positive one as a substring, so it must be ruled out first.
func hasAmenity(value string) bool {
	return !strings.Contains(value, "ندارد") && strings.Contains(value, "دارد")
}

func routeDetailRow(label, value string, p *models.Property) {
	switch {
	case strings.Contains(label, "متراژ زمین"):
		if v, ok := normalize.Int(value); ok {
			p.LandArea = &v
		}
	case strings.Contains(label, "متراژ"):
		if v, ok := normalize.Int(value); ok {
			p.Area = &v
		}
	case strings.Contains(label, "زیربنا"):
		if v, ok := normalize.Int(value); ok {
			p.BuiltArea = &v
		}
	case strings.Contains(label, "اتاق"):
		if v, ok := normalize.Int(value); ok {
			p.Rooms = &v
		} else if strings.Contains(value, "بدون اتاق") {
			zero := 0
			p.Rooms = &zero
		}
	case strings.Contains(label, "ساخت"), strings.Contains(label, "سال"):
		if v, ok := normalize.Int(value); ok {
			p.YearBuilt = &v
		}
	case strings.Contains(label, "طبقه"):
		// "۳ از ۵" is floor 3 of a 5-storey building.
		if before, after, found := strings.Cut(value, "از"); found {
			if v, ok := normalize.Int(before); ok {
				p.Floor = &v
			}
			if v, ok := normalize.Int(after); ok {
				p.TotalFloors = &v
			}
		} else if v, ok := normalize.Int(value); ok {
			p.Floor = &v
		}
	case strings.Contains(label, "آسانسور"):
		has := hasAmenity(value)
		p.HasElevator = &has
	case strings.Contains(label, "پارکینگ"):
		has := hasAmenity(value)
		p.HasParking = &has
	case strings.Contains(label, "انباری"):
		has := hasAmenity(value)
		p.HasStorage = &has
	case strings.Contains(label, "بالکن"):
		has := hasAmenity(value)
		p.HasBalcony = &has
	case strings.Contains(label, "جهت"):
		p.BuildingDirection = value
	case strings.Contains(label, "بر") && strings.Contains(value, "متر"):
		if v, ok := normalize.Int(value); ok {
			p.Frontage = &v
		}
	case strings.Contains(label, "وضعیت"):
		p.UnitStatus = value
	case strings.Contains(label, "سند"):
		p.DocumentType = value
	case strings.Contains(label, "نوع کاربری"):
		p.UsageType = value
	case strings.Contains(label, "سن بنا"):
		p.BuildingAge = value
	case strings.Contains(label, "نوع ملک"):
		p.PropertyType = value
	}
}

func parseLocation(doc *goquery.Document, p *models.Property) {
	var crumbs []string
	doc.Find(".kt-page-title__subtitle a, .kt-breadcrumb a").Each(func(_ int, a *goquery.Selection) {
		if text := strings.TrimSpace(a.Text()); text != "" {
			crumbs = append(crumbs, text)
		}
	})
	if len(crumbs) >= 1 {
		p.CityName = crumbs[0]
	}
	if len(crumbs) >= 2 {
		p.District = crumbs[1]
	}
	if len(crumbs) >= 3 {
		p.Neighborhood = crumbs[2]
	}

	if m := doc.Find("[data-lat][data-lng]").First(); m.Length() > 0 {
		lat, _ := m.Attr("data-lat")
		lng, _ := m.Attr("data-lng")
		if v, ok := normalize.Float(lat); ok {
			p.Latitude = &v
		}
		if v, ok := normalize.Float(lng); ok {
			p.Longitude = &v
		}
	}

	if addr := strings.TrimSpace(doc.Find(`.kt-unexpandable-row__value a[href^="geo:"]`).First().Text()); addr != "" {
		p.Address = addr
	}
}

func parseFeatures(doc *goquery.Document) []string {
	var features []string
	seen := make(map[string]bool)
	add := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" || seen[text] {
			return
		}
		for _, kw := range unwantedFeatureKeywords {
			if strings.Contains(text, kw) {
				return
			}
		}
		seen[text] = true
		features = append(features, text)
	}

	doc.Find(".kt-group-row-item__value, .kt-feature-row__title").Each(func(_ int, e *goquery.Selection) {
		add(e.Text())
	})
	doc.Find(".kt-group-row-item .kt-body--stable").Each(func(_ int, e *goquery.Selection) {
		add(e.Text())
	})
	return features
}

func parseAmenities(doc *goquery.Document, description string) []string {
	var amenities []string
	seen := make(map[string]bool)
	add := func(text string) {
		text = strings.TrimSpace(text)
		if len([]rune(text)) < 2 || seen[text] {
			return
		}
		for _, kw := range amenityKeywords {
			if strings.Contains(text, kw) {
				seen[text] = true
				amenities = append(amenities, text)
				return
			}
		}
	}

	doc.Find(".kt-group-row-item__value, .kt-unexpandable-row__value, .kt-unexpandable-row__title").Each(func(_ int, e *goquery.Selection) {
		add(e.Text())
	})

	// Sellers often list amenities line by line in the free-text description.
	for _, line := range strings.Split(description, "\n") {
		if len([]rune(line)) < 50 {
			add(line)
		}
	}
	return amenities
}

func parseImages(doc *goquery.Document) []string {
	var images []string
	seen := make(map[string]bool)
	doc.Find(".kt-image-block__image, .post-image img, picture img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			src, ok = img.Attr("data-src")
		}
		if !ok || !strings.Contains(src, "divarcdn.com") {
			return
		}
		// Swap the CDN variant for the full-resolution one.
		src = strings.ReplaceAll(src, "webp_thumbnail", "webp")
		src = strings.ReplaceAll(src, "thumbnail", "main")
		if !seen[src] {
			seen[src] = true
			images = append(images, src)
		}
	})
	return images
}

// ExtractPhone pulls a mobile number out of post-click page content. It
// prefers tel: links and falls back to a bare pattern match over the text.
func ExtractPhone(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		var found string
		doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if phone := normalize.Phone(strings.TrimPrefix(href, "tel:")); phone != "" {
				found = phone
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	for _, m := range phonePattern.FindAllString(normalize.Digits(html), 10) {
		if phone := normalize.Phone(m); phone != "" {
			return phone
		}
	}
	return ""
}
