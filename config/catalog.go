package config

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// City is one supported Divar city slug.
type City struct {
	Slug     string `yaml:"slug" json:"slug"`
	Name     string `yaml:"name" json:"name"`
	Province string `yaml:"province" json:"province"`
}

// Category is one supported real-estate category slug. Type is "buy",
// "rent" or "service" and becomes the listing_type on scraped records.
type Category struct {
	Slug string `yaml:"slug" json:"slug"`
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// Catalog holds the city and category slugs jobs may target. The built-in
// set covers the cities and categories Divar serves; a YAML file can
// replace it for narrower deployments.
type Catalog struct {
	Cities     map[string]City
	Categories map[string]Category
}

var builtinCities = map[string]City{
	"urmia":        {"urmia", "ارومیه", "آذربایجان غربی"},
	"tehran":       {"tehran", "تهران", "تهران"},
	"tabriz":       {"tabriz", "تبریز", "آذربایجان شرقی"},
	"isfahan":      {"isfahan", "اصفهان", "اصفهان"},
	"shiraz":       {"shiraz", "شیراز", "فارس"},
	"mashhad":      {"mashhad", "مشهد", "خراسان رضوی"},
	"karaj":        {"karaj", "کرج", "البرز"},
	"ahvaz":        {"ahvaz", "اهواز", "خوزستان"},
	"qom":          {"qom", "قم", "قم"},
	"kermanshah":   {"kermanshah", "کرمانشاه", "کرمانشاه"},
	"rasht":        {"rasht", "رشت", "گیلان"},
	"kerman":       {"kerman", "کرمان", "کرمان"},
	"sari":         {"sari", "ساری", "مازندران"},
	"yazd":         {"yazd", "یزد", "یزد"},
	"ardabil":      {"ardabil", "اردبیل", "اردبیل"},
	"bandar-abbas": {"bandar-abbas", "بندرعباس", "هرمزگان"},
	"zanjan":       {"zanjan", "زنجان", "زنجان"},
	"sanandaj":     {"sanandaj", "سنندج", "کردستان"},
	"hamadan":      {"hamadan", "همدان", "همدان"},
	"gorgan":       {"gorgan", "گرگان", "گلستان"},
}

var builtinCategories = map[string]Category{
	"buy-residential":                       {"buy-residential", "خرید مسکونی", "buy"},
	"buy-apartment":                         {"buy-apartment", "خرید آپارتمان", "buy"},
	"buy-villa":                             {"buy-villa", "خرید ویلا", "buy"},
	"buy-old-house":                         {"buy-old-house", "خرید خانه کلنگی", "buy"},
	"rent-residential":                      {"rent-residential", "اجاره مسکونی", "rent"},
	"rent-apartment":                        {"rent-apartment", "اجاره آپارتمان", "rent"},
	"rent-villa":                            {"rent-villa", "اجاره ویلا", "rent"},
	"buy-commercial-property":               {"buy-commercial-property", "خرید اداری و تجاری", "buy"},
	"buy-office":                            {"buy-office", "خرید دفتر کار", "buy"},
	"buy-store":                             {"buy-store", "خرید مغازه", "buy"},
	"buy-industrial-agricultural-property":  {"buy-industrial-agricultural-property", "خرید صنعتی و کشاورزی", "buy"},
	"rent-commercial-property":              {"rent-commercial-property", "اجاره اداری و تجاری", "rent"},
	"rent-office":                           {"rent-office", "اجاره دفتر کار", "rent"},
	"rent-store":                            {"rent-store", "اجاره مغازه", "rent"},
	"rent-industrial-agricultural-property": {"rent-industrial-agricultural-property", "اجاره صنعتی و کشاورزی", "rent"},
	"rent-temporary":                        {"rent-temporary", "اجاره کوتاه مدت", "rent"},
	"real-estate-services":                  {"real-estate-services", "خدمات املاک", "service"},
}

// LoadCatalog returns the built-in catalog, or the contents of the YAML
// file at path when one is given.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{Cities: builtinCities, Categories: builtinCategories}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		Cities     []City     `yaml:"cities"`
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	cat := &Catalog{
		Cities:     make(map[string]City, len(file.Cities)),
		Categories: make(map[string]Category, len(file.Categories)),
	}
	for _, c := range file.Cities {
		cat.Cities[c.Slug] = c
	}
	for _, c := range file.Categories {
		cat.Categories[c.Slug] = c
	}
	return cat, nil
}

// City looks up a city slug.
func (c *Catalog) City(slug string) (City, bool) {
	city, ok := c.Cities[slug]
	return city, ok
}

// Category looks up a category slug.
func (c *Catalog) Category(slug string) (Category, bool) {
	cat, ok := c.Categories[slug]
	return cat, ok
}

// CityList returns the cities sorted by slug for API responses.
func (c *Catalog) CityList() []City {
	out := make([]City, 0, len(c.Cities))
	for _, city := range c.Cities {
		out = append(out, city)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// CategoryList returns the categories sorted by slug for API responses.
func (c *Catalog) CategoryList() []Category {
	out := make([]Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
