package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.API.Addr)
	assert.True(t, cfg.Scraper.Headless)
	assert.Equal(t, 5, cfg.Scraper.MaxPages)
	assert.Equal(t, "https://divar.ir", cfg.Scraper.BaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("SCRAPER_HEADLESS", "false")
	t.Setenv("SCRAPER_MAX_PAGES", "12")
	t.Setenv("SCRAPE_INTERVAL", "6h")
	t.Setenv("SCRAPE_CITIES", "tehran, karaj")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.API.Addr)
	assert.False(t, cfg.Scraper.Headless)
	assert.Equal(t, 12, cfg.Scraper.MaxPages)
	assert.Equal(t, "6h0m0s", cfg.Scheduler.Interval.String())
	assert.Equal(t, []string{"tehran", "karaj"}, cfg.Scheduler.Cities)
}

func TestBuiltinCatalog(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)

	assert.Len(t, cat.Cities, 20)
	assert.Len(t, cat.Categories, 17)

	city, ok := cat.City("tehran")
	require.True(t, ok)
	assert.Equal(t, "تهران", city.Name)

	category, ok := cat.Category("rent-apartment")
	require.True(t, ok)
	assert.Equal(t, "rent", category.Type)

	_, ok = cat.City("atlantis")
	assert.False(t, ok)
}

func TestCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `cities:
  - slug: tehran
    name: "تهران"
    province: "تهران"
categories:
  - slug: buy-apartment
    name: "خرید آپارتمان"
    type: buy
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	assert.Len(t, cat.Cities, 1)
	assert.Len(t, cat.Categories, 1)

	category, ok := cat.Category("buy-apartment")
	require.True(t, ok)
	assert.Equal(t, "buy", category.Type)
}

func TestCatalogListsSorted(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)

	cities := cat.CityList()
	for i := 1; i < len(cities); i++ {
		assert.Less(t, cities[i-1].Slug, cities[i].Slug)
	}
}
