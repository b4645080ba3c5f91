// Package stealth carries the browser identity used for every scraping
// session: launch arguments, a rotating user agent, a Tehran-local context
// profile, an init script that papers over the usual automation tells, and
// the pacing knobs that keep request rates human-shaped.
package stealth

import (
	"math/rand"
	"time"
)

const (
	baseViewportWidth  = 1920
	baseViewportHeight = 1080
	viewportJitter     = 50

	// Pacing between item visits.
	MinDelay = 2 * time.Second
	MaxDelay = 5 * time.Second

	// Session ceilings enforced by the governor.
	MaxRequestsPerMinute  = 20
	MaxRequestsPerSession = 500

	ScrollSteps       = 5
	MinScrollDistance = 100
	MaxScrollDistance = 500
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// Profile is one generated browser identity. A fresh one is drawn per
// session so restarts do not reuse the exact same shape.
type Profile struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	Latitude       float64
	Longitude      float64
}

// NewProfile draws a randomized identity anchored in Tehran.
func NewProfile() Profile {
	return Profile{
		UserAgent:      userAgents[rand.Intn(len(userAgents))],
		ViewportWidth:  baseViewportWidth + rand.Intn(2*viewportJitter+1) - viewportJitter,
		ViewportHeight: baseViewportHeight + rand.Intn(2*viewportJitter+1) - viewportJitter,
		Locale:         "fa-IR",
		TimezoneID:     "Asia/Tehran",
		Latitude:       35.6892,
		Longitude:      51.3890,
	}
}

// BrowserArgs returns the chromium launch flags.
func BrowserArgs() []string {
	return []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		"--disable-infobars",
		"--disable-extensions",
		"--start-maximized",
	}
}

// ExtraHeaders returns request headers matching a Persian-locale browser.
func ExtraHeaders() map[string]string {
	return map[string]string{
		"Accept-Language": "fa-IR,fa;q=0.9,en-US;q=0.8,en;q=0.7",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	}
}

// InitScript is injected into every page before site scripts run. It hides
// navigator.webdriver and fills in the plugin and language surfaces that
// headless chromium leaves empty.
const InitScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['fa-IR', 'fa', 'en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
const origQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) =>
  parameters.name === 'notifications'
    ? Promise.resolve({ state: Notification.permission })
    : origQuery(parameters);
`

// Delay returns a jittered pause in the [MinDelay, MaxDelay) range.
func Delay() time.Duration {
	return MinDelay + time.Duration(rand.Int63n(int64(MaxDelay-MinDelay)))
}

// ScrollDistance returns one randomized scroll increment in pixels.
func ScrollDistance() int {
	return MinScrollDistance + rand.Intn(MaxScrollDistance-MinScrollDistance)
}

// TypeDelay returns the pause between individual keystrokes when filling
// form fields character by character.
func TypeDelay() time.Duration {
	return time.Duration(80+rand.Intn(120)) * time.Millisecond
}
