package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"sorinflow/config"
	"sorinflow/models"
	"sorinflow/stealth"
)

// ProxyPicker supplies an upstream proxy for new browser sessions. A nil
// picker, or a picker with nothing healthy, means direct connections.
type ProxyPicker interface {
	GetBestProxy(ctx context.Context) (*models.Proxy, error)
}

// Session owns one stealth browser. All navigation goes through it so the
// governor sees every request and a burned identity can be swapped out in
// one place.
type Session struct {
	cfg      config.ScraperConfig
	governor *Governor
	proxies  ProxyPicker

	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
	profile     stealth.Profile
	initialized bool
}

func NewSession(cfg config.ScraperConfig, governor *Governor, proxies ProxyPicker) *Session {
	return &Session{cfg: cfg, governor: governor, proxies: proxies}
}

func (s *Session) ensureBrowser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	var err error
	s.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}

	s.profile = stealth.NewProfile()

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.cfg.Headless),
		Args:     stealth.BrowserArgs(),
	}
	if proxy := s.pickProxy(ctx); proxy != nil {
		launchOpts.Proxy = &playwright.Proxy{
			Server:   proxy.URL(),
			Username: playwright.String(proxy.Username),
			Password: playwright.String(proxy.Password),
		}
		log.Info().Str("proxy", proxy.Address).Msg("session using proxy")
	}

	s.browser, err = s.pw.Chromium.Launch(launchOpts)
	if err != nil {
		s.teardownLocked()
		return fmt.Errorf("launch browser: %w", err)
	}

	s.context, err = s.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(s.profile.UserAgent),
		Viewport: &playwright.Size{
			Width:  s.profile.ViewportWidth,
			Height: s.profile.ViewportHeight,
		},
		Locale:     playwright.String(s.profile.Locale),
		TimezoneId: playwright.String(s.profile.TimezoneID),
		Geolocation: &playwright.Geolocation{
			Latitude:  s.profile.Latitude,
			Longitude: s.profile.Longitude,
		},
		Permissions:      []string{"geolocation"},
		ExtraHttpHeaders: stealth.ExtraHeaders(),
	})
	if err != nil {
		s.teardownLocked()
		return fmt.Errorf("create context: %w", err)
	}

	if err := s.context.AddInitScript(playwright.Script{
		Content: playwright.String(stealth.InitScript),
	}); err != nil {
		s.teardownLocked()
		return fmt.Errorf("add init script: %w", err)
	}

	s.page, err = s.context.NewPage()
	if err != nil {
		s.teardownLocked()
		return fmt.Errorf("create page: %w", err)
	}

	s.initialized = true
	return nil
}

func (s *Session) pickProxy(ctx context.Context) *models.Proxy {
	if !s.cfg.UseProxies || s.proxies == nil {
		return nil
	}
	proxy, err := s.proxies.GetBestProxy(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("proxy lookup failed, connecting directly")
		return nil
	}
	return proxy
}

// Restart tears the browser down and brings it back with a fresh identity.
func (s *Session) Restart(ctx context.Context) error {
	log.Info().Msg("recycling browser session")
	s.Close()
	s.governor.ResetSession()
	return s.ensureBrowser(ctx)
}

// Close shuts the stack down page first. Teardown errors are logged, never
// raised.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

func (s *Session) teardownLocked() {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			log.Warn().Err(err).Msg("page close")
		}
		s.page = nil
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			log.Warn().Err(err).Msg("context close")
		}
		s.context = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Warn().Err(err).Msg("browser close")
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			log.Warn().Err(err).Msg("playwright stop")
		}
		s.pw = nil
	}
	s.initialized = false
}

// Page exposes the live page to the auth flow.
func (s *Session) Page(ctx context.Context) (playwright.Page, error) {
	if err := s.ensureBrowser(ctx); err != nil {
		return nil, err
	}
	return s.page, nil
}

// navigate loads a URL, lets the client-side app settle, and scrolls a bit
// the way a reader would.
func (s *Session) navigate(ctx context.Context, url string) error {
	if err := s.governor.Acquire(ctx); err != nil {
		return err
	}
	if s.governor.SessionExhausted() {
		if err := s.Restart(ctx); err != nil {
			return err
		}
	}
	if err := s.ensureBrowser(ctx); err != nil {
		return err
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(s.cfg.TimeoutMS)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}

	s.page.WaitForTimeout(2000)
	s.scroll()
	return nil
}

func (s *Session) scroll() {
	for i := 0; i < stealth.ScrollSteps; i++ {
		s.page.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, stealth.ScrollDistance()))
		s.page.WaitForTimeout(float64(300 + i*100))
	}
}

// FetchListingPage loads one search-results page and returns its summaries.
// No cards on a loaded page means pagination has run out.
func (s *Session) FetchListingPage(ctx context.Context, city, category string, pageNum int) ([]models.ListingSummary, error) {
	url := fmt.Sprintf("%s/s/%s/%s", s.cfg.BaseURL, city, category)
	if pageNum > 1 {
		url = fmt.Sprintf("%s?page=%d", url, pageNum)
	}

	if err := s.navigate(ctx, url); err != nil {
		return nil, err
	}

	// Posts render client side; give the first card a moment to appear.
	s.page.Locator(`a[href*="/v/"]`).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(10000),
	})

	html, err := s.page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}
	return ParseListingPage(html, s.cfg.BaseURL)
}

var showDetailsSelectors = []string{
	`button:has-text("نمایش همهٔ جزئیات")`,
	`button:has-text("نمایش همه")`,
	`.kt-show-more-button`,
	`button.kt-button--secondary:has-text("جزئیات")`,
}

var contactSelectors = []string{
	`button.post-actions__get-contact`,
	`button.kt-button--primary:has-text("اطلاعات تماس")`,
	`button:has-text("اطلاعات تماس")`,
	`.kt-contact-row button`,
	`button.kt-button--primary:has-text("تماس")`,
}

// FetchDetail loads a post page and extracts the full record. The phone
// reveal is attempted only when withPhone is set, since it spends an
// authenticated contact view.
func (s *Session) FetchDetail(ctx context.Context, summary models.ListingSummary, withPhone bool) (*models.Property, error) {
	if err := s.navigate(ctx, summary.URL); err != nil {
		return nil, err
	}

	s.clickShowDetails()

	html, err := s.page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}

	p, err := ParseDetailPage(html)
	if err != nil {
		return nil, err
	}
	p.ExternalID = summary.ExternalID
	p.URL = summary.URL

	if withPhone {
		p.PhoneNumber = s.revealPhone()
	}
	return p, nil
}

// clickShowDetails expands the collapsed attribute table. Best effort; the
// collapsed view still carries the main rows.
func (s *Session) clickShowDetails() {
	for _, sel := range showDetailsSelectors {
		btn := s.page.Locator(sel).First()
		if visible, _ := btn.IsVisible(); !visible {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{
			Force:   playwright.Bool(true),
			Timeout: playwright.Float(3000),
		}); err != nil {
			continue
		}
		s.page.WaitForTimeout(800)
		return
	}
}

// revealPhone clicks the contact button and reads the number out of the
// resulting modal. Empty means the post hides its number or the click never
// landed.
func (s *Session) revealPhone() string {
	var clicked bool
	for _, sel := range contactSelectors {
		btn := s.page.Locator(sel).First()
		if visible, _ := btn.IsVisible(); !visible {
			continue
		}
		err := btn.Click(playwright.LocatorClickOptions{
			Force:   playwright.Bool(true),
			Timeout: playwright.Float(5000),
		})
		if err != nil {
			// Some overlays swallow the click; fire the event directly.
			if _, evalErr := btn.Evaluate(`el => el.dispatchEvent(new MouseEvent('click', {bubbles: true}))`, nil); evalErr != nil {
				continue
			}
		}
		clicked = true
		break
	}
	if !clicked {
		return ""
	}

	// The modal loads the number with a follow-up request.
	for i := 0; i < 6; i++ {
		s.page.WaitForTimeout(500)
		html, err := s.page.Content()
		if err != nil {
			return ""
		}
		if phone := ExtractPhone(html); phone != "" {
			return phone
		}
	}
	return ""
}

// ApplyCookies installs a stored login session into the browser context.
func (s *Session) ApplyCookies(ctx context.Context, cookies []models.Cookie) error {
	if err := s.ensureBrowser(ctx); err != nil {
		return err
	}

	optional := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires != 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		if ss := sameSiteAttr(c.SameSite); ss != nil {
			oc.SameSite = ss
		}
		optional = append(optional, oc)
	}
	return s.context.AddCookies(optional)
}

// Cookies snapshots the context cookies for persistence.
func (s *Session) Cookies(ctx context.Context) ([]models.Cookie, error) {
	if err := s.ensureBrowser(ctx); err != nil {
		return nil, err
	}

	raw, err := s.context.Cookies()
	if err != nil {
		return nil, err
	}

	out := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		mc := models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			mc.SameSite = string(*c.SameSite)
		}
		out = append(out, mc)
	}
	return out, nil
}

func sameSiteAttr(v string) *playwright.SameSiteAttribute {
	switch v {
	case "Strict":
		return playwright.SameSiteAttributeStrict
	case "Lax":
		return playwright.SameSiteAttributeLax
	case "None":
		return playwright.SameSiteAttributeNone
	}
	return nil
}

// Pause sleeps a jittered human-scale delay, honoring cancellation.
func Pause(ctx context.Context) error {
	return sleepCtx(ctx, stealth.Delay())
}

// PauseBetween sleeps a uniform random delay in [min, max).
func PauseBetween(ctx context.Context, min, max time.Duration) error {
	return sleepCtx(ctx, min+time.Duration(rand.Int63n(int64(max-min))))
}
