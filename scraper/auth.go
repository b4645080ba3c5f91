package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"sorinflow/models"
	"sorinflow/stealth"
)

// AuthState tracks where the OTP handshake stands.
type AuthState string

const (
	AuthIdle          AuthState = "idle"
	AuthAwaitingCode  AuthState = "awaiting_code"
	AuthAuthenticated AuthState = "authenticated"
	AuthFailed        AuthState = "failed"
)

// SessionStore persists login sessions in the primary database.
type SessionStore interface {
	SaveSession(ctx context.Context, sc *models.SessionCredential) error
	GetSession(ctx context.Context, phoneNumber string) (*models.SessionCredential, error)
	InvalidateSession(ctx context.Context, phoneNumber string) error
}

// SessionFallback is the local store consulted when the database has no
// usable session.
type SessionFallback interface {
	Save(sc *models.SessionCredential) error
	Get(phoneNumber string) (*models.SessionCredential, error)
	Invalidate(phoneNumber string) error
}

// BrowserSession is the slice of Session the login flow drives.
type BrowserSession interface {
	Page(ctx context.Context) (playwright.Page, error)
	Cookies(ctx context.Context) ([]models.Cookie, error)
	ApplyCookies(ctx context.Context, cookies []models.Cookie) error
}

// Authenticator drives the Divar phone/OTP login and keeps the resulting
// cookies in both stores.
type Authenticator struct {
	session  BrowserSession
	store    SessionStore
	fallback SessionFallback
	loginURL string
	baseURL  string

	mu    sync.Mutex
	state AuthState
	phone string
}

func NewAuthenticator(session BrowserSession, store SessionStore, fallback SessionFallback, loginURL, baseURL string) *Authenticator {
	return &Authenticator{
		session:  session,
		store:    store,
		fallback: fallback,
		loginURL: loginURL,
		baseURL:  baseURL,
		state:    AuthIdle,
	}
}

func (a *Authenticator) State() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Authenticator) setState(s AuthState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// LoginResult reports the outcome of one step of the handshake.
type LoginResult struct {
	Success      bool   `json:"success"`
	RequiresCode bool   `json:"requires_code"`
	Message      string `json:"message"`
}

// LoginWithPhone opens the login form and submits the phone number. On
// success Divar texts a code and the flow parks in awaiting_code.
func (a *Authenticator) LoginWithPhone(ctx context.Context, phoneNumber string) (*LoginResult, error) {
	page, err := a.session.Page(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().Str("phone", phoneNumber).Msg("starting login")

	if _, err := page.Goto(a.loginURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		a.setState(AuthFailed)
		return nil, fmt.Errorf("open login page: %w", err)
	}
	page.WaitForTimeout(2000)

	loginBtn := page.Locator(`button:has-text("ورود")`).First()
	if visible, _ := loginBtn.IsVisible(); visible {
		loginBtn.Click()
		page.WaitForTimeout(2000)
	}

	phoneInput := page.Locator(`input[name="mobile"]`)
	if err := phoneInput.WaitFor(playwright.LocatorWaitForOptions{Timeout: playwright.Float(10000)}); err != nil {
		a.setState(AuthFailed)
		return nil, fmt.Errorf("phone input not found: %w", err)
	}
	phoneInput.Fill("")
	if err := typeSlowly(phoneInput, phoneNumber); err != nil {
		a.setState(AuthFailed)
		return nil, fmt.Errorf("type phone number: %w", err)
	}
	page.WaitForTimeout(1000)

	confirmBtn := page.Locator(`button:has-text("تأیید")`).First()
	if visible, _ := confirmBtn.IsVisible(); visible {
		confirmBtn.Click()
		page.WaitForTimeout(3000)
	}

	a.mu.Lock()
	a.state = AuthAwaitingCode
	a.phone = phoneNumber
	a.mu.Unlock()

	return &LoginResult{
		RequiresCode: true,
		Message:      fmt.Sprintf("OTP code sent to %s. Please provide the 6-digit code.", phoneNumber),
	}, nil
}

// SubmitOTP types the code and checks whether Divar granted a token cookie.
// Presence of the cookie is the only success signal the site gives.
func (a *Authenticator) SubmitOTP(ctx context.Context, code string) (*LoginResult, error) {
	if a.State() != AuthAwaitingCode {
		return &LoginResult{Message: "no login in progress, request a code first"}, nil
	}

	page, err := a.session.Page(ctx)
	if err != nil {
		return nil, err
	}

	codeInput := page.Locator(`input[name="code"]`)
	if err := codeInput.WaitFor(playwright.LocatorWaitForOptions{Timeout: playwright.Float(10000)}); err != nil {
		a.setState(AuthFailed)
		return nil, fmt.Errorf("code input not found: %w", err)
	}
	codeInput.Fill("")
	if err := typeSlowly(codeInput, code); err != nil {
		a.setState(AuthFailed)
		return nil, fmt.Errorf("type code: %w", err)
	}
	page.WaitForTimeout(1000)

	submitBtn := page.Locator(`button:has-text("ورود")`).First()
	if visible, _ := submitBtn.IsVisible(); visible {
		submitBtn.Click()
		page.WaitForTimeout(5000)
	}

	cookies, err := a.session.Cookies(ctx)
	if err != nil {
		return nil, err
	}

	token := models.TokenCookie(cookies)
	if token == nil {
		a.setState(AuthFailed)
		return &LoginResult{Message: "login failed, token cookie not found"}, nil
	}

	a.persistSession(ctx, cookies, token)
	a.setState(AuthAuthenticated)
	log.Info().Str("phone", a.phone).Msg("login successful")

	return &LoginResult{Success: true, Message: "login successful"}, nil
}

func (a *Authenticator) persistSession(ctx context.Context, cookies []models.Cookie, token *models.Cookie) {
	sc := &models.SessionCredential{
		PhoneNumber: a.phone,
		Cookies:     cookies,
		Token:       token.Value,
		IsValid:     true,
		ExpiresAt:   models.TokenExpiry(cookies),
	}
	if err := a.store.SaveSession(ctx, sc); err != nil {
		log.Error().Err(err).Msg("save session to database")
	}
	if err := a.fallback.Save(sc); err != nil {
		log.Error().Err(err).Msg("save session to fallback store")
	}
}

// RestoreSession reinstalls a saved session into the browser and verifies it
// against the live site. A session found expired on read is invalidated so
// the next status check reports honestly.
func (a *Authenticator) RestoreSession(ctx context.Context, phoneNumber string) (bool, error) {
	sc, err := a.store.GetSession(ctx, phoneNumber)
	if err != nil {
		log.Warn().Err(err).Msg("database session lookup failed, trying fallback")
	}
	if sc == nil {
		sc, err = a.fallback.Get(phoneNumber)
		if err != nil {
			return false, err
		}
	}
	if sc == nil {
		return false, nil
	}

	if sessionExpired(sc, time.Now()) {
		log.Warn().Str("phone", phoneNumber).Msg("stored session expired")
		a.invalidateStores(ctx, phoneNumber)
		return false, nil
	}

	if err := a.session.ApplyCookies(ctx, sc.Cookies); err != nil {
		return false, err
	}

	page, err := a.session.Page(ctx)
	if err != nil {
		return false, err
	}
	if _, err := page.Goto(a.baseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return false, fmt.Errorf("verify session: %w", err)
	}
	page.WaitForTimeout(2000)

	cookies, err := a.session.Cookies(ctx)
	if err != nil {
		return false, err
	}
	if models.TokenCookie(cookies) == nil {
		log.Warn().Str("phone", phoneNumber).Msg("site dropped the session token")
		a.invalidateStores(ctx, phoneNumber)
		return false, nil
	}

	a.mu.Lock()
	a.state = AuthAuthenticated
	a.phone = phoneNumber
	a.mu.Unlock()
	log.Info().Str("phone", phoneNumber).Msg("session restored")
	return true, nil
}

// Invalidate drops the stored session. Safe to call when nothing is stored.
func (a *Authenticator) Invalidate(ctx context.Context, phoneNumber string) error {
	a.invalidateStores(ctx, phoneNumber)
	a.setState(AuthIdle)
	return nil
}

func (a *Authenticator) invalidateStores(ctx context.Context, phoneNumber string) {
	if err := a.store.InvalidateSession(ctx, phoneNumber); err != nil {
		log.Error().Err(err).Msg("invalidate database session")
	}
	if err := a.fallback.Invalidate(phoneNumber); err != nil {
		log.Error().Err(err).Msg("invalidate fallback session")
	}
}

// CookieStatus describes the stored session for the auth status endpoint.
type CookieStatus struct {
	HasCookies  bool       `json:"has_cookies"`
	IsValid     bool       `json:"is_valid"`
	ExpiresAt   *time.Time `json:"expires_at"`
	PhoneNumber string     `json:"phone_number"`
	Message     string     `json:"message"`
}

func (a *Authenticator) GetCookieStatus(ctx context.Context, phoneNumber string) *CookieStatus {
	status := &CookieStatus{PhoneNumber: phoneNumber, Message: "No cookies found"}

	sc, err := a.store.GetSession(ctx, phoneNumber)
	if err != nil || sc == nil {
		sc, _ = a.fallback.Get(phoneNumber)
	}
	if sc == nil {
		return status
	}

	status.HasCookies = true
	status.ExpiresAt = sc.ExpiresAt

	if sc.ExpiresAt == nil {
		status.Message = "Cookie status unknown"
		return status
	}

	if sessionExpired(sc, time.Now()) {
		status.Message = "Cookies expired. Please login again."
		return status
	}

	status.IsValid = true
	days := int(time.Until(*sc.ExpiresAt).Hours() / 24)
	status.Message = fmt.Sprintf("Cookies valid. Expires in %d days.", days)
	return status
}

// sessionExpired compares the stored expiry against now in UTC. A session
// without an expiry is assumed live until the site proves otherwise.
func sessionExpired(sc *models.SessionCredential, now time.Time) bool {
	if sc.ExpiresAt == nil {
		return false
	}
	return sc.ExpiresAt.UTC().Before(now.UTC())
}

func typeSlowly(loc playwright.Locator, text string) error {
	for _, r := range text {
		if err := loc.PressSequentially(string(r), playwright.LocatorPressSequentiallyOptions{
			Delay: playwright.Float(float64(stealth.TypeDelay().Milliseconds())),
		}); err != nil {
			return err
		}
	}
	return nil
}
