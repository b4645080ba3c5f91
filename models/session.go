package models

import "time"

// Cookie mirrors a browser cookie as playwright reports it. Expires is a
// unix timestamp in seconds; -1 means a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// TokenCookieName is the session cookie whose presence is the sole proof of
// an authenticated browser context.
const TokenCookieName = "token"

// SessionCredential is the stored authentication state for one identity.
type SessionCredential struct {
	ID          int64      `json:"id" db:"id"`
	PhoneNumber string     `json:"phone_number" db:"phone_number"`
	Cookies     []Cookie   `json:"cookies" db:"cookies"`
	Token       string     `json:"token" db:"token"`
	IsValid     bool       `json:"is_valid" db:"is_valid"`
	ExpiresAt   *time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TokenCookie returns the token cookie from a cookie set, or nil.
func TokenCookie(cookies []Cookie) *Cookie {
	for i := range cookies {
		if cookies[i].Name == TokenCookieName {
			return &cookies[i]
		}
	}
	return nil
}

// TokenExpiry returns the token cookie's expiry as a UTC time, or nil when
// the cookie is absent or a session cookie.
func TokenExpiry(cookies []Cookie) *time.Time {
	c := TokenCookie(cookies)
	if c == nil || c.Expires <= 0 {
		return nil
	}
	t := time.Unix(int64(c.Expires), 0).UTC()
	return &t
}
