package models

import (
	"fmt"
	"time"
)

// Proxy is one upstream proxy server with its health counters. The scraper
// picks the active working proxy with the highest success count.
type Proxy struct {
	ID       int64  `json:"id" db:"id"`
	Address  string `json:"address" db:"address"`
	Port     int    `json:"port" db:"port"`
	Username string `json:"username,omitempty" db:"username"`
	Password string `json:"password,omitempty" db:"password"`
	Protocol string `json:"protocol" db:"protocol"` // http, https, socks5

	IsActive  bool `json:"is_active" db:"is_active"`
	IsWorking bool `json:"is_working" db:"is_working"`

	LastChecked   *time.Time `json:"last_checked" db:"last_checked"`
	FailCount     int        `json:"fail_count" db:"fail_count"`
	SuccessCount  int        `json:"success_count" db:"success_count"`
	AvgResponseMS *float64   `json:"avg_response_ms" db:"avg_response_ms"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// URL renders the proxy as a connection string.
func (p *Proxy) URL() string {
	if p.Username != "" && p.Password != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", p.Protocol, p.Username, p.Password, p.Address, p.Port)
	}
	return fmt.Sprintf("%s://%s:%d", p.Protocol, p.Address, p.Port)
}
