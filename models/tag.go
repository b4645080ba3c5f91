package models

import (
	"crypto/rand"
	"fmt"
	"time"
)

const tagCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewTagNumber mints an internal reference of the form SF-<unix>-<6 chars>.
// Tags are assigned once at first insert and never reassigned afterwards.
func NewTagNumber() string {
	buf := make([]byte, 6)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = tagCharset[int(b)%len(tagCharset)]
	}
	return fmt.Sprintf("SF-%d-%s", time.Now().Unix(), buf)
}
