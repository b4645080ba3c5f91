package stealth

import (
	"testing"
	"time"
)

func TestNewProfileShape(t *testing.T) {
	p := NewProfile()
	if p.UserAgent == "" {
		t.Error("empty user agent")
	}
	if p.ViewportWidth < baseViewportWidth-viewportJitter || p.ViewportWidth > baseViewportWidth+viewportJitter {
		t.Errorf("viewport width %d outside jitter range", p.ViewportWidth)
	}
	if p.Locale != "fa-IR" || p.TimezoneID != "Asia/Tehran" {
		t.Errorf("unexpected locale %q / timezone %q", p.Locale, p.TimezoneID)
	}
}

func TestDelayBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := Delay()
		if d < MinDelay || d >= MaxDelay {
			t.Fatalf("delay %v outside [%v, %v)", d, MinDelay, MaxDelay)
		}
	}
}

func TestScrollDistanceBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := ScrollDistance()
		if d < MinScrollDistance || d >= MaxScrollDistance {
			t.Fatalf("scroll distance %d out of range", d)
		}
	}
}

func TestTypeDelayIsHumanScale(t *testing.T) {
	d := TypeDelay()
	if d < 80*time.Millisecond || d > 200*time.Millisecond {
		t.Errorf("type delay %v out of range", d)
	}
}
