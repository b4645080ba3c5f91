package models

import "testing"

func TestJobProgress(t *testing.T) {
	cases := []struct {
		name    string
		total   int
		scraped int
		want    float64
	}{
		{"zero total", 0, 0, 0},
		{"half", 48, 24, 50},
		{"complete", 10, 10, 100},
		{"rounded", 3, 1, 33.33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := ScrapingJob{TotalItems: tc.total, ScrapedItems: tc.scraped}
			if got := j.Progress(); got != tc.want {
				t.Errorf("Progress() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusPending, JobStatusRunning} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
