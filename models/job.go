package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is a final one.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ScrapingJob tracks one (city, category) scrape. The orchestrator commits it
// after every page and every item; external callers poll it for progress and
// flip the status to cancelled to stop it.
type ScrapingJob struct {
	ID       int64     `json:"id" db:"id"`
	JobID    uuid.UUID `json:"job_id" db:"job_id"`
	City     string    `json:"city" db:"city"`
	Category string    `json:"category" db:"category"`

	Status JobStatus `json:"status" db:"status"`

	TotalPages   int `json:"total_pages" db:"total_pages"`
	ScrapedPages int `json:"scraped_pages" db:"scraped_pages"`
	TotalItems   int `json:"total_items" db:"total_items"`
	ScrapedItems int `json:"scraped_items" db:"scraped_items"`
	NewItems     int `json:"new_items" db:"new_items"`
	UpdatedItems int `json:"updated_items" db:"updated_items"`
	FailedItems  int `json:"failed_items" db:"failed_items"`

	ErrorMessage string `json:"error_message" db:"error_message"`

	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Progress returns the completion percentage, 0 when nothing is planned yet.
func (j *ScrapingJob) Progress() float64 {
	if j.TotalItems == 0 {
		return 0
	}
	p := float64(j.ScrapedItems) / float64(j.TotalItems) * 100
	return math.Round(p*100) / 100
}

// JobLog is one log line attached to a scraping job.
type JobLog struct {
	ID        int64     `json:"id" db:"id"`
	JobID     uuid.UUID `json:"job_id" db:"job_id"`
	Level     string    `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
