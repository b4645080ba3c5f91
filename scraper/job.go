package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sorinflow/config"
	"sorinflow/models"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	PropertyExists(ctx context.Context, externalID string) (bool, error)
	UpsertProperty(ctx context.Context, p *models.Property) error
	GetJobByJobID(ctx context.Context, jobID uuid.UUID) (*models.ScrapingJob, error)
	UpdateJob(ctx context.Context, j *models.ScrapingJob) error
	AppendJobLog(ctx context.Context, jobID uuid.UUID, level, message string) error
}

// Fetcher abstracts the browser session for the orchestrator.
type Fetcher interface {
	FetchListingPage(ctx context.Context, city, category string, page int) ([]models.ListingSummary, error)
	FetchDetail(ctx context.Context, summary models.ListingSummary, withPhone bool) (*models.Property, error)
}

// Runner executes scraping jobs over one browser session. One Runner drives
// one job at a time; concurrent jobs get their own Runner and Session.
type Runner struct {
	store   Store
	fetcher Fetcher
	catalog *config.Catalog
	images  *ImageDownloader

	// MaxPages bounds the page loop; 0 means follow pagination to the end.
	MaxPages       int
	DownloadImages bool
	WithPhone      bool

	pause func(context.Context) error
}

func NewRunner(store Store, fetcher Fetcher, catalog *config.Catalog) *Runner {
	return &Runner{
		store:   store,
		fetcher: fetcher,
		catalog: catalog,
		pause:   Pause,
	}
}

// SetImageDownloader enables the image pipeline for new records.
func (r *Runner) SetImageDownloader(d *ImageDownloader) {
	r.images = d
	r.DownloadImages = d != nil
}

// Run drives one job from running to a terminal state. The job row is
// committed after every page and every item so progress is observable and
// cancellation requests are picked up at loop boundaries.
func (r *Runner) Run(ctx context.Context, job *models.ScrapingJob) error {
	city, ok := r.catalog.City(job.City)
	if !ok {
		return r.fail(ctx, job, fmt.Sprintf("unknown city: %s", job.City))
	}
	category, ok := r.catalog.Category(job.Category)
	if !ok {
		return r.fail(ctx, job, fmt.Sprintf("unknown category: %s", job.Category))
	}

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	if err := r.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	r.logJob(ctx, job, "info", fmt.Sprintf("started for %s/%s", job.City, job.Category))

	summaries, cancelledOrErr := r.collectPages(ctx, job)
	if cancelledOrErr != nil {
		return cancelledOrErr
	}
	if job.Status == models.JobStatusCancelled {
		return nil
	}

	if err := r.processItems(ctx, job, summaries, city, category); err != nil {
		return err
	}
	if job.Status == models.JobStatusCancelled {
		return nil
	}

	done := time.Now()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &done
	if err := r.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	r.logJob(ctx, job, "info", fmt.Sprintf(
		"completed: new=%d updated=%d failed=%d", job.NewItems, job.UpdatedItems, job.FailedItems))
	return nil
}

// collectPages walks the pagination and accumulates summaries. A page fault
// ends the pagination like an empty page, so items gathered so far still
// get processed.
func (r *Runner) collectPages(ctx context.Context, job *models.ScrapingJob) ([]models.ListingSummary, error) {
	var all []models.ListingSummary

	for pageNum := 1; r.MaxPages == 0 || pageNum <= r.MaxPages; pageNum++ {
		cancelled, err := r.checkCancelled(ctx, job)
		if err != nil {
			return nil, err
		}
		if cancelled {
			return nil, nil
		}

		summaries, err := r.fetcher.FetchListingPage(ctx, job.City, job.Category, pageNum)
		if err != nil {
			log.Warn().Err(err).Int("page", pageNum).Msg("listing page unreachable, ending pagination")
			r.logJob(ctx, job, "warning", fmt.Sprintf("listing page %d unreachable: %v", pageNum, err))
			break
		}
		if len(summaries) == 0 {
			log.Info().Int("page", pageNum).Msg("no more listings, pagination exhausted")
			break
		}

		all = append(all, summaries...)
		job.ScrapedPages = pageNum
		job.TotalItems = len(all)
		if err := r.store.UpdateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("commit page progress: %w", err)
		}

		if err := r.pause(ctx); err != nil {
			return nil, err
		}
	}

	log.Info().Int("total", len(all)).Str("city", job.City).Str("category", job.Category).
		Msg("listing pages collected")
	return all, nil
}

func (r *Runner) processItems(ctx context.Context, job *models.ScrapingJob, summaries []models.ListingSummary, city config.City, category config.Category) error {
	for i, summary := range summaries {
		cancelled, err := r.checkCancelled(ctx, job)
		if err != nil {
			return err
		}
		if cancelled {
			return nil
		}

		r.processOne(ctx, job, summary, city, category)

		job.ScrapedItems = i + 1
		if err := r.store.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("commit item progress: %w", err)
		}

		if err := r.pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

// processOne handles a single summary and adjusts the job counters. Faults
// are absorbed into failed_items; one bad listing never aborts the job.
func (r *Runner) processOne(ctx context.Context, job *models.ScrapingJob, summary models.ListingSummary, city config.City, category config.Category) {
	exists, err := r.store.PropertyExists(ctx, summary.ExternalID)
	if err != nil {
		log.Error().Err(err).Str("external_id", summary.ExternalID).Msg("dedup check failed")
		job.FailedItems++
		return
	}
	if exists {
		log.Debug().Str("external_id", summary.ExternalID).Msg("already stored")
		job.UpdatedItems++
		return
	}

	detail, err := r.fetcher.FetchDetail(ctx, summary, r.WithPhone)
	if err != nil || detail == nil {
		if err != nil {
			log.Error().Err(err).Str("url", summary.URL).Msg("detail extraction failed")
			r.logJob(ctx, job, "error", fmt.Sprintf("detail %s: %v", summary.ExternalID, err))
		}
		job.FailedItems++
		return
	}

	record := r.buildRecord(summary, detail, city, category)

	if r.DownloadImages && r.images != nil && len(record.Images) > 0 {
		stored, err := r.images.Download(ctx, record.ExternalID, record.Images)
		if err != nil {
			log.Warn().Err(err).Str("external_id", record.ExternalID).Msg("image download failed")
		} else {
			record.Images = stored
			record.ImagesDownloaded = true
		}
	}

	if err := r.store.UpsertProperty(ctx, record); err != nil {
		log.Error().Err(err).Str("external_id", record.ExternalID).Msg("upsert failed")
		r.logJob(ctx, job, "error", fmt.Sprintf("upsert %s: %v", record.ExternalID, err))
		job.FailedItems++
		return
	}
	job.NewItems++
}

// buildRecord combines the card summary with the detail extraction. Detail
// fields win; the summary supplies identity and whatever the card showed.
func (r *Runner) buildRecord(summary models.ListingSummary, detail *models.Property, city config.City, category config.Category) *models.Property {
	record := &models.Property{
		ExternalID:   summary.ExternalID,
		Title:        summary.Title,
		URL:          summary.URL,
		ThumbnailURL: summary.ThumbnailURL,
		IsActive:     true,
	}
	models.Merge(record, detail)

	record.CityName = city.Name
	record.CategoryName = category.Name
	record.ListingType = category.Type

	if raw, err := json.Marshal(summary); err == nil {
		record.RawData = raw
	}
	return record
}

// checkCancelled re-reads the job row and honors an external cancellation.
func (r *Runner) checkCancelled(ctx context.Context, job *models.ScrapingJob) (bool, error) {
	current, err := r.store.GetJobByJobID(ctx, job.JobID)
	if err != nil {
		return false, fmt.Errorf("poll job status: %w", err)
	}
	if current == nil || current.Status != models.JobStatusCancelled {
		return false, nil
	}

	log.Info().Str("job_id", job.JobID.String()).Msg("job cancelled, stopping")
	job.Status = models.JobStatusCancelled
	if current.CompletedAt != nil {
		job.CompletedAt = current.CompletedAt
	}
	r.logJob(ctx, job, "info", "cancelled by request")
	return true, nil
}

func (r *Runner) fail(ctx context.Context, job *models.ScrapingJob, msg string) error {
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = msg
	job.CompletedAt = &now
	if err := r.store.UpdateJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("mark job failed")
	}
	r.logJob(ctx, job, "error", msg)
	return fmt.Errorf("job %s: %s", job.JobID, msg)
}

func (r *Runner) logJob(ctx context.Context, job *models.ScrapingJob, level, message string) {
	if err := r.store.AppendJobLog(ctx, job.JobID, level, message); err != nil {
		log.Warn().Err(err).Msg("append job log")
	}
}

// RunAllCategories runs one job per category for a city, with a long pause
// between categories. Per-category failures are logged and the sweep moves
// on.
func RunAllCategories(ctx context.Context, newJob func(city, category string) (*models.ScrapingJob, *Runner, error), city string, categories []string) {
	for _, category := range categories {
		job, runner, err := newJob(city, category)
		if err != nil {
			log.Error().Err(err).Str("category", category).Msg("create sweep job")
			continue
		}
		if err := runner.Run(ctx, job); err != nil {
			log.Error().Err(err).Str("category", category).Msg("sweep job failed")
		}
		if err := PauseBetween(ctx, 10*time.Second, 20*time.Second); err != nil {
			return
		}
	}
}
