package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"sorinflow/models"
)

// ImageStore is the slice of the database the worker needs.
type ImageStore interface {
	ListPropertiesPendingImages(ctx context.Context, limit int) ([]*models.Property, error)
	MarkImagesDownloaded(ctx context.Context, externalID string, images []string) error
}

// Downloader fetches a record's remote images and returns their stored
// locations.
type Downloader interface {
	Download(ctx context.Context, externalID string, urls []string) ([]string, error)
}

// ImageWorker backfills images for records scraped without them. Jobs that
// run with image download off leave remote divarcdn URLs on the record; this
// worker sweeps those up in batches.
type ImageWorker struct {
	store      ImageStore
	downloader Downloader
	trigger    chan struct{}
}

func NewImageWorker(store ImageStore, downloader Downloader) *ImageWorker {
	return &ImageWorker{
		store:      store,
		downloader: downloader,
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests an immediate batch. Non-blocking; a pending trigger is
// enough.
func (w *ImageWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run processes a batch every interval until the context ends.
func (w *ImageWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Int("batch", batchSize).Dur("interval", interval).Msg("image worker started")

	for {
		select {
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.trigger:
			w.processBatch(ctx, batchSize)
		case <-ctx.Done():
			return
		}
	}
}

func (w *ImageWorker) processBatch(ctx context.Context, batchSize int) {
	pending, err := w.store.ListPropertiesPendingImages(ctx, batchSize)
	if err != nil {
		log.Error().Err(err).Msg("list pending images")
		return
	}
	if len(pending) == 0 {
		return
	}

	done := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return
		}
		stored, err := w.downloader.Download(ctx, p.ExternalID, p.Images)
		if err != nil {
			log.Warn().Err(err).Str("external_id", p.ExternalID).Msg("image download failed")
			continue
		}
		if err := w.store.MarkImagesDownloaded(ctx, p.ExternalID, stored); err != nil {
			log.Error().Err(err).Str("external_id", p.ExternalID).Msg("mark images downloaded")
			continue
		}
		done++
	}
	log.Info().Int("pending", len(pending)).Int("done", done).Msg("image batch processed")
}
