package workers

import (
	"context"
	"errors"
	"testing"

	"sorinflow/models"
)

type fakeImageStore struct {
	pending []*models.Property
	marked  map[string][]string
}

func (f *fakeImageStore) ListPropertiesPendingImages(ctx context.Context, limit int) ([]*models.Property, error) {
	if limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeImageStore) MarkImagesDownloaded(ctx context.Context, externalID string, images []string) error {
	if f.marked == nil {
		f.marked = make(map[string][]string)
	}
	f.marked[externalID] = images
	return nil
}

type fakeDownloader struct {
	fail map[string]bool
}

func (f *fakeDownloader) Download(ctx context.Context, externalID string, urls []string) ([]string, error) {
	if f.fail[externalID] {
		return nil, errors.New("download failed")
	}
	out := make([]string, len(urls))
	for i := range urls {
		out[i] = "/data/images/" + externalID
	}
	return out, nil
}

func TestProcessBatchMarksDownloaded(t *testing.T) {
	store := &fakeImageStore{
		pending: []*models.Property{
			{ExternalID: "AZpmBu0p", Images: []string{"https://s100.divarcdn.com/a.jpg"}},
			{ExternalID: "AZq9xYz1", Images: []string{"https://s100.divarcdn.com/b.jpg"}},
		},
	}
	w := NewImageWorker(store, &fakeDownloader{})

	w.processBatch(context.Background(), 10)

	if len(store.marked) != 2 {
		t.Fatalf("marked = %d, want 2", len(store.marked))
	}
	if got := store.marked["AZpmBu0p"]; len(got) != 1 || got[0] != "/data/images/AZpmBu0p" {
		t.Errorf("stored paths = %v", got)
	}
}

func TestProcessBatchSkipsFailures(t *testing.T) {
	store := &fakeImageStore{
		pending: []*models.Property{
			{ExternalID: "AZpmBu0p", Images: []string{"https://s100.divarcdn.com/a.jpg"}},
			{ExternalID: "AZbroken", Images: []string{"https://s100.divarcdn.com/b.jpg"}},
		},
	}
	w := NewImageWorker(store, &fakeDownloader{fail: map[string]bool{"AZbroken": true}})

	w.processBatch(context.Background(), 10)

	if _, ok := store.marked["AZbroken"]; ok {
		t.Error("failed download marked as done")
	}
	if _, ok := store.marked["AZpmBu0p"]; !ok {
		t.Error("successful download not marked")
	}
}

func TestTriggerDoesNotBlock(t *testing.T) {
	w := NewImageWorker(&fakeImageStore{}, &fakeDownloader{})
	w.Trigger()
	w.Trigger()
	w.Trigger()
}
