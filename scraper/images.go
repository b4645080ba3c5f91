package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Mirror uploads image bytes to remote storage and returns their public URL.
type Mirror interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
}

// ImageDownloader fetches listing photos to local disk, optionally mirroring
// them to S3.
type ImageDownloader struct {
	dir        string
	httpClient *http.Client
	mirror     Mirror
}

func NewImageDownloader(dir string, mirror Mirror) *ImageDownloader {
	return &ImageDownloader{
		dir:        dir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		mirror:     mirror,
	}
}

// Download stores every image under <dir>/<externalID>/img_N.<ext> and
// returns the local paths (or mirror URLs when mirroring is on). Individual
// failures are logged and skipped; only a fully failed batch is an error.
func (d *ImageDownloader) Download(ctx context.Context, externalID string, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	destDir := filepath.Join(d.dir, externalID)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	var stored []string
	for i, url := range urls {
		path, err := d.fetchOne(ctx, destDir, externalID, i, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("image download failed")
			continue
		}
		stored = append(stored, path)
	}

	if len(stored) == 0 {
		return nil, fmt.Errorf("all %d image downloads failed", len(urls))
	}
	return stored, nil
}

func (d *ImageDownloader) fetchOne(ctx context.Context, destDir, externalID string, idx int, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/*,*/*")
	req.Header.Set("Referer", "https://divar.ir/")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	ext := extensionFor(url, contentType)
	name := fmt.Sprintf("img_%d%s", idx+1, ext)

	localPath := filepath.Join(destDir, name)
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if d.mirror != nil {
		key := fmt.Sprintf("properties/%s/%s", externalID, name)
		if contentType == "" {
			contentType = "image/jpeg"
		}
		publicURL, err := d.mirror.Upload(ctx, key, bytes.NewReader(data), contentType)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("mirror upload failed, keeping local copy")
			return localPath, nil
		}
		return publicURL, nil
	}
	return localPath, nil
}

func extensionFor(url, contentType string) string {
	switch {
	case strings.Contains(contentType, "webp"), strings.HasSuffix(url, ".webp"):
		return ".webp"
	case strings.Contains(contentType, "png"), strings.HasSuffix(url, ".png"):
		return ".png"
	}
	return ".jpg"
}
