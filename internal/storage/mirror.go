package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const defaultMirrorLimit = 20 << 20

// Mirror copies remote assets into a Store.
type Mirror struct {
	store    Store
	client   *http.Client
	maxBytes int64
}

func NewMirror(store Store, client *http.Client) *Mirror {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Mirror{store: store, client: client, maxBytes: defaultMirrorLimit}
}

// Copy downloads sourceURL and stores it under keyPrefix plus an extension
// derived from the content type. It returns the stored object's URL.
func (m *Mirror) Copy(ctx context.Context, sourceURL, keyPrefix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("storage: build download request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: read download: %w", err)
	}
	if int64(len(data)) > m.maxBytes {
		return "", fmt.Errorf("storage: asset exceeds %d bytes", m.maxBytes)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return m.store.Put(ctx, keyPrefix+extensionFor(contentType), data, contentType)
}

// SceneKey is the storage key prefix of a scene image.
func SceneKey(shortID string, order int) string {
	return fmt.Sprintf("shorts/%s/scene-%d", shortID, order)
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
