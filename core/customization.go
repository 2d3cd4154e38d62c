package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"product-customizer/canvas"
	"strings"
	"time"
)

// ErrPreviewNotFound is returned by PreviewStore.FindPreview for unknown keys.
var ErrPreviewNotFound = errors.New("preview not found")

type (
	// Customization is the persisted result of a finished design session.
	Customization struct {
		ID         string        `json:"id" msgpack:"id"`
		OrderID    string        `json:"orderId" msgpack:"orderId"`
		Design     canvas.Design `json:"design" msgpack:"design"`
		PreviewURL string        `json:"previewUrl" msgpack:"previewUrl"`
		CreatedAt  time.Time     `json:"createdAt" msgpack:"createdAt"`
	}

	// CustomizationStore durably stores finished designs.
	CustomizationStore interface {
		// SaveCustomization stores c. ID and CreatedAt are assigned when empty.
		SaveCustomization(ctx context.Context, c *Customization) error
		// ListCustomizations returns the customizations of an order, oldest
		// first.
		ListCustomizations(ctx context.Context, orderID string) ([]*Customization, error)
	}

	// PreviewStore keeps flattened preview images and hands out public URLs
	// for them.
	PreviewStore interface {
		// UploadPreview stores a PNG under key, replacing any previous
		// object, and returns its public URL.
		UploadPreview(ctx context.Context, key string, png []byte) (string, error)
		// FindPreview returns the PNG stored under key.
		FindPreview(ctx context.Context, key string) ([]byte, error)
	}
)

// PreviewKey names the preview object of an order taken at t.
func PreviewKey(orderID string, t time.Time) string {
	return fmt.Sprintf("%s/preview-%d.png", orderID, t.UnixMilli())
}

// ValidatePreviewKey rejects keys that are not of the form
// "<orderId>/<name>.png" or that would escape the preview namespace.
func ValidatePreviewKey(key string) error {
	if key == "" || path.Clean(key) != key || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid preview key %q", key)
	}
	dir, file := path.Split(key)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || strings.Contains(dir, "/") || dir == "." || dir == ".." {
		return fmt.Errorf("invalid preview key %q: must be <order>/<file>", key)
	}
	if path.Ext(file) != ".png" {
		return fmt.Errorf("invalid preview key %q: must be a png", key)
	}
	return nil
}

// PreviewURL returns the URL under which a server rooted at baseURL serves
// the preview stored under key.
func PreviewURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/previews/" + key
}
