// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"product-customizer/canvas"
	"product-customizer/core"
	"strings"
	"sync"
	"testing"
	"time"
)

// Store is the union of the store contracts under test.
type Store interface {
	core.OrderStore
	core.PreviewStore
	core.CustomizationStore
}

// Run exercises s against the shared store contract. baseURL is the public
// base the store was created with.
func Run(t *testing.T, s Store, baseURL string) {
	t.Run("Orders", func(t *testing.T) { testOrders(t, s) })
	t.Run("Previews", func(t *testing.T) { testPreviews(t, s, baseURL) })
	t.Run("Customizations", func(t *testing.T) { testCustomizations(t, s) })
	t.Run("ConcurrentCustomizations", func(t *testing.T) { testConcurrentCustomizations(t, s) })
}

func testOrders(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.FindOrder(ctx, "missing-order")
	if !errors.Is(err, core.ErrOrderNotFound) {
		t.Fatalf("FindOrder() error = %v, want ErrOrderNotFound", err)
	}

	product := "Round Sticker"
	order := &core.Order{
		ID:            "order-1",
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Product:       &product,
		Status:        "paid",
	}
	if err := s.SaveOrder(ctx, order); err != nil {
		t.Fatalf("SaveOrder() failed: %v", err)
	}

	got, err := s.FindOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("FindOrder() failed: %v", err)
	}
	if got.CustomerName != "Ana" || got.CustomerEmail != "ana@example.com" || got.Status != "paid" {
		t.Errorf("FindOrder() = %+v", got)
	}
	if got.Product == nil || *got.Product != product {
		t.Errorf("FindOrder() product = %v, want %q", got.Product, product)
	}

	order.Status = "shipped"
	order.Product = nil
	if err := s.SaveOrder(ctx, order); err != nil {
		t.Fatalf("SaveOrder() update failed: %v", err)
	}
	got, err = s.FindOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("FindOrder() after update failed: %v", err)
	}
	if got.Status != "shipped" || got.Product != nil {
		t.Errorf("FindOrder() after update = %+v", got)
	}

	if err := s.SaveOrder(ctx, &core.Order{}); err == nil {
		t.Error("SaveOrder() should reject an empty ID")
	}
}

func testPreviews(t *testing.T, s Store, baseURL string) {
	ctx := context.Background()
	key := core.PreviewKey("order-1", time.UnixMilli(1700000000000))
	png := []byte("\x89PNG\r\n\x1a\nfake")

	url, err := s.UploadPreview(ctx, key, png)
	if err != nil {
		t.Fatalf("UploadPreview() failed: %v", err)
	}
	if !strings.HasPrefix(url, strings.TrimRight(baseURL, "/")) || !strings.HasSuffix(url, key) {
		t.Errorf("UploadPreview() url = %q, want %s.../%s", url, baseURL, key)
	}

	got, err := s.FindPreview(ctx, key)
	if err != nil {
		t.Fatalf("FindPreview() failed: %v", err)
	}
	if !bytes.Equal(got, png) {
		t.Errorf("FindPreview() = %q, want %q", got, png)
	}

	// Upsert replaces the object.
	if _, err := s.UploadPreview(ctx, key, []byte("second")); err != nil {
		t.Fatalf("UploadPreview() overwrite failed: %v", err)
	}
	got, _ = s.FindPreview(ctx, key)
	if string(got) != "second" {
		t.Errorf("FindPreview() after overwrite = %q", got)
	}

	if _, err := s.FindPreview(ctx, "order-1/missing.png"); !errors.Is(err, core.ErrPreviewNotFound) {
		t.Errorf("FindPreview() error = %v, want ErrPreviewNotFound", err)
	}
	if _, err := s.UploadPreview(ctx, "../escape.png", png); err == nil {
		t.Error("UploadPreview() should reject keys outside the preview namespace")
	}
}

func sampleDesign(t *testing.T) canvas.Design {
	t.Helper()
	items, err := canvas.NewSequence(canvas.NewTextItem("text-1", 500, 500))
	if err != nil {
		t.Fatalf("NewSequence() failed: %v", err)
	}
	return canvas.NewDesign(items, 500, 500)
}

func testCustomizations(t *testing.T, s Store) {
	ctx := context.Background()

	list, err := s.ListCustomizations(ctx, "order-empty")
	if err != nil {
		t.Fatalf("ListCustomizations() failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListCustomizations() returned %d entries for an order without designs", len(list))
	}

	first := &core.Customization{
		OrderID:    "order-2",
		Design:     sampleDesign(t),
		PreviewURL: "http://example.com/previews/order-2/preview-1.png",
		CreatedAt:  time.UnixMilli(1700000000000),
	}
	if err := s.SaveCustomization(ctx, first); err != nil {
		t.Fatalf("SaveCustomization() failed: %v", err)
	}
	if first.ID == "" {
		t.Error("SaveCustomization() did not assign an ID")
	}

	second := &core.Customization{
		OrderID:    "order-2",
		Design:     sampleDesign(t),
		PreviewURL: "http://example.com/previews/order-2/preview-2.png",
		CreatedAt:  time.UnixMilli(1700000005000),
	}
	if err := s.SaveCustomization(ctx, second); err != nil {
		t.Fatalf("SaveCustomization() failed: %v", err)
	}

	list, err = s.ListCustomizations(ctx, "order-2")
	if err != nil {
		t.Fatalf("ListCustomizations() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListCustomizations() returned %d entries, want 2", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("ListCustomizations() order = [%s %s], want [%s %s]", list[0].ID, list[1].ID, first.ID, second.ID)
	}
	got := list[0]
	if got.PreviewURL != first.PreviewURL {
		t.Errorf("PreviewURL = %q, want %q", got.PreviewURL, first.PreviewURL)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, first.CreatedAt)
	}
	if got.Design.CanvasWidth != 500 || got.Design.CanvasHeight != 500 || len(got.Design.Items) != 1 {
		t.Errorf("Design = %+v", got.Design)
	}
	if got.Design.Items[0].ID != "text-1" {
		t.Errorf("Design item id = %q, want text-1", got.Design.Items[0].ID)
	}

	if err := s.SaveCustomization(ctx, &core.Customization{Design: sampleDesign(t)}); err == nil {
		t.Error("SaveCustomization() should reject an empty OrderID")
	}
}

func testConcurrentCustomizations(t *testing.T, s Store) {
	ctx := context.Background()
	const n = 10
	design := sampleDesign(t)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.SaveCustomization(ctx, &core.Customization{
				OrderID:    "order-concurrent",
				Design:     design,
				PreviewURL: fmt.Sprintf("http://example.com/%d.png", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("SaveCustomization() failed: %v", err)
		}
	}

	list, err := s.ListCustomizations(ctx, "order-concurrent")
	if err != nil {
		t.Fatalf("ListCustomizations() failed: %v", err)
	}
	if len(list) != n {
		t.Errorf("ListCustomizations() returned %d entries, want %d", len(list), n)
	}
	seen := make(map[string]bool, n)
	for _, c := range list {
		if seen[c.ID] {
			t.Errorf("duplicate customization id %s", c.ID)
		}
		seen[c.ID] = true
	}
}
