package memory

import (
	"context"
	"fmt"
	"product-customizer/core"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore implements OrderStore, PreviewStore and CustomizationStore in
// process memory.
type memStore struct {
	mu             sync.RWMutex
	baseURL        string
	orders         map[string]core.Order
	previews       map[string][]byte
	customizations map[string][]core.Customization
}

// NewStore creates a new in-memory store. Preview URLs are rooted at
// baseURL.
func NewStore(baseURL string) *memStore {
	return &memStore{
		baseURL:        baseURL,
		orders:         make(map[string]core.Order),
		previews:       make(map[string][]byte),
		customizations: make(map[string][]core.Customization),
	}
}

// FindOrder retrieves an order by its ID. Part of the OrderStore interface.
func (s *memStore) FindOrder(ctx context.Context, id string) (*core.Order, error) {
	s.mu.RLock()
	order, ok := s.orders[id]
	s.mu.RUnlock()

	log := logrus.WithField("order_id", id)
	if !ok {
		log.Warn("Order with specified ID not found")
		return nil, fmt.Errorf("order with id %s: %w", id, core.ErrOrderNotFound)
	}
	log.Debug("Order retrieved successfully")
	return &order, nil
}

// SaveOrder creates or replaces an order. Part of the OrderStore interface.
func (s *memStore) SaveOrder(ctx context.Context, order *core.Order) error {
	if order.ID == "" {
		return fmt.Errorf("order ID cannot be empty")
	}
	s.mu.Lock()
	s.orders[order.ID] = *order
	s.mu.Unlock()

	logrus.WithField("order_id", order.ID).Info("Order saved successfully")
	return nil
}

// UploadPreview stores a preview image. Part of the PreviewStore interface.
func (s *memStore) UploadPreview(ctx context.Context, key string, png []byte) (string, error) {
	if err := core.ValidatePreviewKey(key); err != nil {
		return "", err
	}
	data := make([]byte, len(png))
	copy(data, png)

	s.mu.Lock()
	s.previews[key] = data
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	}).Info("Preview uploaded successfully")
	return core.PreviewURL(s.baseURL, key), nil
}

// FindPreview returns a stored preview. Part of the PreviewStore interface.
func (s *memStore) FindPreview(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.previews[key]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("preview %s: %w", key, core.ErrPreviewNotFound)
	}
	return data, nil
}

// SaveCustomization stores a finished design. Part of the CustomizationStore interface.
func (s *memStore) SaveCustomization(ctx context.Context, c *core.Customization) error {
	if c.OrderID == "" {
		return fmt.Errorf("OrderID cannot be empty")
	}
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.customizations[c.OrderID] = append(s.customizations[c.OrderID], *c)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"order_id":         c.OrderID,
		"customization_id": c.ID,
		"items":            len(c.Design.Items),
	}).Info("Customization saved successfully")
	return nil
}

// ListCustomizations returns the customizations of an order, oldest first.
// Part of the CustomizationStore interface.
func (s *memStore) ListCustomizations(ctx context.Context, orderID string) ([]*core.Customization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.customizations[orderID]
	out := make([]*core.Customization, 0, len(stored))
	for i := range stored {
		c := stored[i]
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	logrus.WithField("order_id", orderID).Debugf("Listed %d customizations", len(out))
	return out, nil
}
