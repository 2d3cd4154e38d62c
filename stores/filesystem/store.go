package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"product-customizer/core"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
	baseURL  string
}

// NewStore creates a new filesystem-based store rooted at basePath. Preview
// URLs are rooted at baseURL.
func NewStore(basePath, baseURL string) *fsStore {
	for _, dir := range []string{"orders", "previews", "customizations"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			log.Fatalf("failed to create base directory: %v", err)
		}
	}
	return &fsStore{basePath: basePath, baseURL: baseURL}
}

// safeName rejects ids that are not a single path element.
func safeName(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("invalid id %q: must not be empty or a dot directory", id)
	}
	if path.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid id %q: must not be a path", id)
	}
	return nil
}

func (s *fsStore) orderPath(id string) string {
	return filepath.Join(s.basePath, "orders", id+".json")
}

// OrderStore implementation
func (s *fsStore) FindOrder(ctx context.Context, id string) (*core.Order, error) {
	log := logrus.WithField("order_id", id)
	if err := safeName(id); err != nil {
		log.Warn("Order with specified ID not found")
		return nil, fmt.Errorf("order with id %s: %w", id, core.ErrOrderNotFound)
	}

	data, err := os.ReadFile(s.orderPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Order with specified ID not found")
			return nil, fmt.Errorf("order with id %s: %w", id, core.ErrOrderNotFound)
		}
		log.WithError(err).Error("Failed to read order")
		return nil, err
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		log.WithError(err).Error("Failed to unmarshal order")
		return nil, err
	}
	log.Debug("Order retrieved successfully")
	return &order, nil
}

func (s *fsStore) SaveOrder(ctx context.Context, order *core.Order) error {
	if err := safeName(order.ID); err != nil {
		return err
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := os.WriteFile(s.orderPath(order.ID), data, 0644); err != nil {
		logrus.WithField("order_id", order.ID).WithError(err).Error("Failed to write order file")
		return err
	}
	logrus.WithField("order_id", order.ID).Info("Order saved successfully")
	return nil
}

// PreviewStore implementation
func (s *fsStore) previewPath(key string) string {
	return filepath.Join(s.basePath, "previews", filepath.FromSlash(key))
}

func (s *fsStore) UploadPreview(ctx context.Context, key string, png []byte) (string, error) {
	if err := core.ValidatePreviewKey(key); err != nil {
		return "", err
	}
	filePath := s.previewPath(key)
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		log.WithError(err).Error("Failed to create preview directory")
		return "", err
	}
	if err := os.WriteFile(filePath, png, 0644); err != nil {
		log.WithError(err).Error("Failed to write preview")
		return "", err
	}
	log.WithField("data_length", len(png)).Info("Preview uploaded successfully")
	return core.PreviewURL(s.baseURL, key), nil
}

func (s *fsStore) FindPreview(ctx context.Context, key string) ([]byte, error) {
	if err := core.ValidatePreviewKey(key); err != nil {
		return nil, fmt.Errorf("preview %s: %w", key, core.ErrPreviewNotFound)
	}
	data, err := os.ReadFile(s.previewPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("preview %s: %w", key, core.ErrPreviewNotFound)
		}
		return nil, err
	}
	return data, nil
}

// CustomizationStore implementation
func (s *fsStore) customizationDir(orderID string) string {
	return filepath.Join(s.basePath, "customizations", orderID)
}

func (s *fsStore) SaveCustomization(ctx context.Context, c *core.Customization) error {
	if c.OrderID == "" {
		return errors.New("OrderID cannot be empty")
	}
	if err := safeName(c.OrderID); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	dir := s.customizationDir(c.OrderID)
	filePath := filepath.Join(dir, c.ID+".json")
	log := logrus.WithFields(logrus.Fields{
		"order_id":         c.OrderID,
		"customization_id": c.ID,
		"path":             filePath,
	})

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.WithError(err).Error("Failed to create customization directory")
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		log.WithError(err).Error("Failed to marshal customization for saving")
		return err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write customization file")
		return err
	}
	log.Info("Customization saved successfully")
	return nil
}

func (s *fsStore) ListCustomizations(ctx context.Context, orderID string) ([]*core.Customization, error) {
	if err := safeName(orderID); err != nil {
		return nil, err
	}
	dir := s.customizationDir(orderID)
	log := logrus.WithFields(logrus.Fields{"order_id": orderID, "path": dir})

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.Customization{}, nil
		}
		log.WithError(err).Error("Failed to read customization directory")
		return nil, err
	}

	out := make([]*core.Customization, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read customization file %s, skipping", file.Name())
			continue
		}
		var c core.Customization
		if err := json.Unmarshal(data, &c); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal customization file %s, skipping", file.Name())
			continue
		}
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	log.Debugf("Listed %d customizations", len(out))
	return out, nil
}
