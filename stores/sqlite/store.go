package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"product-customizer/core"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db      *sql.DB
	baseURL string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL DEFAULT '',
		customer_email TEXT NOT NULL DEFAULT '',
		product TEXT,
		status TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS previews (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS customizations (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		design BLOB NOT NULL,
		preview_url TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS customizations_order ON customizations (order_id, created_at);`,
}

// NewStore creates a new SQLite-based store. Preview URLs are rooted at
// baseURL.
func NewStore(dataSourceName, baseURL string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("failed to initialize schema: %v", err)
		}
	}
	return &sqliteStore{db: db, baseURL: baseURL}
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// OrderStore implementation
func (s *sqliteStore) FindOrder(ctx context.Context, id string) (*core.Order, error) {
	log := logrus.WithField("order_id", id)
	log.Debug("Retrieving order by ID")

	var order core.Order
	var product sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, customer_name, customer_email, product, status FROM orders WHERE id = ?", id,
	).Scan(&order.ID, &order.CustomerName, &order.CustomerEmail, &product, &order.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Order with specified ID not found")
			return nil, fmt.Errorf("order with id %s: %w", id, core.ErrOrderNotFound)
		}
		log.WithError(err).Error("Failed to retrieve order")
		return nil, err
	}
	if product.Valid {
		order.Product = &product.String
	}
	log.Debug("Order retrieved successfully")
	return &order, nil
}

func (s *sqliteStore) SaveOrder(ctx context.Context, order *core.Order) error {
	if order.ID == "" {
		return errors.New("order ID cannot be empty")
	}
	var product sql.NullString
	if order.Product != nil {
		product = sql.NullString{String: *order.Product, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO orders (id, customer_name, customer_email, product, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_name = excluded.customer_name,
			customer_email = excluded.customer_email,
			product = excluded.product,
			status = excluded.status`,
		order.ID, order.CustomerName, order.CustomerEmail, product, order.Status)
	if err != nil {
		logrus.WithField("order_id", order.ID).WithError(err).Error("Failed to save order")
		return err
	}
	logrus.WithField("order_id", order.ID).Info("Order saved successfully")
	return nil
}

// PreviewStore implementation
func (s *sqliteStore) UploadPreview(ctx context.Context, key string, png []byte) (string, error) {
	if err := core.ValidatePreviewKey(key); err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(png),
	})
	_, err := s.db.ExecContext(ctx, `INSERT INTO previews (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, png, time.Now().UnixMilli())
	if err != nil {
		log.WithError(err).Error("Failed to upload preview")
		return "", err
	}
	log.Info("Preview uploaded successfully")
	return core.PreviewURL(s.baseURL, key), nil
}

func (s *sqliteStore) FindPreview(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM previews WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("preview %s: %w", key, core.ErrPreviewNotFound)
		}
		return nil, err
	}
	return data, nil
}

// CustomizationStore implementation
func (s *sqliteStore) SaveCustomization(ctx context.Context, c *core.Customization) error {
	if c.OrderID == "" {
		return errors.New("OrderID cannot be empty")
	}
	design, err := json.Marshal(c.Design)
	if err != nil {
		return fmt.Errorf("failed to marshal design: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, createdAt := c.ID, c.CreatedAt
	if id == "" {
		id = ulid.Make().String()
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO customizations (id, order_id, design, preview_url, created_at) VALUES (?, ?, ?, ?, ?)",
		id, c.OrderID, design, c.PreviewURL, createdAt.UnixMilli())
	if err != nil {
		logrus.WithField("order_id", c.OrderID).WithError(err).Error("Failed to save customization")
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	c.ID, c.CreatedAt = id, createdAt
	logrus.WithFields(logrus.Fields{
		"order_id":         c.OrderID,
		"customization_id": c.ID,
	}).Info("Customization saved successfully")
	return nil
}

func (s *sqliteStore) ListCustomizations(ctx context.Context, orderID string) ([]*core.Customization, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, design, preview_url, created_at FROM customizations WHERE order_id = ? ORDER BY created_at, id",
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*core.Customization{}
	for rows.Next() {
		c := core.Customization{OrderID: orderID}
		var design []byte
		var createdAt int64
		if err := rows.Scan(&c.ID, &design, &c.PreviewURL, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(design, &c.Design); err != nil {
			logrus.WithField("customization_id", c.ID).WithError(err).Warn("Failed to unmarshal design, skipping")
			continue
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, &c)
	}
	return out, rows.Err()
}
