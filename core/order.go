package core

import (
	"context"
	"errors"
)

// DemoOrderID is the order the in-memory store is seeded with.
const DemoOrderID = "demo-order-123"

// ErrOrderNotFound is returned by OrderStore.FindOrder for unknown ids.
var ErrOrderNotFound = errors.New("order not found")

type (
	// Order is the checkout order a customization belongs to. Only
	// CustomerName and ID are used by the editor.
	Order struct {
		ID            string  `json:"id"`
		CustomerName  string  `json:"customerName"`
		CustomerEmail string  `json:"customerEmail"`
		Product       *string `json:"product"`
		Status        string  `json:"status"`
	}

	// OrderStore looks up orders.
	OrderStore interface {
		// FindOrder returns the order or an error wrapping ErrOrderNotFound.
		FindOrder(ctx context.Context, id string) (*Order, error)
		// SaveOrder creates or replaces an order.
		SaveOrder(ctx context.Context, order *Order) error
	}
)

// DemoOrder returns the order used when demo mode is on.
func DemoOrder() *Order {
	return &Order{
		ID:            DemoOrderID,
		CustomerName:  "Demo Customer",
		CustomerEmail: "demo@example.com",
		Status:        "pending",
	}
}
