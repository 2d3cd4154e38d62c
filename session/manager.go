package session

import (
	"context"
	"errors"
	"fmt"
	"product-customizer/core"
	"product-customizer/render"
	"product-customizer/templates"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("session not found")

// Config carries the collaborators shared by every session.
type Config struct {
	Orders         core.OrderStore
	Previews       core.PreviewStore
	Customizations core.CustomizationStore
	Catalog        *templates.Catalog
	Renderer       *render.Renderer

	// CheckoutURL is returned to the shell after a successful Finish.
	CheckoutURL string
	// DemoMode opens sessions without an order id on core.DemoOrderID.
	DemoMode bool
	// MaxIdle is how long an untouched session survives Cleanup.
	MaxIdle time.Duration

	Now func() time.Time
}

func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Manager keeps the open sessions.
type Manager struct {
	cfg      Config
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Open resolves the order and opens a session on it. Any lookup failure is
// terminal and wrapped in ErrLookup.
func (m *Manager) Open(ctx context.Context, orderID string) (*Session, error) {
	if orderID == "" {
		if !m.cfg.DemoMode {
			return nil, fmt.Errorf("%w: order id is required", ErrLookup)
		}
		orderID = core.DemoOrderID
	}

	log := logrus.WithField("order_id", orderID)
	order, err := m.cfg.Orders.FindOrder(ctx, orderID)
	if err != nil {
		log.WithError(err).Warn("Order lookup failed")
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	s := newSession(ulid.Make().String(), *order, &m.cfg)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	log.WithField("session_id", s.id).Info("Session opened successfully")
	return s, nil
}

// Get returns the open session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close forgets the session with the given id.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup closes sessions idle for longer than MaxIdle. Sessions that are
// exporting are kept. It returns the number of sessions closed.
func (m *Manager) Cleanup() int {
	if m.cfg.MaxIdle <= 0 {
		return 0
	}
	cutoff := m.cfg.now().Add(-m.cfg.MaxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	closed := 0
	for id, s := range m.sessions {
		last, idle := s.idleSince()
		if idle && last.Before(cutoff) {
			delete(m.sessions, id)
			closed++
		}
	}
	if closed > 0 {
		logrus.WithFields(logrus.Fields{
			"closed": closed,
			"open":   len(m.sessions),
		}).Info("Idle sessions cleaned up")
	}
	return closed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
