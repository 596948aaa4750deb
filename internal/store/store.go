// Package store provides storage backends for conversations and the business
// entities the bot creates: restaurants, suppliers, inventory snapshots,
// orders and deliveries.
//
// Three backends share one interface: in-memory for tests and simulation,
// SQLite for single-node deployments, Postgres for everything else.
package store

import (
	"sync"

	"github.com/ordersuite/orderflow/internal/models"
)

// Opts holds configuration for persistent store backends.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithDSN sets the database connection string (file path for SQLite).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// Store is the persistence interface the webhook handler and dispatcher
// depend on. GetConversation returns (nil, nil) for an unseen phone number.
//
// SaveConversation persists phone, state, context and timestamps; the message
// log is append-only and written exclusively through AddMessage.
type Store interface {
	GetConversation(phone string) (*models.Conversation, error)
	SaveConversation(conv *models.Conversation) error
	AddMessage(phone string, msg models.Message) error

	CreateRestaurant(r models.Restaurant) error
	SaveSupplier(s models.Supplier) error
	GetSupplier(id string) (*models.Supplier, error)
	UpdateSupplierProduct(supplierID string, p models.ProductSpec) error
	AddInventorySnapshot(snap models.InventorySnapshot) error
	AddOrder(o models.Order) error
	UpdateOrderStatus(orderID string, status models.OrderStatus) error
	AddDelivery(d models.Delivery) error

	Close() error
}

// InMemoryStore keeps everything in process memory. Used by tests and by
// simulation mode.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	restaurants   map[string]models.Restaurant
	suppliers     map[string]models.Supplier
	snapshots     []models.InventorySnapshot
	orders        map[string]models.Order
	deliveries    []models.Delivery
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]*models.Conversation),
		restaurants:   make(map[string]models.Restaurant),
		suppliers:     make(map[string]models.Supplier),
		orders:        make(map[string]models.Order),
	}
}

func (s *InMemoryStore) GetConversation(phone string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[phone]
	if !ok {
		return nil, nil
	}
	return copyConversation(conv), nil
}

func (s *InMemoryStore) SaveConversation(conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := copyConversation(conv)
	if existing, ok := s.conversations[conv.Phone]; ok {
		saved.Messages = existing.Messages
	} else {
		saved.Messages = nil
	}
	s.conversations[conv.Phone] = saved
	return nil
}

func (s *InMemoryStore) AddMessage(phone string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[phone]
	if !ok {
		return nil
	}
	conv.Messages = append(conv.Messages, msg)
	return nil
}

func (s *InMemoryStore) CreateRestaurant(r models.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants[r.ID] = r
	return nil
}

func (s *InMemoryStore) SaveSupplier(sp models.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[sp.ID] = sp
	return nil
}

func (s *InMemoryStore) GetSupplier(id string) (*models.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &sp, nil
}

func (s *InMemoryStore) UpdateSupplierProduct(supplierID string, p models.ProductSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.suppliers[supplierID]
	if !ok {
		return nil
	}
	sp.Products = upsertProduct(sp.Products, p)
	s.suppliers[supplierID] = sp
	return nil
}

func (s *InMemoryStore) AddInventorySnapshot(snap models.InventorySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *InMemoryStore) AddOrder(o models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

func (s *InMemoryStore) UpdateOrderStatus(orderID string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil
	}
	o.Status = status
	s.orders[orderID] = o
	return nil
}

func (s *InMemoryStore) AddDelivery(d models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, d)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

// GetRestaurant returns a stored restaurant, for tests.
func (s *InMemoryStore) GetRestaurant(id string) (models.Restaurant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restaurants[id]
	return r, ok
}

// GetOrder returns a stored order, for tests.
func (s *InMemoryStore) GetOrder(id string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// Snapshots returns all stored inventory snapshots, for tests.
func (s *InMemoryStore) Snapshots() []models.InventorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.InventorySnapshot(nil), s.snapshots...)
}

// Deliveries returns all stored deliveries, for tests.
func (s *InMemoryStore) Deliveries() []models.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Delivery(nil), s.deliveries...)
}

func copyConversation(conv *models.Conversation) *models.Conversation {
	out := *conv
	out.Context = conv.Context.Clone()
	out.Messages = append([]models.Message(nil), conv.Messages...)
	return &out
}
