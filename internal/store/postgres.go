// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/ordersuite/orderflow/internal/models"
)

// Connection pool configuration.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists conversations and entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the database at the DSN and applies
// migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("Postgres ping failed: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore: database connected and migrated")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetConversation(phone string) (*models.Conversation, error) {
	row := s.db.QueryRow(
		`SELECT phone, current_state, context, created_at, updated_at FROM conversations WHERE phone = $1`,
		phone)

	var conv models.Conversation
	var contextJSON string
	err := row.Scan(&conv.Phone, &conv.CurrentState, &contextJSON, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation for %s: %w", phone, err)
	}
	if err := unmarshalInto(contextJSON, &conv.Context); err != nil {
		return nil, fmt.Errorf("failed to decode context for %s: %w", phone, err)
	}

	conv.Messages, err = s.loadMessages(phone)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *PostgresStore) loadMessages(phone string) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT body, role, template_id, has_template, message_state, created_at
		 FROM messages WHERE phone = $1 ORDER BY id`, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for %s: %w", phone, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		var templateID sql.NullString
		if err := rows.Scan(&m.Body, &m.Role, &templateID, &m.HasTemplate, &m.MessageState, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.TemplateID = templateID.String
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *PostgresStore) SaveConversation(conv *models.Conversation) error {
	contextJSON, err := marshalField(conv.Context)
	if err != nil {
		return fmt.Errorf("failed to encode context for %s: %w", conv.Phone, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO conversations (phone, current_state, context, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (phone) DO UPDATE SET current_state = EXCLUDED.current_state,
		   context = EXCLUDED.context, updated_at = EXCLUDED.updated_at`,
		conv.Phone, conv.CurrentState, contextJSON, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save conversation for %s: %w", conv.Phone, err)
	}
	return nil
}

func (s *PostgresStore) AddMessage(phone string, msg models.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (phone, body, role, template_id, has_template, message_state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		phone, msg.Body, msg.Role, nilIfEmpty(msg.TemplateID), msg.HasTemplate, msg.MessageState, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message for %s: %w", phone, err)
	}
	return nil
}

func (s *PostgresStore) CreateRestaurant(r models.Restaurant) error {
	contacts, err := marshalField(r.Contacts)
	if err != nil {
		return fmt.Errorf("failed to encode contacts: %w", err)
	}
	payment, err := marshalField(r.Payment)
	if err != nil {
		return fmt.Errorf("failed to encode payment: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO restaurants (id, legal_id, legal_name, name, contacts, payment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET legal_name = EXCLUDED.legal_name, name = EXCLUDED.name,
		   contacts = EXCLUDED.contacts, payment = EXCLUDED.payment, updated_at = EXCLUDED.updated_at`,
		r.ID, r.LegalID, r.LegalName, r.Name, contacts, payment, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save restaurant %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) SaveSupplier(sp models.Supplier) error {
	category, err := marshalField(sp.Category)
	if err != nil {
		return fmt.Errorf("failed to encode category: %w", err)
	}
	reminders, err := marshalField(sp.Reminders)
	if err != nil {
		return fmt.Errorf("failed to encode reminders: %w", err)
	}
	products, err := marshalField(sp.Products)
	if err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO suppliers (id, restaurant_id, whatsapp, name, category, reminders, products, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET whatsapp = EXCLUDED.whatsapp, name = EXCLUDED.name,
		   category = EXCLUDED.category, reminders = EXCLUDED.reminders,
		   products = EXCLUDED.products, updated_at = EXCLUDED.updated_at`,
		sp.ID, sp.RestaurantID, sp.WhatsApp, sp.Name, category, reminders, products, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save supplier %s: %w", sp.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetSupplier(id string) (*models.Supplier, error) {
	row := s.db.QueryRow(
		`SELECT id, restaurant_id, whatsapp, name, category, reminders, products, created_at, updated_at
		 FROM suppliers WHERE id = $1`, id)

	var sp models.Supplier
	var category, reminders, products string
	err := row.Scan(&sp.ID, &sp.RestaurantID, &sp.WhatsApp, &sp.Name, &category, &reminders, &products, &sp.CreatedAt, &sp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier %s: %w", id, err)
	}
	if err := unmarshalInto(category, &sp.Category); err != nil {
		return nil, fmt.Errorf("failed to decode supplier category: %w", err)
	}
	if err := unmarshalInto(reminders, &sp.Reminders); err != nil {
		return nil, fmt.Errorf("failed to decode supplier reminders: %w", err)
	}
	if err := unmarshalInto(products, &sp.Products); err != nil {
		return nil, fmt.Errorf("failed to decode supplier products: %w", err)
	}
	return &sp, nil
}

func (s *PostgresStore) UpdateSupplierProduct(supplierID string, p models.ProductSpec) error {
	sp, err := s.GetSupplier(supplierID)
	if err != nil {
		return err
	}
	if sp == nil {
		return nil
	}
	products, err := marshalField(upsertProduct(sp.Products, p))
	if err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE suppliers SET products = $1, updated_at = NOW() WHERE id = $2`,
		products, supplierID)
	if err != nil {
		return fmt.Errorf("failed to update supplier %s products: %w", supplierID, err)
	}
	return nil
}

func (s *PostgresStore) AddInventorySnapshot(snap models.InventorySnapshot) error {
	items, err := marshalField(snap.Items)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot items: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO inventory_snapshots (id, restaurant_id, category, items, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.RestaurantID, snap.Category, items, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert inventory snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (s *PostgresStore) AddOrder(o models.Order) error {
	items, err := marshalField(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO orders (id, restaurant_id, supplier_id, items, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET items = EXCLUDED.items, status = EXCLUDED.status,
		   updated_at = EXCLUDED.updated_at`,
		o.ID, o.RestaurantID, o.SupplierID, items, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateOrderStatus(orderID string, status models.OrderStatus) error {
	_, err := s.db.Exec(
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order %s status: %w", orderID, err)
	}
	return nil
}

func (s *PostgresStore) AddDelivery(d models.Delivery) error {
	items, err := marshalField(d.Items)
	if err != nil {
		return fmt.Errorf("failed to encode delivery items: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO deliveries (id, order_id, items, invoice_url, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.OrderID, items, nilIfEmpty(d.InvoiceURL), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery %s: %w", d.ID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
