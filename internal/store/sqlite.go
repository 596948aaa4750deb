// This file implements the SQLite-backed store for single-node deployments.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ordersuite/orderflow/internal/models"
)

// DefaultDirPermissions is used when creating the database directory.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists conversations and entities in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the SQLite database at the DSN
// path and applies migrations.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("SQLite ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore: database opened and migrated", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetConversation(phone string) (*models.Conversation, error) {
	row := s.db.QueryRow(
		`SELECT phone, current_state, context, created_at, updated_at FROM conversations WHERE phone = ?`,
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

func (s *SQLiteStore) loadMessages(phone string) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT body, role, template_id, has_template, message_state, created_at
		 FROM messages WHERE phone = ? ORDER BY id`, phone)
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

func (s *SQLiteStore) SaveConversation(conv *models.Conversation) error {
	contextJSON, err := marshalField(conv.Context)
	if err != nil {
		return fmt.Errorf("failed to encode context for %s: %w", conv.Phone, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO conversations (phone, current_state, context, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET current_state = excluded.current_state,
		   context = excluded.context, updated_at = excluded.updated_at`,
		conv.Phone, conv.CurrentState, contextJSON, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save conversation for %s: %w", conv.Phone, err)
	}
	return nil
}

func (s *SQLiteStore) AddMessage(phone string, msg models.Message) error {
	_, err := s.db.Exec(
		`INSERT INTO messages (phone, body, role, template_id, has_template, message_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		phone, msg.Body, msg.Role, nilIfEmpty(msg.TemplateID), msg.HasTemplate, msg.MessageState, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message for %s: %w", phone, err)
	}
	return nil
}

func (s *SQLiteStore) CreateRestaurant(r models.Restaurant) error {
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
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET legal_name = excluded.legal_name, name = excluded.name,
		   contacts = excluded.contacts, payment = excluded.payment, updated_at = excluded.updated_at`,
		r.ID, r.LegalID, r.LegalName, r.Name, contacts, payment, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save restaurant %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) SaveSupplier(sp models.Supplier) error {
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
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET whatsapp = excluded.whatsapp, name = excluded.name,
		   category = excluded.category, reminders = excluded.reminders,
		   products = excluded.products, updated_at = excluded.updated_at`,
		sp.ID, sp.RestaurantID, sp.WhatsApp, sp.Name, category, reminders, products, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save supplier %s: %w", sp.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSupplier(id string) (*models.Supplier, error) {
	row := s.db.QueryRow(
		`SELECT id, restaurant_id, whatsapp, name, category, reminders, products, created_at, updated_at
		 FROM suppliers WHERE id = ?`, id)

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

func (s *SQLiteStore) UpdateSupplierProduct(supplierID string, p models.ProductSpec) error {
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
		`UPDATE suppliers SET products = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		products, supplierID)
	if err != nil {
		return fmt.Errorf("failed to update supplier %s products: %w", supplierID, err)
	}
	return nil
}

func (s *SQLiteStore) AddInventorySnapshot(snap models.InventorySnapshot) error {
	items, err := marshalField(snap.Items)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot items: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO inventory_snapshots (id, restaurant_id, category, items, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.RestaurantID, snap.Category, items, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert inventory snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (s *SQLiteStore) AddOrder(o models.Order) error {
	items, err := marshalField(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO orders (id, restaurant_id, supplier_id, items, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET items = excluded.items, status = excluded.status,
		   updated_at = excluded.updated_at`,
		o.ID, o.RestaurantID, o.SupplierID, items, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateOrderStatus(orderID string, status models.OrderStatus) error {
	_, err := s.db.Exec(
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order %s status: %w", orderID, err)
	}
	return nil
}

func (s *SQLiteStore) AddDelivery(d models.Delivery) error {
	items, err := marshalField(d.Items)
	if err != nil {
		return fmt.Errorf("failed to encode delivery items: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO deliveries (id, order_id, items, invoice_url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.OrderID, items, nilIfEmpty(d.InvoiceURL), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery %s: %w", d.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
