package models

import "time"

// Restaurant is the business entity created at the end of onboarding.
type Restaurant struct {
	ID        string        `json:"id"`
	LegalID   string        `json:"legal_id"`
	LegalName string        `json:"legal_name"`
	Name      string        `json:"name"`
	Contacts  []ContactInfo `json:"contacts"`
	Payment   PaymentInfo   `json:"payment"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Supplier is a vendor attached to a restaurant.
type Supplier struct {
	ID           string         `json:"id"`
	RestaurantID string         `json:"restaurant_id"`
	WhatsApp     string         `json:"whatsapp"`
	Name         string         `json:"name"`
	Category     []string       `json:"category"`
	Reminders    []ReminderSpec `json:"reminders"`
	Products     []ProductSpec  `json:"products"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// InventorySnapshot is a point-in-time count of a category's products.
type InventorySnapshot struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurant_id"`
	Category     string          `json:"category"`
	Items        []InventoryItem `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusDelivered OrderStatus = "delivered"
)

// Order is one order sent to a supplier.
type Order struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurant_id"`
	SupplierID   string      `json:"supplier_id"`
	Items        []OrderItem `json:"items"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Delivery is the reconciliation record for a received order.
type Delivery struct {
	ID         string         `json:"id"`
	OrderID    string         `json:"order_id"`
	Items      []DeliveryItem `json:"items"`
	InvoiceURL string         `json:"invoice_url,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
