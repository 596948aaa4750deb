package models

import "errors"

// ActionType tags a BotAction with the side effect it requests.
type ActionType string

const (
	ActionSendMessage             ActionType = "SEND_MESSAGE"
	ActionCreateRestaurant        ActionType = "CREATE_RESTAURANT"
	ActionCreateSupplier          ActionType = "CREATE_SUPPLIER"
	ActionUpdateSupplier          ActionType = "UPDATE_SUPPLIER"
	ActionUpdateProduct           ActionType = "UPDATE_PRODUCT"
	ActionCreateInventorySnapshot ActionType = "CREATE_INVENTORY_SNAPSHOT"
	ActionSendOrder               ActionType = "SEND_ORDER"
	ActionLogDelivery             ActionType = "LOG_DELIVERY"
)

// IsValidActionType checks if the given action type is supported.
func IsValidActionType(at ActionType) bool {
	switch at {
	case ActionSendMessage, ActionCreateRestaurant, ActionCreateSupplier,
		ActionUpdateSupplier, ActionUpdateProduct, ActionCreateInventorySnapshot,
		ActionSendOrder, ActionLogDelivery:
		return true
	default:
		return false
	}
}

// Sentinel errors for action payload validation.
var (
	ErrInvalidActionType  = errors.New("invalid action type")
	ErrMissingPayload     = errors.New("action payload is missing")
	ErrEmptyRecipient     = errors.New("recipient cannot be empty")
	ErrEmptyMessageBody   = errors.New("message body and template are both empty")
	ErrMissingLegalID     = errors.New("legal id is required")
	ErrMissingLegalName   = errors.New("legal name is required")
	ErrMissingName        = errors.New("name is required")
	ErrMissingRestaurant  = errors.New("restaurant id is required")
	ErrMissingSupplier    = errors.New("supplier id is required")
	ErrMissingWhatsApp    = errors.New("supplier whatsapp number is required")
	ErrMissingCategory    = errors.New("category is required")
	ErrEmptyItems         = errors.New("items list cannot be empty")
	ErrMissingOrder       = errors.New("order id is required")
	ErrNegativeQuantity   = errors.New("quantity cannot be negative")
	ErrMissingContextKey  = errors.New("required context field is missing")
	ErrUnknownState       = errors.New("unknown conversation state")
	ErrUndefinedNextState = errors.New("state has no transition map")
)

// BotAction is one declared side effect emitted by the transition engine and
// executed by the dispatcher. Exactly one payload field is set, matching Type.
type BotAction struct {
	Type              ActionType                `json:"type"`
	SendMessage       *SendMessagePayload       `json:"send_message,omitempty"`
	CreateRestaurant  *CreateRestaurantPayload  `json:"create_restaurant,omitempty"`
	Supplier          *SupplierPayload          `json:"supplier,omitempty"`
	UpdateProduct     *UpdateProductPayload     `json:"update_product,omitempty"`
	InventorySnapshot *InventorySnapshotPayload `json:"inventory_snapshot,omitempty"`
	SendOrder         *SendOrderPayload         `json:"send_order,omitempty"`
	LogDelivery       *LogDeliveryPayload       `json:"log_delivery,omitempty"`
}

// SendMessagePayload carries an outbound message: plain body, structured
// template, or both (body as fallback for gateways without template support).
type SendMessagePayload struct {
	To       string    `json:"to"`
	Body     string    `json:"body,omitempty"`
	Template *Template `json:"template,omitempty"`
}

// ContactInfo is a named contact on a restaurant record.
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PaymentInfo captures the selected payment provider and its status.
type PaymentInfo struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

// CreateRestaurantPayload creates the restaurant entity at the end of
// onboarding.
type CreateRestaurantPayload struct {
	LegalID   string        `json:"legal_id"`
	LegalName string        `json:"legal_name"`
	Name      string        `json:"name"`
	Contacts  []ContactInfo `json:"contacts"`
	Payment   PaymentInfo   `json:"payment"`
}

// ReminderSpec describes a recurring delivery/cutoff reminder for a supplier.
type ReminderSpec struct {
	Days []int  `json:"days"` // weekday indices 0-6, Sunday first
	Time string `json:"time,omitempty"`
}

// ProductSpec is one product carried by a supplier.
type ProductSpec struct {
	Name    string  `json:"name"`
	Emoji   string  `json:"emoji,omitempty"`
	Unit    string  `json:"unit,omitempty"`
	BaseQty float64 `json:"base_qty,omitempty"`
}

// SupplierPayload is shared by CREATE_SUPPLIER and UPDATE_SUPPLIER.
type SupplierPayload struct {
	RestaurantID string         `json:"restaurant_id"`
	WhatsApp     string         `json:"whatsapp"`
	Name         string         `json:"name"`
	Category     []string       `json:"category"`
	Reminders    []ReminderSpec `json:"reminders"`
	Products     []ProductSpec  `json:"products"`
}

// UpdateProductPayload updates a single product on a supplier.
type UpdateProductPayload struct {
	RestaurantID string      `json:"restaurant_id"`
	SupplierID   string      `json:"supplier_id"`
	Product      ProductSpec `json:"product"`
}

// InventoryItem is one counted product in a snapshot.
type InventoryItem struct {
	ProductName string  `json:"product_name"`
	CurrentQty  float64 `json:"current_qty"`
	BaseQty     float64 `json:"base_qty,omitempty"`
	ShortageQty float64 `json:"shortage_qty,omitempty"`
}

// InventorySnapshotPayload records a point-in-time inventory count.
type InventorySnapshotPayload struct {
	RestaurantID string          `json:"restaurant_id"`
	Category     string          `json:"category"`
	Items        []InventoryItem `json:"items"`
}

// OrderItem is one line on an outgoing order.
type OrderItem struct {
	ProductName string  `json:"product_name"`
	Qty         float64 `json:"qty"`
	Unit        string  `json:"unit,omitempty"`
}

// SendOrderPayload sends an order to a supplier. OrderID is assigned by the
// engine so later delivery logging can reference it.
type SendOrderPayload struct {
	OrderID      string      `json:"order_id,omitempty"`
	RestaurantID string      `json:"restaurant_id"`
	SupplierID   string      `json:"supplier_id"`
	Items        []OrderItem `json:"items"`
}

// DeliveryItem records the received amount for one ordered line.
type DeliveryItem struct {
	ProductName string  `json:"product_name"`
	OrderedQty  float64 `json:"ordered_qty"`
	ReceivedQty float64 `json:"received_qty"`
}

// LogDeliveryPayload reconciles a delivery against its order.
type LogDeliveryPayload struct {
	OrderID    string         `json:"order_id"`
	Items      []DeliveryItem `json:"items"`
	InvoiceURL string         `json:"invoice_url,omitempty"`
}

// Validate checks the action's payload against its type's schema. It is run
// both when the engine constructs the action and again by the dispatcher
// immediately before effect.
func (a *BotAction) Validate() error {
	if !IsValidActionType(a.Type) {
		return ErrInvalidActionType
	}
	switch a.Type {
	case ActionSendMessage:
		return a.SendMessage.validate()
	case ActionCreateRestaurant:
		return a.CreateRestaurant.validate()
	case ActionCreateSupplier, ActionUpdateSupplier:
		return a.Supplier.validate()
	case ActionUpdateProduct:
		return a.UpdateProduct.validate()
	case ActionCreateInventorySnapshot:
		return a.InventorySnapshot.validate()
	case ActionSendOrder:
		return a.SendOrder.validate()
	case ActionLogDelivery:
		return a.LogDelivery.validate()
	}
	return nil
}

func (p *SendMessagePayload) validate() error {
	if p == nil {
		return ErrMissingPayload
	}
	if p.To == "" {
		return ErrEmptyRecipient
	}
	if p.Body == "" && p.Template == nil {
		return ErrEmptyMessageBody
	}
	return nil
}

func (p *CreateRestaurantPayload) validate() error {
	if p == nil {
		return ErrMissingPayload
	}
	if p.LegalID == "" {
		return ErrMissingLegalID
	}
	if p.LegalName == "" {
		return ErrMissingLegalName
	}
	if p.Name == "" {
		return ErrMissingName
	}
	return nil
}

func (p *SupplierPayload) validate() error {
	if p == nil {
		return ErrMissingPayload
	}
	if p.RestaurantID == "" {
		return ErrMissingRestaurant
	}
	if p.WhatsApp == "" {
		return ErrMissingWhatsApp
	}
	if p.Name == "" {
		return ErrMissingName
	}
	if len(p.Category) == 0 {
		return ErrMissingCategory
	}
	return nil
}

func (p *UpdateProductPayload) validate() error {
	if p == nil {
		return ErrMissingPayload
	}
	if p.RestaurantID == "" {
		return ErrMissingRestaurant
	}
	if p.SupplierID == "" {
		return ErrMissingSupplier
	}
	if p.Product.Name == "" {
		return ErrMissingName
	}
	if p.Product.BaseQty < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

func (p *InventorySnapshotPayload) validate() error {
	if p == nil {
		return ErrMissingPayload
	}
	if p.RestaurantID == "" {
		return ErrMissingRestaurant
	}
	if p.Category == "" {
		return ErrMissingCategory
	}
	if len(p.Items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range p.Items {
		if it.CurrentQty < 0 {
			return ErrNegativeQuantity
		}
	}
	return nil
}

func (p *SendOrderPayload) validate() error {
	if p == nil {
		return ErrMissingPayload
	}
	if p.RestaurantID == "" {
		return ErrMissingRestaurant
	}
	if p.SupplierID == "" {
		return ErrMissingSupplier
	}
	if len(p.Items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range p.Items {
		if it.Qty < 0 {
			return ErrNegativeQuantity
		}
	}
	return nil
}

func (p *LogDeliveryPayload) validate() error {
	if p == nil {
		return ErrMissingPayload
	}
	if p.OrderID == "" {
		return ErrMissingOrder
	}
	if len(p.Items) == 0 {
		return ErrEmptyItems
	}
	return nil
}
