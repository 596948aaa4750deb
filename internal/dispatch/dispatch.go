// Package dispatch executes the actions the transition engine declares:
// outbound messages through the messaging service and entity writes through
// the store.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/messaging"
	"github.com/ordersuite/orderflow/internal/models"
	"github.com/ordersuite/orderflow/internal/store"
)

// Dispatcher runs declared actions sequentially, in order. A failed action is
// logged and apologized for, and the remaining actions still run; the
// conversation state was already persisted, so the user simply retries the
// step's effect on their next message.
type Dispatcher struct {
	cfg    config.Bot
	store  store.Store
	msgSvc messaging.Service
}

// NewDispatcher builds a dispatcher over the given store and messaging
// service.
func NewDispatcher(cfg config.Bot, st store.Store, svc messaging.Service) *Dispatcher {
	return &Dispatcher{cfg: cfg, store: st, msgSvc: svc}
}

// Dispatch executes all actions for one processed inbound message. It
// returns the SEND_MESSAGE payloads delivered to the user, which simulation
// mode echoes back in the HTTP response.
func (d *Dispatcher) Dispatch(ctx context.Context, phone string, actions []models.BotAction) []models.SendMessagePayload {
	var sent []models.SendMessagePayload
	// At most one apology per dispatched batch, even when several actions
	// fail; every failure is still logged individually.
	apologized := false
	for _, action := range actions {
		payload, err := d.dispatchOne(ctx, phone, action)
		if payload != nil {
			sent = append(sent, *payload)
		}
		if err != nil {
			slog.Error("Dispatcher.Dispatch: action failed",
				"phone", phone, "action", action.Type, "error", err)
			if !apologized {
				apologized = true
				if aerr := d.msgSvc.SendMessage(ctx, phone, d.cfg.ApologyText); aerr == nil {
					sent = append(sent, models.SendMessagePayload{To: phone, Body: d.cfg.ApologyText})
				}
			}
		}
	}
	return sent
}

func (d *Dispatcher) dispatchOne(ctx context.Context, phone string, action models.BotAction) (*models.SendMessagePayload, error) {
	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("payload validation: %w", err)
	}

	switch action.Type {
	case models.ActionSendMessage:
		return d.sendMessage(ctx, action.SendMessage)
	case models.ActionCreateRestaurant:
		return nil, d.createRestaurant(action.CreateRestaurant)
	case models.ActionCreateSupplier, models.ActionUpdateSupplier:
		return nil, d.saveSupplier(action.Supplier)
	case models.ActionUpdateProduct:
		return nil, d.store.UpdateSupplierProduct(action.UpdateProduct.SupplierID, action.UpdateProduct.Product)
	case models.ActionCreateInventorySnapshot:
		return nil, d.createSnapshot(action.InventorySnapshot)
	case models.ActionSendOrder:
		return nil, d.sendOrder(ctx, action.SendOrder)
	case models.ActionLogDelivery:
		return nil, d.logDelivery(action.LogDelivery)
	}
	return nil, fmt.Errorf("%w: %s", models.ErrInvalidActionType, action.Type)
}

func (d *Dispatcher) sendMessage(ctx context.Context, p *models.SendMessagePayload) (*models.SendMessagePayload, error) {
	var err error
	if p.Template != nil {
		err = d.msgSvc.SendTemplate(ctx, p.To, p.Template)
	} else {
		err = d.msgSvc.SendMessage(ctx, p.To, p.Body)
	}

	state := models.MessageStateSent
	if err != nil {
		state = models.MessageStateFailed
	}
	logEntry := models.Message{
		Body:         p.Body,
		Role:         models.RoleBot,
		CreatedAt:    time.Now(),
		MessageState: state,
	}
	if p.Template != nil {
		logEntry.TemplateID = p.Template.ID
		logEntry.HasTemplate = true
	}
	if lerr := d.store.AddMessage(p.To, logEntry); lerr != nil {
		slog.Warn("Dispatcher.sendMessage: failed to log outbound message",
			"to", p.To, "error", lerr)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Dispatcher) createRestaurant(p *models.CreateRestaurantPayload) error {
	now := time.Now()
	return d.store.CreateRestaurant(models.Restaurant{
		ID:        "rest-" + p.LegalID,
		LegalID:   p.LegalID,
		LegalName: p.LegalName,
		Name:      p.Name,
		Contacts:  p.Contacts,
		Payment:   p.Payment,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (d *Dispatcher) saveSupplier(p *models.SupplierPayload) error {
	now := time.Now()
	return d.store.SaveSupplier(models.Supplier{
		ID:           "sup-" + p.WhatsApp,
		RestaurantID: p.RestaurantID,
		WhatsApp:     p.WhatsApp,
		Name:         p.Name,
		Category:     p.Category,
		Reminders:    p.Reminders,
		Products:     p.Products,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (d *Dispatcher) createSnapshot(p *models.InventorySnapshotPayload) error {
	return d.store.AddInventorySnapshot(models.InventorySnapshot{
		ID:           uuid.NewString(),
		RestaurantID: p.RestaurantID,
		Category:     p.Category,
		Items:        p.Items,
		CreatedAt:    time.Now(),
	})
}

// sendOrder persists the order and forwards it as a WhatsApp message to the
// supplier. The supplier message is best effort; the order record is the
// source of truth.
func (d *Dispatcher) sendOrder(ctx context.Context, p *models.SendOrderPayload) error {
	orderID := p.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	now := time.Now()
	if err := d.store.AddOrder(models.Order{
		ID:           orderID,
		RestaurantID: p.RestaurantID,
		SupplierID:   p.SupplierID,
		Items:        p.Items,
		Status:       models.OrderStatusSent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}

	supplier, err := d.store.GetSupplier(p.SupplierID)
	if err != nil || supplier == nil {
		slog.Warn("Dispatcher.sendOrder: supplier not found, skipping supplier notification",
			"supplier_id", p.SupplierID, "error", err)
		return nil
	}
	if serr := d.msgSvc.SendMessage(ctx, supplier.WhatsApp, formatOrderText(supplier.Name, p.Items)); serr != nil {
		slog.Warn("Dispatcher.sendOrder: failed to notify supplier",
			"supplier_id", p.SupplierID, "error", serr)
	}
	return nil
}

func (d *Dispatcher) logDelivery(p *models.LogDeliveryPayload) error {
	if err := d.store.AddDelivery(models.Delivery{
		ID:         uuid.NewString(),
		OrderID:    p.OrderID,
		Items:      p.Items,
		InvoiceURL: p.InvoiceURL,
		CreatedAt:  time.Now(),
	}); err != nil {
		return err
	}
	return d.store.UpdateOrderStatus(p.OrderID, models.OrderStatusDelivered)
}

func formatOrderText(supplierName string, items []models.OrderItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order for %s:\n", supplierName)
	for _, it := range items {
		if it.Unit != "" {
			fmt.Fprintf(&b, "• %s: %g %s\n", it.ProductName, it.Qty, it.Unit)
		} else {
			fmt.Fprintf(&b, "• %s: %g\n", it.ProductName, it.Qty)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
