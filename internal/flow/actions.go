package flow

import (
	"fmt"

	"github.com/ordersuite/orderflow/internal/models"
)

// buildAction materializes an entity action from the conversation context.
// Every required context field missing is a construction error; the engine
// converts those into an apology instead of dispatching a half-built action.
func buildAction(at models.ActionType, phone string, ctx models.Context) (models.BotAction, error) {
	var (
		action models.BotAction
		err    error
	)
	switch at {
	case models.ActionCreateRestaurant:
		action, err = buildCreateRestaurant(phone, ctx)
	case models.ActionCreateSupplier, models.ActionUpdateSupplier:
		action, err = buildSupplier(at, ctx)
	case models.ActionUpdateProduct:
		action, err = buildUpdateProduct(ctx)
	case models.ActionCreateInventorySnapshot:
		action, err = buildInventorySnapshot(ctx)
	case models.ActionSendOrder:
		action, err = buildSendOrder(ctx)
	case models.ActionLogDelivery:
		action, err = buildLogDelivery(ctx)
	default:
		return models.BotAction{}, fmt.Errorf("buildAction: %w: %s", models.ErrInvalidActionType, at)
	}
	if err != nil {
		return models.BotAction{}, err
	}
	if err := action.Validate(); err != nil {
		return models.BotAction{}, fmt.Errorf("buildAction: %s payload invalid: %w", at, err)
	}
	return action, nil
}

func requireString(ctx models.Context, key string) (string, error) {
	s := ctx.String(key)
	if s == "" {
		return "", fmt.Errorf("%w: %s", models.ErrMissingContextKey, key)
	}
	return s, nil
}

func buildCreateRestaurant(phone string, ctx models.Context) (models.BotAction, error) {
	legalID, err := requireString(ctx, ctxLegalID)
	if err != nil {
		return models.BotAction{}, err
	}
	legalName, err := requireString(ctx, ctxCompanyName)
	if err != nil {
		return models.BotAction{}, err
	}
	name, err := requireString(ctx, ctxRestaurantName)
	if err != nil {
		return models.BotAction{}, err
	}
	return models.BotAction{
		Type: models.ActionCreateRestaurant,
		CreateRestaurant: &models.CreateRestaurantPayload{
			LegalID:   legalID,
			LegalName: legalName,
			Name:      name,
			Contacts: []models.ContactInfo{{
				Name:  ctx.String(ctxContactName),
				Email: ctx.String(ctxContactEmail),
				Phone: phone,
			}},
			Payment: models.PaymentInfo{
				Provider: ctx.String(ctxPaymentMethod),
				Status:   ctx.String(ctxPaymentStatus),
			},
		},
	}, nil
}

func buildSupplier(at models.ActionType, ctx models.Context) (models.BotAction, error) {
	restaurantID, err := requireString(ctx, ctxRestaurantID)
	if err != nil {
		return models.BotAction{}, err
	}
	supplier := ctx.Map(ctxLastSupplier)
	if supplier == nil {
		return models.BotAction{}, fmt.Errorf("%w: %s", models.ErrMissingContextKey, ctxLastSupplier)
	}

	name, _ := supplier["name"].(string)
	whatsapp, _ := supplier["whatsapp"].(string)

	var category []string
	if cats, ok := supplier["category"].([]any); ok {
		for _, c := range cats {
			if s, ok := c.(string); ok {
				category = append(category, s)
			}
		}
	}

	var reminders []models.ReminderSpec
	if days, ok := supplier["days"].([]any); ok {
		spec := models.ReminderSpec{Time: supplierCutoff(supplier)}
		for _, d := range days {
			if f, ok := d.(float64); ok {
				spec.Days = append(spec.Days, int(f))
			}
		}
		if len(spec.Days) > 0 {
			reminders = append(reminders, spec)
		}
	}

	return models.BotAction{
		Type: at,
		Supplier: &models.SupplierPayload{
			RestaurantID: restaurantID,
			WhatsApp:     whatsapp,
			Name:         name,
			Category:     category,
			Reminders:    reminders,
			Products:     supplierProducts(supplier),
		},
	}, nil
}

func supplierCutoff(supplier map[string]any) string {
	cutoff, _ := supplier["cutoff"].(string)
	return cutoff
}

func supplierProducts(supplier map[string]any) []models.ProductSpec {
	raw, _ := supplier["products"].([]any)
	var products []models.ProductSpec
	for _, item := range raw {
		p, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		unit, _ := p["unit"].(string)
		baseQty, _ := p["baseQty"].(float64)
		products = append(products, models.ProductSpec{
			Name:    name,
			Unit:    unit,
			BaseQty: baseQty,
		})
	}
	return products
}

func buildUpdateProduct(ctx models.Context) (models.BotAction, error) {
	restaurantID, err := requireString(ctx, ctxRestaurantID)
	if err != nil {
		return models.BotAction{}, err
	}
	supplier := ctx.Map(ctxLastSupplier)
	if supplier == nil {
		return models.BotAction{}, fmt.Errorf("%w: %s", models.ErrMissingContextKey, ctxLastSupplier)
	}
	supplierID, _ := supplier["id"].(string)
	target, err := requireString(ctx, ctxCurrentProduct)
	if err != nil {
		return models.BotAction{}, err
	}
	for _, p := range supplierProducts(supplier) {
		if p.Name == target {
			return models.BotAction{
				Type: models.ActionUpdateProduct,
				UpdateProduct: &models.UpdateProductPayload{
					RestaurantID: restaurantID,
					SupplierID:   supplierID,
					Product:      p,
				},
			}, nil
		}
	}
	return models.BotAction{}, fmt.Errorf("%w: %s", models.ErrMissingContextKey, ctxCurrentProduct)
}

func buildInventorySnapshot(ctx models.Context) (models.BotAction, error) {
	restaurantID, err := requireString(ctx, ctxRestaurantID)
	if err != nil {
		return models.BotAction{}, err
	}
	category, err := requireString(ctx, ctxInventoryCategory)
	if err != nil {
		return models.BotAction{}, err
	}

	var items []models.InventoryItem
	for _, entry := range ctx.Slice(ctxInventoryItems) {
		it, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := it["name"].(string)
		qty, _ := it["qty"].(float64)
		base, _ := it["baseQty"].(float64)
		shortage, _ := it["shortage"].(float64)
		items = append(items, models.InventoryItem{
			ProductName: name,
			CurrentQty:  qty,
			BaseQty:     base,
			ShortageQty: shortage,
		})
	}
	if len(items) == 0 {
		return models.BotAction{}, fmt.Errorf("%w: %s", models.ErrMissingContextKey, ctxInventoryItems)
	}

	return models.BotAction{
		Type: models.ActionCreateInventorySnapshot,
		InventorySnapshot: &models.InventorySnapshotPayload{
			RestaurantID: restaurantID,
			Category:     category,
			Items:        items,
		},
	}, nil
}

func buildSendOrder(ctx models.Context) (models.BotAction, error) {
	restaurantID, err := requireString(ctx, ctxRestaurantID)
	if err != nil {
		return models.BotAction{}, err
	}
	order := ctx.Map(ctxOrder)
	if order == nil {
		return models.BotAction{}, fmt.Errorf("%w: %s", models.ErrMissingContextKey, ctxOrder)
	}
	supplierID, _ := order["supplierId"].(string)

	var items []models.OrderItem
	if raw, ok := order["items"].([]any); ok {
		for _, entry := range raw {
			it, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			name, _ := it["name"].(string)
			qty, _ := it["qty"].(float64)
			unit, _ := it["unit"].(string)
			items = append(items, models.OrderItem{ProductName: name, Qty: qty, Unit: unit})
		}
	}
	if len(items) == 0 {
		return models.BotAction{}, fmt.Errorf("%w: %s", models.ErrMissingContextKey, ctxOrder)
	}

	return models.BotAction{
		Type: models.ActionSendOrder,
		SendOrder: &models.SendOrderPayload{
			OrderID:      ctx.String(ctxOrderID),
			RestaurantID: restaurantID,
			SupplierID:   supplierID,
			Items:        items,
		},
	}, nil
}

func buildLogDelivery(ctx models.Context) (models.BotAction, error) {
	orderID, err := requireString(ctx, ctxOrderID)
	if err != nil {
		return models.BotAction{}, err
	}

	var items []models.DeliveryItem
	for _, entry := range ctx.Slice(ctxDeliveryItems) {
		it, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := it["name"].(string)
		ordered, _ := it["ordered"].(float64)
		received, _ := it["received"].(float64)
		items = append(items, models.DeliveryItem{
			ProductName: name,
			OrderedQty:  ordered,
			ReceivedQty: received,
		})
	}
	if len(items) == 0 {
		return models.BotAction{}, fmt.Errorf("%w: %s", models.ErrMissingContextKey, ctxDeliveryItems)
	}

	return models.BotAction{
		Type: models.ActionLogDelivery,
		LogDelivery: &models.LogDeliveryPayload{
			OrderID:    orderID,
			Items:      items,
			InvoiceURL: ctx.String(ctxInvoiceURL),
		},
	}, nil
}
