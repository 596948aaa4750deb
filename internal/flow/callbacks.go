package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ordersuite/orderflow/internal/models"
)

// Entity ids referenced from context must be derivable without I/O so the
// reducer stays pure: restaurant and supplier ids are computed from stable
// business keys, order ids from a context-held counter.

func setString(key string) Callback {
	return func(ctx models.Context, data any) string {
		if s, ok := data.(string); ok {
			ctx[key] = s
		}
		return ""
	}
}

func onLegalID(ctx models.Context, data any) string {
	id, _ := data.(string)
	ctx[ctxLegalID] = id
	ctx[ctxRestaurantID] = "rest-" + id
	return ""
}

func onPaymentMethod(ctx models.Context, data any) string {
	method, _ := data.(string)
	ctx[ctxPaymentMethod] = method
	if method == "trial" {
		ctx[ctxPaymentStatus] = "trial"
	} else {
		ctx[ctxPaymentStatus] = "pending"
	}
	return ""
}

func onSupplierCategory(ctx models.Context, data any) string {
	category, _ := data.(string)
	ctx[ctxSupplier] = map[string]any{
		"category": []any{category},
	}
	return ""
}

func onSupplierContact(ctx models.Context, data any) string {
	obj, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	supplier := ctx.Map(ctxSupplier)
	if supplier == nil {
		supplier = map[string]any{}
		ctx[ctxSupplier] = supplier
	}
	name, _ := obj["name"].(string)
	whatsapp, _ := obj["whatsapp"].(string)
	digits := digitsRegex.ReplaceAllString(whatsapp, "")
	supplier["name"] = strings.TrimSpace(name)
	supplier["whatsapp"] = digits
	supplier["id"] = "sup-" + digits
	return ""
}

func onSupplierDays(ctx models.Context, data any) string {
	supplier := ctx.Map(ctxSupplier)
	if supplier == nil {
		return ""
	}
	if days, ok := data.([]any); ok {
		supplier["days"] = days
	}
	return ""
}

func onSupplierCutoff(ctx models.Context, data any) string {
	supplier := ctx.Map(ctxSupplier)
	if supplier == nil {
		return ""
	}
	if cutoff, ok := data.(string); ok {
		supplier["cutoff"] = cutoff
	}
	return ""
}

// onSupplierProducts normalizes both input shapes, the AI extractor's
// {products: [{name, unit}]} object and the schema fallback's plain list,
// into the supplier's product array, and seeds the base-quantity loop.
func onSupplierProducts(ctx models.Context, data any) string {
	supplier := ctx.Map(ctxSupplier)
	if supplier == nil {
		return ""
	}

	var raw []any
	switch v := data.(type) {
	case map[string]any:
		raw, _ = v["products"].([]any)
	case []any:
		raw = v
	}

	var products []any
	var queue []any
	for _, item := range raw {
		var name, unit string
		switch p := item.(type) {
		case string:
			name = strings.TrimSpace(p)
		case map[string]any:
			name, _ = p["name"].(string)
			unit, _ = p["unit"].(string)
			name = strings.TrimSpace(name)
		}
		if name == "" {
			continue
		}
		products = append(products, map[string]any{"name": name, "unit": unit})
		queue = append(queue, name)
	}
	if len(products) == 0 {
		return ""
	}

	supplier["products"] = products
	ctx[ctxProductQueue] = queue
	ctx[ctxCurrentProduct] = queue[0]
	return ""
}

func onProductBaseQty(ctx models.Context, data any) string {
	qty, _ := data.(float64)
	queue := ctx.Slice(ctxProductQueue)
	if len(queue) == 0 {
		return "done"
	}
	current, _ := queue[0].(string)

	if supplier := ctx.Map(ctxSupplier); supplier != nil {
		if products, ok := supplier["products"].([]any); ok {
			for _, item := range products {
				if p, ok := item.(map[string]any); ok && p["name"] == current {
					p["baseQty"] = qty
				}
			}
		}
	}

	queue = queue[1:]
	ctx[ctxProductQueue] = queue
	if len(queue) > 0 {
		ctx[ctxCurrentProduct] = queue[0]
		return "more"
	}
	delete(ctx, ctxCurrentProduct)
	return "done"
}

func onSupplierDone(ctx models.Context, data any) string {
	supplier := ctx.Map(ctxSupplier)
	if supplier != nil {
		suppliers := ctx.Slice(ctxSuppliers)
		suppliers = append(suppliers, supplier)
		ctx[ctxSuppliers] = suppliers
		ctx[ctxLastSupplier] = supplier
	}
	delete(ctx, ctxSupplier)
	delete(ctx, ctxProductQueue)
	return ""
}

// onIdleChoice prepares the context for the chosen flow before the target
// state's prompt renders.
func onIdleChoice(ctx models.Context, data any) string {
	choice, _ := data.(string)
	switch choice {
	case "order":
		ctx[ctxSupplierMenu] = renderSupplierMenu(ctx)
	case "delivery":
		if !seedDeliveryQueue(ctx) {
			return "no_order"
		}
	}
	return ""
}

func renderSupplierMenu(ctx models.Context) string {
	var b strings.Builder
	for i, item := range ctx.Slice(ctxSuppliers) {
		s, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := s["name"].(string)
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	if b.Len() == 0 {
		return "(no suppliers yet — pick \"supplier\" from the menu to add one)"
	}
	return strings.TrimRight(b.String(), "\n")
}

// seedDeliveryQueue stages the current order's items for item-by-item
// checking. It reports false when there is no order with items to check
// against, so the menu can refuse the delivery flow instead of entering it
// with nothing to reconcile.
func seedDeliveryQueue(ctx models.Context) bool {
	order := ctx.Map(ctxOrder)
	if order == nil {
		return false
	}
	items, _ := order["items"].([]any)
	queue := make([]any, 0, len(items))
	for _, item := range items {
		if it, ok := item.(map[string]any); ok {
			queue = append(queue, map[string]any{
				"name": it["name"],
				"qty":  it["qty"],
			})
		}
	}
	if len(queue) == 0 {
		return false
	}
	ctx[ctxDeliveryQueue] = queue
	ctx[ctxDeliveryItems] = []any{}
	setCurrentDeliveryItem(ctx, queue[0])
	return true
}

func setCurrentDeliveryItem(ctx models.Context, item any) {
	it, ok := item.(map[string]any)
	if !ok {
		return
	}
	ctx[ctxCurrentDeliveryItem] = it["name"]
	ctx[ctxOrderedQty] = it["qty"]
}

func onInventoryCategory(ctx models.Context, data any) string {
	category, _ := data.(string)
	ctx[ctxInventoryCategory] = category

	var queue []any
	for _, item := range ctx.Slice(ctxSuppliers) {
		supplier, ok := item.(map[string]any)
		if !ok || !supplierHasCategory(supplier, category) {
			continue
		}
		products, _ := supplier["products"].([]any)
		for _, pi := range products {
			if p, ok := pi.(map[string]any); ok {
				queue = append(queue, map[string]any{
					"name":    p["name"],
					"baseQty": p["baseQty"],
				})
			}
		}
	}
	if len(queue) == 0 {
		return "empty"
	}

	ctx[ctxProductQueue] = queue
	ctx[ctxInventoryItems] = []any{}
	if head, ok := queue[0].(map[string]any); ok {
		ctx[ctxCurrentProduct] = head["name"]
	}
	return ""
}

func supplierHasCategory(supplier map[string]any, category string) bool {
	cats, _ := supplier["category"].([]any)
	for _, c := range cats {
		if c == category {
			return true
		}
	}
	return false
}

func onInventoryCount(ctx models.Context, data any) string {
	qty, _ := data.(float64)
	queue := ctx.Slice(ctxProductQueue)
	if len(queue) == 0 {
		return "done"
	}
	head, _ := queue[0].(map[string]any)
	base, _ := head["baseQty"].(float64)

	items := ctx.Slice(ctxInventoryItems)
	shortage := base - qty
	if shortage < 0 {
		shortage = 0
	}
	items = append(items, map[string]any{
		"name":     head["name"],
		"qty":      qty,
		"baseQty":  base,
		"shortage": shortage,
	})
	ctx[ctxInventoryItems] = items

	queue = queue[1:]
	ctx[ctxProductQueue] = queue
	if len(queue) > 0 {
		if next, ok := queue[0].(map[string]any); ok {
			ctx[ctxCurrentProduct] = next["name"]
		}
		return "more"
	}

	delete(ctx, ctxCurrentProduct)
	finishInventoryCount(ctx)
	return "done"
}

// finishInventoryCount renders the count and shortage summaries and stages an
// order draft from the shortages, so INVENTORY_CALCULATE can hand off
// directly to ORDER_CONFIRM.
func finishInventoryCount(ctx models.Context) {
	var countLines, shortLines strings.Builder
	var draftItems []any
	for _, item := range ctx.Slice(ctxInventoryItems) {
		it, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := it["name"].(string)
		qty, _ := it["qty"].(float64)
		shortage, _ := it["shortage"].(float64)
		fmt.Fprintf(&countLines, "• %s: %s\n", name, formatQty(qty))
		if shortage > 0 {
			fmt.Fprintf(&shortLines, "• %s: %s\n", name, formatQty(shortage))
			draftItems = append(draftItems, map[string]any{"name": name, "qty": shortage})
		}
	}
	ctx[ctxInventorySummary] = strings.TrimRight(countLines.String(), "\n")
	if shortLines.Len() == 0 {
		ctx[ctxShortageSummary] = "nothing — you're fully stocked!"
	} else {
		ctx[ctxShortageSummary] = strings.TrimRight(shortLines.String(), "\n")
	}

	category := ctx.String(ctxInventoryCategory)
	supplierID, supplierName := supplierForCategory(ctx, category)
	ctx[ctxOrder] = map[string]any{
		"supplierId": supplierID,
		"items":      draftItems,
	}
	ctx[ctxOrderSupplierName] = supplierName
	ctx[ctxOrderSummary] = renderOrderSummary(draftItems)
}

func supplierForCategory(ctx models.Context, category string) (id, name string) {
	for _, item := range ctx.Slice(ctxSuppliers) {
		if s, ok := item.(map[string]any); ok && supplierHasCategory(s, category) {
			id, _ = s["id"].(string)
			name, _ = s["name"].(string)
			return id, name
		}
	}
	return "", ""
}

func onInventoryConfirm(ctx models.Context, data any) string {
	if choice, _ := data.(string); choice == "redo" {
		delete(ctx, ctxInventoryItems)
		delete(ctx, ctxProductQueue)
	}
	return ""
}

func onOrderSupplier(ctx models.Context, data any) string {
	suppliers := ctx.Slice(ctxSuppliers)
	if len(suppliers) == 0 {
		return "empty"
	}
	input, _ := data.(string)
	input = strings.TrimSpace(input)

	var chosen map[string]any
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(suppliers) {
		chosen, _ = suppliers[n-1].(map[string]any)
	} else {
		needle := strings.ToLower(input)
		for _, item := range suppliers {
			s, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := s["name"].(string)
			if strings.Contains(strings.ToLower(name), needle) {
				chosen = s
				break
			}
		}
	}
	if chosen == nil {
		ctx[ctxSupplierMenu] = renderSupplierMenu(ctx)
		return "unknown"
	}

	supplierID, _ := chosen["id"].(string)
	name, _ := chosen["name"].(string)
	products, _ := chosen["products"].([]any)
	var items []any
	for _, pi := range products {
		p, ok := pi.(map[string]any)
		if !ok {
			continue
		}
		base, _ := p["baseQty"].(float64)
		items = append(items, map[string]any{"name": p["name"], "qty": base})
	}

	ctx[ctxOrder] = map[string]any{"supplierId": supplierID, "items": items}
	ctx[ctxOrderSupplierName] = name
	ctx[ctxOrderSummary] = renderOrderSummary(items)
	return ""
}

func onOrderBuild(ctx models.Context, data any) string {
	order := ctx.Map(ctxOrder)
	if order == nil {
		return "done"
	}
	items, _ := order["items"].([]any)

	switch v := data.(type) {
	case string:
		if v == "done" {
			return "done"
		}
	case map[string]any:
		// AI extraction shape: {done, changes}; schema shape: {name, qty}.
		if done, ok := v["done"].(bool); ok {
			if changes, ok := v["changes"].([]any); ok {
				for _, ch := range changes {
					if c, ok := ch.(map[string]any); ok {
						items = applyOrderChange(items, c)
					}
				}
			}
			order["items"] = items
			ctx[ctxOrderSummary] = renderOrderSummary(items)
			if done {
				return "done"
			}
			return "more"
		}
		items = applyOrderChange(items, v)
		order["items"] = items
		ctx[ctxOrderSummary] = renderOrderSummary(items)
	}
	return "more"
}

func applyOrderChange(items []any, change map[string]any) []any {
	name, _ := change["name"].(string)
	qty, _ := change["qty"].(float64)
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, item := range items {
		if it, ok := item.(map[string]any); ok {
			existing, _ := it["name"].(string)
			if strings.ToLower(existing) == needle {
				it["qty"] = qty
				return items
			}
		}
	}
	return append(items, map[string]any{"name": name, "qty": qty})
}

func renderOrderSummary(items []any) string {
	var b strings.Builder
	for _, item := range items {
		it, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := it["name"].(string)
		qty, _ := it["qty"].(float64)
		fmt.Fprintf(&b, "• %s: %s\n", name, formatQty(qty))
	}
	if b.Len() == 0 {
		return "(empty)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func onOrderConfirm(ctx models.Context, data any) string {
	choice, _ := data.(string)
	if choice != "send" {
		return ""
	}
	order := ctx.Map(ctxOrder)
	if order == nil {
		return ""
	}
	// A retried send reuses the id already minted for this draft.
	if id, _ := order["id"].(string); id != "" {
		ctx[ctxOrderID] = id
		return ""
	}
	restaurantID := ctx.String(ctxRestaurantID)
	if restaurantID == "" {
		return ""
	}
	counter, _ := ctx.Number(ctxOrderCounter)
	counter++
	ctx[ctxOrderCounter] = counter
	id := fmt.Sprintf("ord-%s-%d", restaurantID, int(counter))
	order["id"] = id
	ctx[ctxOrderID] = id
	return ""
}

func onDeliveryCheck(ctx models.Context, data any) string {
	choice, _ := data.(string)
	if choice == "no" {
		return "short"
	}
	queue := ctx.Slice(ctxDeliveryQueue)
	if len(queue) == 0 {
		return "done"
	}
	head, _ := queue[0].(map[string]any)
	ordered, _ := head["qty"].(float64)
	return recordDeliveryItem(ctx, ordered)
}

func onDeliveryShortage(ctx models.Context, data any) string {
	received, _ := data.(float64)
	return recordDeliveryItem(ctx, received)
}

// recordDeliveryItem records the received amount for the head of the delivery
// queue and advances it, building the shortage report once the queue drains.
func recordDeliveryItem(ctx models.Context, received float64) string {
	queue := ctx.Slice(ctxDeliveryQueue)
	if len(queue) == 0 {
		return "done"
	}
	head, _ := queue[0].(map[string]any)
	ordered, _ := head["qty"].(float64)

	items := ctx.Slice(ctxDeliveryItems)
	items = append(items, map[string]any{
		"name":     head["name"],
		"ordered":  ordered,
		"received": received,
	})
	ctx[ctxDeliveryItems] = items

	queue = queue[1:]
	ctx[ctxDeliveryQueue] = queue
	if len(queue) > 0 {
		setCurrentDeliveryItem(ctx, queue[0])
		return "more"
	}

	delete(ctx, ctxCurrentDeliveryItem)
	delete(ctx, ctxOrderedQty)
	ctx[ctxShortageReport] = renderShortageReport(items)
	return "done"
}

func renderShortageReport(items []any) string {
	var b strings.Builder
	for _, item := range items {
		it, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ordered, _ := it["ordered"].(float64)
		received, _ := it["received"].(float64)
		if received < ordered {
			name, _ := it["name"].(string)
			fmt.Fprintf(&b, "• %s: got %s of %s\n", name, formatQty(received), formatQty(ordered))
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "Shortages recorded:\n" + b.String()
}

func onDeliveryInvoice(ctx models.Context, data any) string {
	value, _ := data.(string)
	if normalizeToken(value) != "skip" {
		ctx[ctxInvoiceURL] = value
	}
	return ""
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
