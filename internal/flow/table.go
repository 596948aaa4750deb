package flow

import (
	"fmt"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/models"
)

// TransitionEdge maps a normalized validation outcome token to a target
// state. Edges are ordered so the "first declared entry" fallback is
// deterministic.
type TransitionEdge struct {
	Outcome string
	Target  models.StateType
}

// Callback folds validated data into the conversation context. It may return
// an outcome token to drive the transition (loop states use this to signal
// "more" vs "done"); an empty return means the validated data itself decides.
type Callback func(ctx models.Context, data any) string

// StateDef is the declarative behavior of one state: the outbound prompt, how
// input is validated, how validated data folds into context, which action to
// emit, and where to go next.
type StateDef struct {
	State models.StateType

	// Prompt is the outbound text sent when this state becomes current.
	// {placeholder} tokens are substituted from context.
	Template *models.Template
	Prompt   string

	// Validator is the schema path; AI, when set, is preferred whenever an
	// extraction backend is configured. Both nil means any non-empty text.
	Validator *ValidatorSpec
	AI        *AISpec

	// ValidationMessage is resent on validation failure. Empty falls back to
	// the configured generic rejection text.
	ValidationMessage string

	Callback Callback

	// Action names the side effect emitted on a successful transition.
	// ActionOn, when set, restricts emission to that outcome token.
	Action   models.ActionType
	ActionOn string

	Transitions []TransitionEdge
}

// next resolves an outcome token against the ordered transition list.
func (d *StateDef) next(outcome string) (models.StateType, bool) {
	for _, e := range d.Transitions {
		if e.Outcome == outcome {
			return e.Target, true
		}
	}
	return "", false
}

// Table is the read-only registry of all state definitions, populated once at
// startup and safely shared across concurrent invocations.
type Table struct {
	defs map[models.StateType]*StateDef
}

// Get looks up the definition for a state.
func (t *Table) Get(state models.StateType) (*StateDef, bool) {
	def, ok := t.defs[state]
	return def, ok
}

// Validate checks table closure: every state definition belongs to the closed
// state set and every transition target resolves to a defined state. Run at
// startup and in tests.
func (t *Table) Validate() error {
	for state, def := range t.defs {
		if !models.IsValidState(state) {
			return fmt.Errorf("table contains unknown state %s", state)
		}
		for _, e := range def.Transitions {
			if _, ok := t.defs[e.Target]; !ok {
				return fmt.Errorf("state %s: transition %q targets undefined state %s", state, e.Outcome, e.Target)
			}
		}
	}
	return nil
}

// NewTable builds the full conversation state table from the bot
// configuration. The table is plain data; all control flow lives in the
// engine.
func NewTable(cfg config.Bot) *Table {
	defs := []*StateDef{
		{
			State:  models.StateInit,
			Prompt: "Hi! I'm your kitchen assistant. Send any message and we'll get your restaurant set up.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateOnboardingCompanyName},
			},
		},
		{
			State:             models.StateOnboardingCompanyName,
			Prompt:            "Welcome! Let's register your business. What is your company's registered legal name?",
			Validator:         &ValidatorSpec{Kind: KindText},
			ValidationMessage: "Please send your company's legal name as text.",
			Callback:          setString(ctxCompanyName),
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateOnboardingLegalID},
			},
		},
		{
			State:             models.StateOnboardingLegalID,
			Prompt:            "Thanks! What is the company's legal id? (9 digits)",
			Validator:         &ValidatorSpec{Kind: KindLegalID},
			ValidationMessage: "A legal id is exactly 9 digits, e.g. 123456789. Please try again.",
			Callback:          onLegalID,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateOnboardingRestaurantName},
			},
		},
		{
			State:             models.StateOnboardingRestaurantName,
			Prompt:            "What is the restaurant's name?",
			Validator:         &ValidatorSpec{Kind: KindText},
			ValidationMessage: "Please send the restaurant's name as text.",
			Callback:          setString(ctxRestaurantName),
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateOnboardingContactName},
			},
		},
		{
			State:             models.StateOnboardingContactName,
			Prompt:            "Who should we contact for {restaurantName}? Send the contact person's full name.",
			Validator:         &ValidatorSpec{Kind: KindText},
			ValidationMessage: "Please send the contact person's name as text.",
			Callback:          setString(ctxContactName),
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateOnboardingContactEmail},
			},
		},
		{
			State:             models.StateOnboardingContactEmail,
			Prompt:            "Thanks {contactName}! What's the best email address for invoices and summaries?",
			Validator:         &ValidatorSpec{Kind: KindEmail},
			ValidationMessage: "That doesn't look like an email address. Please try again, e.g. name@company.com.",
			Callback:          setString(ctxContactEmail),
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateOnboardingPaymentMethod},
			},
		},
		{
			State:    models.StateOnboardingPaymentMethod,
			Template: paymentTemplate(cfg),
			Prompt:   "Almost done! How would you like to pay?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: paymentOptionIDs(cfg),
			},
			ValidationMessage: "Please choose one of the payment options.",
			Callback:          onPaymentMethod,
			Action:            models.ActionCreateRestaurant,
			Transitions: []TransitionEdge{
				{Outcome: "credit_card", Target: models.StateWaitingForPayment},
				{Outcome: "trial", Target: models.StateSetupSuppliersStart},
			},
		},
		{
			State:  models.StateWaitingForPayment,
			Prompt: "We've sent a payment link to {contactEmail}. I'll pick things up automatically once payment completes. Have a coupon? Send it here.",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{cfg.SkipCouponToken},
			},
			ValidationMessage: "Still waiting on the payment. If you have a coupon, send it here and we'll continue right away.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateSetupSuppliersStart},
			},
		},
		{
			State:  models.StateSetupSuppliersStart,
			Prompt: "You're in, {contactName}! Time to add your suppliers so I can build orders for you. Send any message when you're ready.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateSupplierCategory},
			},
		},
		{
			State:    models.StateSupplierCategory,
			Template: categoryTemplate(cfg, "supplier_category", "Which category does this supplier cover?"),
			Prompt:   "Which category does this supplier cover?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: cfg.SupplierCategories,
			},
			ValidationMessage: "Please pick one of the listed categories.",
			Callback:          onSupplierCategory,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateSupplierContact},
			},
		},
		{
			State:  models.StateSupplierContact,
			Prompt: "Who is the supplier? Send their name and WhatsApp number in one message, e.g. \"Green Farms, 0501234567\".",
			AI: &AISpec{
				Instruction: "Extract the supplier's business name and WhatsApp phone number from the user's message. The user describes a produce supplier in free text, possibly with extra detail.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":     map[string]any{"type": "string"},
						"whatsapp": map[string]any{"type": "string"},
					},
					"required":             []string{"name", "whatsapp"},
					"additionalProperties": false,
				},
			},
			Validator: &ValidatorSpec{
				Kind:   KindObject,
				Fields: []string{"name", "whatsapp"},
			},
			ValidationMessage: "I need both a name and a WhatsApp number, e.g. \"Green Farms, 0501234567\".",
			Callback:          onSupplierContact,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateSupplierDeliveryDays},
			},
		},
		{
			State:    models.StateSupplierDeliveryDays,
			Template: deliveryDaysTemplate(),
			Prompt:   "Which days does this supplier deliver?",
			Validator: &ValidatorSpec{
				Kind: KindDays,
				Enum: []string{"sun_wed", "mon_thu", "tue_fri", "weekdays", "daily"},
			},
			ValidationMessage: "Pick one of the options, or send days like \"sunday, wednesday\".",
			Callback:          onSupplierDays,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateSupplierCutoffTime},
			},
		},
		{
			State:             models.StateSupplierCutoffTime,
			Prompt:            "Until what time can you send orders the day before delivery? (HH:MM)",
			Validator:         &ValidatorSpec{Kind: KindTime},
			ValidationMessage: "Please send a time like 14:00.",
			Callback:          onSupplierCutoff,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateSupplierProductList},
			},
		},
		{
			State:  models.StateSupplierProductList,
			Prompt: "What products do you buy from this supplier? List them in one message, e.g. \"tomatoes, cucumbers, onions\".",
			AI: &AISpec{
				Instruction: "Extract the list of products the restaurant buys from this supplier. Each product has a name and, when mentioned, a unit of measure. Users often send irregular lists with quantities, units or commentary mixed in.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"products": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"name": map[string]any{"type": "string"},
									"unit": map[string]any{"type": "string"},
								},
								"required":             []string{"name"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"products"},
					"additionalProperties": false,
				},
			},
			Validator:         &ValidatorSpec{Kind: KindArray},
			ValidationMessage: "Please list the products separated by commas.",
			Callback:          onSupplierProducts,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateSupplierProductBaseQty},
			},
		},
		{
			State:             models.StateSupplierProductBaseQty,
			Prompt:            "How much {currentProduct} do you keep as base stock for a full week?",
			Validator:         &ValidatorSpec{Kind: KindNumber},
			ValidationMessage: "Please send a non-negative number.",
			Callback:          onProductBaseQty,
			Transitions: []TransitionEdge{
				{Outcome: "more", Target: models.StateSupplierProductBaseQty},
				{Outcome: "done", Target: models.StateSupplierSetupMore},
			},
		},
		{
			State:    models.StateSupplierSetupMore,
			Template: yesNoTemplate("supplier_more", "Supplier saved! Add another supplier?", "add_more", "Add another", "done", "I'm done"),
			Prompt:   "Supplier saved! Add another supplier?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{"add_more", "done"},
			},
			ValidationMessage: "Reply \"add_more\" to add another supplier, or \"done\" to finish.",
			Callback:          onSupplierDone,
			Action:            models.ActionCreateSupplier,
			Transitions: []TransitionEdge{
				{Outcome: "add_more", Target: models.StateSupplierCategory},
				{Outcome: "done", Target: models.StateIdle},
			},
		},
		{
			State:    models.StateIdle,
			Template: idleMenuTemplate(),
			Prompt:   "What would you like to do next?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{"inventory", "order", "supplier", "delivery", "help", "reset"},
			},
			ValidationMessage: "Please choose one of the menu options.",
			Callback:          onIdleChoice,
			Transitions: []TransitionEdge{
				{Outcome: "inventory", Target: models.StateInventoryStart},
				{Outcome: "order", Target: models.StateOrderStart},
				{Outcome: "supplier", Target: models.StateSupplierCategory},
				{Outcome: "delivery", Target: models.StateDeliveryStart},
				{Outcome: "no_order", Target: models.StateIdle},
				{Outcome: "help", Target: models.StateHelp},
				{Outcome: "reset", Target: models.StateResetConfirm},
			},
		},
		{
			State: models.StateHelp,
			Prompt: "Here's what I can do:\n" +
				"• inventory — count what you have and I'll compute what's missing\n" +
				"• order — build and send an order to a supplier\n" +
				"• supplier — add another supplier\n" +
				"• delivery — check a delivery against its order\n" +
				"Send any message to go back to the menu.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateIdle},
			},
		},
		{
			State:  models.StateInventoryStart,
			Prompt: "Time to count inventory! Grab your clipboard and send any message when you're ready.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateInventoryCategory},
			},
		},
		{
			State:    models.StateInventoryCategory,
			Template: categoryTemplate(cfg, "inventory_category", "Which category are we counting?"),
			Prompt:   "Which category are we counting?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: cfg.SupplierCategories,
			},
			ValidationMessage: "Please pick one of the listed categories.",
			Callback:          onInventoryCategory,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateInventoryCountProduct},
				{Outcome: "empty", Target: models.StateIdle},
			},
		},
		{
			State:             models.StateInventoryCountProduct,
			Prompt:            "How many {currentProduct} do you currently have?",
			Validator:         &ValidatorSpec{Kind: KindNumber},
			ValidationMessage: "Please send a non-negative number.",
			Callback:          onInventoryCount,
			Transitions: []TransitionEdge{
				{Outcome: "more", Target: models.StateInventoryCountProduct},
				{Outcome: "done", Target: models.StateInventoryConfirm},
			},
		},
		{
			State:    models.StateInventoryConfirm,
			Template: yesNoTemplate("inventory_confirm", "Here's what I counted:\n{inventorySummary}\nIs that right?", "confirm", "Looks right", "redo", "Count again"),
			Prompt:   "Here's what I counted:\n{inventorySummary}\nIs that right?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{"confirm", "redo"},
			},
			ValidationMessage: "Reply \"confirm\" if the count is right, or \"redo\" to count again.",
			Callback:          onInventoryConfirm,
			Action:            models.ActionCreateInventorySnapshot,
			ActionOn:          "confirm",
			Transitions: []TransitionEdge{
				{Outcome: "confirm", Target: models.StateInventoryCalculate},
				{Outcome: "redo", Target: models.StateInventoryCategory},
			},
		},
		{
			State:    models.StateInventoryCalculate,
			Template: yesNoTemplate("inventory_calculate", "Based on your base stock you're missing:\n{shortageSummary}\nWant me to turn that into an order?", "order_now", "Order now", "later", "Maybe later"),
			Prompt:   "Based on your base stock you're missing:\n{shortageSummary}\nWant me to turn that into an order?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{"order_now", "later"},
			},
			ValidationMessage: "Reply \"order_now\" to build the order, or \"later\" to go back to the menu.",
			Transitions: []TransitionEdge{
				{Outcome: "order_now", Target: models.StateOrderConfirm},
				{Outcome: "later", Target: models.StateIdle},
			},
		},
		{
			State:             models.StateOrderStart,
			Prompt:            "Which supplier is this order for?\n{supplierMenu}\nSend the number or the supplier's name.",
			Validator:         &ValidatorSpec{Kind: KindText},
			ValidationMessage: "Please send the supplier's number from the list, or its name.",
			Callback:          onOrderSupplier,
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateOrderBuild},
				{Outcome: "unknown", Target: models.StateOrderStart},
				{Outcome: "empty", Target: models.StateIdle},
			},
		},
		{
			State:  models.StateOrderBuild,
			Prompt: "Draft order for {orderSupplierName}:\n{orderSummary}\nSend changes like \"tomatoes 5\", or \"done\" when it looks good.",
			AI: &AISpec{
				Instruction: "The user is adjusting a draft order. Extract the product adjustments as a list of {name, qty} pairs, or done=true if the user approves the draft as is.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"done": map[string]any{"type": "boolean"},
						"changes": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"name": map[string]any{"type": "string"},
									"qty":  map[string]any{"type": "number"},
								},
								"required":             []string{"name", "qty"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []string{"done"},
					"additionalProperties": false,
				},
			},
			Validator:         &ValidatorSpec{Kind: KindOrderLine},
			ValidationMessage: "Send a change like \"tomatoes 5\", or \"done\" to continue.",
			Callback:          onOrderBuild,
			Transitions: []TransitionEdge{
				{Outcome: "more", Target: models.StateOrderBuild},
				{Outcome: "done", Target: models.StateOrderConfirm},
			},
		},
		{
			State:    models.StateOrderConfirm,
			Template: yesNoTemplate("order_confirm", "Final order for {orderSupplierName}:\n{orderSummary}\nSend it?", "send", "Send it", "cancel", "Cancel"),
			Prompt:   "Final order for {orderSupplierName}:\n{orderSummary}\nSend it?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{"send", "cancel"},
			},
			ValidationMessage: "Reply \"send\" to send the order, or \"cancel\" to discard it.",
			Callback:          onOrderConfirm,
			Action:            models.ActionSendOrder,
			ActionOn:          "send",
			Transitions: []TransitionEdge{
				{Outcome: "send", Target: models.StateOrderSent},
				{Outcome: "cancel", Target: models.StateIdle},
			},
		},
		{
			State:  models.StateOrderSent,
			Prompt: "Order {orderId} sent to {orderSupplierName}! When the delivery arrives, pick \"delivery\" from the menu and we'll check it together. Send any message to continue.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateIdle},
			},
		},
		{
			State:  models.StateDeliveryStart,
			Prompt: "Let's check the delivery for order {orderId}. I'll go item by item. Send any message to start.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateDeliveryCheckItem},
			},
		},
		{
			State:    models.StateDeliveryCheckItem,
			Template: yesNoTemplate("delivery_check", "Did {currentDeliveryItem} arrive in full ({orderedQty})?", "yes", "All there", "no", "Short"),
			Prompt:   "Did {currentDeliveryItem} arrive in full ({orderedQty})?",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{"yes", "no"},
			},
			ValidationMessage: "Reply \"yes\" if it all arrived, or \"no\" if something is missing.",
			Callback:          onDeliveryCheck,
			Transitions: []TransitionEdge{
				{Outcome: "short", Target: models.StateDeliveryShortageAmount},
				{Outcome: "more", Target: models.StateDeliveryCheckItem},
				{Outcome: "done", Target: models.StateDeliveryInvoicePhoto},
			},
		},
		{
			State:             models.StateDeliveryShortageAmount,
			Prompt:            "How much {currentDeliveryItem} actually arrived?",
			Validator:         &ValidatorSpec{Kind: KindNumber},
			ValidationMessage: "Please send a non-negative number.",
			Callback:          onDeliveryShortage,
			Transitions: []TransitionEdge{
				{Outcome: "more", Target: models.StateDeliveryCheckItem},
				{Outcome: "done", Target: models.StateDeliveryInvoicePhoto},
			},
		},
		{
			State:             models.StateDeliveryInvoicePhoto,
			Prompt:            "Almost done — send a photo of the invoice, or type \"skip\".",
			ValidationMessage: "Send an invoice photo, or type \"skip\".",
			Callback:          onDeliveryInvoice,
			Action:            models.ActionLogDelivery,
			Transitions: []TransitionEdge{
				{Outcome: "skip", Target: models.StateDeliveryDone},
				{Outcome: "ok", Target: models.StateDeliveryDone},
			},
		},
		{
			State:  models.StateDeliveryDone,
			Prompt: "Delivery logged. {shortageReport}Send any message to go back to the menu.",
			Transitions: []TransitionEdge{
				{Outcome: "ok", Target: models.StateIdle},
			},
		},
		{
			State:  models.StateResetConfirm,
			Prompt: "This will clear your current registration and start over. Your suppliers and orders stay saved. Reply \"yes\" to confirm, anything else to cancel.",
			Validator: &ValidatorSpec{
				Kind: KindEnum,
				Enum: []string{"yes", "no"},
			},
			ValidationMessage: "Reply \"yes\" to start over, or \"no\" to keep everything as is.",
			Transitions: []TransitionEdge{
				{Outcome: "yes", Target: models.StateInit},
				{Outcome: "no", Target: models.StateIdle},
			},
		},
	}

	table := &Table{defs: make(map[models.StateType]*StateDef, len(defs))}
	for _, def := range defs {
		table.defs[def.State] = def
	}
	return table
}

func paymentOptionIDs(cfg config.Bot) []string {
	ids := make([]string, len(cfg.PaymentOptions))
	for i, opt := range cfg.PaymentOptions {
		ids[i] = opt.ID
	}
	return ids
}

func paymentTemplate(cfg config.Bot) *models.Template {
	opts := make([]models.TemplateOption, len(cfg.PaymentOptions))
	for i, p := range cfg.PaymentOptions {
		opts[i] = models.TemplateOption{Label: p.Label, ID: p.ID}
	}
	return &models.Template{
		ID:      "payment_method",
		Type:    "buttons",
		Body:    "Almost done! How would you like to pay?",
		Options: opts,
	}
}

func categoryTemplate(cfg config.Bot, id, body string) *models.Template {
	opts := make([]models.TemplateOption, len(cfg.SupplierCategories))
	for i, c := range cfg.SupplierCategories {
		opts[i] = models.TemplateOption{Label: c, ID: c}
	}
	return &models.Template{ID: id, Type: "list", Body: body, Options: opts}
}

func deliveryDaysTemplate() *models.Template {
	return &models.Template{
		ID:   "delivery_days",
		Type: "list",
		Body: "Which days does this supplier deliver?",
		Options: []models.TemplateOption{
			{Label: "Sunday + Wednesday", ID: "sun_wed"},
			{Label: "Monday + Thursday", ID: "mon_thu"},
			{Label: "Tuesday + Friday", ID: "tue_fri"},
			{Label: "Every weekday", ID: "weekdays"},
			{Label: "Every day", ID: "daily"},
		},
		Header: "You can also send days like \"sunday, wednesday\".",
	}
}

func yesNoTemplate(id, body, yesID, yesLabel, noID, noLabel string) *models.Template {
	return &models.Template{
		ID:   id,
		Type: "buttons",
		Body: body,
		Options: []models.TemplateOption{
			{Label: yesLabel, ID: yesID},
			{Label: noLabel, ID: noID},
		},
	}
}

func idleMenuTemplate() *models.Template {
	return &models.Template{
		ID:   "idle_menu",
		Type: "list",
		Body: "What would you like to do next?",
		Options: []models.TemplateOption{
			{Label: "Count inventory", ID: "inventory"},
			{Label: "New order", ID: "order"},
			{Label: "Add a supplier", ID: "supplier"},
			{Label: "Check a delivery", ID: "delivery"},
			{Label: "Help", ID: "help"},
		},
	}
}
