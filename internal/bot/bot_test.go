package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/dispatch"
	"github.com/ordersuite/orderflow/internal/flow"
	"github.com/ordersuite/orderflow/internal/messaging"
	"github.com/ordersuite/orderflow/internal/models"
	"github.com/ordersuite/orderflow/internal/store"
)

func newTestBot(t *testing.T) (*Bot, *store.InMemoryStore, *messaging.MockService) {
	t.Helper()
	cfg := config.Default()
	table := flow.NewTable(cfg)
	require.NoError(t, table.Validate())

	st := store.NewInMemoryStore()
	svc := messaging.NewMockService()
	engine := flow.NewEngine(cfg, table)
	dispatcher := dispatch.NewDispatcher(cfg, st, svc)
	return New(cfg, engine, st, dispatcher), st, svc
}

func say(t *testing.T, b *Bot, phone, body string) HandleResult {
	t.Helper()
	result, err := b.HandleMessage(context.Background(), models.InboundMessage{From: phone, Body: body})
	require.NoError(t, err)
	return result
}

func TestHandleMessageRejectsInvalidPhone(t *testing.T) {
	b, _, _ := newTestBot(t)
	_, err := b.HandleMessage(context.Background(), models.InboundMessage{From: "123", Body: "hi"})
	assert.Error(t, err)
}

func TestHandleMessageCanonicalizesPhone(t *testing.T) {
	b, st, _ := newTestBot(t)

	result := say(t, b, "whatsapp:+972 50-123-4567", "hi")
	assert.Equal(t, models.StateOnboardingCompanyName, result.NewState)

	conv, err := st.GetConversation("972501234567")
	require.NoError(t, err)
	require.NotNil(t, conv, "conversation keyed by canonical phone")
}

func TestFullConversationLifecycle(t *testing.T) {
	b, st, _ := newTestBot(t)
	phone := "972501234567"

	steps := []struct {
		input string
		want  models.StateType
	}{
		// Onboarding.
		{"hi", models.StateOnboardingCompanyName},
		{"Acme Foods Ltd", models.StateOnboardingLegalID},
		{"123456789", models.StateOnboardingRestaurantName},
		{"Bistro Aroma", models.StateOnboardingContactName},
		{"Dana", models.StateOnboardingContactEmail},
		{"dana@acme.com", models.StateOnboardingPaymentMethod},
		{"trial", models.StateSetupSuppliersStart},
		// Supplier setup.
		{"ready", models.StateSupplierCategory},
		{"vegetables", models.StateSupplierContact},
		{`{"name":"Green Farms","whatsapp":"0501234567"}`, models.StateSupplierDeliveryDays},
		{"sun_wed", models.StateSupplierCutoffTime},
		{"14:00", models.StateSupplierProductList},
		{"tomatoes, cucumbers", models.StateSupplierProductBaseQty},
		{"10", models.StateSupplierProductBaseQty},
		{"5", models.StateSupplierSetupMore},
		{"done", models.StateIdle},
		// Inventory count into an order.
		{"inventory", models.StateInventoryStart},
		{"go", models.StateInventoryCategory},
		{"vegetables", models.StateInventoryCountProduct},
		{"4", models.StateInventoryCountProduct},
		{"7", models.StateInventoryConfirm},
		{"confirm", models.StateInventoryCalculate},
		{"order_now", models.StateOrderConfirm},
		{"send", models.StateOrderSent},
		{"ok", models.StateIdle},
		// Delivery reconciliation.
		{"delivery", models.StateDeliveryStart},
		{"go", models.StateDeliveryCheckItem},
		{"no", models.StateDeliveryShortageAmount},
		{"3", models.StateDeliveryInvoicePhoto},
		{"skip", models.StateDeliveryDone},
		{"thanks", models.StateIdle},
	}
	for _, step := range steps {
		result := say(t, b, phone, step.input)
		require.Equal(t, step.want, result.NewState, "after input %q", step.input)
		require.NotEmpty(t, result.Responses, "every turn answers the user (input %q)", step.input)
	}

	// Every entity from the conversation is persisted.
	restaurant, ok := st.GetRestaurant("rest-123456789")
	require.True(t, ok, "restaurant persisted")
	assert.Equal(t, "Bistro Aroma", restaurant.Name)

	supplier, err := st.GetSupplier("sup-0501234567")
	require.NoError(t, err)
	require.NotNil(t, supplier, "supplier persisted")
	assert.Len(t, supplier.Products, 2)

	require.Len(t, st.Snapshots(), 1)
	assert.Equal(t, "vegetables", st.Snapshots()[0].Category)

	order, ok := st.GetOrder("ord-rest-123456789-1")
	require.True(t, ok, "order persisted")
	assert.Equal(t, models.OrderStatusDelivered, order.Status, "delivery closes the order")

	deliveries := st.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "ord-rest-123456789-1", deliveries[0].OrderID)
	require.Len(t, deliveries[0].Items, 1, "single-shortage delivery logs the shorted line")
	assert.Equal(t, 3.0, deliveries[0].Items[0].ReceivedQty)

	// The message log holds both sides of the conversation.
	conv, err := st.GetConversation(phone)
	require.NoError(t, err)
	var userMsgs, botMsgs int
	for _, m := range conv.Messages {
		switch m.Role {
		case models.RoleUser:
			userMsgs++
		case models.RoleBot:
			botMsgs++
		}
	}
	assert.Equal(t, len(steps), userMsgs)
	assert.GreaterOrEqual(t, botMsgs, len(steps))
}

func TestInvalidInputDoesNotAdvance(t *testing.T) {
	b, _, _ := newTestBot(t)
	phone := "972501234567"

	say(t, b, phone, "hi")
	say(t, b, phone, "Acme Foods Ltd")

	result := say(t, b, phone, "not-a-legal-id")
	assert.Equal(t, models.StateOnboardingLegalID, result.NewState)
	require.Len(t, result.Responses, 1)
	assert.Contains(t, result.Responses[0].Body, "9 digits")

	result = say(t, b, phone, "123456789")
	assert.Equal(t, models.StateOnboardingRestaurantName, result.NewState)
}

func TestConcurrentMessagesSamePhoneStayConsistent(t *testing.T) {
	b, st, _ := newTestBot(t)
	phone := "972501234567"
	say(t, b, phone, "hi")

	// Concurrent company-name answers; per-phone locking serializes them, so
	// exactly one advances the state and the rest are folded in sequence.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.HandleMessage(context.Background(), models.InboundMessage{From: phone, Body: "Acme Foods Ltd"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	conv, err := st.GetConversation(phone)
	require.NoError(t, err)
	require.NotNil(t, conv)
	// 1 greeting + 10 answers, no lost updates.
	var userMsgs int
	for _, m := range conv.Messages {
		if m.Role == models.RoleUser {
			userMsgs++
		}
	}
	assert.Equal(t, 11, userMsgs)
}

func TestGetConversationValidatesPhone(t *testing.T) {
	b, _, _ := newTestBot(t)
	_, err := b.GetConversation("abc")
	assert.Error(t, err)
}
