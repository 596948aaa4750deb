package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/messaging"
	"github.com/ordersuite/orderflow/internal/models"
	"github.com/ordersuite/orderflow/internal/store"
)

const testPhone = "972501234567"

func newTestDispatcher() (*Dispatcher, *store.InMemoryStore, *messaging.MockService) {
	st := store.NewInMemoryStore()
	svc := messaging.NewMockService()
	return NewDispatcher(config.Default(), st, svc), st, svc
}

func sendMessageAction(body string) models.BotAction {
	return models.BotAction{
		Type: models.ActionSendMessage,
		SendMessage: &models.SendMessagePayload{
			To:   testPhone,
			Body: body,
		},
	}
}

func TestDispatchSendMessageLogsOutbound(t *testing.T) {
	d, st, svc := newTestDispatcher()
	conv := models.NewConversation(testPhone)
	if err := st.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	sent := d.Dispatch(context.Background(), testPhone, []models.BotAction{
		sendMessageAction("Welcome!"),
	})
	if len(sent) != 1 || sent[0].Body != "Welcome!" {
		t.Errorf("unexpected sent payloads %v", sent)
	}
	if records := svc.Sent(); len(records) != 1 || records[0].Body != "Welcome!" {
		t.Errorf("unexpected gateway records %v", records)
	}

	got, _ := st.GetConversation(testPhone)
	if len(got.Messages) != 1 {
		t.Fatalf("expected outbound message logged, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != models.RoleBot || got.Messages[0].MessageState != models.MessageStateSent {
		t.Errorf("unexpected logged message %+v", got.Messages[0])
	}
}

func TestDispatchTemplateGoesThroughSendTemplate(t *testing.T) {
	d, st, svc := newTestDispatcher()
	_ = st.SaveConversation(models.NewConversation(testPhone))

	tpl := &models.Template{
		ID:   "idle_menu",
		Type: "list",
		Body: "What next?",
		Options: []models.TemplateOption{
			{Label: "Count inventory", ID: "inventory"},
		},
	}
	sent := d.Dispatch(context.Background(), testPhone, []models.BotAction{{
		Type:        models.ActionSendMessage,
		SendMessage: &models.SendMessagePayload{To: testPhone, Body: "What next?", Template: tpl},
	}})

	records := svc.Sent()
	if len(records) != 1 || records[0].Template == nil {
		t.Fatalf("expected template send, got %v", records)
	}
	if len(sent) != 1 || sent[0].Template == nil || sent[0].Template.ID != "idle_menu" {
		t.Errorf("returned payload must carry the template, got %v", sent)
	}
	got, _ := st.GetConversation(testPhone)
	if len(got.Messages) != 1 || !got.Messages[0].HasTemplate || got.Messages[0].TemplateID != "idle_menu" {
		t.Errorf("template metadata not logged: %+v", got.Messages)
	}
}

func TestDispatchCreateRestaurant(t *testing.T) {
	d, st, _ := newTestDispatcher()

	d.Dispatch(context.Background(), testPhone, []models.BotAction{{
		Type: models.ActionCreateRestaurant,
		CreateRestaurant: &models.CreateRestaurantPayload{
			LegalID:   "123456789",
			LegalName: "Acme Foods Ltd",
			Name:      "Bistro Aroma",
			Contacts:  []models.ContactInfo{{Name: "Dana", Phone: testPhone}},
			Payment:   models.PaymentInfo{Provider: "trial", Status: "trial"},
		},
	}})

	r, ok := st.GetRestaurant("rest-123456789")
	if !ok {
		t.Fatal("restaurant not persisted")
	}
	if r.LegalName != "Acme Foods Ltd" || r.Name != "Bistro Aroma" {
		t.Errorf("unexpected restaurant %+v", r)
	}
}

func TestDispatchSendOrderNotifiesSupplier(t *testing.T) {
	d, st, svc := newTestDispatcher()
	_ = st.SaveSupplier(models.Supplier{
		ID:           "sup-0501234567",
		RestaurantID: "rest-123456789",
		WhatsApp:     "0501234567",
		Name:         "Green Farms",
		Category:     []string{"vegetables"},
	})

	d.Dispatch(context.Background(), testPhone, []models.BotAction{{
		Type: models.ActionSendOrder,
		SendOrder: &models.SendOrderPayload{
			OrderID:      "ord-rest-123456789-1",
			RestaurantID: "rest-123456789",
			SupplierID:   "sup-0501234567",
			Items:        []models.OrderItem{{ProductName: "tomatoes", Qty: 6}},
		},
	}})

	order, ok := st.GetOrder("ord-rest-123456789-1")
	if !ok {
		t.Fatal("order not persisted")
	}
	if order.Status != models.OrderStatusSent {
		t.Errorf("expected status sent, got %s", order.Status)
	}

	records := svc.Sent()
	if len(records) != 1 {
		t.Fatalf("expected supplier notification, got %v", records)
	}
	if records[0].To != "0501234567" || !strings.Contains(records[0].Body, "tomatoes: 6") {
		t.Errorf("unexpected supplier message %+v", records[0])
	}
}

func TestDispatchSendOrderWithoutSupplierStillPersists(t *testing.T) {
	d, st, svc := newTestDispatcher()

	sent := d.Dispatch(context.Background(), testPhone, []models.BotAction{{
		Type: models.ActionSendOrder,
		SendOrder: &models.SendOrderPayload{
			OrderID:      "ord-rest-123456789-1",
			RestaurantID: "rest-123456789",
			SupplierID:   "sup-unknown",
			Items:        []models.OrderItem{{ProductName: "tomatoes", Qty: 6}},
		},
	}})

	if _, ok := st.GetOrder("ord-rest-123456789-1"); !ok {
		t.Error("order must persist even when the supplier record is missing")
	}
	if len(svc.Sent()) != 0 || len(sent) != 0 {
		t.Errorf("expected no outbound messages, got %v / %v", svc.Sent(), sent)
	}
}

func TestDispatchLogDeliveryMarksOrderDelivered(t *testing.T) {
	d, st, _ := newTestDispatcher()
	_ = st.AddOrder(models.Order{
		ID:           "ord-rest-123456789-1",
		RestaurantID: "rest-123456789",
		SupplierID:   "sup-0501234567",
		Items:        []models.OrderItem{{ProductName: "tomatoes", Qty: 6}},
		Status:       models.OrderStatusSent,
	})

	d.Dispatch(context.Background(), testPhone, []models.BotAction{{
		Type: models.ActionLogDelivery,
		LogDelivery: &models.LogDeliveryPayload{
			OrderID:    "ord-rest-123456789-1",
			Items:      []models.DeliveryItem{{ProductName: "tomatoes", OrderedQty: 6, ReceivedQty: 4}},
			InvoiceURL: "https://cdn.example.com/invoice.jpg",
		},
	}})

	deliveries := st.Deliveries()
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	if deliveries[0].OrderID != "ord-rest-123456789-1" || deliveries[0].InvoiceURL == "" {
		t.Errorf("unexpected delivery %+v", deliveries[0])
	}

	order, _ := st.GetOrder("ord-rest-123456789-1")
	if order.Status != models.OrderStatusDelivered {
		t.Errorf("expected delivered, got %s", order.Status)
	}
}

func TestDispatchInvalidPayloadApologizesOnce(t *testing.T) {
	d, st, svc := newTestDispatcher()
	_ = st.SaveConversation(models.NewConversation(testPhone))

	// Two invalid actions, then a valid one: the user gets one apology and
	// the valid action still runs.
	sent := d.Dispatch(context.Background(), testPhone, []models.BotAction{
		{Type: models.ActionCreateRestaurant, CreateRestaurant: &models.CreateRestaurantPayload{}},
		{Type: models.ActionSendOrder, SendOrder: &models.SendOrderPayload{}},
		sendMessageAction("still here"),
	})

	apology := config.Default().ApologyText
	var apologies int
	for _, rec := range svc.Sent() {
		if rec.Body == apology {
			apologies++
		}
	}
	if apologies != 1 {
		t.Errorf("expected exactly one apology, got %d", apologies)
	}
	if sent[len(sent)-1].Body != "still here" {
		t.Errorf("expected later actions to run, got %v", sent)
	}
}

func TestDispatchGatewayFailure(t *testing.T) {
	d, st, svc := newTestDispatcher()
	_ = st.SaveConversation(models.NewConversation(testPhone))
	svc.Err = errors.New("gateway down")

	sent := d.Dispatch(context.Background(), testPhone, []models.BotAction{
		sendMessageAction("hello?"),
	})
	if len(sent) != 0 {
		t.Errorf("expected no sent bodies on gateway failure, got %v", sent)
	}

	// The failed attempt is still logged, marked failed.
	got, _ := st.GetConversation(testPhone)
	if len(got.Messages) != 1 || got.Messages[0].MessageState != models.MessageStateFailed {
		t.Errorf("expected failed message log entry, got %+v", got.Messages)
	}
}
