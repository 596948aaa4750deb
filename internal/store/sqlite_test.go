package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ordersuite/orderflow/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(WithDSN(filepath.Join(t.TempDir(), "orderflow.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error without a DSN")
	}
}

func TestSQLiteConversationRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.GetConversation("972501234567")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unseen phone, got %+v", got)
	}

	conv := models.NewConversation("972501234567")
	conv.CurrentState = models.StateOnboardingLegalID
	conv.Context["companyName"] = "Acme Foods Ltd"
	if err := s.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}
	if err := s.AddMessage(conv.Phone, models.Message{
		Body: "hi", Role: models.RoleUser, MessageState: models.MessageStateReceived, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	// Upsert path: state moves forward.
	conv.CurrentState = models.StateOnboardingRestaurantName
	conv.Context["legalId"] = "123456789"
	if err := s.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation upsert failed: %v", err)
	}

	got, err = s.GetConversation(conv.Phone)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored conversation")
	}
	if got.CurrentState != models.StateOnboardingRestaurantName {
		t.Errorf("expected upserted state, got %s", got.CurrentState)
	}
	if got.Context.String("companyName") != "Acme Foods Ltd" || got.Context.String("legalId") != "123456789" {
		t.Errorf("context not persisted: %v", got.Context)
	}
	if len(got.Messages) != 1 || got.Messages[0].Body != "hi" {
		t.Errorf("unexpected message log %+v", got.Messages)
	}
}

func TestSQLiteEntityPersistence(t *testing.T) {
	s := newTestSQLiteStore(t)
	now := time.Now()

	err := s.CreateRestaurant(models.Restaurant{
		ID: "rest-123456789", LegalID: "123456789", LegalName: "Acme Foods Ltd",
		Name:     "Bistro Aroma",
		Contacts: []models.ContactInfo{{Name: "Dana", Email: "dana@acme.com"}},
		Payment:  models.PaymentInfo{Provider: "trial", Status: "trial"},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRestaurant failed: %v", err)
	}

	supplier := models.Supplier{
		ID: "sup-0501234567", RestaurantID: "rest-123456789",
		WhatsApp: "0501234567", Name: "Green Farms",
		Category:  []string{"vegetables"},
		Reminders: []models.ReminderSpec{{Days: []int{0, 3}, Time: "14:00"}},
		Products:  []models.ProductSpec{{Name: "tomatoes", BaseQty: 10}},
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.SaveSupplier(supplier); err != nil {
		t.Fatalf("SaveSupplier failed: %v", err)
	}

	got, err := s.GetSupplier(supplier.ID)
	if err != nil {
		t.Fatalf("GetSupplier failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored supplier")
	}
	if got.Name != "Green Farms" || len(got.Products) != 1 || got.Products[0].BaseQty != 10 {
		t.Errorf("unexpected supplier %+v", got)
	}
	if len(got.Reminders) != 1 || len(got.Reminders[0].Days) != 2 {
		t.Errorf("reminders not round-tripped: %+v", got.Reminders)
	}

	if err := s.UpdateSupplierProduct(supplier.ID, models.ProductSpec{Name: "cucumbers", BaseQty: 5}); err != nil {
		t.Fatalf("UpdateSupplierProduct failed: %v", err)
	}
	got, _ = s.GetSupplier(supplier.ID)
	if len(got.Products) != 2 {
		t.Errorf("expected appended product, got %+v", got.Products)
	}

	order := models.Order{
		ID: "ord-rest-123456789-1", RestaurantID: "rest-123456789", SupplierID: supplier.ID,
		Items:  []models.OrderItem{{ProductName: "tomatoes", Qty: 6}},
		Status: models.OrderStatusSent, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.AddOrder(order); err != nil {
		t.Fatalf("AddOrder failed: %v", err)
	}
	if err := s.UpdateOrderStatus(order.ID, models.OrderStatusDelivered); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}

	if err := s.AddInventorySnapshot(models.InventorySnapshot{
		ID: "snap-1", RestaurantID: "rest-123456789", Category: "vegetables",
		Items:     []models.InventoryItem{{ProductName: "tomatoes", CurrentQty: 4, BaseQty: 10, ShortageQty: 6}},
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("AddInventorySnapshot failed: %v", err)
	}

	if err := s.AddDelivery(models.Delivery{
		ID: "del-1", OrderID: order.ID,
		Items:     []models.DeliveryItem{{ProductName: "tomatoes", OrderedQty: 6, ReceivedQty: 4}},
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("AddDelivery failed: %v", err)
	}
}
