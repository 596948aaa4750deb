package models

import (
	"errors"
	"testing"
)

func TestBotActionValidate(t *testing.T) {
	cases := []struct {
		name    string
		action  BotAction
		wantErr error
	}{
		{
			name:    "unknown type",
			action:  BotAction{Type: "EXPLODE"},
			wantErr: ErrInvalidActionType,
		},
		{
			name:    "send message without payload",
			action:  BotAction{Type: ActionSendMessage},
			wantErr: ErrMissingPayload,
		},
		{
			name: "send message without recipient",
			action: BotAction{
				Type:        ActionSendMessage,
				SendMessage: &SendMessagePayload{Body: "hi"},
			},
			wantErr: ErrEmptyRecipient,
		},
		{
			name: "send message with neither body nor template",
			action: BotAction{
				Type:        ActionSendMessage,
				SendMessage: &SendMessagePayload{To: "972501234567"},
			},
			wantErr: ErrEmptyMessageBody,
		},
		{
			name: "template alone is enough",
			action: BotAction{
				Type: ActionSendMessage,
				SendMessage: &SendMessagePayload{
					To:       "972501234567",
					Template: &Template{ID: "menu", Body: "pick one"},
				},
			},
		},
		{
			name: "restaurant missing legal id",
			action: BotAction{
				Type:             ActionCreateRestaurant,
				CreateRestaurant: &CreateRestaurantPayload{LegalName: "Acme", Name: "Bistro"},
			},
			wantErr: ErrMissingLegalID,
		},
		{
			name: "valid restaurant",
			action: BotAction{
				Type: ActionCreateRestaurant,
				CreateRestaurant: &CreateRestaurantPayload{
					LegalID: "123456789", LegalName: "Acme", Name: "Bistro",
				},
			},
		},
		{
			name: "supplier missing category",
			action: BotAction{
				Type: ActionCreateSupplier,
				Supplier: &SupplierPayload{
					RestaurantID: "rest-1", WhatsApp: "0501234567", Name: "Green Farms",
				},
			},
			wantErr: ErrMissingCategory,
		},
		{
			name: "snapshot with negative count",
			action: BotAction{
				Type: ActionCreateInventorySnapshot,
				InventorySnapshot: &InventorySnapshotPayload{
					RestaurantID: "rest-1", Category: "vegetables",
					Items: []InventoryItem{{ProductName: "tomatoes", CurrentQty: -1}},
				},
			},
			wantErr: ErrNegativeQuantity,
		},
		{
			name: "order without items",
			action: BotAction{
				Type:      ActionSendOrder,
				SendOrder: &SendOrderPayload{RestaurantID: "rest-1", SupplierID: "sup-1"},
			},
			wantErr: ErrEmptyItems,
		},
		{
			name: "valid order",
			action: BotAction{
				Type: ActionSendOrder,
				SendOrder: &SendOrderPayload{
					RestaurantID: "rest-1", SupplierID: "sup-1",
					Items: []OrderItem{{ProductName: "tomatoes", Qty: 6}},
				},
			},
		},
		{
			name: "delivery missing order id",
			action: BotAction{
				Type: ActionLogDelivery,
				LogDelivery: &LogDeliveryPayload{
					Items: []DeliveryItem{{ProductName: "tomatoes", OrderedQty: 6, ReceivedQty: 4}},
				},
			},
			wantErr: ErrMissingOrder,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.action.Validate()
			if c.wantErr == nil {
				if err != nil {
					t.Errorf("expected valid action, got %v", err)
				}
				return
			}
			if !errors.Is(err, c.wantErr) {
				t.Errorf("expected %v, got %v", c.wantErr, err)
			}
		})
	}
}
