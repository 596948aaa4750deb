package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ordersuite/orderflow/internal/models"
	"github.com/ordersuite/orderflow/internal/twilio"
)

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"+972 50-123-4567", "972501234567", true},
		{"whatsapp:+972501234567", "972501234567", true},
		{"0501234567", "0501234567", true},
		{"12345", "", false},
		{"no digits", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, err := canonicalizePhone(c.input)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("canonicalizePhone(%q) = %q, %v; want %q", c.input, got, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("canonicalizePhone(%q) should fail", c.input)
		}
	}
}

func TestRenderTemplate(t *testing.T) {
	tpl := &models.Template{
		ID:     "payment_method",
		Type:   "buttons",
		Header: "Almost there!",
		Body:   "How would you like to pay?",
		Options: []models.TemplateOption{
			{Label: "Credit card", ID: "credit_card"},
			{Label: "Free trial", ID: "trial"},
		},
	}
	got := renderTemplate(tpl)

	if !strings.HasPrefix(got, "Almost there!\n") {
		t.Errorf("header missing: %q", got)
	}
	if !strings.Contains(got, "How would you like to pay?") {
		t.Errorf("body missing: %q", got)
	}
	if !strings.Contains(got, `1. Credit card — reply "credit_card"`) {
		t.Errorf("first option missing: %q", got)
	}
	if !strings.Contains(got, `2. Free trial — reply "trial"`) {
		t.Errorf("second option missing: %q", got)
	}
}

func TestTwilioServiceSendMessage(t *testing.T) {
	mock := &twilio.MockClient{}
	svc := NewTwilioService(mock)

	if err := svc.SendMessage(context.Background(), "+972 50-123-4567", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(mock.SentMessages))
	}
	if mock.SentMessages[0].To != "972501234567" {
		t.Errorf("recipient not canonicalized: %q", mock.SentMessages[0].To)
	}

	if err := svc.SendMessage(context.Background(), "123", "hello"); err == nil {
		t.Error("expected invalid recipient to fail")
	}
}

func TestTwilioServiceSendTemplateRendersText(t *testing.T) {
	mock := &twilio.MockClient{}
	svc := NewTwilioService(mock)

	tpl := &models.Template{
		ID:   "idle_menu",
		Type: "list",
		Body: "What next?",
		Options: []models.TemplateOption{
			{Label: "New order", ID: "order"},
		},
	}
	if err := svc.SendTemplate(context.Background(), "972501234567", tpl); err != nil {
		t.Fatalf("SendTemplate failed: %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(mock.SentMessages))
	}
	if !strings.Contains(mock.SentMessages[0].Body, `1. New order — reply "order"`) {
		t.Errorf("template not rendered as text: %q", mock.SentMessages[0].Body)
	}
}

func TestTwilioServiceStopped(t *testing.T) {
	svc := NewTwilioService(&twilio.MockClient{})
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	err := svc.SendMessage(context.Background(), "972501234567", "too late")
	if !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestTwilioServicePropagatesClientError(t *testing.T) {
	mock := &twilio.MockClient{Err: errors.New("twilio 500")}
	svc := NewTwilioService(mock)
	if err := svc.SendMessage(context.Background(), "972501234567", "hi"); err == nil {
		t.Error("expected client error to propagate")
	}
}

func TestMockServiceRecordsSends(t *testing.T) {
	svc := NewMockService()
	_ = svc.SendMessage(context.Background(), "972501234567", "one")
	_ = svc.SendTemplate(context.Background(), "972501234567", &models.Template{ID: "t", Body: "two"})

	records := svc.Sent()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Body != "one" || records[1].Template == nil {
		t.Errorf("unexpected records %+v", records)
	}
}
