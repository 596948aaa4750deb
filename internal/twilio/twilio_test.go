package twilio

import (
	"context"
	"testing"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without a from number")
	}
	if _, err := NewClient(
		WithAccountSID("AC123"),
		WithAuthToken("tok"),
		WithFromWhats("whatsapp:+14155238886"),
	); err != nil {
		t.Errorf("expected client construction to succeed, got %v", err)
	}
}

func TestMockClientRecordsSends(t *testing.T) {
	mock := NewMockClient()
	if err := mock.SendMessage(context.Background(), "972501234567", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].To != "972501234567" {
		t.Errorf("unexpected sent messages %+v", mock.SentMessages)
	}
}
