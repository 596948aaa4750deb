package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ordersuite/orderflow/internal/models"
	"github.com/ordersuite/orderflow/internal/twilio"
)

// TwilioService delivers messages through the Twilio WhatsApp gateway.
// Inbound messages arrive separately, via the Twilio webhook on the API
// server.
type TwilioService struct {
	client  twilio.Sender
	mu      sync.RWMutex
	stopped bool
}

// NewTwilioService wraps a Twilio sender (real client or mock).
func NewTwilioService(client twilio.Sender) *TwilioService {
	return &TwilioService{client: client}
}

func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.SendMessage: invalid recipient", "to", to, "error", err)
		return err
	}
	return s.client.SendMessage(ctx, canonical, body)
}

// SendTemplate renders the template as text; the Twilio Go SDK has no
// interactive WhatsApp message support.
func (s *TwilioService) SendTemplate(ctx context.Context, to string, tpl *models.Template) error {
	return s.SendMessage(ctx, to, renderTemplate(tpl))
}

func (s *TwilioService) Start(ctx context.Context) error { return nil }

func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *TwilioService) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}
