package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ordersuite/orderflow/internal/models"
	"github.com/ordersuite/orderflow/internal/whatsapp"
)

// WhatsAppService delivers messages over a direct whatsmeow connection and
// surfaces inbound messages from the same connection.
type WhatsAppService struct {
	client  *whatsapp.Client
	mu      sync.RWMutex
	stopped bool
}

// NewWhatsAppService wraps a connected WhatsApp client.
func NewWhatsAppService(client *whatsapp.Client) *WhatsAppService {
	return &WhatsAppService{client: client}
}

func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService.SendMessage: invalid recipient", "to", to, "error", err)
		return err
	}
	return s.client.SendMessage(ctx, canonical, body)
}

// SendTemplate renders the template as text. Interactive list/button messages
// need business API approval, so plain text with numbered options is the
// portable fallback.
func (s *WhatsAppService) SendTemplate(ctx context.Context, to string, tpl *models.Template) error {
	return s.SendMessage(ctx, to, renderTemplate(tpl))
}

// Inbound exposes messages received over the WhatsApp connection, for the
// caller to feed into the bot handler.
func (s *WhatsAppService) Inbound() <-chan models.InboundMessage {
	return s.client.Inbound()
}

func (s *WhatsAppService) Start(ctx context.Context) error { return nil }

func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	s.client.Disconnect()
	return nil
}

func (s *WhatsAppService) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}
