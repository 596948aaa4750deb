package messaging

import (
	"context"
	"sync"

	"github.com/ordersuite/orderflow/internal/models"
)

// SentRecord is one captured outbound message on a MockService.
type SentRecord struct {
	To       string
	Body     string
	Template *models.Template
}

// MockService records outbound messages for tests and simulation mode.
type MockService struct {
	mu   sync.Mutex
	sent []SentRecord

	// Err, when set, fails every send.
	Err error
}

// NewMockService creates an empty recording service.
func NewMockService() *MockService {
	return &MockService{}
}

func (s *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

func (s *MockService) SendMessage(ctx context.Context, to string, body string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentRecord{To: to, Body: body})
	return nil
}

func (s *MockService) SendTemplate(ctx context.Context, to string, tpl *models.Template) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentRecord{To: to, Body: renderTemplate(tpl), Template: tpl})
	return nil
}

// Sent returns a copy of all recorded sends.
func (s *MockService) Sent() []SentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentRecord(nil), s.sent...)
}

func (s *MockService) Start(ctx context.Context) error { return nil }
func (s *MockService) Stop() error                     { return nil }
