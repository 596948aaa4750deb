package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/ordersuite/orderflow/internal/models"
)

type stubExtractor struct {
	result  ExtractionResult
	err     error
	lastReq ExtractionRequest
	calls   int
}

func (s *stubExtractor) Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error) {
	s.lastReq = req
	s.calls++
	return s.result, s.err
}

// contactState walks a fresh conversation to SUPPLIER_CONTACT, the first
// extraction-backed state.
func contactState(t *testing.T, eng *Engine) *models.Conversation {
	t.Helper()
	conv := onboardedToPayment(t, eng)
	conv = send(t, eng, conv, "trial").Conversation
	conv = send(t, eng, conv, "ready").Conversation
	conv = send(t, eng, conv, "vegetables").Conversation
	if conv.CurrentState != models.StateSupplierContact {
		t.Fatalf("expected SUPPLIER_CONTACT, got %s", conv.CurrentState)
	}
	return conv
}

func TestExtractorFinalResultAdvancesState(t *testing.T) {
	extractor := &stubExtractor{
		result: ExtractionResult{
			Data:  map[string]any{"name": "Green Farms", "whatsapp": "0501234567"},
			Final: true,
		},
	}
	eng := newTestEngine(t, WithExtractor(extractor))
	conv := contactState(t, eng)

	result := send(t, eng, conv, "our veggie guy is Green Farms, number 050-1234567")
	if result.Conversation.CurrentState != models.StateSupplierDeliveryDays {
		t.Fatalf("expected SUPPLIER_DELIVERY_DAYS, got %s", result.Conversation.CurrentState)
	}
	supplier := result.Conversation.Context.Map("supplier")
	if supplier == nil || supplier["id"] != "sup-0501234567" {
		t.Errorf("expected derived supplier id, got %v", supplier)
	}

	if extractor.lastReq.Instruction == "" {
		t.Error("extraction request missing instruction")
	}
	if extractor.lastReq.Input != "our veggie guy is Green Farms, number 050-1234567" {
		t.Errorf("unexpected extraction input %q", extractor.lastReq.Input)
	}
}

func TestExtractorFollowUpIsSentToUser(t *testing.T) {
	extractor := &stubExtractor{
		result: ExtractionResult{
			Final:    false,
			FollowUp: "Got the name, what's their WhatsApp number?",
		},
	}
	eng := newTestEngine(t, WithExtractor(extractor))
	conv := contactState(t, eng)

	result := send(t, eng, conv, "Green Farms")
	if result.Conversation.CurrentState != models.StateSupplierContact {
		t.Fatalf("non-final extraction must not advance, got %s", result.Conversation.CurrentState)
	}
	if len(result.Actions) != 1 {
		t.Fatalf("expected a single follow-up message, got %d actions", len(result.Actions))
	}
	if got := result.Actions[0].SendMessage.Body; got != "Got the name, what's their WhatsApp number?" {
		t.Errorf("expected the extractor's follow-up question, got %q", got)
	}
}

func TestExtractorErrorFallsBackToValidationMessage(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("backend unavailable")}
	eng := newTestEngine(t, WithExtractor(extractor))
	conv := contactState(t, eng)

	result := send(t, eng, conv, "Green Farms, 0501234567")
	if result.Conversation.CurrentState != models.StateSupplierContact {
		t.Fatalf("extraction error must not advance, got %s", result.Conversation.CurrentState)
	}
	if len(result.Actions) != 1 {
		t.Fatalf("expected a single rejection message, got %d actions", len(result.Actions))
	}
	body := result.Actions[0].SendMessage.Body
	if body == "" {
		t.Error("expected the state's validation message")
	}
}

func TestExtractorNotCalledForSchemaOnlyStates(t *testing.T) {
	extractor := &stubExtractor{result: ExtractionResult{Final: true, Data: "ignored"}}
	eng := newTestEngine(t, WithExtractor(extractor))

	conv := models.NewConversation("972501234567")
	conv = send(t, eng, conv, "hi").Conversation
	_ = send(t, eng, conv, "Acme Foods Ltd")
	if extractor.calls != 0 {
		t.Errorf("extractor called %d times for schema-only states", extractor.calls)
	}
}

func TestRecentMessagesWindow(t *testing.T) {
	msgs := make([]models.Message, 25)
	for i := range msgs {
		msgs[i] = models.Message{Body: "m", Role: models.RoleUser}
	}
	if got := recentMessages(msgs, 10); len(got) != 10 {
		t.Errorf("expected window of 10, got %d", len(got))
	}
	if got := recentMessages(msgs[:3], 10); len(got) != 3 {
		t.Errorf("expected all 3 messages, got %d", len(got))
	}
}
