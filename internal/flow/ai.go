package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/ordersuite/orderflow/internal/models"
)

// AISpec configures AI-assisted validation for a state: a natural-language
// extraction instruction plus the target JSON schema. States with an AISpec
// accept free-form multi-field input that a strict grammar cannot anticipate.
type AISpec struct {
	Instruction string
	Schema      map[string]any
}

// ExtractionRequest carries everything the extraction backend needs to pull
// structured data out of a free-form message.
type ExtractionRequest struct {
	Instruction string
	Schema      map[string]any
	Context     models.Context
	History     []models.Message
	Input       string
}

// ExtractionResult is the backend's answer. Final reports whether the
// extraction is complete and confirmed; when false, FollowUp carries the
// backend's own clarifying question to resend to the user.
type ExtractionResult struct {
	Data     any
	Final    bool
	FollowUp string
}

// Extractor is the pluggable structured-extraction backend behind the
// AI-assisted validation path.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error)
}

// DefaultExtractionTimeout bounds a single extraction call. A timeout is a
// validation failure (resend prompt), never a fatal error.
const DefaultExtractionTimeout = 20 * time.Second

// validateWithExtractor runs the AI-assisted validation path. Backend errors
// and timeouts degrade to a plain validation failure so the user is
// re-prompted with the state's static message.
func validateWithExtractor(ctx context.Context, extractor Extractor, timeout time.Duration, spec *AISpec, conv *models.Conversation, msg models.InboundMessage) models.ValidationOutcome {
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := ExtractionRequest{
		Instruction: spec.Instruction,
		Schema:      spec.Schema,
		Context:     conv.Context,
		History:     recentMessages(conv.Messages, 10),
		Input:       msg.Body,
	}

	result, err := extractor.Extract(ctx, req)
	if err != nil {
		slog.Warn("flow.validateWithExtractor: extraction failed, treating as validation failure", "error", err, "phone", conv.Phone)
		return models.Invalid("extraction failed")
	}
	if !result.Final {
		slog.Debug("flow.validateWithExtractor: extraction not final, re-prompting", "phone", conv.Phone)
		return models.InvalidWithFollowUp("extraction incomplete", result.FollowUp)
	}
	return models.Valid(result.Data)
}

func recentMessages(msgs []models.Message, limit int) []models.Message {
	if len(msgs) <= limit {
		return msgs
	}
	return msgs[len(msgs)-limit:]
}
