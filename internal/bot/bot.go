// Package bot ties the pipeline together: per-phone serialization, session
// load, the transition engine, persistence and action dispatch.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/dispatch"
	"github.com/ordersuite/orderflow/internal/flow"
	"github.com/ordersuite/orderflow/internal/keylock"
	"github.com/ordersuite/orderflow/internal/models"
	"github.com/ordersuite/orderflow/internal/store"
)

// Bot processes inbound messages end to end. Safe for concurrent use;
// messages from the same phone number are processed strictly one at a time.
type Bot struct {
	cfg        config.Bot
	engine     *flow.Engine
	store      store.Store
	dispatcher *dispatch.Dispatcher
	locks      *keylock.Registry
}

// New builds a bot over an engine, store and dispatcher.
func New(cfg config.Bot, engine *flow.Engine, st store.Store, dispatcher *dispatch.Dispatcher) *Bot {
	return &Bot{
		cfg:        cfg,
		engine:     engine,
		store:      st,
		dispatcher: dispatcher,
		locks:      keylock.NewRegistry(),
	}
}

// HandleResult reports what one inbound message produced.
type HandleResult struct {
	// Responses are the outbound message payloads sent to the user, in order.
	Responses []models.SendMessagePayload
	// NewState is the conversation state after the transition.
	NewState models.StateType
	// Context is the conversation context after the transition.
	Context models.Context
}

// HandleMessage runs the full pipeline for one inbound message: lock the
// phone, load the session, reduce, persist, dispatch. The state is persisted
// before any action runs, so a crash mid-dispatch never corrupts the session.
func (b *Bot) HandleMessage(ctx context.Context, msg models.InboundMessage) (HandleResult, error) {
	phone, err := canonicalPhone(msg.From)
	if err != nil {
		return HandleResult{}, fmt.Errorf("Bot.HandleMessage: %w", err)
	}
	msg.From = phone

	unlock := b.locks.Lock(phone)
	defer unlock()

	conv, err := b.store.GetConversation(phone)
	if err != nil {
		return HandleResult{}, fmt.Errorf("Bot.HandleMessage: load conversation: %w", err)
	}
	if conv == nil {
		conv = models.NewConversation(phone)
		slog.Info("Bot.HandleMessage: new conversation", "phone", phone)
	}

	result := b.engine.ProcessMessage(ctx, conv, msg)

	if err := b.store.SaveConversation(result.Conversation); err != nil {
		return HandleResult{}, fmt.Errorf("Bot.HandleMessage: save conversation: %w", err)
	}
	inbound := result.Conversation.Messages[len(result.Conversation.Messages)-1]
	if err := b.store.AddMessage(phone, inbound); err != nil {
		slog.Warn("Bot.HandleMessage: failed to log inbound message", "phone", phone, "error", err)
	}

	responses := b.dispatcher.Dispatch(ctx, phone, result.Actions)
	return HandleResult{
		Responses: responses,
		NewState:  result.Conversation.CurrentState,
		Context:   result.Conversation.Context,
	}, nil
}

// GetConversation exposes a stored session for the inspection endpoint.
func (b *Bot) GetConversation(phone string) (*models.Conversation, error) {
	canonical, err := canonicalPhone(phone)
	if err != nil {
		return nil, err
	}
	return b.store.GetConversation(canonical)
}

func canonicalPhone(raw string) (string, error) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) < 6 {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return string(digits), nil
}
