package flow

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/ordersuite/orderflow/internal/config"
	"github.com/ordersuite/orderflow/internal/models"
)

// Engine is the pure transition reducer. ProcessMessage performs no I/O
// besides the optional extraction call; all side effects are returned as
// declared actions for the dispatcher.
type Engine struct {
	cfg       config.Bot
	table     *Table
	extractor Extractor
	timeout   time.Duration
}

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithExtractor plugs in the AI-assisted validation backend. Without one,
// states fall back to their schema validators.
func WithExtractor(e Extractor) EngineOption {
	return func(eng *Engine) { eng.extractor = e }
}

// WithExtractionTimeout overrides the per-call extraction deadline.
func WithExtractionTimeout(d time.Duration) EngineOption {
	return func(eng *Engine) { eng.timeout = d }
}

// NewEngine builds a transition engine over the given state table.
func NewEngine(cfg config.Bot, table *Table, opts ...EngineOption) *Engine {
	eng := &Engine{
		cfg:     cfg,
		table:   table,
		timeout: DefaultExtractionTimeout,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Result is the reducer's output: the updated conversation copy and the
// ordered actions to dispatch after it is persisted.
type Result struct {
	Conversation *models.Conversation
	Actions      []models.BotAction
}

// ProcessMessage folds one inbound message into the conversation. The input
// conversation is never mutated; the returned copy carries the new state,
// context and message log.
func (e *Engine) ProcessMessage(ctx context.Context, conv *models.Conversation, msg models.InboundMessage) Result {
	next := &models.Conversation{
		Phone:        conv.Phone,
		CurrentState: conv.CurrentState,
		Context:      conv.Context.Clone(),
		Messages:     append([]models.Message(nil), conv.Messages...),
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    time.Now(),
	}
	next.Messages = append(next.Messages, models.Message{
		Body:         msg.Body,
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
		MessageState: models.MessageStateReceived,
	})

	def, ok := e.table.Get(next.CurrentState)
	if !ok {
		return e.recoverUnknownState(next)
	}

	// A fresh (or reset) session starts clean: INIT drops everything the
	// previous run accumulated before the first input is even looked at.
	if next.CurrentState == models.StateInit {
		next.Context = models.Context{}
	}

	outcome := e.validate(ctx, def, next, msg)
	if !outcome.OK {
		slog.Debug("Engine.ProcessMessage: validation failed",
			"phone", next.Phone, "state", next.CurrentState, "reason", outcome.Reason)
		return Result{
			Conversation: next,
			Actions:      []models.BotAction{e.rejectionMessage(def, next, outcome)},
		}
	}

	token := ""
	if def.Callback != nil {
		token = def.Callback(next.Context, outcome.Data)
	}
	if token == "" {
		if s, isStr := outcome.Data.(string); isStr {
			token = normalizeToken(s)
		} else {
			token = "ok"
		}
	}

	target, found := resolveTarget(def, token)
	if !found {
		// No edge matched at all; stay put and re-prompt.
		slog.Warn("Engine.ProcessMessage: no transition for outcome, staying in state",
			"phone", next.Phone, "state", next.CurrentState, "outcome", token)
		target = next.CurrentState
	}

	var actions []models.BotAction
	if def.Action != "" && (def.ActionOn == "" || def.ActionOn == token) {
		action, err := buildAction(def.Action, next.Phone, next.Context)
		if err != nil {
			slog.Error("Engine.ProcessMessage: action construction failed",
				"phone", next.Phone, "state", next.CurrentState,
				"action", def.Action, "error", err)
			return Result{
				Conversation: next,
				Actions: []models.BotAction{{
					Type: models.ActionSendMessage,
					SendMessage: &models.SendMessagePayload{
						To:   next.Phone,
						Body: e.cfg.ApologyText,
					},
				}},
			}
		}
		actions = append(actions, action)
	}

	next.CurrentState = target
	if prompt, ok := e.promptFor(target, next); ok {
		actions = append(actions, prompt)
	}
	return Result{Conversation: next, Actions: actions}
}

// resolveTarget resolves an outcome token against the state's edges: exact
// match first, then the "ok" edge, then the first declared edge.
func resolveTarget(def *StateDef, token string) (models.StateType, bool) {
	if target, ok := def.next(token); ok {
		return target, true
	}
	if target, ok := def.next("ok"); ok {
		return target, true
	}
	if len(def.Transitions) > 0 {
		return def.Transitions[0].Target, true
	}
	return "", false
}

func (e *Engine) validate(ctx context.Context, def *StateDef, conv *models.Conversation, msg models.InboundMessage) models.ValidationOutcome {
	if def.AI != nil && e.extractor != nil {
		return validateWithExtractor(ctx, e.extractor, e.timeout, def.AI, conv, msg)
	}
	return ValidateSchema(e.cfg, def.Validator, msg)
}

// recoverUnknownState resets a corrupted session to the main menu, keeping
// only the sticky identity keys, and tells the user once.
func (e *Engine) recoverUnknownState(conv *models.Conversation) Result {
	slog.Error("Engine.ProcessMessage: conversation in unknown state, resetting",
		"phone", conv.Phone, "state", conv.CurrentState)

	kept := models.Context{}
	for key, value := range conv.Context {
		if e.cfg.IsStickyKey(key) {
			kept[key] = value
		}
	}
	conv.Context = kept
	conv.CurrentState = models.StateIdle

	return Result{
		Conversation: conv,
		Actions: []models.BotAction{{
			Type: models.ActionSendMessage,
			SendMessage: &models.SendMessagePayload{
				To:   conv.Phone,
				Body: e.cfg.SystemErrorText,
			},
		}},
	}
}

func (e *Engine) rejectionMessage(def *StateDef, conv *models.Conversation, outcome models.ValidationOutcome) models.BotAction {
	body := outcome.FollowUp
	if body == "" {
		body = def.ValidationMessage
	}
	if body == "" {
		body = e.cfg.GenericRejectionText
	}
	return models.BotAction{
		Type: models.ActionSendMessage,
		SendMessage: &models.SendMessagePayload{
			To:   conv.Phone,
			Body: renderPlaceholders(body, conv.Context),
		},
	}
}

// promptFor builds the outbound prompt action for the state the conversation
// just entered, with placeholders substituted from the updated context.
func (e *Engine) promptFor(state models.StateType, conv *models.Conversation) (models.BotAction, bool) {
	def, ok := e.table.Get(state)
	if !ok || (def.Prompt == "" && def.Template == nil) {
		return models.BotAction{}, false
	}

	payload := &models.SendMessagePayload{
		To:   conv.Phone,
		Body: renderPlaceholders(def.Prompt, conv.Context),
	}
	if def.Template != nil {
		t := *def.Template
		t.Body = renderPlaceholders(t.Body, conv.Context)
		t.Header = renderPlaceholders(t.Header, conv.Context)
		payload.Template = &t
	}
	return models.BotAction{Type: models.ActionSendMessage, SendMessage: payload}, true
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9]*)\}`)

// renderPlaceholders substitutes {key} tokens from context. Unknown keys
// render as empty strings rather than leaking raw braces to the user.
func renderPlaceholders(s string, ctx models.Context) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		key := m[1 : len(m)-1]
		switch v := ctx[key].(type) {
		case string:
			return v
		case float64:
			return formatQty(v)
		case int:
			return formatQty(float64(v))
		default:
			return ""
		}
	})
}
