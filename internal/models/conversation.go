package models

import "time"

// MessageRole tags a message log entry with its author.
type MessageRole string

const (
	RoleUser MessageRole = "user"
	RoleBot  MessageRole = "assistant"
)

// MessageState tracks the delivery status of an outbound message log entry.
type MessageState string

const (
	MessageStateReceived MessageState = "received"
	MessageStateSent     MessageState = "sent"
	MessageStateFailed   MessageState = "failed"
)

// Message is a single entry in a conversation's append-only message log.
type Message struct {
	Body         string       `json:"body"`
	Role         MessageRole  `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
	TemplateID   string       `json:"template_id,omitempty"`
	HasTemplate  bool         `json:"has_template,omitempty"`
	MessageState MessageState `json:"message_state"`
}

// Context is the open key/value bag accumulated across a conversation's
// lifetime. Values are scalars, nested maps, or slices (JSON shapes).
type Context map[string]any

// Clone returns a deep copy of the context. The reducer never mutates its
// input context; it clones first and folds validated data into the copy.
func (c Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case Context:
		return map[string]any(val.Clone())
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return val
	}
}

// String returns the string value for key, or "" if absent or not a string.
func (c Context) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Number returns the numeric value for key. JSON decoding produces float64;
// ints stored programmatically are widened.
func (c Context) Number(key string) (float64, bool) {
	switch n := c[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Slice returns the []any value for key, or nil.
func (c Context) Slice(key string) []any {
	s, _ := c[key].([]any)
	return s
}

// Map returns the nested map value for key, or nil.
func (c Context) Map(key string) map[string]any {
	m, _ := c[key].(map[string]any)
	return m
}

// Conversation is the per-phone-number session record. Exactly one exists per
// phone number; it is created on the first inbound message and mutated only
// by persisting the transition engine's output.
type Conversation struct {
	Phone        string    `json:"phone"`
	CurrentState StateType `json:"current_state"`
	Context      Context   `json:"context"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewConversation creates a fresh conversation for an unseen phone number.
func NewConversation(phone string) *Conversation {
	now := time.Now()
	return &Conversation{
		Phone:        phone,
		CurrentState: StateInit,
		Context:      Context{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// InboundMessage is one inbound chat message entering the webhook.
type InboundMessage struct {
	From     string `json:"from"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url,omitempty"`
}

// TemplateOption is a single selectable option in a structured template.
type TemplateOption struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// Template is a structured outbound prompt: body text plus an ordered list of
// selectable options and an optional header.
type Template struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Body    string           `json:"body"`
	Options []TemplateOption `json:"options"`
	Header  string           `json:"header,omitempty"`
}

// ValidationOutcome is the result of running a state's validator against raw
// input: either Valid carrying structured data, or Invalid carrying a reason
// and an optional follow-up question to resend.
type ValidationOutcome struct {
	OK       bool
	Data     any
	Reason   string
	FollowUp string // overrides the state's static validation message when set
}

// Valid constructs a successful outcome carrying validated data.
func Valid(data any) ValidationOutcome {
	return ValidationOutcome{OK: true, Data: data}
}

// Invalid constructs a failed outcome with a machine-readable reason.
func Invalid(reason string) ValidationOutcome {
	return ValidationOutcome{OK: false, Reason: reason}
}

// InvalidWithFollowUp constructs a failed outcome whose follow-up text should
// be resent to the user instead of the state's static validation message.
func InvalidWithFollowUp(reason, followUp string) ValidationOutcome {
	return ValidationOutcome{OK: false, Reason: reason, FollowUp: followUp}
}
