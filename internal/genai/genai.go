// Package genai implements structured data extraction over the OpenAI API.
//
// It backs the AI-assisted validation path: free-form user messages go in,
// JSON matching a per-state schema comes out, together with a finality flag
// and an optional clarifying question.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ordersuite/orderflow/internal/flow"
	"github.com/ordersuite/orderflow/internal/models"
)

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// ErrNoChoicesReturned indicates the API returned an empty choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// DefaultModel is used unless overridden via WithModel.
const DefaultModel = openai.ChatModelGPT4oMini

// Client is the extraction backend over the OpenAI chat completions API. It
// implements flow.Extractor.
type Client struct {
	chat  chatService
	model string
}

// Option configures client construction.
type Option func(*clientOpts)

type clientOpts struct {
	apiKey string
	model  string
}

// WithAPIKey sets the API key explicitly instead of reading OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *clientOpts) { o.apiKey = key }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *clientOpts) { o.model = model }
}

// NewClient initializes an extraction client. The API key comes from options
// or the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	co := clientOpts{model: DefaultModel}
	for _, opt := range opts {
		opt(&co)
	}
	if co.apiKey == "" {
		co.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if co.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(co.apiKey))
	return &Client{chat: completionsAdapter{client: cli}, model: co.model}, nil
}

type completionsAdapter struct {
	client openai.Client
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// envelope is the response contract the model is held to. Data carries the
// per-state schema; Final false means the model needs another turn and
// FollowUp carries its clarifying question.
type envelope struct {
	Data     json.RawMessage `json:"data"`
	Final    bool            `json:"final"`
	FollowUp string          `json:"followUp"`
}

const systemContract = `You extract structured data from a restaurant owner's chat message.
Follow the task instruction, fill the "data" object per its schema, and set "final" to true only when every required field is confidently extracted.
When information is missing or ambiguous, set "final" to false and put one short clarifying question for the user in "followUp".
Never invent values the user did not state.`

// Extract runs one structured extraction round trip.
func (c *Client) Extract(ctx context.Context, req flow.ExtractionRequest) (flow.ExtractionResult, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(c.systemPrompt(req)),
	}
	for _, msg := range req.History {
		if msg.Role == models.RoleUser {
			messages = append(messages, openai.UserMessage(msg.Body))
		} else {
			messages = append(messages, openai.AssistantMessage(msg.Body))
		}
	}
	messages = append(messages, openai.UserMessage(req.Input))

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "extraction",
					Schema: envelopeSchema(req.Schema),
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		return flow.ExtractionResult{}, fmt.Errorf("Client.Extract: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return flow.ExtractionResult{}, ErrNoChoicesReturned
	}

	var env envelope
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		slog.Warn("Client.Extract: malformed extraction envelope", "error", err)
		return flow.ExtractionResult{}, fmt.Errorf("Client.Extract: decode envelope: %w", err)
	}

	result := flow.ExtractionResult{Final: env.Final, FollowUp: env.FollowUp}
	if len(env.Data) > 0 {
		var data any
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return flow.ExtractionResult{}, fmt.Errorf("Client.Extract: decode data: %w", err)
		}
		result.Data = data
	}
	return result, nil
}

func (c *Client) systemPrompt(req flow.ExtractionRequest) string {
	prompt := systemContract + "\n\nTask: " + req.Instruction
	if len(req.Context) > 0 {
		if ctxJSON, err := json.Marshal(req.Context); err == nil {
			prompt += "\n\nKnown conversation facts: " + string(ctxJSON)
		}
	}
	return prompt
}

// envelopeSchema wraps the per-state data schema in the {data, final,
// followUp} response contract.
func envelopeSchema(dataSchema map[string]any) map[string]any {
	if dataSchema == nil {
		dataSchema = map[string]any{"type": "object", "additionalProperties": false, "properties": map[string]any{}, "required": []string{}}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data":     dataSchema,
			"final":    map[string]any{"type": "boolean"},
			"followUp": map[string]any{"type": "string"},
		},
		"required":             []string{"data", "final", "followUp"},
		"additionalProperties": false,
	}
}
