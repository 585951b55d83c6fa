// Package llm is the text-generation capability: a provider abstraction over
// Anthropic, OpenAI, Gemini and OpenRouter with retry, logging and JSON
// schema validation of structured output.
package llm

import (
	"context"
	"encoding/json"
)

// DefaultMaxTokens bounds responses when a request leaves MaxTokens unset.
const DefaultMaxTokens = 512

// Provider is the core abstraction for LLM interaction.
type Provider interface {
	// Generate sends a prompt to the LLM. When req.Schema is set the
	// provider requests structured output and the returned Content is
	// JSON validated against the schema.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	System string

	// Messages is the conversation history. Phrasing requests carry a
	// single user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to. When nil,
	// Content holds the raw text.
	Schema *Schema

	MaxTokens int

	// Temperature controls randomness in [0, 1]; zero leaves the
	// provider default.
	Temperature float64
}

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema, in kebab-case, e.g. "hint-message".
	Name string

	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	Content json.RawMessage
	Usage   Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finish applies the checks every provider shares: truncated structured
// output is an error and structured output must match its schema.
func finish(req Request, resp *Response) (*Response, error) {
	if req.Schema == nil {
		return resp, nil
	}
	if resp.StopReason == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: resp.Content}
	}
	if err := validateResponse(req.Schema, resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}
