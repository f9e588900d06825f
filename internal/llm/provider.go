package llm

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a single prompt and returns the model's text answer
	Complete(ctx context.Context, prompt string) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ChatProvider is a provider that can drive a tool-calling conversation
type ChatProvider interface {
	Provider

	// Chat sends the conversation and the offered tools and returns the next
	// assistant message. An empty tools slice forces a plain text answer.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
}

// Role identifies the author of a conversation message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool" // Response to a tool call
)

// ToolCall is a tool invocation requested by the assistant
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // Raw JSON arguments
}

// Input returns the "input" argument of the call. Arguments that are not a
// JSON object are returned verbatim.
func (c ToolCall) Input() string {
	var args map[string]any
	if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
		return strings.TrimSpace(c.Arguments)
	}
	for _, key := range []string{"input", "query", "url"} {
		if v, ok := args[key].(string); ok {
			return v
		}
	}
	return strings.TrimSpace(c.Arguments)
}

// Message is one turn of a conversation.
// Assistant messages may carry ToolCalls; tool messages carry ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// SystemMessage builds a system message
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolResultMessage builds the response to a tool call
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, ToolName: call.Name}
}

// ToolSpec describes a tool offered to the model
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// StringInputSchema is the parameter schema for tools taking one string
func StringInputSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"input"},
	}
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	Temperature float32

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   60,
		MaxTokens: 2000,
	}
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) maxTokens() int {
	if c.MaxTokens == 0 {
		return 2000
	}
	return c.MaxTokens
}
