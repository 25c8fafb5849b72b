// Package provider implements the uniform streaming completion API over
// hand-rolled HTTP/SSE adapters for the Anthropic Messages API, the OpenAI
// Chat Completions API, and OpenAI-compatible (generic) endpoints.
package provider

import (
	"context"
	"encoding/json"

	"github.com/coreassist/coreassist/internal/streamevent"
	"github.com/coreassist/coreassist/pkg/types"
)

// Provider is an LLM backend capable of producing a uniform event stream
// for one completion request.
type Provider interface {
	ID() string
	Name() string
	Models() []types.Model
	CreateCompletion(ctx context.Context, req *CompletionRequest) (streamevent.Reader, error)
}

// Role discriminates a CompletionRequest message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind discriminates a ContentBlock within a Message.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is one piece of a Message's content, mirroring the
// Anthropic content-block shape that the other adapters flatten into
// their own wire format.
type ContentBlock struct {
	Kind BlockKind

	// BlockText
	Text string

	// BlockToolUse
	ToolCallID  string
	ToolName    string
	InputJSON   string // arguments, as a JSON object string

	// BlockToolResult
	ResultText string
	IsError    bool
}

// Message is one turn of conversation history passed to a provider.
type Message struct {
	Role   Role
	Blocks []ContentBlock
}

// ToolInfo describes a callable tool offered to the model.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// CompletionRequest is the uniform request every adapter translates into
// its own wire format: { model, max_tokens, messages[], system?, tools?,
// stream=true }.
type CompletionRequest struct {
	Model       string
	MaxTokens   int
	Messages    []Message
	System      string
	Tools       []ToolInfo
	Temperature float64
}
