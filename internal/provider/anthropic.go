package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/coreassist/coreassist/internal/logging"
	"github.com/coreassist/coreassist/internal/streamevent"
	"github.com/coreassist/coreassist/pkg/types"
)

const anthropicAPIVersion = "2023-06-01"
const anthropicDefaultBaseURL = "https://api.anthropic.com"

// AnthropicProvider speaks the Anthropic Messages streaming protocol
// directly over net/http, decoding SSE frames by hand.
type AnthropicProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	id         string
	models     []types.Model
}

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	// ID is the provider identifier (e.g. "anthropic", "claude"). Defaults
	// to "anthropic" when empty.
	ID      string
	APIKey  string
	BaseURL string
}

// NewAnthropicProvider creates a new Anthropic provider. API key absence
// is a synchronous, non-streaming failure: it is checked here, not at
// first request.
func NewAnthropicProvider(ctx context.Context, config *AnthropicConfig) (*AnthropicProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}

	id := config.ID
	if id == "" {
		id = "anthropic"
	}

	return &AnthropicProvider{
		httpClient: newRateLimitedClient(id),
		apiKey:     apiKey,
		baseURL:    baseURL,
		id:         config.ID,
		models:     anthropicModels(),
	}, nil
}

func (p *AnthropicProvider) ID() string {
	if p.id != "" {
		return p.id
	}
	return "anthropic"
}

func (p *AnthropicProvider) Name() string { return "Anthropic" }

func (p *AnthropicProvider) Models() []types.Model { return p.models }

type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
	Stream    bool               `json:"stream"`
}

func toAnthropicMessages(messages []Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		blocks := make([]anthropicContentBlock, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			switch b.Kind {
			case BlockText:
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: b.Text})
			case BlockToolUse:
				input := json.RawMessage(b.InputJSON)
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropicContentBlock{
					Type: "tool_use", ID: b.ToolCallID, Name: b.ToolName, Input: input,
				})
			case BlockToolResult:
				blocks = append(blocks, anthropicContentBlock{
					Type: "tool_result", ToolUseID: b.ToolCallID, Content: b.ResultText, IsError: b.IsError,
				})
			}
		}
		out = append(out, anthropicMessage{Role: string(m.Role), Content: blocks})
	}
	return out
}

func toAnthropicTools(tools []ToolInfo) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicTool, len(tools))
	for i, t := range tools {
		out[i] = anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
	}
	return out
}

// CreateCompletion opens a streaming Anthropic Messages request and
// returns a streamevent.Reader translating its SSE events.
func (p *AnthropicProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (streamevent.Reader, error) {
	body := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  toAnthropicMessages(req.Messages),
		Tools:     toAnthropicTools(req.Tools),
		Stream:    true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return newTerminalReader(streamevent.Error(resp.StatusCode, string(respBody))), nil
	}

	return newAnthropicReader(resp), nil
}

type anthropicReader struct {
	resp    *http.Response
	scanner *sseScanner
	blocks  map[int]*streamevent.Block
	pending []streamevent.Event
	usage   *streamevent.Usage
}

func newAnthropicReader(resp *http.Response) *anthropicReader {
	return &anthropicReader{
		resp:    resp,
		scanner: newSSEScanner(resp.Body),
		blocks:  make(map[int]*streamevent.Block),
	}
}

func (r *anthropicReader) Close() error { return r.resp.Body.Close() }

func (r *anthropicReader) Next() (streamevent.Event, bool, error) {
	for len(r.pending) == 0 {
		data, err := r.scanner.next()
		if err == errSSEDone {
			return streamevent.Done(streamevent.StopEndTurn, r.usage), true, nil
		}
		if err == io.EOF {
			return streamevent.Event{}, false, nil
		}
		if err != nil {
			return streamevent.Event{}, false, err
		}
		r.translate(data)
	}

	ev := r.pending[0]
	r.pending = r.pending[1:]
	return ev, true, nil
}

func (r *anthropicReader) translate(data string) {
	var envelope struct {
		Type  string `json:"type"`
		Index int    `json:"index"`
		Delta struct {
			Type         string `json:"type"`
			Text         string `json:"text"`
			PartialJSON  string `json:"partial_json"`
			StopReason   string `json:"stop_reason"`
		} `json:"delta"`
		ContentBlock anthropicContentBlock `json:"content_block"`
		Message      struct {
			StopReason string `json:"stop_reason"`
		} `json:"message"`
		Usage struct {
			InputTokens              int `json:"input_tokens"`
			OutputTokens             int `json:"output_tokens"`
			CacheReadInputTokens     int `json:"cache_read_input_tokens"`
			CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		} `json:"usage"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		logging.Debug().Err(err).Str("data", data).Msg("anthropic: failed to parse SSE frame")
		return
	}

	switch envelope.Type {
	case "message_start":
		r.usage = &streamevent.Usage{
			Input:      envelope.Usage.InputTokens,
			CacheRead:  envelope.Usage.CacheReadInputTokens,
			CacheWrite: envelope.Usage.CacheCreationInputTokens,
		}
	case "content_block_start":
		idx := envelope.Index
		switch envelope.ContentBlock.Type {
		case "tool_use":
			r.blocks[idx] = &streamevent.Block{Index: idx, Kind: streamevent.BlockTool, ToolCallID: envelope.ContentBlock.ID, ToolName: envelope.ContentBlock.Name}
			r.pending = append(r.pending, streamevent.ToolUseStart(idx, envelope.ContentBlock.ID, envelope.ContentBlock.Name))
		default:
			r.blocks[idx] = &streamevent.Block{Index: idx, Kind: streamevent.BlockText}
		}
	case "content_block_delta":
		idx := envelope.Index
		block := r.blocks[idx]
		if block == nil {
			block = &streamevent.Block{Index: idx, Kind: streamevent.BlockText}
			r.blocks[idx] = block
		}
		switch envelope.Delta.Type {
		case "text_delta":
			block.Text += envelope.Delta.Text
			r.pending = append(r.pending, streamevent.TextDelta(envelope.Delta.Text))
		case "input_json_delta":
			block.InputJSON += envelope.Delta.PartialJSON
			r.pending = append(r.pending, streamevent.ToolInputDelta(idx, envelope.Delta.PartialJSON))
		}
	case "content_block_stop":
		if block, ok := r.blocks[envelope.Index]; ok {
			r.pending = append(r.pending, streamevent.ContentBlockDone(block))
		}
	case "message_delta":
		if envelope.Usage.OutputTokens > 0 {
			if r.usage == nil {
				r.usage = &streamevent.Usage{}
			}
			r.usage.Output = envelope.Usage.OutputTokens
		}
		r.pending = append(r.pending, streamevent.Done(anthropicStopReason(envelope.Delta.StopReason), r.usage))
	case "error":
		r.pending = append(r.pending, streamevent.Error(0, envelope.Error.Message))
	default:
		// ping, message_stop, and any future event tags: ignored silently.
	}
}

func anthropicStopReason(s string) streamevent.StopReason {
	switch s {
	case "end_turn":
		return streamevent.StopEndTurn
	case "tool_use":
		return streamevent.StopToolUse
	case "max_tokens":
		return streamevent.StopMaxTokens
	case "stop_sequence":
		return streamevent.StopStopSequence
	default:
		return streamevent.StopEndTurn
	}
}

// terminalReader is a streamevent.Reader that yields exactly one event
// (used for synchronous-looking failures that the spec still wants
// delivered as a terminal stream event rather than a Go error).
type terminalReader struct {
	event streamevent.Event
	done  bool
}

func newTerminalReader(ev streamevent.Event) *terminalReader { return &terminalReader{event: ev} }

func (r *terminalReader) Close() error { return nil }

func (r *terminalReader) Next() (streamevent.Event, bool, error) {
	if r.done {
		return streamevent.Event{}, false, nil
	}
	r.done = true
	return r.event, true, nil
}

func anthropicModels() []types.Model {
	return []types.Model{
		{
			ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 64000, SupportsTools: true, SupportsVision: true,
			InputPrice: 3.0, OutputPrice: 15.0,
			Options: types.ModelOptions{PromptCaching: true, ExtendedOutput: true},
		},
		{
			ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 32000, SupportsTools: true, SupportsVision: true,
			SupportsReasoning: true, InputPrice: 15.0, OutputPrice: 75.0,
			Options: types.ModelOptions{PromptCaching: true},
		},
		{
			ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 8192, SupportsTools: true, SupportsVision: true,
			InputPrice: 3.0, OutputPrice: 15.0, Options: types.ModelOptions{PromptCaching: true},
		},
		{
			ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 8192, SupportsTools: true, SupportsVision: true,
			InputPrice: 0.8, OutputPrice: 4.0,
		},
		{
			ID: "claude-haiku-4-5-20251001", Name: "Claude 4.5 Haiku", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 8192, SupportsTools: true, SupportsVision: true,
			InputPrice: 0.8, OutputPrice: 4.0,
		},
		{
			// Alias for claude-haiku-4-5-20251001.
			ID: "claude-haiku-4-5", Name: "Claude 4.5 Haiku", ProviderID: "anthropic",
			ContextLength: 200000, MaxOutputTokens: 8192, SupportsTools: true, SupportsVision: true,
			InputPrice: 0.8, OutputPrice: 4.0,
		},
	}
}
