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

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIProvider speaks the OpenAI Chat Completions streaming protocol,
// and doubles as the base for any OpenAI-compatible endpoint (Azure,
// local runtimes, or a differently-branded BaseURL) reached through the
// same wire format.
type OpenAIProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	id         string
	name       string
	models     []types.Model
	keyOptional bool
}

// OpenAIConfig holds configuration for the OpenAI(-compatible) provider.
type OpenAIConfig struct {
	// ID is the provider identifier (e.g. "openai", "ark", "ollama").
	// Defaults to "openai" when empty.
	ID      string
	Name    string
	APIKey  string
	BaseURL string
	Models  []types.Model
}

// NewOpenAIProvider creates a new OpenAI(-compatible) provider. Unlike
// Anthropic, an OpenAI-shape API key is optional: local/self-hosted
// endpoints behind a BaseURL override frequently need none.
func NewOpenAIProvider(ctx context.Context, config *OpenAIConfig) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	models := config.Models
	if models == nil {
		models = openAIModels()
	}

	id := config.ID
	if id == "" {
		id = "openai"
	}

	return &OpenAIProvider{
		httpClient:  newRateLimitedClient(id),
		apiKey:      apiKey,
		baseURL:     baseURL,
		id:          config.ID,
		name:        config.Name,
		models:      models,
		keyOptional: true,
	}, nil
}

// NewArkProvider builds an OpenAIProvider pointed at Volcengine's ARK
// endpoint, which exposes an OpenAI-compatible Chat Completions API.
func NewArkProvider(ctx context.Context, config *ArkConfig) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARK_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = os.Getenv("ARK_MODEL_ID")
	}
	if modelID == "" {
		return nil, fmt.Errorf("ARK_MODEL_ID not set")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("ARK_BASE_URL")
	}
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}

	return &OpenAIProvider{
		httpClient: newRateLimitedClient("ark"),
		apiKey:     apiKey,
		baseURL:    baseURL,
		id:         "ark",
		name:       "ARK",
		models:     arkModels(modelID),
	}, nil
}

// ArkConfig holds configuration for the Volcengine ARK provider.
type ArkConfig struct {
	APIKey  string
	BaseURL string
	Model   string // endpoint ID on the ARK platform
}

func arkModels(endpointID string) []types.Model {
	return []types.Model{
		{
			ID: endpointID, Name: "ARK Model", ProviderID: "ark",
			ContextLength: 128000, MaxOutputTokens: 4096,
			SupportsTools: true, SupportsVision: true,
		},
	}
}

func (p *OpenAIProvider) ID() string {
	if p.id != "" {
		return p.id
	}
	return "openai"
}

func (p *OpenAIProvider) Name() string {
	if p.name != "" {
		return p.name
	}
	return "OpenAI"
}

func (p *OpenAIProvider) Models() []types.Model { return p.models }

type openAIToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
	} `json:"function"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Tools    []openAITool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`

	// GPT-5-family models reject max_tokens and require this instead.
	MaxCompletionTokens int `json:"max_completion_tokens,omitempty"`
}

func toOpenAIMessages(system string, messages []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages)+1)
	if system != "" {
		s := system
		out = append(out, openAIMessage{Role: "system", Content: &s})
	}

	for _, m := range messages {
		var text string
		var toolCalls []openAIToolCall
		var toolResults []openAIMessage

		for i, b := range m.Blocks {
			switch b.Kind {
			case BlockText:
				text += b.Text
			case BlockToolUse:
				tc := openAIToolCall{Index: i, ID: b.ToolCallID, Type: "function"}
				tc.Function.Name = b.ToolName
				tc.Function.Arguments = b.InputJSON
				toolCalls = append(toolCalls, tc)
			case BlockToolResult:
				content := b.ResultText
				toolResults = append(toolResults, openAIMessage{Role: "tool", Content: &content, ToolCallID: b.ToolCallID})
			}
		}

		if len(toolCalls) > 0 {
			entry := openAIMessage{Role: "assistant", ToolCalls: toolCalls}
			if text != "" {
				entry.Content = &text
			}
			out = append(out, entry)
		} else if text != "" {
			t := text
			out = append(out, openAIMessage{Role: string(m.Role), Content: &t})
		}
		out = append(out, toolResults...)
	}
	return out
}

func toOpenAITools(tools []ToolInfo) []openAITool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openAITool, len(tools))
	for i, t := range tools {
		out[i].Type = "function"
		out[i].Function.Name = t.Name
		out[i].Function.Description = t.Description
		out[i].Function.Parameters = t.Parameters
	}
	return out
}

// CreateCompletion opens a streaming Chat Completions request and returns
// a streamevent.Reader translating its SSE events.
func (p *OpenAIProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (streamevent.Reader, error) {
	body := openAIRequest{
		Model:               req.Model,
		Messages:            toOpenAIMessages(req.System, req.Messages),
		Tools:               toOpenAITools(req.Tools),
		Stream:              true,
		MaxCompletionTokens: req.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build openai request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return newTerminalReader(streamevent.Error(resp.StatusCode, string(respBody))), nil
	}

	return newOpenAIReader(resp), nil
}

type openAIReader struct {
	resp        *http.Response
	scanner     *sseScanner
	pending     []streamevent.Event
	textBlock   *streamevent.Block
	toolBlocks  map[int]*streamevent.Block // keyed by OpenAI delta index
	toolStarted map[int]bool
	finishSeen  bool
}

func newOpenAIReader(resp *http.Response) *openAIReader {
	return &openAIReader{
		resp:        resp,
		scanner:     newSSEScanner(resp.Body),
		toolBlocks:  make(map[int]*streamevent.Block),
		toolStarted: make(map[int]bool),
	}
}

func (r *openAIReader) Close() error { return r.resp.Body.Close() }

func (r *openAIReader) Next() (streamevent.Event, bool, error) {
	for len(r.pending) == 0 {
		data, err := r.scanner.next()
		if err == errSSEDone {
			return streamevent.Event{}, false, nil
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

func (r *openAIReader) translate(data string) {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content   string           `json:"content"`
				ToolCalls []openAIToolCall `json:"tool_calls"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		logging.Debug().Err(err).Str("data", data).Msg("openai: failed to parse SSE frame")
		return
	}

	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			if r.textBlock == nil {
				r.textBlock = &streamevent.Block{Index: 0, Kind: streamevent.BlockText}
			}
			r.textBlock.Text += choice.Delta.Content
			r.pending = append(r.pending, streamevent.TextDelta(choice.Delta.Content))
		}

		for _, tc := range choice.Delta.ToolCalls {
			idx := 1 + tc.Index // index 0 is reserved for text
			block, seen := r.toolBlocks[idx]
			if !seen {
				block = &streamevent.Block{Index: idx, Kind: streamevent.BlockTool, ToolCallID: tc.ID, ToolName: tc.Function.Name}
				r.toolBlocks[idx] = block
			}
			if !r.toolStarted[idx] && tc.Function.Name != "" {
				r.toolStarted[idx] = true
				r.pending = append(r.pending, streamevent.ToolUseStart(idx, tc.ID, tc.Function.Name))
			}
			if tc.Function.Arguments != "" {
				block.InputJSON += tc.Function.Arguments
				r.pending = append(r.pending, streamevent.ToolInputDelta(idx, tc.Function.Arguments))
			}
		}

		if choice.FinishReason != nil && !r.finishSeen {
			r.finishSeen = true
			if r.textBlock != nil {
				r.pending = append(r.pending, streamevent.ContentBlockDone(r.textBlock))
			}
			for _, idx := range sortedKeys(r.toolBlocks) {
				block := r.toolBlocks[idx]
				if !isValidJSON(block.InputJSON) {
					block.InputJSON = "null"
				}
				r.pending = append(r.pending, streamevent.ContentBlockDone(block))
			}

			var usage *streamevent.Usage
			if chunk.Usage != nil {
				usage = &streamevent.Usage{Input: chunk.Usage.PromptTokens, Output: chunk.Usage.CompletionTokens}
			}
			r.pending = append(r.pending, streamevent.Done(openAIStopReason(*choice.FinishReason), usage))
		}
	}
}

func openAIStopReason(reason string) streamevent.StopReason {
	switch reason {
	case "stop":
		return streamevent.StopEndTurn
	case "tool_calls":
		return streamevent.StopToolUse
	case "length":
		return streamevent.StopMaxTokens
	default:
		return streamevent.StopEndTurn
	}
}

func isValidJSON(s string) bool {
	return json.Valid([]byte(s))
}

func sortedKeys(m map[int]*streamevent.Block) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func openAIModels() []types.Model {
	return []types.Model{
		{ID: "gpt-5", Name: "GPT-5", ProviderID: "openai", ContextLength: 272000, MaxOutputTokens: 128000, SupportsTools: true, SupportsVision: true, SupportsReasoning: true, InputPrice: 1.25, OutputPrice: 10.0},
		{ID: "gpt-5-mini", Name: "GPT-5 Mini", ProviderID: "openai", ContextLength: 272000, MaxOutputTokens: 128000, SupportsTools: true, SupportsVision: true, SupportsReasoning: true, InputPrice: 0.25, OutputPrice: 2.0},
		{ID: "gpt-5-nano", Name: "GPT-5 Nano", ProviderID: "openai", ContextLength: 272000, MaxOutputTokens: 128000, SupportsTools: true, SupportsVision: true, InputPrice: 0.05, OutputPrice: 0.4},
		{ID: "gpt-4o", Name: "GPT-4o", ProviderID: "openai", ContextLength: 128000, MaxOutputTokens: 16384, SupportsTools: true, SupportsVision: true, InputPrice: 2.5, OutputPrice: 10.0},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ProviderID: "openai", ContextLength: 128000, MaxOutputTokens: 16384, SupportsTools: true, SupportsVision: true, InputPrice: 0.15, OutputPrice: 0.6},
		{ID: "o1", Name: "O1", ProviderID: "openai", ContextLength: 200000, MaxOutputTokens: 100000, SupportsTools: true, SupportsReasoning: true, InputPrice: 15.0, OutputPrice: 60.0},
		{ID: "o1-mini", Name: "O1 Mini", ProviderID: "openai", ContextLength: 128000, MaxOutputTokens: 65536, SupportsTools: true, SupportsReasoning: true, InputPrice: 1.1, OutputPrice: 4.4},
	}
}
