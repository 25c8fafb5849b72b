package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/coreassist/coreassist/internal/event"
	"github.com/coreassist/coreassist/internal/id"
	"github.com/coreassist/coreassist/internal/memory"
	"github.com/coreassist/coreassist/internal/metrics"
	"github.com/coreassist/coreassist/internal/provider"
	"github.com/coreassist/coreassist/internal/tracing"
	"github.com/coreassist/coreassist/pkg/types"
)

const (
	// MaxSteps is the maximum number of agentic loop iterations.
	MaxSteps = 50
	// MaxRetries is the maximum number of retries for API errors.
	MaxRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = 2 * time.Minute
	// MaxContextTokens is the combined input+output token threshold past
	// which a session is compacted before the next turn.
	MaxContextTokens = 100000
	// memoryContextMaxItems caps how many remembered facts are injected
	// into a single system prompt.
	memoryContextMaxItems = 20
)

// newRetryBackoff creates a new exponential backoff with jitter for API retries.
// Uses cenkalti/backoff for better retry behavior including jitter to prevent
// thundering herd problems and context-aware cancellation.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5 // Add jitter
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// runLoop executes the agentic loop.
func (p *Processor) runLoop(
	ctx context.Context,
	sessionID string,
	state *sessionState,
	agent *Agent,
	callback ProcessCallback,
) error {
	if _, err := p.findSession(ctx, sessionID); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}

	// Load messages
	messages, err := p.loadMessages(ctx, sessionID)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		return fmt.Errorf("no messages in session")
	}

	lastMsg := messages[len(messages)-1]
	if lastMsg.Role != "user" {
		return fmt.Errorf("expected user message, got %s", lastMsg.Role)
	}

	// Get provider and model
	providerID := p.defaultProviderID
	modelID := p.defaultModelID

	if lastMsg.Model != nil {
		providerID = lastMsg.Model.ProviderID
		modelID = lastMsg.Model.ModelID
	}

	prov, err := p.providerRegistry.Get(providerID)
	if err != nil {
		return fmt.Errorf("provider not found: %w", err)
	}

	model, err := p.providerRegistry.GetModel(providerID, modelID)
	if err != nil {
		return fmt.Errorf("model not found: %w", err)
	}

	ctx, turnSpan := tracing.StartTurn(ctx, sessionID, providerID, modelID)
	defer turnSpan.End()

	// Create assistant message
	now := time.Now().UnixMilli()
	assistantMsg := &types.Message{
		ID:         id.New(id.Message),
		SessionID:  sessionID,
		Role:       "assistant",
		ParentID:   lastMsg.ID,
		ProviderID: providerID,
		ModelID:    modelID,
		Time: types.MessageTime{
			Created: now,
		},
	}
	state.message = assistantMsg

	// Save initial message
	if err := p.storage.Put(ctx, []string{"message", sessionID, assistantMsg.ID}, assistantMsg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	// Notify callback
	callback(assistantMsg, nil)

	event.Publish(event.Event{
		Type: event.MessageCreated,
		Data: event.MessageCreatedData{Info: assistantMsg},
	})

	// Get agent config
	if agent == nil {
		agent = DefaultAgent()
	}

	maxSteps := agent.MaxSteps
	if maxSteps <= 0 {
		maxSteps = MaxSteps
	}

	// Run loop
	step := 0
	retryBackoff := newRetryBackoff(ctx)

	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			assistantMsg.Error = &types.MessageError{
				Type:    "abort",
				Message: "Processing aborted",
			}
			p.saveMessage(ctx, sessionID, assistantMsg)
			return ctx.Err()
		default:
		}

		// Check step limit
		if step >= maxSteps {
			assistantMsg.Error = &types.MessageError{
				Type:    "max_steps",
				Message: "Maximum steps reached",
			}
			p.saveMessage(ctx, sessionID, assistantMsg)
			return fmt.Errorf("max steps exceeded")
		}

		// Check for context overflow and compact if needed
		if p.shouldCompact(messages) {
			if err := p.compactMessages(ctx, sessionID, messages); err != nil {
				// Log but don't fail; the turn proceeds over the uncompacted window.
			}
			// Reload messages
			messages, _ = p.loadMessages(ctx, sessionID)
		}

		// Build completion request
		req, err := p.buildCompletionRequest(ctx, sessionID, messages, assistantMsg, agent, model)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}

		// Call LLM with streaming
		completionCtx, completionSpan := tracing.StartCompletion(ctx, providerID, modelID)
		streamStart := time.Now()
		stream, err := prov.CreateCompletion(completionCtx, req)
		if err != nil {
			completionSpan.End()
			// Use exponential backoff with jitter for retries
			nextInterval := retryBackoff.NextBackOff()
			if nextInterval == backoff.Stop {
				assistantMsg.Error = &types.MessageError{
					Type:    "api",
					Message: err.Error(),
				}
				p.saveMessage(ctx, sessionID, assistantMsg)
				return err
			}
			time.Sleep(nextInterval)
			continue
		}

		// Process stream
		finishReason, err := p.processStream(completionCtx, stream, state, callback)
		stream.Close()
		completionSpan.End()
		metrics.ProviderStreamDuration.WithLabelValues(providerID).Observe(time.Since(streamStart).Seconds())

		if err != nil {
			// Use exponential backoff with jitter for retries
			nextInterval := retryBackoff.NextBackOff()
			if nextInterval == backoff.Stop {
				assistantMsg.Error = &types.MessageError{
					Type:    "api",
					Message: err.Error(),
				}
				p.saveMessage(ctx, sessionID, assistantMsg)
				return err
			}
			time.Sleep(nextInterval)
			continue
		}

		// Reset backoff on success
		retryBackoff.Reset()

		// Check finish reason
		switch finishReason {
		case "end_turn", "stop_sequence", "stop":
			finish := "stop"
			assistantMsg.Finish = &finish
			p.saveMessage(ctx, sessionID, assistantMsg)
			return nil

		case "tool_use":
			// Execute tools and continue loop
			if err := p.executeToolCalls(ctx, state, agent, callback); err != nil {
				// Tool execution errors don't stop the loop; the error is
				// captured on the tool part itself.
			}
			step++
			continue

		case "max_tokens":
			finish := "max_tokens"
			assistantMsg.Finish = &finish
			assistantMsg.Error = &types.MessageError{
				Type:    "output_length",
				Message: "Output length limit reached",
			}
			p.saveMessage(ctx, sessionID, assistantMsg)
			return nil

		default:
			// Unknown finish reason, treat as stop
			assistantMsg.Finish = &finishReason
			p.saveMessage(ctx, sessionID, assistantMsg)
			return nil
		}
	}
}

// findSession finds a session by ID across all projects.
func (p *Processor) findSession(ctx context.Context, sessionID string) (*types.Session, error) {
	projects, err := p.storage.List(ctx, []string{"session"})
	if err != nil {
		return nil, err
	}

	for _, projectID := range projects {
		var session types.Session
		if err := p.storage.Get(ctx, []string{"session", projectID, sessionID}, &session); err == nil {
			return &session, nil
		}
	}

	return nil, fmt.Errorf("session not found: %s", sessionID)
}

// loadMessages loads all messages for a session.
func (p *Processor) loadMessages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	var messages []*types.Message
	err := p.storage.Scan(ctx, []string{"message", sessionID}, func(key string, data json.RawMessage) error {
		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		messages = append(messages, &msg)
		return nil
	})
	return messages, err
}

// saveMessage saves an assistant message.
func (p *Processor) saveMessage(ctx context.Context, sessionID string, msg *types.Message) error {
	now := time.Now().UnixMilli()
	msg.Time.Updated = &now

	if err := p.storage.Put(ctx, []string{"message", sessionID, msg.ID}, msg); err != nil {
		return err
	}

	event.Publish(event.Event{
		Type: event.MessageUpdated,
		Data: event.MessageUpdatedData{Info: msg},
	})

	return nil
}

// savePart saves a part for a message.
func (p *Processor) savePart(ctx context.Context, messageID string, part types.Part) error {
	return p.storage.Put(ctx, []string{"part", messageID, part.PartID()}, part)
}

// shouldCompact checks if messages should be compacted.
func (p *Processor) shouldCompact(messages []*types.Message) bool {
	totalTokens := 0
	for _, msg := range messages {
		if msg.Tokens != nil {
			totalTokens += msg.Tokens.Input + msg.Tokens.Output
		}
	}
	return totalTokens > MaxContextTokens
}

// buildCompletionRequest builds an LLM completion request.
func (p *Processor) buildCompletionRequest(
	ctx context.Context,
	sessionID string,
	messages []*types.Message,
	currentMsg *types.Message,
	agent *Agent,
	model *types.Model,
) (*provider.CompletionRequest, error) {
	session, _ := p.findSession(ctx, sessionID)
	systemPrompt := NewSystemPrompt(session, agent, currentMsg.ProviderID, currentMsg.ModelID)
	if p.memoryStore != nil && session != nil && session.ProjectID != "" {
		if items, err := p.memoryStore.List(ctx, session.ProjectID); err == nil {
			systemPrompt.WithMemoryContext(memory.FormatForPrompt(memory.GetContext(items, memoryContextMaxItems)))
		}
	}

	var history []provider.Message

	for _, msg := range messages {
		// Skip errored messages without content
		if msg.Error != nil && !p.hasUsableContent(ctx, msg) {
			continue
		}

		parts, err := p.loadParts(ctx, msg.ID)
		if err != nil {
			continue
		}

		history = append(history, p.convertMessage(msg, parts)...)
	}

	tools, err := p.resolveTools(agent, model)
	if err != nil {
		return nil, err
	}

	maxTokens := model.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	req := &provider.CompletionRequest{
		Model:       model.ID,
		Messages:    history,
		System:      systemPrompt.Build(),
		Tools:       tools,
		MaxTokens:   maxTokens,
		Temperature: agent.Temperature,
	}

	return req, nil
}

// loadParts loads all parts for a message.
func (p *Processor) loadParts(ctx context.Context, messageID string) ([]types.Part, error) {
	var parts []types.Part
	err := p.storage.Scan(ctx, []string{"part", messageID}, func(key string, data json.RawMessage) error {
		part, err := types.UnmarshalPart(data)
		if err != nil {
			return err
		}
		parts = append(parts, part)
		return nil
	})
	return parts, err
}

// hasUsableContent checks if a message has content worth including.
func (p *Processor) hasUsableContent(ctx context.Context, msg *types.Message) bool {
	parts, err := p.loadParts(ctx, msg.ID)
	if err != nil {
		return false
	}
	return len(parts) > 0
}

// convertMessage converts a stored message and its parts into the one or
// two provider messages needed to represent it on the wire: a primary
// message carrying the role's text/tool-use content, plus a trailing
// synthetic user message carrying any tool results, since tool_use and
// tool_result blocks can never share a message for providers modeled on
// the Anthropic content-block shape.
func (p *Processor) convertMessage(msg *types.Message, parts []types.Part) []provider.Message {
	role := provider.RoleAssistant
	if msg.Role == "user" {
		role = provider.RoleUser
	}

	var primary []provider.ContentBlock
	var results []provider.ContentBlock

	for _, part := range parts {
		switch pt := part.(type) {
		case *types.TextPart:
			primary = append(primary, provider.ContentBlock{Kind: provider.BlockText, Text: pt.Text})

		case *types.ToolPart:
			inputJSON, _ := json.Marshal(pt.Input)
			primary = append(primary, provider.ContentBlock{
				Kind:       provider.BlockToolUse,
				ToolCallID: pt.CallID,
				ToolName:   pt.ToolName,
				InputJSON:  string(inputJSON),
			})

			if pt.State == types.ToolStateCompleted || pt.State == types.ToolStateError {
				resultText := ""
				isError := pt.State == types.ToolStateError
				if pt.Output != nil {
					resultText = *pt.Output
				} else if pt.Error != nil {
					resultText = *pt.Error
				}
				results = append(results, provider.ContentBlock{
					Kind:       provider.BlockToolResult,
					ToolCallID: pt.CallID,
					ResultText: resultText,
					IsError:    isError,
				})
			}
		}
	}

	if len(primary) == 0 && len(results) == 0 {
		return nil
	}

	out := []provider.Message{{Role: role, Blocks: primary}}
	if len(results) > 0 {
		out = append(out, provider.Message{Role: provider.RoleUser, Blocks: results})
	}
	return out
}

// resolveTools returns tools enabled for the agent.
func (p *Processor) resolveTools(agent *Agent, model *types.Model) ([]provider.ToolInfo, error) {
	if !model.SupportsTools {
		return nil, nil
	}

	allTools := p.toolRegistry.List()

	var result []provider.ToolInfo
	for _, t := range allTools {
		if !agent.ToolEnabled(t.ID()) {
			continue
		}
		result = append(result, provider.ToolInfo{
			Name:        t.ID(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return result, nil
}

// generatePartID generates a new identifier for a message part.
func generatePartID() string {
	return id.New(id.Part)
}

// ptr returns a pointer to the given value.
func ptr[T any](v T) *T {
	return &v
}

// processStream is defined in stream.go
