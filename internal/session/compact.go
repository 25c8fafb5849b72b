package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreassist/coreassist/internal/event"
	"github.com/coreassist/coreassist/internal/provider"
	"github.com/coreassist/coreassist/internal/streamevent"
	"github.com/coreassist/coreassist/pkg/types"
)

// CompactionConfig controls message compaction behavior.
type CompactionConfig struct {
	// MinMessagesToKeep is the minimum number of recent messages left
	// untouched by compaction.
	MinMessagesToKeep int

	// SummaryMaxTokens caps the length of the generated summary.
	SummaryMaxTokens int

	// TokenThreshold is the combined input+output+cache_read token count,
	// summed across a session's assistant messages, that triggers
	// compaction.
	TokenThreshold int
}

// DefaultCompactionConfig returns the default compaction configuration.
var DefaultCompactionConfig = CompactionConfig{
	MinMessagesToKeep: 4,
	SummaryMaxTokens:  2000,
	TokenThreshold:    100000,
}

// compactionSystemPrompt is the system prompt for generating summaries.
const compactionSystemPrompt = `You are a conversation summarizer. Create a concise summary of the conversation that preserves key context for continuing the discussion.

Focus on:
1. What was accomplished
2. Current work in progress
3. Files involved
4. Next steps
5. Any key user requests or constraints

Be concise but detailed enough that work can continue seamlessly.`

// getCompactableMessages returns the oldest messages eligible for
// compaction, keeping the most recent keepRecent messages untouched.
// Returns nil if keepRecent is below MinMessagesToKeep, or if there
// aren't more than keepRecent messages to begin with.
func getCompactableMessages(messages []*types.Message, keepRecent int) []*types.Message {
	if keepRecent < DefaultCompactionConfig.MinMessagesToKeep {
		return nil
	}
	if len(messages) <= keepRecent {
		return nil
	}
	return messages[:len(messages)-keepRecent]
}

// compactMessages summarizes the oldest messages in a session, replacing
// them with a single is_summary assistant message so future turns carry a
// smaller context. The compacted messages and their parts are deleted.
func (p *Processor) compactMessages(
	ctx context.Context,
	sessionID string,
	messages []*types.Message,
) error {
	toCompact := getCompactableMessages(messages, DefaultCompactionConfig.MinMessagesToKeep)
	if len(toCompact) == 0 {
		return nil
	}
	remaining := messages[len(toCompact):]

	session, err := p.findSession(ctx, sessionID)
	if err != nil {
		return err
	}

	lastMsg := messages[len(messages)-1]
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

	summaryPrompt := buildSummaryPrompt(ctx, p, toCompact)
	summaryPrompt += "\n\nSummarize our conversation above. This summary will be the only context available when the conversation continues, so preserve critical information including: what was accomplished, current work in progress, files involved, next steps, and any key user requests or constraints. Be concise but detailed enough that work can continue seamlessly."

	req := &provider.CompletionRequest{
		Model:     model.ID,
		System:    compactionSystemPrompt,
		MaxTokens: DefaultCompactionConfig.SummaryMaxTokens,
		Messages: []provider.Message{
			{
				Role:   provider.RoleUser,
				Blocks: []provider.ContentBlock{{Kind: provider.BlockText, Text: summaryPrompt}},
			},
		},
	}

	stream, err := prov.CreateCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create completion: %w", err)
	}
	defer stream.Close()

	now := time.Now().UnixMilli()
	assistantMsg := &types.Message{
		ID:         generatePartID(),
		SessionID:  sessionID,
		Role:       "assistant",
		ParentID:   summaryParentID(remaining),
		ProviderID: providerID,
		ModelID:    modelID,
		Mode:       lastMsg.Agent,
		IsSummary:  true,
		Time:       types.MessageTime{Created: now},
		Tokens:     &types.TokenUsage{},
	}
	if err := p.storage.Put(ctx, []string{"message", sessionID, assistantMsg.ID}, assistantMsg); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	event.PublishSync(event.Event{
		Type: event.MessageCreated,
		Data: event.MessageCreatedData{Info: assistantMsg},
	})

	textPart := &types.TextPart{
		ID:        generatePartID(),
		SessionID: sessionID,
		MessageID: assistantMsg.ID,
		Type:      "text",
		Time:      types.PartTime{Start: &now},
	}
	if err := p.savePart(ctx, assistantMsg.ID, textPart); err != nil {
		return fmt.Errorf("failed to save part: %w", err)
	}
	event.PublishSync(event.Event{
		Type: event.MessagePartUpdated,
		Data: event.MessagePartUpdatedData{Part: textPart},
	})

	var fullText strings.Builder
	for {
		ev, ok, err := stream.Next()
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		if !ok {
			break
		}
		switch ev.Kind {
		case streamevent.KindTextDelta:
			fullText.WriteString(ev.Text)
			textPart.Text = fullText.String()
			p.savePart(ctx, assistantMsg.ID, textPart)
			event.PublishSync(event.Event{
				Type: event.MessagePartUpdated,
				Data: event.MessagePartUpdatedData{Part: textPart, Delta: ev.Text},
			})
		case streamevent.KindDone:
			if ev.Usage != nil {
				assistantMsg.Tokens = &types.TokenUsage{
					Input:      ev.Usage.Input,
					Output:     ev.Usage.Output,
					CacheRead:  ev.Usage.CacheRead,
					CacheWrite: ev.Usage.CacheWrite,
				}
			}
		case streamevent.KindError:
			if ev.Err != nil {
				return ev.Err
			}
		}
	}

	endNow := time.Now().UnixMilli()
	textPart.Time.End = &endNow
	p.savePart(ctx, assistantMsg.ID, textPart)

	assistantMsg.Time.Completed = &endNow
	p.storage.Put(ctx, []string{"message", sessionID, assistantMsg.ID}, assistantMsg)
	event.PublishSync(event.Event{
		Type: event.MessageUpdated,
		Data: event.MessageUpdatedData{Info: assistantMsg},
	})

	// Cascade-delete the compacted messages and their parts.
	for _, msg := range toCompact {
		parts, err := p.loadParts(ctx, msg.ID)
		if err == nil {
			for _, part := range parts {
				p.storage.Delete(ctx, []string{"part", msg.ID, part.PartID()})
			}
		}
		p.storage.Delete(ctx, []string{"message", sessionID, msg.ID})
	}

	session.Time.Compacted = &endNow
	if err := p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session); err != nil {
		return err
	}
	event.PublishSync(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionUpdatedData{Info: session},
	})

	return nil
}

// summaryParentID picks the parent for the inserted summary message: the
// oldest user message surviving compaction, so the Assistant/parent_id
// invariant keeps pointing at a message that still exists.
func summaryParentID(remaining []*types.Message) string {
	for _, msg := range remaining {
		if msg.Role == "user" {
			return msg.ID
		}
	}
	if len(remaining) > 0 {
		return remaining[0].ID
	}
	return ""
}

// buildSummaryPrompt creates a prompt for summarizing messages.
func buildSummaryPrompt(ctx context.Context, p *Processor, messages []*types.Message) string {
	var prompt strings.Builder

	prompt.WriteString("Please summarize the following conversation, focusing on:\n")
	prompt.WriteString("1. Key decisions and outcomes\n")
	prompt.WriteString("2. Files that were modified\n")
	prompt.WriteString("3. Important context for continuing the work\n\n")
	prompt.WriteString("---\n\n")

	for _, msg := range messages {
		if msg.Role == "user" {
			prompt.WriteString("USER:\n")
		} else {
			prompt.WriteString("ASSISTANT:\n")
		}

		parts, err := p.loadParts(ctx, msg.ID)
		if err != nil {
			continue
		}

		for _, part := range parts {
			switch pt := part.(type) {
			case *types.TextPart:
				prompt.WriteString(pt.Text)
				prompt.WriteString("\n")
			case *types.ToolPart:
				prompt.WriteString(fmt.Sprintf("[Tool: %s]\n", pt.ToolName))
				if pt.Output != nil && *pt.Output != "" {
					output := *pt.Output
					if len(output) > 500 {
						output = output[:500] + "..."
					}
					prompt.WriteString(output)
					prompt.WriteString("\n")
				}
			}
		}

		prompt.WriteString("\n")
	}

	return prompt.String()
}

// estimateTokens provides a rough estimate of token count.
func estimateTokens(text string) int {
	// Rough estimate: ~4 characters per token
	return len(text) / 4
}
