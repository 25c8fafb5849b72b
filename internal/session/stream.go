package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coreassist/coreassist/internal/event"
	"github.com/coreassist/coreassist/internal/streamevent"
	"github.com/coreassist/coreassist/pkg/types"
)

// processStream drains a streamevent.Reader for one assistant turn,
// materializing TextPart/ToolPart updates as they arrive and returning the
// terminal stop reason (or "error" if the stream itself failed).
func (p *Processor) processStream(
	ctx context.Context,
	stream streamevent.Reader,
	state *sessionState,
	callback ProcessCallback,
) (string, error) {
	var currentTextPart *types.TextPart
	toolParts := make(map[int]*types.ToolPart)
	toolInputs := make(map[int]string)

	var finishReason string
	var lastEventTime time.Time

	for {
		select {
		case <-ctx.Done():
			return "error", ctx.Err()
		default:
		}

		ev, ok, err := stream.Next()
		if err != nil {
			return "error", err
		}
		if !ok {
			break
		}

		switch ev.Kind {
		case streamevent.KindTextDelta:
			if currentTextPart == nil {
				now := time.Now().UnixMilli()
				currentTextPart = &types.TextPart{
					ID:        generatePartID(),
					SessionID: state.message.SessionID,
					MessageID: state.message.ID,
					Type:      "text",
					Text:      ev.Text,
					Time:      types.PartTime{Start: &now},
				}
				state.parts = append(state.parts, currentTextPart)
			} else {
				currentTextPart.Text += ev.Text
			}

			throttledPublish(event.Event{
				Type: event.MessagePartUpdated,
				Data: event.MessagePartUpdatedData{
					Part:  currentTextPart,
					Delta: ev.Text,
				},
			}, &lastEventTime)
			callback(state.message, state.parts)

		case streamevent.KindToolUseStart:
			now := time.Now().UnixMilli()
			toolPart := &types.ToolPart{
				ID:        generatePartID(),
				SessionID: state.message.SessionID,
				MessageID: state.message.ID,
				Type:      "tool",
				CallID:    ev.CallID,
				ToolName:  ev.ToolName,
				Input:     make(map[string]any),
				State:     types.ToolStatePending,
				Time:      types.PartTime{Start: &now},
			}
			toolParts[ev.Index] = toolPart
			toolInputs[ev.Index] = ""
			state.parts = append(state.parts, toolPart)
			p.savePart(ctx, state.message.ID, toolPart)
			event.Publish(event.Event{
				Type: event.MessagePartUpdated,
				Data: event.MessagePartUpdatedData{Part: toolPart},
			})
			callback(state.message, state.parts)

		case streamevent.KindToolInputDelta:
			toolPart, exists := toolParts[ev.Index]
			if !exists {
				continue
			}
			toolInputs[ev.Index] += ev.PartialJSON

			var input map[string]any
			if err := json.Unmarshal([]byte(toolInputs[ev.Index]), &input); err == nil {
				toolPart.Input = input
			}

			event.Publish(event.Event{
				Type: event.MessagePartUpdated,
				Data: event.MessagePartUpdatedData{Part: toolPart},
			})
			callback(state.message, state.parts)

		case streamevent.KindContentBlockDone:
			if ev.Block == nil {
				continue
			}
			switch ev.Block.Kind {
			case streamevent.BlockText:
				if currentTextPart != nil {
					now := time.Now().UnixMilli()
					currentTextPart.Time.End = &now
					p.savePart(ctx, state.message.ID, currentTextPart)
				}
			case streamevent.BlockTool:
				if toolPart, exists := toolParts[ev.Block.Index]; exists && toolPart.Input == nil {
					var input map[string]any
					if err := json.Unmarshal([]byte(ev.Block.InputJSON), &input); err == nil {
						toolPart.Input = input
					}
				}
			}

		case streamevent.KindDone:
			finishReason = string(ev.StopReason)
			if ev.Usage != nil {
				state.message.Tokens = &types.TokenUsage{
					Input:      ev.Usage.Input,
					Output:     ev.Usage.Output,
					CacheRead:  ev.Usage.CacheRead,
					CacheWrite: ev.Usage.CacheWrite,
				}
			}

		case streamevent.KindError:
			if ev.Err != nil {
				return "error", ev.Err
			}
			return "error", nil
		}
	}

	// Finalize any still-open text part.
	if currentTextPart != nil && currentTextPart.Time.End == nil {
		now := time.Now().UnixMilli()
		currentTextPart.Time.End = &now
		p.savePart(ctx, state.message.ID, currentTextPart)
	}

	// Promote pending tool calls to running so executeToolCalls picks them up.
	now := time.Now().UnixMilli()
	for _, toolPart := range toolParts {
		if toolPart.State == types.ToolStatePending {
			_ = toolPart.Transition(types.ToolStateRunning, now)
		}
		p.savePart(ctx, state.message.ID, toolPart)
	}

	if finishReason == "" {
		if len(toolParts) > 0 {
			finishReason = "tool_use"
		} else {
			finishReason = "end_turn"
		}
	}

	return finishReason, nil
}

// truncate truncates a string to the specified length.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// MinEventInterval is the minimum time between streaming events.
// This ensures the TUI has time to process each event before the next arrives.
// Set to slightly above TUI's 16ms batching window to prevent batching.
const MinEventInterval = 20 * time.Millisecond

// throttledPublish publishes an event with optional throttling to prevent TUI batching.
func throttledPublish(e event.Event, lastEventTime *time.Time) {
	if lastEventTime != nil && !lastEventTime.IsZero() {
		elapsed := time.Since(*lastEventTime)
		if elapsed < MinEventInterval {
			time.Sleep(MinEventInterval - elapsed)
		}
	}
	event.Publish(e)
	if lastEventTime != nil {
		*lastEventTime = time.Now()
	}
}
