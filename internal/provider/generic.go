package provider

import (
	"github.com/coreassist/coreassist/internal/streamevent"
)

// GenericChunkKind discriminates a pre-translated chunk fed to the generic
// adapter by a caller that has already parsed its own wire protocol (for
// example, an MCP sampling response, or a test double).
type GenericChunkKind string

const (
	GenericText             GenericChunkKind = "text"
	GenericToolUseStart     GenericChunkKind = "tool_use_start"
	GenericToolUseInputDelta GenericChunkKind = "tool_use_input_delta"
	GenericToolUseComplete  GenericChunkKind = "tool_use_complete"
	GenericDone             GenericChunkKind = "done"
)

// GenericChunk is one already-parsed unit from an upstream source that
// does not speak Anthropic's or OpenAI's wire protocol but can produce
// this simplified shape.
type GenericChunk struct {
	Kind GenericChunkKind

	Text string // GenericText

	Index    int    // GenericToolUseStart, GenericToolUseInputDelta, GenericToolUseComplete
	CallID   string // GenericToolUseStart
	ToolName string // GenericToolUseStart
	Partial  string // GenericToolUseInputDelta
	Input    string // GenericToolUseComplete, accumulated JSON arguments

	StopReason string // GenericDone, one of "end_turn"/"stop", "tool_use"/"tool_calls", "max_tokens"/"length"
}

// GenericChunkSource yields GenericChunks one at a time; ok=false with a
// nil error signals a clean end of stream.
type GenericChunkSource interface {
	Next() (GenericChunk, bool, error)
	Close() error
}

// genericReader adapts a GenericChunkSource into the uniform streamevent
// sequence, purely by remapping tags: it performs no wire-level parsing,
// since its source has already done that.
type genericReader struct {
	src GenericChunkSource
}

// NewGenericReader wraps a pre-translated chunk source as a
// streamevent.Reader.
func NewGenericReader(src GenericChunkSource) streamevent.Reader {
	return &genericReader{src: src}
}

func (r *genericReader) Close() error { return r.src.Close() }

func (r *genericReader) Next() (streamevent.Event, bool, error) {
	chunk, ok, err := r.src.Next()
	if !ok || err != nil {
		return streamevent.Event{}, false, err
	}

	switch chunk.Kind {
	case GenericText:
		return streamevent.TextDelta(chunk.Text), true, nil
	case GenericToolUseStart:
		return streamevent.ToolUseStart(chunk.Index, chunk.CallID, chunk.ToolName), true, nil
	case GenericToolUseInputDelta:
		return streamevent.ToolInputDelta(chunk.Index, chunk.Partial), true, nil
	case GenericToolUseComplete:
		return streamevent.ContentBlockDone(&streamevent.Block{
			Index: chunk.Index, Kind: streamevent.BlockTool,
			ToolCallID: chunk.CallID, ToolName: chunk.ToolName, InputJSON: chunk.Input,
		}), true, nil
	case GenericDone:
		return streamevent.Done(genericStopReason(chunk.StopReason), nil), true, nil
	default:
		return r.Next()
	}
}

func genericStopReason(s string) streamevent.StopReason {
	switch s {
	case "end_turn", "stop":
		return streamevent.StopEndTurn
	case "tool_use", "tool_calls":
		return streamevent.StopToolUse
	case "max_tokens", "length":
		return streamevent.StopMaxTokens
	default:
		return streamevent.StopEndTurn
	}
}
