// Package streamevent defines the uniform event model that every provider
// adapter translates its wire protocol into. Consumers drive a single
// lazy, in-order sequence of these events per assistant turn regardless of
// which upstream API produced them.
package streamevent

// Kind discriminates the Event union.
type Kind string

const (
	KindTextDelta        Kind = "text_delta"
	KindToolUseStart     Kind = "tool_use_start"
	KindToolInputDelta   Kind = "tool_input_delta"
	KindContentBlockDone Kind = "content_block_done"
	KindDone             Kind = "done"
	KindError            Kind = "error"
)

// StopReason is why the model ceased generating content.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
)

// BlockKind discriminates an accumulated content block.
type BlockKind string

const (
	BlockText BlockKind = "text"
	BlockTool BlockKind = "tool"
)

// Block is an accumulated content block, final once ContentBlockDone fires
// for its Index.
type Block struct {
	Index int       `json:"index"`
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text,omitempty"`

	// Tool fields, set when Kind == BlockTool.
	ToolCallID string `json:"toolCallID,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	// InputJSON is the accumulated raw JSON arguments buffer; for a
	// malformed buffer it is left unparsed and callers decide how to
	// degrade (the OpenAI adapter falls back to "null").
	InputJSON string `json:"inputJSON,omitempty"`
}

// Usage reports token accounting for a completed turn.
type Usage struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	CacheRead  int `json:"cacheRead,omitempty"`
	CacheWrite int `json:"cacheWrite,omitempty"`
}

// ApiError is a provider-reported failure surfaced as a terminal event.
type ApiError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *ApiError) Error() string { return e.Message }

// Event is the uniform union every adapter emits. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Event struct {
	Kind Kind

	// KindTextDelta
	Text string

	// KindToolUseStart
	Index    int
	CallID   string
	ToolName string

	// KindToolInputDelta
	PartialJSON string

	// KindContentBlockDone
	Block *Block

	// KindDone
	StopReason StopReason
	Usage      *Usage

	// KindError
	Err *ApiError
}

func TextDelta(text string) Event { return Event{Kind: KindTextDelta, Text: text} }

func ToolUseStart(index int, callID, toolName string) Event {
	return Event{Kind: KindToolUseStart, Index: index, CallID: callID, ToolName: toolName}
}

func ToolInputDelta(index int, partialJSON string) Event {
	return Event{Kind: KindToolInputDelta, Index: index, PartialJSON: partialJSON}
}

func ContentBlockDone(block *Block) Event {
	return Event{Kind: KindContentBlockDone, Index: block.Index, Block: block}
}

func Done(reason StopReason, usage *Usage) Event {
	return Event{Kind: KindDone, StopReason: reason, Usage: usage}
}

func Error(status int, message string) Event {
	return Event{Kind: KindError, Err: &ApiError{Status: status, Message: message}}
}

// Reader is a lazy, single-consumer sequence of Events for one assistant
// turn. Implementations must preserve event order and must never reorder
// tool deltas across indices. Next returns (Event{}, false, nil) to signal
// a clean end of stream without a Done event having been observed (the
// caller should treat this as equivalent to Done{StopEndTurn}); a non-nil
// error is always terminal.
type Reader interface {
	Next() (Event, bool, error)
	Close() error
}
