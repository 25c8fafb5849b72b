package types

import "encoding/json"

// Part is a component of a message: Text, Tool, Reasoning, or File.
// SDK compatible: all parts carry sessionID and messageID fields.
type Part interface {
	PartType() string
	PartID() string
	PartSessionID() string
	PartMessageID() string
}

// PartTime contains timing information for a message part.
type PartTime struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// FileReference points at a file the text part's content refers to or was
// derived from, optionally pinned to a content hash for staleness checks.
type FileReference struct {
	Path        string  `json:"path"`
	ContentHash *string `json:"contentHash,omitempty"`
}

// TextPart represents a text content part. Synthetic is true when the part
// was injected by the agent runtime (e.g. a tool-result message fed back to
// the model) rather than typed by the user or generated by the model.
type TextPart struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"sessionID"` // SDK compatible
	MessageID  string          `json:"messageID"` // SDK compatible
	Type       string          `json:"type"`      // always "text"
	Text       string          `json:"text"`
	Synthetic  bool            `json:"synthetic,omitempty"`
	Files      []FileReference `json:"files,omitempty"`
	Time       PartTime        `json:"time,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

func (p *TextPart) PartType() string      { return "text" }
func (p *TextPart) PartID() string        { return p.ID }
func (p *TextPart) PartSessionID() string { return p.SessionID }
func (p *TextPart) PartMessageID() string { return p.MessageID }

// ReasoningPart represents extended thinking/reasoning content captured
// during model generation.
type ReasoningPart struct {
	ID        string   `json:"id"`
	SessionID string   `json:"sessionID"` // SDK compatible
	MessageID string   `json:"messageID"` // SDK compatible
	Type      string   `json:"type"`      // always "reasoning"
	Text      string   `json:"text"`
	Time      PartTime `json:"time,omitempty"`
}

func (p *ReasoningPart) PartType() string      { return "reasoning" }
func (p *ReasoningPart) PartID() string        { return p.ID }
func (p *ReasoningPart) PartSessionID() string { return p.SessionID }
func (p *ReasoningPart) PartMessageID() string { return p.MessageID }

// ToolState is the tool call lifecycle state. The zero value is invalid;
// use the exported constants.
type ToolState string

const (
	ToolStatePending   ToolState = "pending"
	ToolStateRunning   ToolState = "running"
	ToolStateCompleted ToolState = "completed"
	ToolStateError     ToolState = "error"
)

// CanTransition reports whether moving a tool part from "from" to "to" is a
// legal edge in the tool state machine:
//
//	Pending  --start--> Running --complete--> Completed --compact--> Completed{compacted}
//	   |                   |
//	   +--error--> Error <-+--error--
//
// Completed -> Completed is permitted to model the compaction transition,
// which leaves the state tag unchanged and only sets Compacted.
func CanTransition(from, to ToolState) bool {
	switch from {
	case ToolStatePending:
		return to == ToolStateRunning || to == ToolStateError
	case ToolStateRunning:
		return to == ToolStateCompleted || to == ToolStateError
	case ToolStateCompleted:
		return to == ToolStateCompleted
	default:
		return false
	}
}

// ToolPart represents a tool call and its result. CallID is the opaque
// identifier the provider assigned to this tool use; ToolName is the
// logical (possibly MCP-namespaced "server::tool") name invoked.
type ToolPart struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"sessionID"` // SDK compatible
	MessageID  string         `json:"messageID"` // SDK compatible
	Type       string         `json:"type"`      // always "tool"
	CallID     string         `json:"callID"`
	ToolName   string         `json:"toolName"`
	Input      map[string]any `json:"input"`
	State      ToolState      `json:"state"`
	Compacted  bool           `json:"compacted,omitempty"`
	Output     *string        `json:"output,omitempty"`
	Error      *string        `json:"error,omitempty"`
	Title      *string        `json:"title,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Time       PartTime       `json:"time,omitempty"`
}

func (p *ToolPart) PartType() string      { return "tool" }
func (p *ToolPart) PartID() string        { return p.ID }
func (p *ToolPart) PartSessionID() string { return p.SessionID }
func (p *ToolPart) PartMessageID() string { return p.MessageID }

// Transition validates and applies a state change, also stamping Time.End
// on any move into a terminal state.
func (p *ToolPart) Transition(to ToolState, now int64) error {
	if !CanTransition(p.State, to) {
		return &ToolStateError_{From: p.State, To: to}
	}
	if to == ToolStateCompleted && p.State == ToolStateCompleted {
		p.Compacted = true
	}
	p.State = to
	if to == ToolStateCompleted || to == ToolStateError {
		end := now
		p.Time.End = &end
	}
	return nil
}

// ToolStateError_ reports an illegal tool state transition. Named with a
// trailing underscore to avoid colliding with the ToolState "error" state.
type ToolStateError_ struct {
	From, To ToolState
}

func (e *ToolStateError_) Error() string {
	return "invalid tool state transition from " + string(e.From) + " to " + string(e.To)
}

// FilePart represents a file attachment.
type FilePart struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"` // SDK compatible
	MessageID string `json:"messageID"` // SDK compatible
	Type      string `json:"type"`      // always "file"
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
}

func (p *FilePart) PartType() string      { return "file" }
func (p *FilePart) PartID() string        { return p.ID }
func (p *FilePart) PartSessionID() string { return p.SessionID }
func (p *FilePart) PartMessageID() string { return p.MessageID }

// RawPart is used for JSON unmarshaling of parts whose concrete type is not
// yet known.
type RawPart struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"-"`
}

// UnmarshalPart dispatches a JSON-encoded part to its concrete type based
// on the "type" discriminator field.
func UnmarshalPart(data []byte) (Part, error) {
	var raw RawPart
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "reasoning":
		var p ReasoningPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "tool":
		var p ToolPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case "file":
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
}
