package types

// Message is either a User or Assistant message in a session, discriminated
// by Role. Invariant: for every Assistant message, a User message with
// ID == ParentID exists in the same session.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionID"`
	Role      string      `json:"role"` // "user" | "assistant"
	Time      MessageTime `json:"time"`

	// User-specific fields.
	Agent  string          `json:"agent,omitempty"`
	Model  *ModelRef       `json:"model,omitempty"`
	System *string         `json:"system,omitempty"`
	Tools  map[string]bool `json:"tools,omitempty"`

	// Assistant-specific fields.
	ParentID   string        `json:"parentID,omitempty"`
	ModelID    string        `json:"modelID,omitempty"`
	ProviderID string        `json:"providerID,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Finish     *string       `json:"finish,omitempty"`
	Cost       float64       `json:"cost,omitempty"`
	Tokens     *TokenUsage   `json:"tokens,omitempty"`
	Error      *MessageError `json:"error,omitempty"`
	IsSummary  bool          `json:"isSummary,omitempty"`
}

// MessageTime contains timestamps for a message.
type MessageTime struct {
	Created   int64  `json:"created"`
	Updated   *int64 `json:"updated,omitempty"`
	Completed *int64 `json:"completed,omitempty"`
}

// ModelRef references a specific model from a provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// TokenUsage contains token usage statistics for an Assistant message.
type TokenUsage struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Reasoning  int `json:"reasoning,omitempty"`
	CacheRead  int `json:"cacheRead,omitempty"`
	CacheWrite int `json:"cacheWrite,omitempty"`
}

// MessageError represents an error that occurred during message processing.
type MessageError struct {
	Type    string `json:"type"` // "api" | "auth" | "output_length"
	Message string `json:"message"`
}
