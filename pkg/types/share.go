package types

// ShareToken grants read-only access to one session's export. It is stored
// twice: forward under share/<token> and reverse under
// session_share/<session_id>, both holding the same record.
type ShareToken struct {
	Token       string `json:"token"`
	SessionID   string `json:"sessionID"`
	ProjectID   string `json:"projectID"`
	Secret      string `json:"secret"`
	CreatedAt   int64  `json:"createdAt"`
	ExpiresAt   *int64 `json:"expiresAt,omitempty"`
	AccessCount int    `json:"accessCount"`
}
