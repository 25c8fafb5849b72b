// Package types provides the core data types for the CoreAssist server.
package types

// Session is an ordered conversation grounded to a working directory and
// owned by exactly one Project. Invariant: Time.Created <= Time.Updated;
// Time.Compacted, if set, is >= Time.Created.
type Session struct {
	ID        string         `json:"id"`
	Slug      string         `json:"slug"`
	ProjectID string         `json:"projectID"`
	Directory string         `json:"directory"`
	ParentID  *string        `json:"parentID,omitempty"`
	Title     string         `json:"title"`
	Version   string         `json:"version"`
	Summary   SessionSummary `json:"summary"`
	Share     *SessionShare  `json:"share,omitempty"`
	Time      SessionTime    `json:"time"`
	Revert    *SessionRevert `json:"revert,omitempty"`

	CustomPrompt *CustomPrompt `json:"customPrompt,omitempty"`
}

// SessionSummary contains statistics about code changes in a session.
type SessionSummary struct {
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Files     int        `json:"files"`
	Diffs     []FileDiff `json:"diffs,omitempty"`
}

// FileDiff represents a diff for a single file.
type FileDiff struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Before    string `json:"before,omitempty"`
	After     string `json:"after,omitempty"`
}

// SessionTime contains timestamps for a session, all milliseconds since the
// UNIX epoch. Compacted records when the last compaction finished; it is
// absent until the first compaction.
type SessionTime struct {
	Created   int64  `json:"created"`
	Updated   int64  `json:"updated"`
	Compacted *int64 `json:"compacted,omitempty"`
}

// SessionShare contains sharing information for a session, present only
// while a share token has been issued for it.
type SessionShare struct {
	URL string `json:"url"`
}

// SessionRevert contains information about session revert state.
type SessionRevert struct {
	MessageID string  `json:"messageID"`
	PartID    *string `json:"partID,omitempty"`
	Snapshot  *string `json:"snapshot,omitempty"`
	Diff      *string `json:"diff,omitempty"`
}

// CustomPrompt represents a custom system prompt configuration attached to
// a session, loaded either from a file or given inline.
type CustomPrompt struct {
	Type      string            `json:"type"` // "file" | "inline"
	Value     string            `json:"value"`
	LoadedAt  *int64            `json:"loadedAt,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}
