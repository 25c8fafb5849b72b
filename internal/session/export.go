package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/coreassist/coreassist/pkg/types"
)

// maxToolOutputChars caps rendered tool output in Markdown exports before
// truncation.
const maxToolOutputChars = 1000

// SessionExport is the lossless JSON export shape: a session plus its
// messages, each carrying its own ordered parts inline.
type SessionExport struct {
	Session  types.Session     `json:"session"`
	Messages []ExportedMessage `json:"messages"`
}

// ExportedMessage is a Message with its parts embedded for export.
type ExportedMessage struct {
	types.Message
	Parts []types.Part `json:"parts"`
}

// BuildExport assembles the JSON export shape for a session. messages and
// partsByMessage are expected to already be in chronological order (the
// same order GetMessages/GetParts return, which relies on ULID ordering).
func BuildExport(session *types.Session, messages []*types.Message, partsByMessage map[string][]types.Part) *SessionExport {
	export := &SessionExport{Session: *session}
	for _, msg := range messages {
		export.Messages = append(export.Messages, ExportedMessage{
			Message: *msg,
			Parts:   partsByMessage[msg.ID],
		})
	}
	return export
}

// ExportToMarkdown renders a session as Markdown: a title header, then one
// level-2 section per message, role-tagged. Tool invocations render as a
// fenced code block with output capped at maxToolOutputChars; reasoning
// renders inside a collapsible <details> disclosure.
func ExportToMarkdown(session *types.Session, messages []*types.Message, partsByMessage map[string][]types.Part) string {
	var b strings.Builder

	title := session.Title
	if title == "" {
		title = "Untitled Session"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	for _, msg := range messages {
		heading := "User"
		if msg.Role == "assistant" {
			heading = "Assistant"
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)
		fmt.Fprintf(&b, "_%s_\n\n", formatISO8601(msg.Time.Created))

		for _, part := range partsByMessage[msg.ID] {
			writePartMarkdown(&b, part)
		}
	}

	return b.String()
}

func writePartMarkdown(b *strings.Builder, part types.Part) {
	switch p := part.(type) {
	case *types.TextPart:
		if p.Text != "" {
			fmt.Fprintf(b, "%s\n\n", p.Text)
		}
	case *types.ReasoningPart:
		if p.Text == "" {
			return
		}
		b.WriteString("<details>\n<summary>Reasoning</summary>\n\n")
		fmt.Fprintf(b, "%s\n\n", p.Text)
		b.WriteString("</details>\n\n")
	case *types.ToolPart:
		fmt.Fprintf(b, "**Tool: %s**\n\n", p.ToolName)
		b.WriteString("```\n")
		if p.Output != nil {
			b.WriteString(truncateOutput(*p.Output))
		} else if p.Error != nil {
			fmt.Fprintf(b, "error: %s", *p.Error)
		}
		b.WriteString("\n```\n\n")
	case *types.FilePart:
		fmt.Fprintf(b, "📎 %s (%s)\n\n", p.Filename, p.MediaType)
	}
}

func truncateOutput(output string) string {
	if len(output) <= maxToolOutputChars {
		return output
	}
	return output[:maxToolOutputChars] + "... (truncated)"
}

func formatISO8601(unixMilli int64) string {
	return time.UnixMilli(unixMilli).UTC().Format(time.RFC3339)
}
