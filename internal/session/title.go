package session

import (
	"context"
	"strings"

	"github.com/coreassist/coreassist/internal/event"
	"github.com/coreassist/coreassist/internal/provider"
	"github.com/coreassist/coreassist/internal/streamevent"
	"github.com/coreassist/coreassist/pkg/types"
)

const titleSystemPrompt = `You are a title generator. You output ONLY a thread title. Nothing else.

Generate a brief title that would help the user find this conversation later.

Rules:
- A single line, <=60 characters
- No explanations
- Use -ing verbs for actions (Debugging, Implementing, Analyzing)
- Keep exact: technical terms, numbers, filenames
- Remove: the, this, my, a, an
- Always output something meaningful

Examples:
"debug 500 errors in production" → Debugging production 500 errors
"refactor user service" → Refactoring user service
"implement rate limiting" → Implementing rate limiting`

const defaultTitlePrefix = "New Session"

const maxTitleLength = 60

// isDefaultTitle checks if a title is the default "New Session" title.
func isDefaultTitle(title string) bool {
	return title == defaultTitlePrefix || strings.HasPrefix(title, defaultTitlePrefix)
}

// dequoteTitle strips a single layer of matching quote characters the
// model sometimes wraps its answer in.
func dequoteTitle(title string) string {
	if len(title) < 2 {
		return title
	}
	pairs := [][2]byte{{'"', '"'}, {'\'', '\''}, {'`', '`'}}
	for _, pair := range pairs {
		if title[0] == pair[0] && title[len(title)-1] == pair[1] {
			return strings.TrimSpace(title[1 : len(title)-1])
		}
	}
	return title
}

// ensureTitle generates a title for the session if it's still using the default title.
// Should only be called on the first user message.
func (p *Processor) ensureTitle(
	ctx context.Context,
	session *types.Session,
	userContent string,
) {
	// Skip if session has a parent (child session)
	if session.ParentID != nil && *session.ParentID != "" {
		return
	}

	// Skip if title is not the default
	if !isDefaultTitle(session.Title) {
		return
	}

	model, err := p.providerRegistry.DefaultModel()
	if err != nil {
		return
	}

	prov, err := p.providerRegistry.Get(model.ProviderID)
	if err != nil {
		return
	}

	stream, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model:     model.ID,
		System:    titleSystemPrompt,
		MaxTokens: 50,
		Messages: []provider.Message{
			{
				Role: provider.RoleUser,
				Blocks: []provider.ContentBlock{{
					Kind: provider.BlockText,
					Text: "Generate a title for this conversation:\n\n" + userContent,
				}},
			},
		},
	})
	if err != nil {
		return
	}
	defer stream.Close()

	var title strings.Builder
	for {
		ev, ok, err := stream.Next()
		if err != nil || !ok {
			break
		}
		if ev.Kind == streamevent.KindTextDelta {
			title.WriteString(ev.Text)
		}
	}

	titleText := strings.TrimSpace(title.String())
	for _, line := range strings.Split(titleText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			titleText = line
			break
		}
	}
	titleText = dequoteTitle(titleText)

	if len(titleText) > maxTitleLength {
		titleText = strings.TrimSpace(titleText[:maxTitleLength-3]) + "..."
	}

	if titleText == "" {
		return
	}

	session.Title = titleText
	p.storage.Put(ctx, []string{"session", session.ProjectID, session.ID}, session)

	event.PublishSync(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionUpdatedData{Info: session},
	})
}
