package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt_Build_NoMemoryContextByDefault(t *testing.T) {
	prompt := NewSystemPrompt(nil, nil, "", "")
	assert.NotContains(t, prompt.Build(), "<memory>")
}

func TestSystemPrompt_WithMemoryContext(t *testing.T) {
	prompt := NewSystemPrompt(nil, nil, "", "")
	prompt.WithMemoryContext("<memory>\n- [preference] likes terse commits\n</memory>")

	built := prompt.Build()
	assert.Contains(t, built, "<memory>")
	assert.Contains(t, built, "likes terse commits")
}

func TestSystemPrompt_WithMemoryContext_EmptyIsNoop(t *testing.T) {
	prompt := NewSystemPrompt(nil, nil, "", "")
	prompt.WithMemoryContext("")
	assert.NotContains(t, prompt.Build(), "<memory>")
}
