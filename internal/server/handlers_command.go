package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coreassist/coreassist/internal/command"
)

// CommandInfo represents command information returned by the /command endpoint.
// SDK compatible: matches TypeScript Command.Info structure.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Template    string `json:"template"`
	Agent       string `json:"agent,omitempty"`
	Model       string `json:"model,omitempty"`
	Subtask     bool   `json:"subtask,omitempty"`
}

// listCommands handles GET /command
// Returns full command objects matching TypeScript Command.Info structure.
func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	commands := getBuiltInCommands(s.config.Directory)

	if s.commandExecutor != nil {
		for _, cmd := range s.commandExecutor.List() {
			commands = append(commands, CommandInfo{
				Name:        cmd.Name,
				Description: cmd.Description,
				Template:    cmd.Template,
				Agent:       cmd.Agent,
				Model:       cmd.Model,
				Subtask:     cmd.Subtask,
			})
		}
	}

	writeJSON(w, http.StatusOK, commands)
}

// getBuiltInCommands returns the built-in commands with their templates.
func getBuiltInCommands(workDir string) []CommandInfo {
	return []CommandInfo{
		{
			Name:        "init",
			Description: "create/update AGENTS.md",
			Template: `Please analyze this codebase and create an AGENTS.md file containing:
1. Build/lint/test commands - especially for running a single test
2. Code style guidelines including imports, formatting, types, naming conventions, error handling, etc.

The file you create will be given to agentic coding agents (such as yourself) that operate in this repository. Make it about 20 lines long.
If there are Cursor rules (in .cursor/rules/ or .cursorrules) or Copilot rules (in .github/copilot-instructions.md), make sure to include them.

If there's already an AGENTS.md, improve it if it's located in ` + workDir + `

$ARGUMENTS
`,
		},
		{
			Name:        "review",
			Description: "review changes [commit|branch|pr], defaults to uncommitted",
			Template: `You are a code reviewer. Your job is to review code changes and provide actionable feedback.

---

Input: $ARGUMENTS

---

## Determining What to Review

Based on the input provided, determine which type of review to perform:

1. **No arguments (default)**: Review all uncommitted changes
   - Run: ` + "`git diff`" + ` for unstaged changes
   - Run: ` + "`git diff --cached`" + ` for staged changes

2. **Commit hash** (40-char SHA or short hash): Review that specific commit
   - Run: ` + "`git show $ARGUMENTS`" + `

3. **Branch name**: Compare current branch to the specified branch
   - Run: ` + "`git diff $ARGUMENTS...HEAD`" + `

4. **PR URL or number** (contains "github.com" or "pull" or looks like a PR number): Review the pull request
   - Run: ` + "`gh pr view $ARGUMENTS`" + ` to get PR context
   - Run: ` + "`gh pr diff $ARGUMENTS`" + ` to get the diff

Use best judgement when processing input.

---

## What to Look For

**Bugs** - Your primary focus.
- Logic errors, off-by-one mistakes, incorrect conditionals
- Edge cases: null/empty inputs, error conditions, race conditions
- Security issues: injection, auth bypass, data exposure
- Broken error handling that swallows failures

**Structure** - Does the code fit the codebase?
- Does it follow existing patterns and conventions?
- Are there established abstractions it should use but doesn't?

**Performance** - Only flag if obviously problematic.
- O(nÂ²) on unbounded data, N+1 queries, blocking I/O on hot paths

## Before You Flag Something

Be certain. If you're going to call something a bug, you need to be confident it actually is one.

- Only review the changes - do not review pre-existing code that wasn't modified
- Don't flag something as a bug if you're unsure - investigate first
- Don't flag style preferences as issues
- Don't invent hypothetical problems - if an edge case matters, explain the realistic scenario where it breaks
- If you need more context to be sure, use the tools below to get it

## Tools

Use these to inform your review:

- **Explore agent** - Find how existing code handles similar problems. Check patterns, conventions, and prior art before claiming something doesn't fit.
- **Exa Code Context** - Verify correct usage of libraries/APIs before flagging something as wrong.
- **Exa Web Search** - Research best practices if you're unsure about a pattern.

If you're uncertain about something and can't verify it with these tools, say "I'm not sure about X" rather than flagging it as a definite issue.

## Tone and Approach

1. If there is a bug, be direct and clear about why it is a bug.
2. You should clearly communicate severity of issues, do not claim issues are more severe than they actually are.
3. Critiques should clearly and explicitly communicate the scenarios, environments, or inputs that are necessary for the bug to arise. The comment should immediately indicate that the issue's severity depends on these factors.
4. Your tone should be matter-of-fact and not accusatory or overly positive. It should read as a helpful AI assistant suggestion without sounding too much like a human reviewer.
5. Write in a manner that allows reader to quickly understand issue without reading too closely.
6. AVOID flattery, do not give any comments that are not helpful to the reader. Avoid phrasing like "Great job ...", "Thanks for ...".
`,
			Subtask: true,
		},
	}
}

// executeCommand handles POST /command/{name}
func (s *Server) executeCommand(w http.ResponseWriter, r *http.Request) {
	if s.commandExecutor == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "Command executor not initialized")
		return
	}

	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Command name is required")
		return
	}

	var req struct {
		Args string `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Empty body is ok
		req.Args = ""
	}

	result, err := s.commandExecutor.Execute(r.Context(), name, req.Args)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// getCommand handles GET /command/{name}
func (s *Server) getCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Command name is required")
		return
	}

	for _, cmd := range command.BuiltinCommands() {
		if cmd.Name == name {
			writeJSON(w, http.StatusOK, cmd)
			return
		}
	}

	if s.commandExecutor != nil {
		if cmd, ok := s.commandExecutor.Get(name); ok {
			writeJSON(w, http.StatusOK, cmd)
			return
		}
	}

	writeError(w, http.StatusNotFound, ErrCodeNotFound, "Command not found")
}
