package server

import (
	"net/http"
	"strings"

	"github.com/coreassist/coreassist/pkg/types"
)

// AgentInfo represents agent information returned by the /agent endpoint.
// SDK compatible: matches TypeScript Agent.Info structure.
type AgentInfo struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Mode        string              `json:"mode"`
	BuiltIn     bool                `json:"builtIn"`
	Prompt      string              `json:"prompt,omitempty"`
	Tools       map[string]bool     `json:"tools"`
	Options     map[string]any      `json:"options"`
	Permission  AgentPermissionInfo `json:"permission"`
	Temperature float64             `json:"temperature,omitempty"`
	TopP        float64             `json:"topP,omitempty"`
	Model       *AgentModelRef      `json:"model,omitempty"`
	Color       string              `json:"color,omitempty"`
}

// AgentPermissionInfo represents agent permission settings.
type AgentPermissionInfo struct {
	Edit        string            `json:"edit,omitempty"`
	Bash        map[string]string `json:"bash,omitempty"`
	WebFetch    string            `json:"webfetch,omitempty"`
	ExternalDir string            `json:"external_directory,omitempty"`
	DoomLoop    string            `json:"doom_loop,omitempty"`
}

// AgentModelRef references a model for an agent.
type AgentModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// listAgents handles GET /agent
// Returns full agent objects matching TypeScript Agent.Info structure.
func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := getBuiltInAgents()

	if s.appConfig != nil && s.appConfig.Agent != nil {
		for name, cfg := range s.appConfig.Agent {
			agent := findOrAppendAgent(&agents, name)
			applyAgentConfigOverrides(agent, cfg)
		}
	}

	writeJSON(w, http.StatusOK, agents)
}

// findOrAppendAgent returns the agent named name in agents, appending a
// fresh custom-agent entry with permissive defaults when none exists yet.
func findOrAppendAgent(agents *[]AgentInfo, name string) *AgentInfo {
	for i := range *agents {
		if (*agents)[i].Name == name {
			return &(*agents)[i]
		}
	}

	*agents = append(*agents, AgentInfo{
		Name:    name,
		Mode:    "all",
		BuiltIn: false,
		Tools:   make(map[string]bool),
		Options: make(map[string]any),
		Permission: AgentPermissionInfo{
			Edit:        "allow",
			Bash:        map[string]string{"*": "allow"},
			WebFetch:    "allow",
			DoomLoop:    "ask",
			ExternalDir: "ask",
		},
	})
	return &(*agents)[len(*agents)-1]
}

// applyAgentConfigOverrides copies any fields set in cfg onto agent and
// marks it as customized. Zero-value fields in cfg leave the existing
// value untouched.
func applyAgentConfigOverrides(agent *AgentInfo, cfg types.AgentConfig) {
	if cfg.Description != "" {
		agent.Description = cfg.Description
	}
	if cfg.Prompt != "" {
		agent.Prompt = cfg.Prompt
	}
	if cfg.Mode != "" {
		agent.Mode = cfg.Mode
	}
	if cfg.Temperature != nil {
		agent.Temperature = *cfg.Temperature
	}
	if cfg.TopP != nil {
		agent.TopP = *cfg.TopP
	}
	if cfg.Color != "" {
		agent.Color = cfg.Color
	}
	if cfg.Model != "" {
		if providerID, modelID, ok := strings.Cut(cfg.Model, "/"); ok {
			agent.Model = &AgentModelRef{ProviderID: providerID, ModelID: modelID}
		}
	}
	for k, v := range cfg.Tools {
		agent.Tools[k] = v
	}
	agent.BuiltIn = false
}

// getBuiltInAgents returns the default built-in agents.
func getBuiltInAgents() []AgentInfo {
	defaultPermission := AgentPermissionInfo{
		Edit:        "allow",
		Bash:        map[string]string{"*": "allow"},
		WebFetch:    "allow",
		DoomLoop:    "ask",
		ExternalDir: "ask",
	}

	planPermission := AgentPermissionInfo{
		Edit: "deny",
		Bash: map[string]string{
			"cut*":             "allow",
			"diff*":            "allow",
			"du*":              "allow",
			"file *":           "allow",
			"find * -delete*":  "ask",
			"find * -exec*":    "ask",
			"find * -fprint*":  "ask",
			"find * -fls*":     "ask",
			"find * -fprintf*": "ask",
			"find * -ok*":      "ask",
			"find *":           "allow",
			"git diff*":        "allow",
			"git log*":         "allow",
			"git show*":        "allow",
			"git status*":      "allow",
			"git branch":       "allow",
			"git branch -v":    "allow",
			"grep*":            "allow",
			"head*":            "allow",
			"less*":            "allow",
			"ls*":              "allow",
			"more*":            "allow",
			"pwd*":             "allow",
			"rg*":              "allow",
			"sort --output=*":  "ask",
			"sort -o *":        "ask",
			"sort*":            "allow",
			"stat*":            "allow",
			"tail*":            "allow",
			"tree -o *":        "ask",
			"tree*":            "allow",
			"uniq*":            "allow",
			"wc*":              "allow",
			"whereis*":         "allow",
			"which*":           "allow",
			"*":                "ask",
		},
		WebFetch: "allow",
	}

	return []AgentInfo{
		{
			Name:        "general",
			Description: "General-purpose agent for researching complex questions and executing multi-step tasks. Use this agent to execute multiple units of work in parallel.",
			Mode:        "subagent",
			BuiltIn:     true,
			Tools: map[string]bool{
				"todoread":  false,
				"todowrite": false,
			},
			Options:    map[string]any{},
			Permission: defaultPermission,
		},
		{
			Name:        "explore",
			Description: `Fast agent specialized for exploring codebases. Use this when you need to quickly find files by patterns (eg. "src/components/**/*.tsx"), search code for keywords (eg. "API endpoints"), or answer questions about the codebase (eg. "how do API endpoints work?"). When calling this agent, specify the desired thoroughness level: "quick" for basic searches, "medium" for moderate exploration, or "very thorough" for comprehensive analysis across multiple locations and naming conventions.`,
			Mode:        "subagent",
			BuiltIn:     true,
			Tools: map[string]bool{
				"todoread":  false,
				"todowrite": false,
				"edit":      false,
				"write":     false,
			},
			Options:    map[string]any{},
			Permission: defaultPermission,
			Prompt: `You are a file search specialist. You excel at thoroughly navigating and exploring codebases.

Your strengths:
- Rapidly finding files using glob patterns
- Searching code and text with powerful regex patterns
- Reading and analyzing file contents

Guidelines:
- Use Glob for broad file pattern matching
- Use Grep for searching file contents with regex
- Use Read when you know the specific file path you need to read
- Use Bash for file operations like copying, moving, or listing directory contents
- Adapt your search approach based on the thoroughness level specified by the caller
- Return file paths as absolute paths in your final response
- For clear communication, avoid using emojis
- Do not create any files, or run bash commands that modify the user's system state in any way

Complete the user's search request efficiently and report your findings clearly.`,
		},
		{
			Name:       "build",
			Mode:       "primary",
			BuiltIn:    true,
			Tools:      map[string]bool{},
			Options:    map[string]any{},
			Permission: defaultPermission,
		},
		{
			Name:       "plan",
			Mode:       "primary",
			BuiltIn:    true,
			Tools:      map[string]bool{},
			Options:    map[string]any{},
			Permission: planPermission,
		},
	}
}
