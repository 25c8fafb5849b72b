// Package agent defines the agent configurations (build, plan, and the
// read-only subagents) that govern which tools a turn loop may call and
// what bash/edit/webfetch permissions it starts with, before any
// per-session approval the permission package tracks takes over.
package agent

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/coreassist/coreassist/internal/permission"
)

// Agent is one named configuration: which tools it may call, the starting
// permission posture for each permission type, and the model/prompt it
// runs with if it overrides the session default.
type Agent struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Mode        Mode            `json:"mode"`
	BuiltIn     bool            `json:"builtIn"`
	Permission  AgentPermission `json:"permission"`
	Tools       map[string]bool `json:"tools"`
	Options     map[string]any  `json:"options,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	TopP        float64         `json:"topP,omitempty"`
	Model       *ModelRef       `json:"model,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Color       string          `json:"color,omitempty"`
}

// Mode represents the agent operation mode.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeSubagent Mode = "subagent"
	ModeAll      Mode = "all"
)

// ModelRef references a specific model.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// AgentPermission defines agent-specific permissions.
type AgentPermission struct {
	Edit        permission.PermissionAction            `json:"edit,omitempty"`
	Bash        map[string]permission.PermissionAction `json:"bash,omitempty"`
	WebFetch    permission.PermissionAction            `json:"webfetch,omitempty"`
	ExternalDir permission.PermissionAction            `json:"external_directory,omitempty"`
	DoomLoop    permission.PermissionAction            `json:"doom_loop,omitempty"`
}

// ToolEnabled reports whether toolID is usable by this agent: an exact
// entry in Tools wins, then the first matching wildcard pattern, and a
// tool absent from Tools entirely defaults to enabled — Tools is an
// opt-out list, not an opt-in one.
func (a *Agent) ToolEnabled(toolID string) bool {
	if enabled, ok := a.Tools[toolID]; ok {
		return enabled
	}

	for pattern, enabled := range a.Tools {
		if matchWildcard(pattern, toolID) {
			return enabled
		}
	}

	return true
}

// CheckBashPermission resolves the configured action for a raw bash
// command line by trying each configured pattern; an agent with no
// matching pattern asks rather than silently allowing or denying.
func (a *Agent) CheckBashPermission(command string) permission.PermissionAction {
	for pattern, action := range a.Permission.Bash {
		if matchWildcard(pattern, command) {
			return action
		}
	}

	return permission.ActionAsk
}

// GetPermission returns the permission action for a given permission type.
func (a *Agent) GetPermission(permType permission.PermissionType) permission.PermissionAction {
	switch permType {
	case permission.PermEdit:
		if a.Permission.Edit != "" {
			return a.Permission.Edit
		}
	case permission.PermWebFetch:
		if a.Permission.WebFetch != "" {
			return a.Permission.WebFetch
		}
	case permission.PermExternalDir:
		if a.Permission.ExternalDir != "" {
			return a.Permission.ExternalDir
		}
	case permission.PermDoomLoop:
		if a.Permission.DoomLoop != "" {
			return a.Permission.DoomLoop
		}
	}
	return permission.ActionAsk
}

// IsPrimary returns true if the agent can be used as a primary agent.
func (a *Agent) IsPrimary() bool {
	return a.Mode == ModePrimary || a.Mode == ModeAll
}

// IsSubagent returns true if the agent can be used as a subagent.
func (a *Agent) IsSubagent() bool {
	return a.Mode == ModeSubagent || a.Mode == ModeAll
}

// Clone deep-copies the agent, so LoadFromConfig can start from a built-in
// definition and apply user overrides without mutating the registry's
// shared copy out from under concurrent callers.
func (a *Agent) Clone() *Agent {
	return &Agent{
		Name:        a.Name,
		Description: a.Description,
		Mode:        a.Mode,
		BuiltIn:     a.BuiltIn,
		Temperature: a.Temperature,
		TopP:        a.TopP,
		Prompt:      a.Prompt,
		Color:       a.Color,
		Permission:  clonePermission(a.Permission),
		Tools:       cloneBoolMap(a.Tools),
		Options:     cloneAnyMap(a.Options),
		Model:       cloneModelRef(a.Model),
	}
}

func clonePermission(p AgentPermission) AgentPermission {
	clone := AgentPermission{
		Edit:        p.Edit,
		WebFetch:    p.WebFetch,
		ExternalDir: p.ExternalDir,
		DoomLoop:    p.DoomLoop,
	}
	if p.Bash != nil {
		clone.Bash = make(map[string]permission.PermissionAction, len(p.Bash))
		for k, v := range p.Bash {
			clone.Bash[k] = v
		}
	}
	return clone
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	clone := make(map[string]bool, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

func cloneModelRef(m *ModelRef) *ModelRef {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// matchWildcard reports whether s matches pattern. A lone "*" and the two
// single-wildcard shapes ("prefix*", "*suffix") are resolved with plain
// string ops — these cover the overwhelming majority of tool/bash patterns
// agents configure — and anything more elaborate (a "**" path segment, or
// "*" appearing mid-pattern or more than once) falls through to doublestar
// rather than hand-rolling a second glob engine for the rare case.
func matchWildcard(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "**") {
		if matched, ok := matchSingleWildcard(pattern, s); ok {
			return matched
		}
	}
	if strings.Contains(pattern, "*") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}
	return pattern == s
}

// matchSingleWildcard handles the two one-wildcard pattern shapes directly;
// ok is false when pattern doesn't fit either shape, so the caller falls
// through to doublestar or an exact comparison.
func matchSingleWildcard(pattern, s string) (matched, ok bool) {
	hasPrefix, hasSuffix := strings.HasPrefix(pattern, "*"), strings.HasSuffix(pattern, "*")
	switch {
	case hasSuffix && !hasPrefix:
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*")), true
	case hasPrefix && !hasSuffix:
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*")), true
	default:
		return false, false
	}
}

// BuiltInAgents returns the four agents available without any user
// configuration: "build" (unrestricted), "plan" (read-only, a short
// allowlist of inspection commands), and the two read-only subagents
// "general"/"explore" that a turn loop can dispatch into without itself
// holding edit or bash-write permission.
func BuiltInAgents() map[string]*Agent {
	return map[string]*Agent{
		"build": {
			Name:        "build",
			Description: "Primary agent for executing tasks, writing code, and making changes",
			Mode:        ModePrimary,
			BuiltIn:     true,
			Permission: AgentPermission{
				Edit:        permission.ActionAllow,
				Bash:        map[string]permission.PermissionAction{"*": permission.ActionAllow},
				WebFetch:    permission.ActionAllow,
				ExternalDir: permission.ActionAsk,
				DoomLoop:    permission.ActionAsk,
			},
			Tools: map[string]bool{
				"*": true,
			},
		},
		"plan": {
			Name:        "plan",
			Description: "Planning agent for analysis and exploration without making changes",
			Mode:        ModePrimary,
			BuiltIn:     true,
			Permission: AgentPermission{
				Edit: permission.ActionDeny,
				Bash: map[string]permission.PermissionAction{
					"grep*":      permission.ActionAllow,
					"find*":      permission.ActionAllow,
					"ls*":        permission.ActionAllow,
					"cat*":       permission.ActionAllow,
					"git status": permission.ActionAllow,
					"git diff*":  permission.ActionAllow,
					"git log*":   permission.ActionAllow,
					"*":          permission.ActionDeny,
				},
				WebFetch:    permission.ActionAllow,
				ExternalDir: permission.ActionDeny,
				DoomLoop:    permission.ActionDeny,
			},
			Tools: map[string]bool{
				"read":  true,
				"glob":  true,
				"grep":  true,
				"ls":    true,
				"bash":  true,
				"edit":  false,
				"write": false,
			},
		},
		"general": {
			Name:        "general",
			Description: "General-purpose subagent for searches and exploration",
			Mode:        ModeSubagent,
			BuiltIn:     true,
			Permission: AgentPermission{
				Edit:        permission.ActionDeny,
				Bash:        map[string]permission.PermissionAction{"*": permission.ActionDeny},
				WebFetch:    permission.ActionAllow,
				ExternalDir: permission.ActionDeny,
				DoomLoop:    permission.ActionDeny,
			},
			Tools: map[string]bool{
				"read":     true,
				"glob":     true,
				"grep":     true,
				"webfetch": true,
				"bash":     false,
				"edit":     false,
				"write":    false,
			},
		},
		"explore": {
			Name:        "explore",
			Description: "Fast agent specialized for codebase exploration",
			Mode:        ModeSubagent,
			BuiltIn:     true,
			Permission: AgentPermission{
				Edit:        permission.ActionDeny,
				Bash:        map[string]permission.PermissionAction{"*": permission.ActionDeny},
				WebFetch:    permission.ActionDeny,
				ExternalDir: permission.ActionDeny,
				DoomLoop:    permission.ActionDeny,
			},
			Tools: map[string]bool{
				"read": true,
				"glob": true,
				"grep": true,
				"ls":   true,
				"bash": false,
				"edit": false,
			},
		},
	}
}
