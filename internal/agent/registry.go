package agent

import (
	"fmt"
	"sync"

	"github.com/coreassist/coreassist/internal/permission"
)

// Registry is the set of agents a session can pick from: the built-ins
// from BuiltInAgents plus whatever LoadFromConfig layers on top.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates a registry seeded with the built-in agents.
func NewRegistry() *Registry {
	r := &Registry{
		agents: make(map[string]*Agent),
	}

	for name, agent := range BuiltInAgents() {
		r.agents[name] = agent
	}

	return r
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", name)
	}

	return agent, nil
}

// Register adds or updates an agent.
func (r *Registry) Register(agent *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent.Name] = agent
}

// Unregister removes an agent by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// List returns all registered agents.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		agents = append(agents, agent)
	}
	return agents
}

// ListPrimary returns agents with primary mode.
func (r *Registry) ListPrimary() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, agent := range r.agents {
		if agent.IsPrimary() {
			agents = append(agents, agent)
		}
	}
	return agents
}

// ListSubagents returns agents with subagent mode.
func (r *Registry) ListSubagents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, agent := range r.agents {
		if agent.IsSubagent() {
			agents = append(agents, agent)
		}
	}
	return agents
}

// Names returns all agent names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Exists checks if an agent exists.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// LoadFromConfig layers user-supplied agent configuration onto the
// registry: a name matching a built-in customizes a clone of it (so the
// original stays available via BuiltInAgents' own values), any other name
// defines a brand new primary agent. Every field in AgentConfig is an
// override applied on top of whatever was already there, not a full
// replacement — an agent's Tools/Permission.Bash maps merge key-by-key
// rather than resetting, matching how a user's config typically only
// wants to tweak a couple of entries.
func (r *Registry) LoadFromConfig(config map[string]AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range config {
		r.agents[name] = applyAgentConfig(r.startingAgent(name), cfg)
	}
}

// startingAgent returns the agent LoadFromConfig should apply cfg on top
// of: a customizable clone of the existing entry, or a fresh primary agent
// if name isn't registered yet.
func (r *Registry) startingAgent(name string) *Agent {
	existing, ok := r.agents[name]
	if !ok {
		return &Agent{Name: name, Mode: ModePrimary, Tools: make(map[string]bool)}
	}
	clone := existing.Clone()
	clone.BuiltIn = false
	return clone
}

func applyAgentConfig(agent *Agent, cfg AgentConfig) *Agent {
	if cfg.Description != "" {
		agent.Description = cfg.Description
	}
	if cfg.Mode != "" {
		agent.Mode = cfg.Mode
	}
	if cfg.Model != nil {
		agent.Model = cfg.Model
	}
	if cfg.Prompt != "" {
		agent.Prompt = cfg.Prompt
	}
	if cfg.Temperature > 0 {
		agent.Temperature = cfg.Temperature
	}
	if cfg.TopP > 0 {
		agent.TopP = cfg.TopP
	}
	if cfg.Color != "" {
		agent.Color = cfg.Color
	}
	if cfg.Tools != nil {
		if agent.Tools == nil {
			agent.Tools = make(map[string]bool)
		}
		mergeBoolMap(agent.Tools, cfg.Tools)
	}
	if cfg.Permission != nil {
		agent.Permission = mergePermissionConfig(agent.Permission, *cfg.Permission)
	}
	if cfg.Options != nil {
		if agent.Options == nil {
			agent.Options = make(map[string]any)
		}
		for k, v := range cfg.Options {
			agent.Options[k] = v
		}
	}
	return agent
}

// mergePermissionConfig overlays override onto base, leaving any field
// override leaves at its zero value untouched.
func mergePermissionConfig(base AgentPermission, override AgentPermissionConfig) AgentPermission {
	if override.Edit != "" {
		base.Edit = override.Edit
	}
	if override.WebFetch != "" {
		base.WebFetch = override.WebFetch
	}
	if override.ExternalDir != "" {
		base.ExternalDir = override.ExternalDir
	}
	if override.DoomLoop != "" {
		base.DoomLoop = override.DoomLoop
	}
	if override.Bash != nil {
		if base.Bash == nil {
			base.Bash = make(map[string]permission.PermissionAction)
		}
		for k, v := range override.Bash {
			base.Bash[k] = v
		}
	}
	return base
}

func mergeBoolMap(dst, src map[string]bool) {
	for k, v := range src {
		dst[k] = v
	}
}

// AgentConfig represents user configuration for an agent.
type AgentConfig struct {
	Description string                 `json:"description,omitempty"`
	Mode        Mode                   `json:"mode,omitempty"`
	Model       *ModelRef              `json:"model,omitempty"`
	Prompt      string                 `json:"prompt,omitempty"`
	Temperature float64                `json:"temperature,omitempty"`
	TopP        float64                `json:"topP,omitempty"`
	Color       string                 `json:"color,omitempty"`
	Tools       map[string]bool        `json:"tools,omitempty"`
	Permission  *AgentPermissionConfig `json:"permission,omitempty"`
	Options     map[string]any         `json:"options,omitempty"`
}

// AgentPermissionConfig represents permission configuration.
type AgentPermissionConfig struct {
	Edit        permission.PermissionAction            `json:"edit,omitempty"`
	Bash        map[string]permission.PermissionAction `json:"bash,omitempty"`
	WebFetch    permission.PermissionAction            `json:"webfetch,omitempty"`
	ExternalDir permission.PermissionAction            `json:"external_directory,omitempty"`
	DoomLoop    permission.PermissionAction            `json:"doom_loop,omitempty"`
}
