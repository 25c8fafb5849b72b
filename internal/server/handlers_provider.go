package server

import (
	"net/http"
	"os"
)

// ProviderModel represents a model in models.dev format for TUI compatibility.
// SDK compatible: uses "capabilities" with nested boolean structure to match TypeScript.
type ProviderModel struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	ReleaseDate  string             `json:"release_date"`
	Capabilities *ModelCapabilities `json:"capabilities"`
	Cost         ModelCost          `json:"cost"`
	Limit        ModelLimit         `json:"limit"`
	Options      map[string]any     `json:"options"`
	Status       string             `json:"status,omitempty"`
}

// ModelCapabilities represents model capabilities and modalities.
// SDK compatible: matches TypeScript Model.capabilities structure.
type ModelCapabilities struct {
	Temperature bool                 `json:"temperature"`
	Reasoning   bool                 `json:"reasoning"`
	Attachment  bool                 `json:"attachment"`
	ToolCall    bool                 `json:"toolcall"`
	Input       ModalityCapabilities `json:"input"`
	Output      ModalityCapabilities `json:"output"`
}

// ModalityCapabilities represents input/output modality capabilities.
type ModalityCapabilities struct {
	Text  bool `json:"text"`
	Audio bool `json:"audio"`
	Image bool `json:"image"`
	Video bool `json:"video"`
	PDF   bool `json:"pdf"`
}

// ModelCost represents model pricing, in dollars per million tokens.
type ModelCost struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheRead  float64 `json:"cache_read,omitempty"`
	CacheWrite float64 `json:"cache_write,omitempty"`
}

// ModelLimit represents model context/output token limits.
type ModelLimit struct {
	Context int `json:"context"`
	Output  int `json:"output"`
}

// ProviderInfo represents provider information in models.dev format for TUI compatibility.
type ProviderInfo struct {
	ID     string                   `json:"id"`
	Name   string                   `json:"name"`
	API    string                   `json:"api,omitempty"`
	Env    []string                 `json:"env"`
	Npm    string                   `json:"npm,omitempty"`
	Models map[string]ProviderModel `json:"models"` // Map, not array!
}

// ProvidersResponse is the response format for /config/providers.
type ProvidersResponse struct {
	Providers []ProviderInfo    `json:"providers"`
	Default   map[string]string `json:"default"`
}

// ProviderListResponse is the response format for /provider.
type ProviderListResponse struct {
	All       []ProviderInfo    `json:"all"`
	Default   map[string]string `json:"default"`
	Connected []string          `json:"connected"`
}

// knownProviders is the catalog of providers this server ships model
// metadata for, independent of whether an API key is actually
// configured for any of them. TODO: source this from models.dev
// instead of a hardcoded table once that lookup is wired in.
func knownProviders() []ProviderInfo {
	return []ProviderInfo{
		{
			ID:   "anthropic",
			Name: "Anthropic",
			Env:  []string{"ANTHROPIC_API_KEY"},
			Npm:  "@ai-sdk/anthropic",
			Models: map[string]ProviderModel{
				"claude-sonnet-4-20250514": {
					ID:          "claude-sonnet-4-20250514",
					Name:        "Claude Sonnet 4",
					ReleaseDate: "2025-05-14",
					Capabilities: &ModelCapabilities{
						Temperature: true,
						Reasoning:   false,
						Attachment:  true,
						ToolCall:    true,
						Input:       ModalityCapabilities{Text: true, Audio: false, Image: true, Video: false, PDF: true},
						Output:      ModalityCapabilities{Text: true, Audio: false, Image: false, Video: false, PDF: false},
					},
					Cost:    ModelCost{Input: 3.0, Output: 15.0, CacheRead: 0.3, CacheWrite: 3.75},
					Limit:   ModelLimit{Context: 200000, Output: 64000},
					Options: map[string]any{},
				},
				"claude-opus-4-20250514": {
					ID:          "claude-opus-4-20250514",
					Name:        "Claude Opus 4",
					ReleaseDate: "2025-05-14",
					Capabilities: &ModelCapabilities{
						Temperature: true,
						Reasoning:   false,
						Attachment:  true,
						ToolCall:    true,
						Input:       ModalityCapabilities{Text: true, Audio: false, Image: true, Video: false, PDF: true},
						Output:      ModalityCapabilities{Text: true, Audio: false, Image: false, Video: false, PDF: false},
					},
					Cost:    ModelCost{Input: 15.0, Output: 75.0, CacheRead: 1.5, CacheWrite: 18.75},
					Limit:   ModelLimit{Context: 200000, Output: 32000},
					Options: map[string]any{},
				},
				"claude-3-5-haiku-20241022": {
					ID:          "claude-3-5-haiku-20241022",
					Name:        "Claude 3.5 Haiku",
					ReleaseDate: "2024-10-22",
					Capabilities: &ModelCapabilities{
						Temperature: true,
						Reasoning:   false,
						Attachment:  true,
						ToolCall:    true,
						Input:       ModalityCapabilities{Text: true, Audio: false, Image: true, Video: false, PDF: true},
						Output:      ModalityCapabilities{Text: true, Audio: false, Image: false, Video: false, PDF: false},
					},
					Cost:    ModelCost{Input: 0.8, Output: 4.0, CacheRead: 0.08, CacheWrite: 1.0},
					Limit:   ModelLimit{Context: 200000, Output: 8192},
					Options: map[string]any{},
				},
			},
		},
		{
			ID:   "openai",
			Name: "OpenAI",
			Env:  []string{"OPENAI_API_KEY"},
			Npm:  "@ai-sdk/openai",
			Models: map[string]ProviderModel{
				"gpt-4o": {
					ID:          "gpt-4o",
					Name:        "GPT-4o",
					ReleaseDate: "2024-05-13",
					Capabilities: &ModelCapabilities{
						Temperature: true,
						Reasoning:   false,
						Attachment:  true,
						ToolCall:    true,
						Input:       ModalityCapabilities{Text: true, Audio: false, Image: true, Video: false, PDF: false},
						Output:      ModalityCapabilities{Text: true, Audio: false, Image: false, Video: false, PDF: false},
					},
					Cost:    ModelCost{Input: 2.5, Output: 10.0},
					Limit:   ModelLimit{Context: 128000, Output: 16384},
					Options: map[string]any{},
				},
				"gpt-4o-mini": {
					ID:          "gpt-4o-mini",
					Name:        "GPT-4o Mini",
					ReleaseDate: "2024-07-18",
					Capabilities: &ModelCapabilities{
						Temperature: true,
						Reasoning:   false,
						Attachment:  true,
						ToolCall:    true,
						Input:       ModalityCapabilities{Text: true, Audio: false, Image: true, Video: false, PDF: false},
						Output:      ModalityCapabilities{Text: true, Audio: false, Image: false, Video: false, PDF: false},
					},
					Cost:    ModelCost{Input: 0.15, Output: 0.6},
					Limit:   ModelLimit{Context: 128000, Output: 16384},
					Options: map[string]any{},
				},
			},
		},
	}
}

// firstModelPerProvider builds a providerID -> modelID map using each
// provider's first catalog entry as its default. Map iteration order is
// unspecified, so this is a "some default" pick, not a "best" one.
func firstModelPerProvider(providers []ProviderInfo) map[string]string {
	defaults := make(map[string]string, len(providers))
	for _, p := range providers {
		for modelID := range p.Models {
			defaults[p.ID] = modelID
			break
		}
	}
	return defaults
}

// listProviders handles GET /config/providers
func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	providers := knownProviders()
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Providers: providers,
		Default:   firstModelPerProvider(providers),
	})
}

// listAllProviders handles GET /provider
func (s *Server) listAllProviders(w http.ResponseWriter, r *http.Request) {
	providers := knownProviders()

	connected := make([]string, 0, len(providers))
	for _, p := range providers {
		if providerHasCredential(p) {
			connected = append(connected, p.ID)
		}
	}

	writeJSON(w, http.StatusOK, ProviderListResponse{
		All:       providers,
		Default:   firstModelPerProvider(providers),
		Connected: connected,
	})
}

// providerHasCredential reports whether any of a provider's documented
// environment variables is set in the current process environment.
func providerHasCredential(p ProviderInfo) bool {
	for _, envVar := range p.Env {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}
