package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coreassist/coreassist/pkg/types"
)

// AuthMethod represents an authentication method for a provider.
type AuthMethod struct {
	Type  string `json:"type"`  // "oauth" or "api"
	Label string `json:"label"` // Display label
}

// builtinAuthMethods returns the auth methods this server currently
// supports per provider. Every provider only supports pasting in an API
// key for now; OAuth flows are stubbed in oauthAuthorize/oauthCallback.
func builtinAuthMethods() map[string][]AuthMethod {
	return map[string][]AuthMethod{
		"anthropic": {{Type: "api", Label: "Manually enter API Key"}},
		"openai":    {{Type: "api", Label: "Manually enter API Key"}},
	}
}

// getAuthMethods handles GET /provider/auth
// Returns Record<string, AuthMethod[]> - map from provider ID to auth methods.
func (s *Server) getAuthMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, builtinAuthMethods())
}

// oauthAuthorize handles POST /provider/{providerID}/oauth/authorize
func (s *Server) oauthAuthorize(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

// oauthCallback handles POST /provider/{providerID}/oauth/callback
func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request) {
	notImplemented(w)
}

// setAuth handles PUT /auth/{providerID}
func (s *Server) setAuth(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if s.appConfig.Provider == nil {
		s.appConfig.Provider = make(map[string]types.ProviderConfig)
	}

	// This would typically save to config file
	writeSuccess(w)

	_ = providerID
	_ = req
}
