package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coreassist/coreassist/internal/mcp"
)

// MCPServerStatus represents the status of an MCP server for TUI.
// Status can be "connected", "disabled", or "failed".
type MCPServerStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"` // Only for failed status
}

// getMCPStatus handles GET /mcp
// Returns Record<string, MCPServerStatus> - a map from server name to status.
func (s *Server) getMCPStatus(w http.ResponseWriter, r *http.Request) {
	statuses := make(map[string]MCPServerStatus)

	if s.mcpClient != nil {
		for _, server := range s.mcpClient.Status() {
			status := MCPServerStatus{Status: string(server.Status)}
			if server.Error != nil {
				status.Error = *server.Error
			}
			statuses[server.Name] = status
		}
	}

	writeJSON(w, http.StatusOK, statuses)
}

// addMCPServer handles POST /mcp
func (s *Server) addMCPServer(w http.ResponseWriter, r *http.Request) {
	if s.mcpClient == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "MCP client not initialized")
		return
	}

	var req struct {
		Name        string            `json:"name"`
		Type        string            `json:"type"`
		URL         string            `json:"url,omitempty"`
		Command     []string          `json:"command,omitempty"`
		Headers     map[string]string `json:"headers,omitempty"`
		Environment map[string]string `json:"environment,omitempty"`
		Timeout     int               `json:"timeout,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Name is required")
		return
	}

	config := &mcp.Config{
		Enabled:     true,
		Type:        mcp.TransportType(req.Type),
		URL:         req.URL,
		Command:     req.Command,
		Headers:     req.Headers,
		Environment: req.Environment,
		Timeout:     req.Timeout,
	}

	if err := s.mcpClient.AddServer(r.Context(), req.Name, config); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	serverStatus, _ := s.mcpClient.GetServer(req.Name)
	writeJSON(w, http.StatusCreated, serverStatus)
}

// removeMCPServer handles DELETE /mcp/{name}
func (s *Server) removeMCPServer(w http.ResponseWriter, r *http.Request) {
	if s.mcpClient == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "MCP client not initialized")
		return
	}

	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Server name is required")
		return
	}

	if err := s.mcpClient.RemoveServer(name); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	writeSuccess(w)
}

// getMCPTools handles GET /mcp/tools
func (s *Server) getMCPTools(w http.ResponseWriter, r *http.Request) {
	if s.mcpClient == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	writeJSON(w, http.StatusOK, s.mcpClient.Tools())
}

// executeMCPTool handles POST /mcp/tool/{name}
func (s *Server) executeMCPTool(w http.ResponseWriter, r *http.Request) {
	if s.mcpClient == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "MCP client not initialized")
		return
	}

	toolName := chi.URLParam(r, "name")
	if toolName == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Tool name is required")
		return
	}

	var args json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		// Empty body is ok
		args = nil
	}

	result, err := s.mcpClient.ExecuteTool(r.Context(), toolName, args)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

// getMCPResources handles GET /mcp/resources
func (s *Server) getMCPResources(w http.ResponseWriter, r *http.Request) {
	if s.mcpClient == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	resources, err := s.mcpClient.ListResources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resources)
}

// readMCPResource handles GET /mcp/resource
func (s *Server) readMCPResource(w http.ResponseWriter, r *http.Request) {
	if s.mcpClient == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "MCP client not initialized")
		return
	}

	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "URI is required")
		return
	}

	result, err := s.mcpClient.ReadResource(r.Context(), uri)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
