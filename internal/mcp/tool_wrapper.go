// Package mcp provides Model Context Protocol (MCP) client functionality.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/coreassist/coreassist/internal/tool"
)

// MCPToolWrapper wraps an MCP tool to implement the tool.Tool interface.
// This allows MCP tools to be registered in the standard tool registry
// and used seamlessly in the agentic loop.
type MCPToolWrapper struct {
	mcpTool Tool    // The MCP tool metadata (already has prefixed name from client.Tools())
	client  *Client // Reference to MCP client for execution
}

// NewMCPToolWrapper creates a wrapper for an MCP tool.
func NewMCPToolWrapper(mcpTool Tool, client *Client) *MCPToolWrapper {
	return &MCPToolWrapper{
		mcpTool: mcpTool,
		client:  client,
	}
}

// ID returns the prefixed tool name (e.g., "serverName_toolName").
func (w *MCPToolWrapper) ID() string {
	return w.mcpTool.Name
}

// Description returns the tool description.
func (w *MCPToolWrapper) Description() string {
	return w.mcpTool.Description
}

// Parameters returns the JSON Schema for tool parameters.
func (w *MCPToolWrapper) Parameters() json.RawMessage {
	return w.mcpTool.InputSchema
}

// Execute executes the tool via MCP client.
func (w *MCPToolWrapper) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	// Execute tool through MCP client
	output, err := w.client.ExecuteTool(ctx, w.mcpTool.Name, input)
	if err != nil {
		return nil, err
	}

	// Update metadata if context is available
	if toolCtx != nil {
		toolCtx.SetMetadata(w.mcpTool.Name, map[string]any{
			"type":   "mcp",
			"tool":   w.mcpTool.Name,
			"output": output,
		})
	}

	return &tool.Result{
		Title:  w.mcpTool.Name,
		Output: output,
	}, nil
}

// RegisterMCPTools registers all MCP tools from the client to a tool registry.
// This function fetches all available tools from connected MCP servers
// and wraps them to implement the tool.Tool interface.
func RegisterMCPTools(client *Client, registry *tool.Registry) {
	if client == nil || registry == nil {
		return
	}

	tools := client.Tools()
	for _, mcpTool := range tools {
		wrapper := NewMCPToolWrapper(mcpTool, client)
		registry.Register(wrapper)
	}
}
