package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultConnectTimeout bounds how long AddServer waits for a new
// server's handshake when its config doesn't set one.
const defaultConnectTimeout = 5 * time.Second

// clientName/clientVersion identify coreassist to every MCP server it
// connects to, via the SDK's initialize handshake.
const (
	clientName    = "coreassist"
	clientVersion = "1.0.0"
)

// Client owns every MCP server connection for one coreassist instance,
// wrapping the official SDK client with the prefixed-tool-name and
// server-lifecycle bookkeeping the rest of the codebase expects.
type Client struct {
	mu        sync.RWMutex
	servers   map[string]*mcpServer
	sdkClient *sdkmcp.Client
}

// mcpServer tracks one configured server: its live SDK session once
// connected, the tools/resources/prompts it advertised, and enough
// status to explain a failed or disabled server without a session.
type mcpServer struct {
	name       string
	config     *Config
	session    *sdkmcp.ClientSession
	tools      []Tool
	resources  []Resource
	prompts    []Prompt
	status     Status
	error      string
	serverInfo *ServerInfo
}

// NewClient builds an MCP client with no servers configured yet; call
// AddServer for each one a config names.
func NewClient() *Client {
	return &Client{
		servers: make(map[string]*mcpServer),
		sdkClient: sdkmcp.NewClient(&sdkmcp.Implementation{
			Name:    clientName,
			Version: clientVersion,
		}, nil),
	}
}

// AddServer registers name under config and, unless config is
// disabled, connects to it immediately. A connection failure is
// recorded on the server entry rather than discarded, so Status/
// GetServer can explain what went wrong.
func (c *Client) AddServer(ctx context.Context, name string, config *Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.servers[name]; ok {
		return fmt.Errorf("server already exists: %s", name)
	}

	if !config.Enabled {
		c.servers[name] = &mcpServer{name: name, config: config, status: StatusDisabled}
		return nil
	}

	server, err := c.connectServer(ctx, name, config)
	if err != nil {
		c.servers[name] = &mcpServer{
			name:   name,
			config: config,
			status: StatusFailed,
			error:  err.Error(),
		}
		return err
	}

	c.servers[name] = server
	return nil
}

// connectServer builds the right SDK transport for config's type,
// runs the initialize handshake through the shared sdkClient, and
// opportunistically lists tools — a server that fails to list tools
// still counts as connected, since tool listing is a separate MCP
// capability a server may simply not implement.
func (c *Client) connectServer(ctx context.Context, name string, config *Config) (*mcpServer, error) {
	timeout := time.Duration(config.Timeout) * time.Millisecond
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport, err := buildTransport(config, timeout)
	if err != nil {
		return nil, err
	}

	server := &mcpServer{name: name, config: config, status: StatusConnecting}

	session, err := c.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", name, err)
	}
	server.session = session

	if initResult := session.InitializeResult(); initResult != nil {
		server.serverInfo = &ServerInfo{
			Name:    initResult.ServerInfo.Name,
			Version: initResult.ServerInfo.Version,
		}
	}

	if err := server.listTools(ctx); err != nil {
		server.tools = []Tool{}
	}

	server.status = StatusConnected
	return server, nil
}

// buildTransport picks the SDK transport matching config.Type: an SSE
// client for a remote HTTP server, or a command transport that spawns
// config.Command as a child process and inherits the parent's
// environment plus whatever config.Environment adds.
func buildTransport(config *Config, timeout time.Duration) (sdkmcp.Transport, error) {
	switch config.Type {
	case TransportTypeRemote:
		return &sdkmcp.SSEClientTransport{
			Endpoint:   config.URL,
			HTTPClient: &http.Client{Timeout: timeout},
		}, nil

	case TransportTypeLocal, TransportTypeStdio:
		if len(config.Command) == 0 {
			return nil, fmt.Errorf("empty command")
		}
		cmd := exec.Command(config.Command[0], config.Command[1:]...)
		cmd.Env = os.Environ()
		for k, v := range config.Environment {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
		return &sdkmcp.CommandTransport{Command: cmd}, nil

	default:
		return nil, fmt.Errorf("unknown transport type: %s", config.Type)
	}
}

// listTools refreshes s.tools from the server's tools/list response.
func (s *mcpServer) listTools(ctx context.Context) error {
	if s.session == nil {
		return fmt.Errorf("not connected")
	}

	result, err := s.session.ListTools(ctx, nil)
	if err != nil {
		return err
	}

	s.tools = make([]Tool, len(result.Tools))
	for i, t := range result.Tools {
		s.tools[i] = FromSDKTool(t)
	}
	return nil
}

// Tools returns every tool across every connected server, each renamed
// to embed its owning server (serverName_toolName) so two servers
// offering a same-named tool don't collide once merged into one list.
func (c *Client) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var allTools []Tool
	for name, server := range c.servers {
		if server.status != StatusConnected {
			continue
		}
		prefix := sanitizeToolName(name) + "_"
		for _, tool := range server.tools {
			allTools = append(allTools, Tool{
				Name:        prefix + sanitizeToolName(tool.Name),
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
	}
	return allTools
}

// ExecuteTool calls toolName (as returned by Tools, i.e. already
// server-prefixed) on its owning server with args as the tool's
// arguments, and returns the concatenated text content of the result.
func (c *Client) ExecuteTool(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	server, originalName := c.findToolOwner(toolName)
	if server == nil {
		return "", fmt.Errorf("no server found for tool: %s", toolName)
	}
	if server.session == nil {
		return "", fmt.Errorf("server not connected: %s", server.name)
	}

	var argsMap map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argsMap); err != nil {
			return "", fmt.Errorf("failed to parse arguments: %w", err)
		}
	}

	result, err := server.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      originalName,
		Arguments: argsMap,
	})
	if err != nil {
		return "", err
	}

	if result.IsError {
		if msg, ok := firstText(result.Content); ok {
			return "", fmt.Errorf("tool error: %s", msg)
		}
		return "", fmt.Errorf("tool execution failed")
	}

	var output strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(*sdkmcp.TextContent); ok {
			output.WriteString(textContent.Text)
		}
	}
	return output.String(), nil
}

// findToolOwner locates the connected server that owns the
// server-prefixed toolName, and translates toolName back to the raw
// tool name the server itself advertises (sanitizeToolName is lossy,
// so this has to search the server's tool list rather than just
// trimming the prefix).
func (c *Client) findToolOwner(toolName string) (*mcpServer, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, server := range c.servers {
		if server.status != StatusConnected {
			continue
		}
		prefix := sanitizeToolName(name) + "_"
		if !strings.HasPrefix(toolName, prefix) {
			continue
		}
		sanitized := strings.TrimPrefix(toolName, prefix)
		for _, t := range server.tools {
			if sanitizeToolName(t.Name) == sanitized {
				return server, t.Name
			}
		}
		return server, sanitized
	}
	return nil, ""
}

// firstText returns the text of the first TextContent block in
// content, if any.
func firstText(content []sdkmcp.Content) (string, bool) {
	for _, c := range content {
		if textContent, ok := c.(*sdkmcp.TextContent); ok {
			return textContent.Text, true
		}
	}
	return "", false
}

// ListResources lists resources across every connected server, with
// each URI rewritten to the mcp://server/uri form ReadResource parses
// back apart to route a later read to the right server.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var allResources []Resource
	for name, server := range c.servers {
		if server.status != StatusConnected || server.session == nil {
			continue
		}

		resources, err := server.listResources(ctx)
		if err != nil {
			continue
		}

		for _, r := range resources {
			allResources = append(allResources, Resource{
				URI:         fmt.Sprintf("mcp://%s/%s", name, r.URI),
				Name:        r.Name,
				Description: r.Description,
				MimeType:    r.MimeType,
			})
		}
	}
	return allResources, nil
}

func (s *mcpServer) listResources(ctx context.Context) ([]Resource, error) {
	if s.session == nil {
		return nil, fmt.Errorf("not connected")
	}

	result, err := s.session.ListResources(ctx, nil)
	if err != nil {
		return nil, err
	}

	resources := make([]Resource, len(result.Resources))
	for i, r := range result.Resources {
		resources[i] = FromSDKResource(r)
	}
	return resources, nil
}

// ReadResource reads uri, which must be in the mcp://server/resourceURI
// form ListResources produces.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ReadResourceResponse, error) {
	serverName, resourceURI, err := splitResourceURI(uri)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	server, ok := c.servers[serverName]
	c.mu.RUnlock()

	if !ok || server.status != StatusConnected {
		return nil, fmt.Errorf("server not connected: %s", serverName)
	}
	return server.readResource(ctx, resourceURI)
}

// splitResourceURI pulls the server name and underlying resource URI
// back out of a "mcp://server/resourceURI" string.
func splitResourceURI(uri string) (server, resourceURI string, err error) {
	if !strings.HasPrefix(uri, "mcp://") {
		return "", "", fmt.Errorf("invalid MCP URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "mcp://"), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid MCP URI format: %s", uri)
	}
	return parts[0], parts[1], nil
}

func (s *mcpServer) readResource(ctx context.Context, uri string) (*ReadResourceResponse, error) {
	if s.session == nil {
		return nil, fmt.Errorf("not connected")
	}

	result, err := s.session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, err
	}

	resp := &ReadResourceResponse{Contents: make([]ResourceContent, len(result.Contents))}
	for i, c := range result.Contents {
		content := ResourceContent{
			URI:      c.URI,
			MimeType: c.MIMEType,
			Text:     c.Text,
		}
		if len(c.Blob) > 0 {
			content.Blob = string(c.Blob)
		}
		resp.Contents[i] = content
	}
	return resp, nil
}

// Status reports every configured server's connection state, in no
// particular order.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var statuses []ServerStatus
	for name, server := range c.servers {
		statuses = append(statuses, serverStatus(name, server))
	}
	return statuses
}

// GetServer reports name's connection state.
func (c *Client) GetServer(name string) (*ServerStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	server, ok := c.servers[name]
	if !ok {
		return nil, fmt.Errorf("server not found: %s", name)
	}
	status := serverStatus(name, server)
	return &status, nil
}

func serverStatus(name string, server *mcpServer) ServerStatus {
	s := ServerStatus{
		Name:      name,
		Status:    server.status,
		ToolCount: len(server.tools),
	}
	if server.error != "" {
		s.Error = &server.error
	}
	return s
}

// RemoveServer closes name's session, if any, and forgets it.
func (c *Client) RemoveServer(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	server, ok := c.servers[name]
	if !ok {
		return fmt.Errorf("server not found: %s", name)
	}
	if server.session != nil {
		server.session.Close()
	}
	delete(c.servers, name)
	return nil
}

// Close disconnects every server and resets the client to a fresh,
// empty state.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, server := range c.servers {
		if server.session != nil {
			server.session.Close()
		}
	}
	c.servers = make(map[string]*mcpServer)
	return nil
}

// ServerCount returns how many servers are configured, connected or
// not.
func (c *Client) ServerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.servers)
}

// ConnectedCount returns how many configured servers are currently
// connected.
func (c *Client) ConnectedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, server := range c.servers {
		if server.status == StatusConnected {
			count++
		}
	}
	return count
}

// sanitizeToolName replaces every non-alphanumeric rune with '_', so a
// server or tool name with dashes, dots, or spaces can still appear in
// a prefixed tool identifier a model sees as one opaque token.
func sanitizeToolName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
