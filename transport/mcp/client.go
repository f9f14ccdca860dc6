package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/framechat/api"
	"github.com/wricardo/framechat/game/session"
)

// Version is reported to MCP clients during initialization.
var Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"framechat",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`framechat - MCP Interface

framechat relays a line-oriented chat between a server operator and TCP or
WebSocket clients. Either side can type "!TICTACTOE" to play tic-tac-toe
over the same connection. This client proxies to the server's admin API.

AVAILABLE TOOLS:
- list_sessions: List live chat sessions
- get_session: Get one session's role, mode and counters
- close_session: Close a session's connection
- server_health: Report liveness and the live session count
- protocol_info: Describe the framing and sentinel tokens in use`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sessionIDSchema := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Session ID",
			},
		},
		Required: []string{"session_id"},
	}
	noArgs := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live chat sessions, oldest first",
		InputSchema: noArgs,
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionIDSchema,
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "close_session",
		Description: "Close the connection of a session. The peer sees the connection drop.",
		InputSchema: sessionIDSchema,
	}, c.handleCloseSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_health",
		Description: "Check that the server is up and count live sessions",
		InputSchema: noArgs,
	}, c.handleHealth)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "protocol_info",
		Description: "Describe the frame header and the sentinel tokens the server uses",
		InputSchema: noArgs,
	}, c.handleProtocolInfo)
}

// GetMCPServer returns the underlying MCP server for stdio serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler answers POSTed JSON-RPC messages with the MCP server.
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionArg(request mcp.CallToolRequest) (string, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return sessionID, nil
}

// Tool handlers

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int            `json:"count"`
		Sessions []session.Info `json:"sessions"`
	}

	err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (%s, %s, from %s, since %s)\n",
			s.ID, s.Role, s.Mode, s.RemoteAddr, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := sessionArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info session.Info
	err = c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(info)), nil
}

func (c *Client) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := sessionArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response map[string]string
	err = c.apiCall(ctx, "DELETE", "/api/sessions/"+url.PathEscape(sessionID), nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}

	err := c.apiCall(ctx, "GET", "/api/health", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Status: %s\nLive sessions: %d\n", response.Status, response.Sessions)), nil
}

func (c *Client) handleProtocolInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info api.ProtocolInfo
	err := c.apiCall(ctx, "GET", "/api/protocol", nil, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatProtocolInfo(info)), nil
}

func formatSessionInfo(info session.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", info.ID)
	fmt.Fprintf(&b, "Role: %s\n", info.Role)
	fmt.Fprintf(&b, "Mode: %s\n", info.Mode)
	fmt.Fprintf(&b, "Remote: %s\n", info.RemoteAddr)
	fmt.Fprintf(&b, "Created: %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Games played: %d\n", info.GamesPlayed)
	fmt.Fprintf(&b, "Frames in/out: %d/%d\n", info.FramesIn, info.FramesOut)
	return b.String()
}

func formatProtocolInfo(info api.ProtocolInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Header: %d bytes (%d length digits, left-justified and space padded, then 1 flag byte)\n",
		info.HeaderSize, info.HeaderSize-1)
	fmt.Fprintf(&b, "Wait flag: %q (sender keeps talking; any other byte hands over the turn)\n", info.WaitFlag)
	if info.MaxPayloadSize > 0 {
		fmt.Fprintf(&b, "Max payload: %d bytes of ASCII\n", info.MaxPayloadSize)
	} else {
		fmt.Fprintf(&b, "Max payload: any length that fits %d digits, ASCII only\n", info.HeaderSize-1)
	}
	fmt.Fprintf(&b, "End of transmission: %q\n", info.EndTransmission)
	fmt.Fprintf(&b, "End of game: %q\n", info.EndGame)
	fmt.Fprintf(&b, "Game triggers: %s (case-insensitive)\n", strings.Join(info.Triggers, ", "))
	fmt.Fprintf(&b, "Quit keywords: %s\n", strings.Join(info.QuitKeywords, ", "))
	return b.String()
}
