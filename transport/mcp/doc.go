// Package mcp exposes the framechat admin API as Model Context Protocol tools.
//
// The mcp package implements:
//   - A thin client that proxies every tool call to the admin REST API
//   - Tool definitions for inspecting and closing live sessions
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//   - list_sessions: List live chat sessions
//   - get_session: Get one session's role, mode and counters
//   - close_session: Close a session's connection
//   - server_health: Report liveness and the live session count
//   - protocol_info: Describe the framing and sentinel tokens in use
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	router.Handle("/mcp", client.HTTPHandler())
package mcp
