// Package api provides the HTTP admin surface of a framechat server.
//
// The api package implements:
//   - Session listing, inspection and closing over the session registry
//   - Health and protocol description endpoints
//   - Mounting of the WebSocket chat transport and the MCP endpoint
//
// Endpoints:
//
// Sessions:
//   - GET /api/sessions - List live sessions, oldest first
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Close the session's connection
//
// Service:
//   - GET /api/health - Liveness and live session count
//   - GET /api/protocol - Header width and sentinel tokens in use
//
// Mounted handlers:
//   - GET /ws - Framed chat over WebSocket (WithWebSocket)
//   - POST /mcp - MCP JSON-RPC messages (WithMCP)
//
// Usage:
//
//	manager := session.NewManager()
//	srv := api.NewServer(manager,
//		api.WithWebSocket(websocket.NewHandler(manager, console.Stdio())),
//		api.WithMCP(mcp.NewClient("http://localhost:8080").HTTPHandler()),
//	)
//	http.ListenAndServe(":8080", srv)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate status code:
//
//	{
//	  "error": "session not found"
//	}
package api
