// Package websocket carries framechat frames over WebSocket connections.
//
// The websocket package implements:
//   - Conn, a byte stream over a WebSocket connection
//   - Handler, which upgrades HTTP requests into server-role sessions
//   - Dial, which opens a client-role session against a Handler
//
// Message Protocol:
//
// The framed protocol is unchanged: every Write on a Conn becomes one binary
// message and reads consume message payloads back to back, so a frame may
// span several messages and a message may carry several frames. Text
// messages are accepted too.
//
// Usage:
//
//	manager := session.NewManager()
//	router.Handle("/ws", websocket.NewHandler(manager, console.Stdio()))
//
//	sess, err := websocket.Dial(ctx, "ws://localhost:8080/ws", console.Stdio())
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.Run(ctx)
//
// Connection Lifecycle:
//
// 1. Client upgrades the connection
// 2. Session registered with the manager
// 3. Server pings the client periodically while the session runs
// 4. "/q", a close message or a dropped connection ends the session
// 5. Session unregistered and connection closed
//
// There is no read deadline: a chat may stay idle for as long as both ends
// want.
package websocket
