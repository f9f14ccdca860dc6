// Package session runs the per-connection conversation of framechat.
//
// The session package implements:
//   - The Chat/Game state machine that owns one framed connection
//   - Hosting a tic-tac-toe match when the peer sends the trigger
//   - Relaying a match hosted by the peer after sending the trigger
//   - A registry of live sessions used for shutdown and inspection
//
// Core Types:
//
// Session owns one io.ReadWriteCloser for its entire lifetime and talks to a
// local operator through an engine.Seat. Manager keeps handles on running
// sessions so they can be listed and closed from other goroutines.
//
// Turn taking:
//
// The server side receives first and the client side sends first; after that
// both alternate. Frames carrying the wait flag are followed by more frames
// from the same sender, so the receiver keeps reading instead of replying.
// After a match the host sends "[exit]" and then speaks first in chat, the
// relay listens first.
//
// Usage:
//
//	manager := session.NewManager()
//	sess := session.New(conn, session.RoleServer, console,
//		session.WithRemoteAddr(conn.RemoteAddr().String()))
//	manager.Add(sess)
//	defer manager.Remove(sess.ID())
//
//	if err := sess.Run(ctx); err != nil {
//		log.Printf("Session %s failed: %v", sess.ID(), err)
//	}
package session
