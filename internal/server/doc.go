// Package server implements the obsws WebSocket RPC/event server.
//
// The server accepts WebSocket connections, walks each client through the
// Hello/Identify handshake, and fans events out to identified sessions by
// subscription intent. It is the Go counterpart of the obs-websocket 5.x
// server core.
//
// # Session Lifecycle
//
//  1. A client upgrades with an optional Content-Type header selecting the
//     wire encoding (JSON by default, MsgPack on request). An unusable
//     Content-Type closes the connection before a session exists.
//  2. The server registers the session and sends Hello, including a
//     challenge and salt when authentication is required.
//  3. The client answers with Identify: the RPC version it speaks, the
//     authentication string when demanded, and an optional subscription
//     mask (everything, when omitted).
//  4. The server replies Identified; from then on the session receives
//     matching events and may exchange application messages through the
//     registered MessageHandler.
//
// Handshake violations close the session with a code from the protocol
// package's 4000-range.
//
// # Event Broadcast
//
// BroadcastEvent queues the fan-out on a small worker pool, so producers
// never wait on client sockets. The envelope is serialized once per
// encoding in use; delivery happens under the session table lock with a
// bounded per-send write deadline. Failed deliveries are logged and
// skipped.
//
// # Graceful Shutdown
//
// Stop closes the listener, sends every session a going-away close, drains
// the broadcast pool, and then waits for the session table to empty before
// returning. Kicked sessions that never acknowledge are forced out by an
// expired read deadline.
//
// # Usage Example
//
//	cfg := config.New()
//	cfg.Server.Port = 4455
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv.OnClientDisconnected = func(state server.SessionState, code int) {
//	    fmt.Printf("client %d left with code %d\n", state.ID, code)
//	}
//
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop()
//
//	srv.BroadcastEvent(protocol.EventIntentAll, "VendorEvent", map[string]any{
//	    "vendorName": "example",
//	})
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. One mutex guards the
// session table; per-session handshake state has its own lock, acquired
// only after the table lock when both are needed. Writes to a connection
// are serialized per session.
package server
