// Package protocol defines the obsws wire protocol.
//
// This package holds the envelope types, close codes, event intent bitmask,
// and the dual-encoding codec shared by the server and its tools. The server
// package drives the protocol; this package only describes it.
//
// # Protocol Overview
//
// Every message is a flat object tagged by a top-level messageType field:
//
//	{"messageType": "Hello", "obsWebSocketVersion": "5.0.1", "rpcVersion": 1}
//	{"messageType": "Identify", "rpcVersion": 1, "authentication": "..."}
//	{"messageType": "Identified", "negotiatedRpcVersion": 1}
//	{"messageType": "Event", "eventType": "...", "eventData": {...}}
//
// The same envelopes are carried in one of two encodings, chosen per session
// by the Content-Type header of the WebSocket upgrade request:
//   - application/json (or no header): JSON in text frames
//   - application/msgpack: MessagePack in binary frames
//
// Any other Content-Type closes the connection with CloseInvalidContentType
// before any message is exchanged.
//
// # Handshake
//
// The server sends Hello immediately after the upgrade. When authentication
// is required, Hello carries a per-session challenge and the server-wide
// salt; the client proves knowledge of the password by sending
// base64(SHA256(secret ++ challenge)) in Identify, where
// secret = base64(SHA256(password ++ salt)). A successful Identify is
// acknowledged with Identified; from then on the session receives every
// broadcast Event whose required intent overlaps its subscription mask.
//
// # Close Codes
//
// Protocol failures close the connection with a code in the 4000 range, for
// example CloseAuthenticationFailed or CloseUnknownMessageType. Standard
// RFC 6455 codes are used for ordinary lifecycle ends (going away on server
// shutdown).
//
// # Usage Example
//
//	payload, err := protocol.Marshal(enc, protocol.Event{
//	    MessageType: protocol.TypeEvent,
//	    EventType:   "VendorEvent",
//	    EventData:   map[string]any{"vendorName": "example"},
//	})
//
// # Thread Safety
//
// All types and functions here are stateless and safe for concurrent use.
package protocol
