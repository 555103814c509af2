package protocol

import "fmt"

// Version is the obs-websocket protocol version implemented by this server.
// It is reported to every client in the Hello greeting.
const Version = "5.0.1"

// RPCVersion is the RPC protocol revision this server speaks. Clients request
// a version in Identify and the server refuses anything it cannot provide.
const RPCVersion uint32 = 1

// Envelope message types. Every message exchanged over the wire is a flat
// object tagged by a top-level messageType field.
const (
	TypeHello      = "Hello"      // server -> client, once, immediately after upgrade
	TypeIdentify   = "Identify"   // client -> server, completes the handshake
	TypeIdentified = "Identified" // server -> client, handshake acknowledgement
	TypeReidentify = "Reidentify" // client -> server, updates event subscriptions
	TypeEvent      = "Event"      // server -> client, broadcast event
)

// CloseCode is a WebSocket close code in the protocol's 4000-range private
// space. Standard RFC 6455 codes (normal closure, going away) are used where
// they apply; these codes cover protocol-level failures.
type CloseCode int

const (
	CloseUnknownReason         CloseCode = 4000
	CloseInvalidContentType    CloseCode = 4001
	CloseMessageDecodeError    CloseCode = 4002
	CloseMissingDataField      CloseCode = 4003
	CloseInvalidDataFieldType  CloseCode = 4004
	CloseInvalidDataFieldValue CloseCode = 4005
	CloseUnknownMessageType    CloseCode = 4006
	CloseNotIdentified         CloseCode = 4007
	CloseAlreadyIdentified     CloseCode = 4008
	CloseAuthenticationFailed  CloseCode = 4009
	CloseUnsupportedRPCVersion CloseCode = 4010
	CloseSessionInvalidated    CloseCode = 4011
	CloseUnsupportedFeature    CloseCode = 4012
)

// String returns a human-readable close code name
func (c CloseCode) String() string {
	switch c {
	case CloseUnknownReason:
		return "UnknownReason"
	case CloseInvalidContentType:
		return "InvalidContentType"
	case CloseMessageDecodeError:
		return "MessageDecodeError"
	case CloseMissingDataField:
		return "MissingDataField"
	case CloseInvalidDataFieldType:
		return "InvalidDataFieldType"
	case CloseInvalidDataFieldValue:
		return "InvalidDataFieldValue"
	case CloseUnknownMessageType:
		return "UnknownMessageType"
	case CloseNotIdentified:
		return "NotIdentified"
	case CloseAlreadyIdentified:
		return "AlreadyIdentified"
	case CloseAuthenticationFailed:
		return "AuthenticationFailed"
	case CloseUnsupportedRPCVersion:
		return "UnsupportedRpcVersion"
	case CloseSessionInvalidated:
		return "SessionInvalidated"
	case CloseUnsupportedFeature:
		return "UnsupportedFeature"
	default:
		return fmt.Sprintf("CloseCode(%d)", int(c))
	}
}

// EventIntent is a bitmask of event categories a session has subscribed to.
// The server treats the mask as opaque; category bits are assigned by the
// host application's event vocabulary.
type EventIntent uint64

const (
	// EventIntentNone subscribes to nothing. New sessions start here.
	EventIntentNone EventIntent = 0
	// EventIntentAll subscribes to every category. Clients that omit
	// eventSubscriptions in Identify are given this.
	EventIntentAll EventIntent = ^EventIntent(0)
)

// Matches reports whether a subscription mask qualifies for an event that
// requires the given intent.
func (i EventIntent) Matches(required EventIntent) bool {
	return i&required != 0
}

// Hello greets a freshly connected client. The authentication block is
// present only when the server requires authentication.
type Hello struct {
	MessageType         string          `json:"messageType" msgpack:"messageType"`
	OBSWebSocketVersion string          `json:"obsWebSocketVersion" msgpack:"obsWebSocketVersion"`
	RPCVersion          uint32          `json:"rpcVersion" msgpack:"rpcVersion"`
	Authentication      *Authentication `json:"authentication,omitempty" msgpack:"authentication,omitempty"`
}

// Authentication carries the challenge-response parameters inside Hello.
type Authentication struct {
	Challenge string `json:"challenge" msgpack:"challenge"`
	Salt      string `json:"salt" msgpack:"salt"`
}

// Identify is the client's half of the handshake. RPCVersion is required
// (a missing field is a MissingDataField close); Authentication is required
// when the server demands it; EventSubscriptions defaults to EventIntentAll
// when absent.
type Identify struct {
	MessageType        string       `json:"messageType" msgpack:"messageType"`
	RPCVersion         *uint32      `json:"rpcVersion" msgpack:"rpcVersion"`
	Authentication     string       `json:"authentication,omitempty" msgpack:"authentication,omitempty"`
	EventSubscriptions *EventIntent `json:"eventSubscriptions,omitempty" msgpack:"eventSubscriptions,omitempty"`
}

// Identified acknowledges a successful Identify or Reidentify.
type Identified struct {
	MessageType          string `json:"messageType" msgpack:"messageType"`
	NegotiatedRPCVersion uint32 `json:"negotiatedRpcVersion" msgpack:"negotiatedRpcVersion"`
}

// Reidentify updates an identified session's subscriptions in place.
type Reidentify struct {
	MessageType        string       `json:"messageType" msgpack:"messageType"`
	EventSubscriptions *EventIntent `json:"eventSubscriptions,omitempty" msgpack:"eventSubscriptions,omitempty"`
}

// Event is the broadcast envelope fanned out to subscribed sessions.
type Event struct {
	MessageType string         `json:"messageType" msgpack:"messageType"`
	EventType   string         `json:"eventType" msgpack:"eventType"`
	EventData   map[string]any `json:"eventData,omitempty" msgpack:"eventData,omitempty"`
}
