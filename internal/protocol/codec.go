package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format for one session. Negotiated once from the
// Content-Type header of the upgrade request and fixed for the session's
// lifetime. JSON envelopes ride in text frames, MsgPack in binary frames.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMsgPack
)

// Content types accepted on the upgrade request
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/msgpack"
)

// String returns the content type name for the encoding
func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingMsgPack:
		return "msgpack"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Binary reports whether the encoding rides in binary WebSocket frames.
func (e Encoding) Binary() bool {
	return e == EncodingMsgPack
}

// EncodingFromContentType negotiates the session encoding from the HTTP
// Content-Type header of the upgrade request. An absent header selects JSON;
// an unrecognized value is a negotiation failure and the caller must close
// the connection before any message exchange.
func EncodingFromContentType(contentType string) (Encoding, bool) {
	switch contentType {
	case "", ContentTypeJSON:
		return EncodingJSON, true
	case ContentTypeMsgPack:
		return EncodingMsgPack, true
	default:
		return EncodingJSON, false
	}
}

// Marshal serializes an envelope in the given encoding.
func Marshal(e Encoding, v any) ([]byte, error) {
	switch e {
	case EncodingJSON:
		return json.Marshal(v)
	case EncodingMsgPack:
		return msgpack.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported encoding: %d", int(e))
	}
}

// Unmarshal deserializes an envelope in the given encoding.
func Unmarshal(e Encoding, data []byte, v any) error {
	switch e {
	case EncodingJSON:
		return json.Unmarshal(data, v)
	case EncodingMsgPack:
		return msgpack.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported encoding: %d", int(e))
	}
}

// envelope is the minimal decode used to route an incoming message before
// its full type is known.
type envelope struct {
	MessageType string `json:"messageType" msgpack:"messageType"`
}

// PeekMessageType extracts the messageType tag from a raw payload without
// decoding the rest of the envelope.
func PeekMessageType(e Encoding, data []byte) (string, error) {
	var env envelope
	if err := Unmarshal(e, data, &env); err != nil {
		return "", fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.MessageType == "" {
		return "", fmt.Errorf("envelope has no messageType field")
	}
	return env.MessageType, nil
}
