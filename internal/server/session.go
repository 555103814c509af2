package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/obsws/internal/logging"
	"github.com/muurk/obsws/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time a kicked session gets to acknowledge the close frame before
	// its read loop is forced to give up
	closeGrace = 1 * time.Second
)

// Session represents one connected WebSocket client. The connection-level
// fields (id, conn, remote address, encoding) are fixed at creation; the
// handshake state and message counters are guarded by mu. Writes to the
// connection are serialized by writeMu so broadcasts and replies never
// interleave frames.
type Session struct {
	id            uint64
	conn          *websocket.Conn
	remoteAddress string
	connectedAt   int64 // Unix seconds
	encoding      protocol.Encoding
	metrics       *metrics

	mu                 sync.Mutex
	identified         bool
	challenge          string
	eventSubscriptions protocol.EventIntent
	incomingMessages   uint64
	outgoingMessages   uint64
	closeCode          int // close code the server kicked with, 0 if none

	writeMu sync.Mutex
}

func newSession(id uint64, conn *websocket.Conn, encoding protocol.Encoding, m *metrics) *Session {
	return &Session{
		id:            id,
		conn:          conn,
		remoteAddress: conn.RemoteAddr().String(),
		connectedAt:   time.Now().Unix(),
		encoding:      encoding,
		metrics:       m,
	}
}

// ID returns the session's server-assigned identifier
func (s *Session) ID() uint64 {
	return s.id
}

// RemoteAddress returns the client's network address
func (s *Session) RemoteAddress() string {
	return s.remoteAddress
}

// ConnectedAt returns the Unix timestamp of when the connection opened
func (s *Session) ConnectedAt() int64 {
	return s.connectedAt
}

// Encoding returns the wire format negotiated for this session
func (s *Session) Encoding() protocol.Encoding {
	return s.encoding
}

// IsIdentified reports whether the session has completed the Identify
// handshake.
func (s *Session) IsIdentified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identified
}

// EventSubscriptions returns the session's current subscription mask.
func (s *Session) EventSubscriptions() protocol.EventIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventSubscriptions
}

func (s *Session) setEventSubscriptions(subs protocol.EventIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventSubscriptions = subs
}

// challengeValue returns the pending authentication challenge, empty when
// the session does not need to authenticate (or already has).
func (s *Session) challengeValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

func (s *Session) setChallenge(challenge string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = challenge
}

// setIdentified marks the handshake complete. The challenge is cleared only
// here: a failed Identify leaves it pending so the session cannot retry its
// way around authentication.
func (s *Session) setIdentified(subs protocol.EventIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identified = true
	s.eventSubscriptions = subs
	s.challenge = ""
}

func (s *Session) incrementIncoming() {
	s.mu.Lock()
	s.incomingMessages++
	s.mu.Unlock()
	s.metrics.messagesReceived.Inc()
}

func (s *Session) incrementOutgoing() {
	s.mu.Lock()
	s.outgoingMessages++
	s.mu.Unlock()
	s.metrics.messagesSent.Inc()
}

// kickedCode returns the close code the server initiated a close with,
// or 0 when the server never kicked this session.
func (s *Session) kickedCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode
}

// recordCloseCode notes a server-initiated close. The first recorded code
// wins so a shutdown sweep never repaints an earlier, more specific kick.
func (s *Session) recordCloseCode(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeCode == 0 {
		s.closeCode = code
	}
}

// state snapshots the session for disconnect notifications and listings.
func (s *Session) state() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		ID:               s.id,
		RemoteAddress:    s.remoteAddress,
		ConnectedAt:      s.connectedAt,
		Identified:       s.identified,
		IncomingMessages: s.incomingMessages,
		OutgoingMessages: s.outgoingMessages,
	}
}

// send writes a pre-encoded envelope to the connection. JSON rides in text
// frames, MsgPack in binary frames.
func (s *Session) send(data []byte) error {
	frameType := websocket.TextMessage
	if s.encoding.Binary() {
		frameType = websocket.BinaryMessage
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(frameType, data)
}

// SendMessage serializes an envelope in the session's encoding and sends it.
// Used for handshake replies and by message handlers to answer clients.
func (s *Session) SendMessage(v any) error {
	data, err := protocol.Marshal(s.encoding, v)
	if err != nil {
		return err
	}

	if err := s.send(data); err != nil {
		return err
	}

	s.incrementOutgoing()
	logging.LogEnvelope(s.id, "outgoing", s.encoding.Binary(), data)
	return nil
}

// kick starts a server-initiated close: it sends a close frame with the
// given code and reason, then expires the read deadline so the read loop
// tears the session down even if the peer never acknowledges. The first
// kick wins; later codes do not overwrite the recorded one.
//
// WriteControl is safe to call concurrently with WriteMessage, so a kick
// never waits behind a slow in-flight send.
func (s *Session) kick(code int, reason string) error {
	s.recordCloseCode(code)

	msg := websocket.FormatCloseMessage(code, reason)
	err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))

	if derr := s.conn.SetReadDeadline(time.Now().Add(closeGrace)); derr != nil && err == nil {
		err = derr
	}
	return err
}
