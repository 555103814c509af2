package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/obsws/internal/auth"
	"github.com/muurk/obsws/internal/logging"
	"github.com/muurk/obsws/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients connect from arbitrary tools and hosts; origin checks are
	// not part of the protocol, authentication is.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades an incoming request and runs the session until its
// connection closes. The Server is mounted at "/" of its own listener by
// Start, but can also be embedded in an existing mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	encoding, ok := protocol.EncodingFromContentType(contentType)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error to the client.
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	// An unusable Content-Type means no session: the connection is closed
	// before it is ever registered.
	if !ok {
		logging.Warn("Rejecting connection with invalid Content-Type",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("content_type", contentType),
		)
		closeConn(conn, int(protocol.CloseInvalidContentType),
			"Your HTTP `Content-Type` header specifies an invalid encoding type.")
		return
	}

	authRequired, salt, _ := s.authMaterial()

	var challenge string
	if authRequired {
		challenge, err = auth.GenerateChallenge()
		if err != nil {
			logging.Error("Failed to generate session challenge",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			closeConn(conn, int(protocol.CloseUnknownReason),
				"The server failed to prepare your session.")
			return
		}
	}

	sess := newSession(s.nextSessionID.Add(1), conn, encoding, s.metrics)
	sess.setChallenge(challenge)

	s.table.Add(sess)
	s.metrics.activeSessions.Inc()
	s.metrics.connectionsTotal.Inc()
	logging.LogSession(sess.ID(), sess.RemoteAddress(), "connected")
	logging.Debug("Session encoding negotiated",
		zap.Uint64("session_id", sess.ID()),
		zap.String("encoding", encoding.String()),
	)

	// The listener may have closed between the upgrade and the insert;
	// late arrivals get the same goodbye as everyone else.
	if s.isStopping() {
		s.kickSession(sess, int(websocket.CloseGoingAway), "Server stopping.")
	}

	hello := protocol.Hello{
		MessageType:         protocol.TypeHello,
		OBSWebSocketVersion: protocol.Version,
		RPCVersion:          protocol.RPCVersion,
	}
	if challenge != "" {
		hello.Authentication = &protocol.Authentication{
			Challenge: challenge,
			Salt:      salt,
		}
	}
	if err := sess.SendMessage(hello); err != nil {
		logging.Warn("Failed to send Hello",
			zap.Uint64("session_id", sess.ID()),
			zap.Error(err),
		)
	}

	s.readLoop(sess)
}

// closeConn writes a close frame and drops a connection that never became a
// session.
func closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// readLoop pumps incoming envelopes into the dispatcher until the
// connection dies, then deregisters the session and fires the disconnect
// notifications.
func (s *Server) readLoop(sess *Session) {
	closeCode := websocket.CloseAbnormalClosure

	for {
		frameType, data, err := sess.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				closeCode = closeErr.Code
			} else if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logging.Debug("Session read error",
					zap.Uint64("session_id", sess.ID()),
					zap.Error(err),
				)
			}
			break
		}

		sess.incrementIncoming()
		logging.LogEnvelope(sess.ID(), "incoming", frameType == websocket.BinaryMessage, data)
		s.dispatch(sess, data)
	}

	// A server-initiated close reports the code it was kicked with, even
	// when the peer vanished without echoing the close frame.
	if kicked := sess.kickedCode(); kicked != 0 {
		closeCode = kicked
	}

	s.closeSession(sess, closeCode)
}

// closeSession removes the session from the table and notifies. The
// snapshot taken at removal is what observers see, so counters include
// every message up to the close.
func (s *Server) closeSession(sess *Session, closeCode int) {
	_ = sess.conn.Close()

	if _, ok := s.table.Remove(sess.ID()); !ok {
		return
	}
	state := sess.state()

	s.metrics.activeSessions.Dec()
	logging.LogSession(sess.ID(), sess.RemoteAddress(), "disconnected")
	logging.Debug("Session closed",
		zap.Uint64("session_id", sess.ID()),
		zap.Int("close_code", closeCode),
		zap.Bool("identified", state.Identified),
		zap.Uint64("incoming_messages", state.IncomingMessages),
		zap.Uint64("outgoing_messages", state.OutgoingMessages),
	)

	if cb := s.OnClientDisconnected; cb != nil {
		cb(state, closeCode)
	}
	if state.Identified {
		if cb := s.OnIdentifiedClientDisconnected; cb != nil {
			cb(state, closeCode)
		}
	}
}

// kickSession logs and starts a server-initiated close.
func (s *Server) kickSession(sess *Session, code int, reason string) {
	logging.Info("Closing session",
		zap.Uint64("session_id", sess.ID()),
		zap.Int("close_code", code),
		zap.String("reason", reason),
	)
	if err := sess.kick(code, reason); err != nil {
		logging.Warn("Failed to send close frame",
			zap.Uint64("session_id", sess.ID()),
			zap.Error(err),
		)
	}
}

// dispatch routes one decoded envelope. Handshake messages are handled
// here; everything else goes to the registered MessageHandler once the
// session is identified.
func (s *Server) dispatch(sess *Session, data []byte) {
	msgType, err := protocol.PeekMessageType(sess.encoding, data)
	if err != nil {
		s.kickSession(sess, int(protocol.CloseMessageDecodeError),
			"Your message could not be decoded.")
		return
	}

	if !sess.IsIdentified() && msgType != protocol.TypeIdentify {
		s.kickSession(sess, int(protocol.CloseNotIdentified),
			"You attempted to send a non-Identify message while not identified.")
		return
	}

	switch msgType {
	case protocol.TypeIdentify:
		s.handleIdentify(sess, data)
	case protocol.TypeReidentify:
		s.handleReidentify(sess, data)
	default:
		if handler := s.messageHandler(); handler != nil {
			err := handler(sess, msgType, data)
			if err == nil {
				return
			}
			if !errors.Is(err, ErrUnknownMessageType) {
				logging.Error("Message handler failed",
					zap.Uint64("session_id", sess.ID()),
					zap.String("message_type", msgType),
					zap.Error(err),
				)
				return
			}
		}
		s.kickSession(sess, int(protocol.CloseUnknownMessageType),
			fmt.Sprintf("Unknown message type: %s", msgType))
	}
}

// handleIdentify validates the client's half of the handshake: RPC version
// first, then authentication when the server demands it. Any failure closes
// the session; the challenge survives so a retry on the same connection
// cannot skip authentication.
func (s *Server) handleIdentify(sess *Session, data []byte) {
	if sess.IsIdentified() {
		s.kickSession(sess, int(protocol.CloseAlreadyIdentified),
			"You are already identified.")
		return
	}

	var ident protocol.Identify
	if err := protocol.Unmarshal(sess.encoding, data, &ident); err != nil {
		s.kickSession(sess, int(protocol.CloseMessageDecodeError),
			"Your message could not be decoded.")
		return
	}

	if ident.RPCVersion == nil {
		s.kickSession(sess, int(protocol.CloseMissingDataField),
			"Your payload is missing an `rpcVersion` field.")
		return
	}
	if *ident.RPCVersion != protocol.RPCVersion {
		s.kickSession(sess, int(protocol.CloseUnsupportedRPCVersion),
			"Your requested RPC version is not supported by this server.")
		return
	}

	if challenge := sess.challengeValue(); challenge != "" {
		if ident.Authentication == "" {
			s.kickSession(sess, int(protocol.CloseMissingDataField),
				"Your payload is missing an `authentication` string.")
			return
		}
		_, _, secret := s.authMaterial()
		if !auth.CheckAuthenticationString(secret, challenge, ident.Authentication) {
			s.kickSession(sess, int(protocol.CloseAuthenticationFailed),
				"Authentication failed.")
			return
		}
	}

	subs := protocol.EventIntentAll
	if ident.EventSubscriptions != nil {
		subs = *ident.EventSubscriptions
	}
	sess.setIdentified(subs)
	logging.LogSession(sess.ID(), sess.RemoteAddress(), "identified")

	s.sendIdentified(sess)
}

// handleReidentify updates an identified session's subscriptions in place.
// An omitted mask means everything, same as in Identify.
func (s *Server) handleReidentify(sess *Session, data []byte) {
	var re protocol.Reidentify
	if err := protocol.Unmarshal(sess.encoding, data, &re); err != nil {
		s.kickSession(sess, int(protocol.CloseMessageDecodeError),
			"Your message could not be decoded.")
		return
	}

	subs := protocol.EventIntentAll
	if re.EventSubscriptions != nil {
		subs = *re.EventSubscriptions
	}
	sess.setEventSubscriptions(subs)
	logging.LogSession(sess.ID(), sess.RemoteAddress(), "reidentified")

	s.sendIdentified(sess)
}

func (s *Server) sendIdentified(sess *Session) {
	reply := protocol.Identified{
		MessageType:          protocol.TypeIdentified,
		NegotiatedRPCVersion: protocol.RPCVersion,
	}
	if err := sess.SendMessage(reply); err != nil {
		logging.Warn("Failed to send Identified",
			zap.Uint64("session_id", sess.ID()),
			zap.Error(err),
		)
	}
}
