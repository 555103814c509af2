package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/obsws/internal/auth"
	"github.com/muurk/obsws/internal/config"
	"github.com/muurk/obsws/internal/protocol"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func startTestServer(t *testing.T, mutate func(*config.Config)) (*Server, int) {
	t.Helper()
	cfg := config.New()
	cfg.Server.Port = freePort(t)
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })
	return srv, cfg.Server.Port
}

func dialServer(t *testing.T, port int, contentType string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/", port), header)
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, enc protocol.Encoding, v any) {
	t.Helper()
	data, err := protocol.Marshal(enc, v)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	frameType := websocket.TextMessage
	if enc.Binary() {
		frameType = websocket.BinaryMessage
	}
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(frameType, data); err != nil {
		t.Fatalf("failed to write envelope: %v", err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn, enc protocol.Encoding, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read envelope: %v", err)
	}
	if err := protocol.Unmarshal(enc, data, v); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
}

func readHello(t *testing.T, conn *websocket.Conn, enc protocol.Encoding) protocol.Hello {
	t.Helper()
	var hello protocol.Hello
	readEnvelope(t, conn, enc, &hello)
	if hello.MessageType != protocol.TypeHello {
		t.Fatalf("first message type = %q, want %q", hello.MessageType, protocol.TypeHello)
	}
	return hello
}

func identifyClient(t *testing.T, conn *websocket.Conn, enc protocol.Encoding, extra map[string]any) {
	t.Helper()
	payload := map[string]any{
		"messageType": "Identify",
		"rpcVersion":  1,
	}
	for k, v := range extra {
		payload[k] = v
	}
	writeEnvelope(t, conn, enc, payload)

	var reply protocol.Identified
	readEnvelope(t, conn, enc, &reply)
	if reply.MessageType != protocol.TypeIdentified {
		t.Fatalf("identify reply type = %q, want %q", reply.MessageType, protocol.TypeIdentified)
	}
	if reply.NegotiatedRPCVersion != protocol.RPCVersion {
		t.Fatalf("negotiated rpc version = %d, want %d", reply.NegotiatedRPCVersion, protocol.RPCVersion)
	}
}

// expectClose reads until the connection delivers a close frame and checks
// its code. Must be the last read on the connection.
func expectClose(t *testing.T, conn *websocket.Conn, wantCode int) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		if !errors.As(err, &closeErr) {
			t.Fatalf("connection ended without close frame: %v", err)
		}
		if closeErr.Code != wantCode {
			t.Errorf("close code = %d, want %d", closeErr.Code, wantCode)
		}
		return
	}
}

// expectNoMessage asserts nothing arrives within the window. The read
// deadline poisons the connection, so this must be the last read on it.
func expectNoMessage(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(window))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("unexpected message delivered: %s", data)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("read ended with %v, want timeout", err)
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.New()
	cfg.Server.Port = 0

	_, err := New(cfg)
	if err == nil {
		t.Fatal("New() accepted a config with port 0")
	}
	if !IsConfigError(err) {
		t.Errorf("New() error = %v, want a config error", err)
	}
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	srv, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}
	if srv.cfg.Server.Port != config.DefaultPort {
		t.Errorf("default port = %d, want %d", srv.cfg.Server.Port, config.DefaultPort)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := config.New()
	cfg.Server.Port = freePort(t)

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Stop before Start is a no-op.
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() before Start error = %v", err)
	}

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Second Start while listening is a no-op.
	if err := srv.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	// Second Stop is a no-op.
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	// The server comes back after a stop.
	if err := srv.Start(); err != nil {
		t.Fatalf("restart Start() error = %v", err)
	}
	conn := dialServer(t, cfg.Server.Port, "")
	readHello(t, conn, protocol.EncodingJSON)
	if err := srv.Stop(); err != nil {
		t.Fatalf("final Stop() error = %v", err)
	}
}

func TestStartFailsWhenPortTaken(t *testing.T) {
	port := freePort(t)
	blocker, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		t.Skipf("could not occupy port %d: %v", port, err)
	}
	defer blocker.Close()

	cfg := config.New()
	cfg.Server.Port = port
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = srv.Start()
	if err == nil {
		_ = srv.Stop()
		t.Fatal("Start() succeeded on an occupied port")
	}
	if !IsBindError(err) {
		t.Errorf("Start() error = %v, want a bind error", err)
	}
}

func TestHelloOnConnect(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	hello := readHello(t, conn, protocol.EncodingJSON)

	if hello.OBSWebSocketVersion != protocol.Version {
		t.Errorf("obsWebSocketVersion = %q, want %q", hello.OBSWebSocketVersion, protocol.Version)
	}
	if hello.RPCVersion != protocol.RPCVersion {
		t.Errorf("rpcVersion = %d, want %d", hello.RPCVersion, protocol.RPCVersion)
	}
	if hello.Authentication != nil {
		t.Error("authentication block present with authentication disabled")
	}
}

func TestHelloMsgPackEncoding(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, protocol.ContentTypeMsgPack)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frameType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read Hello: %v", err)
	}
	if frameType != websocket.BinaryMessage {
		t.Errorf("Hello frame type = %d, want binary (%d)", frameType, websocket.BinaryMessage)
	}

	var hello protocol.Hello
	if err := protocol.Unmarshal(protocol.EncodingMsgPack, data, &hello); err != nil {
		t.Fatalf("failed to decode msgpack Hello: %v", err)
	}
	if hello.MessageType != protocol.TypeHello {
		t.Errorf("messageType = %q, want %q", hello.MessageType, protocol.TypeHello)
	}
	if hello.OBSWebSocketVersion != protocol.Version {
		t.Errorf("obsWebSocketVersion = %q, want %q", hello.OBSWebSocketVersion, protocol.Version)
	}

	identifyClient(t, conn, protocol.EncodingMsgPack, nil)
}

func TestInvalidContentTypeRejected(t *testing.T) {
	srv, port := startTestServer(t, nil)

	conn := dialServer(t, port, "text/plain")
	expectClose(t, conn, int(protocol.CloseInvalidContentType))

	if got := len(srv.Sessions()); got != 0 {
		t.Errorf("Sessions() length = %d, want 0 (rejected connection must not register)", got)
	}
}

func TestIdentifyHandshake(t *testing.T) {
	srv, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, nil)

	states := srv.Sessions()
	if len(states) != 1 {
		t.Fatalf("Sessions() length = %d, want 1", len(states))
	}
	if !states[0].Identified {
		t.Error("session not marked identified after handshake")
	}
}

func TestIdentifyMissingRPCVersion(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
		"messageType": "Identify",
	})
	expectClose(t, conn, int(protocol.CloseMissingDataField))
}

func TestIdentifyUnsupportedRPCVersion(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
		"messageType": "Identify",
		"rpcVersion":  2,
	})
	expectClose(t, conn, int(protocol.CloseUnsupportedRPCVersion))
}

func TestNonIdentifyBeforeHandshake(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
		"messageType": "Reidentify",
	})
	expectClose(t, conn, int(protocol.CloseNotIdentified))
}

func TestIdentifyTwice(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, nil)

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
		"messageType": "Identify",
		"rpcVersion":  1,
	})
	expectClose(t, conn, int(protocol.CloseAlreadyIdentified))
}

func TestMessageDecodeErrorCloses(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)

	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{{{{")); err != nil {
		t.Fatalf("failed to write garbage: %v", err)
	}
	expectClose(t, conn, int(protocol.CloseMessageDecodeError))
}

func TestUnknownMessageTypeCloses(t *testing.T) {
	_, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, nil)

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
		"messageType": "DoesNotExist",
	})
	expectClose(t, conn, int(protocol.CloseUnknownMessageType))
}

func TestAuthenticationFlow(t *testing.T) {
	const password = "correct horse"
	srv, port := startTestServer(t, func(cfg *config.Config) {
		cfg.Server.AuthRequired = true
		cfg.Server.Password = password
	})

	t.Run("valid password", func(t *testing.T) {
		conn := dialServer(t, port, "")
		hello := readHello(t, conn, protocol.EncodingJSON)
		if hello.Authentication == nil {
			t.Fatal("Hello carries no authentication block with auth required")
		}
		if hello.Authentication.Challenge == "" || hello.Authentication.Salt == "" {
			t.Fatal("authentication block is missing challenge or salt")
		}

		secret := auth.GenerateSecret(password, hello.Authentication.Salt)
		response := auth.AuthenticationString(secret, hello.Authentication.Challenge)
		identifyClient(t, conn, protocol.EncodingJSON, map[string]any{
			"authentication": response,
		})
	})

	t.Run("wrong password", func(t *testing.T) {
		conn := dialServer(t, port, "")
		hello := readHello(t, conn, protocol.EncodingJSON)

		secret := auth.GenerateSecret("not the password", hello.Authentication.Salt)
		response := auth.AuthenticationString(secret, hello.Authentication.Challenge)
		writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
			"messageType":    "Identify",
			"rpcVersion":     1,
			"authentication": response,
		})
		expectClose(t, conn, int(protocol.CloseAuthenticationFailed))
	})

	t.Run("missing authentication string", func(t *testing.T) {
		conn := dialServer(t, port, "")
		readHello(t, conn, protocol.EncodingJSON)

		writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
			"messageType": "Identify",
			"rpcVersion":  1,
		})
		expectClose(t, conn, int(protocol.CloseMissingDataField))
	})

	waitFor(t, func() bool { return len(srv.Sessions()) <= 1 }, "failed sessions to drop")
}

func TestChallengesDifferPerSession(t *testing.T) {
	_, port := startTestServer(t, func(cfg *config.Config) {
		cfg.Server.AuthRequired = true
		cfg.Server.Password = "pw"
	})

	connA := dialServer(t, port, "")
	helloA := readHello(t, connA, protocol.EncodingJSON)
	connB := dialServer(t, port, "")
	helloB := readHello(t, connB, protocol.EncodingJSON)

	if helloA.Authentication.Challenge == helloB.Authentication.Challenge {
		t.Error("two sessions received the same challenge")
	}
	if helloA.Authentication.Salt != helloB.Authentication.Salt {
		t.Error("salt differs between sessions within one server run")
	}
}

func TestBroadcastEventRespectsSubscriptions(t *testing.T) {
	srv, port := startTestServer(t, nil)

	subscribed := dialServer(t, port, "")
	readHello(t, subscribed, protocol.EncodingJSON)
	identifyClient(t, subscribed, protocol.EncodingJSON, map[string]any{"eventSubscriptions": 1})

	otherIntent := dialServer(t, port, "")
	readHello(t, otherIntent, protocol.EncodingJSON)
	identifyClient(t, otherIntent, protocol.EncodingJSON, map[string]any{"eventSubscriptions": 2})

	unidentified := dialServer(t, port, "")
	readHello(t, unidentified, protocol.EncodingJSON)

	srv.BroadcastEvent(protocol.EventIntent(1), "SomethingHappened", map[string]any{"value": 42})
	srv.pool.WaitForIdle()

	var event protocol.Event
	readEnvelope(t, subscribed, protocol.EncodingJSON, &event)
	if event.MessageType != protocol.TypeEvent {
		t.Errorf("messageType = %q, want %q", event.MessageType, protocol.TypeEvent)
	}
	if event.EventType != "SomethingHappened" {
		t.Errorf("eventType = %q, want %q", event.EventType, "SomethingHappened")
	}
	if got := fmt.Sprint(event.EventData["value"]); got != "42" {
		t.Errorf("eventData value = %s, want 42", got)
	}

	expectNoMessage(t, otherIntent, 250*time.Millisecond)
	expectNoMessage(t, unidentified, 250*time.Millisecond)
}

func TestBroadcastEventMixedEncodings(t *testing.T) {
	srv, port := startTestServer(t, nil)

	jsonClient := dialServer(t, port, "")
	readHello(t, jsonClient, protocol.EncodingJSON)
	identifyClient(t, jsonClient, protocol.EncodingJSON, nil)

	packClient := dialServer(t, port, protocol.ContentTypeMsgPack)
	readHello(t, packClient, protocol.EncodingMsgPack)
	identifyClient(t, packClient, protocol.EncodingMsgPack, nil)

	srv.BroadcastEvent(protocol.EventIntentAll, "StateChanged", map[string]any{"state": "ready"})
	srv.pool.WaitForIdle()

	var jsonEvent protocol.Event
	readEnvelope(t, jsonClient, protocol.EncodingJSON, &jsonEvent)
	if jsonEvent.EventType != "StateChanged" {
		t.Errorf("json client eventType = %q, want StateChanged", jsonEvent.EventType)
	}

	_ = packClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	frameType, data, err := packClient.ReadMessage()
	if err != nil {
		t.Fatalf("msgpack client read error: %v", err)
	}
	if frameType != websocket.BinaryMessage {
		t.Errorf("msgpack event frame type = %d, want binary (%d)", frameType, websocket.BinaryMessage)
	}
	var packEvent protocol.Event
	if err := protocol.Unmarshal(protocol.EncodingMsgPack, data, &packEvent); err != nil {
		t.Fatalf("failed to decode msgpack event: %v", err)
	}
	if packEvent.EventType != "StateChanged" {
		t.Errorf("msgpack client eventType = %q, want StateChanged", packEvent.EventType)
	}
	if got := fmt.Sprint(packEvent.EventData["state"]); got != "ready" {
		t.Errorf("msgpack eventData state = %s, want ready", got)
	}
}

func TestReidentifyChangesSubscriptions(t *testing.T) {
	srv, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, map[string]any{"eventSubscriptions": 1})

	// Not subscribed to intent 2 yet; this one must pass the session by.
	srv.BroadcastEvent(protocol.EventIntent(2), "Missed", map[string]any{"seq": 1})
	srv.pool.WaitForIdle()

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
		"messageType":        "Reidentify",
		"eventSubscriptions": 2,
	})
	var reply protocol.Identified
	readEnvelope(t, conn, protocol.EncodingJSON, &reply)
	if reply.MessageType != protocol.TypeIdentified {
		t.Fatalf("reidentify reply type = %q, want %q", reply.MessageType, protocol.TypeIdentified)
	}

	srv.BroadcastEvent(protocol.EventIntent(2), "Caught", map[string]any{"seq": 2})
	srv.pool.WaitForIdle()

	var event protocol.Event
	readEnvelope(t, conn, protocol.EncodingJSON, &event)
	if event.EventType != "Caught" {
		t.Errorf("first event after reidentify = %q, want %q (the earlier event must be skipped)",
			event.EventType, "Caught")
	}
}

func TestReidentifyOmittedMaskMeansEverything(t *testing.T) {
	srv, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, map[string]any{"eventSubscriptions": 0})

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{
		"messageType": "Reidentify",
	})
	var reply protocol.Identified
	readEnvelope(t, conn, protocol.EncodingJSON, &reply)

	srv.BroadcastEvent(protocol.EventIntent(1<<40), "WideIntent", nil)
	srv.pool.WaitForIdle()

	var event protocol.Event
	readEnvelope(t, conn, protocol.EncodingJSON, &event)
	if event.EventType != "WideIntent" {
		t.Errorf("eventType = %q, want WideIntent", event.EventType)
	}
}

func TestInvalidateSession(t *testing.T) {
	srv, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, nil)

	states := srv.Sessions()
	if len(states) != 1 {
		t.Fatalf("Sessions() length = %d, want 1", len(states))
	}

	if err := srv.InvalidateSession(states[0].ID); err != nil {
		t.Fatalf("InvalidateSession() error = %v", err)
	}
	expectClose(t, conn, int(protocol.CloseSessionInvalidated))

	waitFor(t, func() bool { return len(srv.Sessions()) == 0 }, "session removal")

	err := srv.InvalidateSession(states[0].ID)
	if err == nil {
		t.Fatal("InvalidateSession() on a gone session returned nil")
	}
	if !IsSessionNotFoundError(err) {
		t.Errorf("InvalidateSession() error = %v, want session-not-found", err)
	}
}

func TestDisconnectNotifications(t *testing.T) {
	type disconnect struct {
		state SessionState
		code  int
	}

	srv, port := startTestServer(t, nil)
	all := make(chan disconnect, 4)
	identified := make(chan disconnect, 4)
	srv.OnClientDisconnected = func(state SessionState, code int) {
		all <- disconnect{state, code}
	}
	srv.OnIdentifiedClientDisconnected = func(state SessionState, code int) {
		identified <- disconnect{state, code}
	}

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, nil)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	select {
	case d := <-all:
		if d.code != websocket.CloseNormalClosure {
			t.Errorf("close code = %d, want %d", d.code, websocket.CloseNormalClosure)
		}
		if !d.state.Identified {
			t.Error("disconnect state not marked identified")
		}
		if d.state.IncomingMessages < 1 {
			t.Errorf("IncomingMessages = %d, want >= 1", d.state.IncomingMessages)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnClientDisconnected never fired")
	}

	select {
	case <-identified:
	case <-time.After(2 * time.Second):
		t.Fatal("OnIdentifiedClientDisconnected never fired")
	}
}

func TestDisconnectNotificationSkipsUnidentified(t *testing.T) {
	srv, port := startTestServer(t, nil)
	all := make(chan int, 4)
	identified := make(chan int, 4)
	srv.OnClientDisconnected = func(state SessionState, code int) {
		if state.Identified {
			t.Error("unidentified session reported as identified")
		}
		all <- code
	}
	srv.OnIdentifiedClientDisconnected = func(_ SessionState, code int) {
		identified <- code
	}

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	_ = conn.Close()

	select {
	case <-all:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClientDisconnected never fired")
	}

	select {
	case code := <-identified:
		t.Errorf("OnIdentifiedClientDisconnected fired (code %d) for an unidentified session", code)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestStopSaysGoodbyeToSessions(t *testing.T) {
	srv, port := startTestServer(t, nil)

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, nil)

	type closeInfo struct {
		code int
		text string
	}
	closed := make(chan closeInfo, 1)
	go func() {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					closed <- closeInfo{closeErr.Code, closeErr.Text}
				} else {
					closed <- closeInfo{-1, err.Error()}
				}
				return
			}
		}
	}()

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case info := <-closed:
		if info.code != websocket.CloseGoingAway {
			t.Errorf("close code = %d, want %d", info.code, websocket.CloseGoingAway)
		}
		if info.text != "Server stopping." {
			t.Errorf("close reason = %q, want %q", info.text, "Server stopping.")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client never saw the close frame")
	}

	if got := len(srv.Sessions()); got != 0 {
		t.Errorf("Sessions() length after Stop = %d, want 0", got)
	}
}

func TestStopDrainsUnresponsiveClient(t *testing.T) {
	srv, port := startTestServer(t, nil)

	// This client never reads, so it cannot acknowledge the close frame.
	conn := dialServer(t, port, "")
	_ = conn

	start := time.Now()
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	t.Logf("Stop() with unresponsive client took %v", time.Since(start))

	if got := len(srv.Sessions()); got != 0 {
		t.Errorf("Sessions() length after Stop = %d, want 0", got)
	}
}

func TestMessageHandlerRoundTrip(t *testing.T) {
	srv, port := startTestServer(t, nil)
	srv.SetMessageHandler(func(sess *Session, messageType string, data []byte) error {
		switch messageType {
		case "Ping":
			return sess.SendMessage(map[string]any{"messageType": "Pong"})
		case "Flaky":
			return errors.New("handler transient failure")
		default:
			return ErrUnknownMessageType
		}
	})

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)
	identifyClient(t, conn, protocol.EncodingJSON, nil)

	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{"messageType": "Ping"})
	var reply map[string]any
	readEnvelope(t, conn, protocol.EncodingJSON, &reply)
	if reply["messageType"] != "Pong" {
		t.Errorf("handler reply = %v, want Pong", reply["messageType"])
	}

	// A handler error that is not ErrUnknownMessageType keeps the session.
	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{"messageType": "Flaky"})
	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{"messageType": "Ping"})
	readEnvelope(t, conn, protocol.EncodingJSON, &reply)
	if reply["messageType"] != "Pong" {
		t.Errorf("session did not survive a handler failure, reply = %v", reply["messageType"])
	}

	// Unrecognized types still close the session.
	writeEnvelope(t, conn, protocol.EncodingJSON, map[string]any{"messageType": "Mystery"})
	expectClose(t, conn, int(protocol.CloseUnknownMessageType))
}

func TestSessionsSnapshot(t *testing.T) {
	srv, port := startTestServer(t, nil)

	first := dialServer(t, port, "")
	readHello(t, first, protocol.EncodingJSON)
	identifyClient(t, first, protocol.EncodingJSON, nil)

	second := dialServer(t, port, "")
	readHello(t, second, protocol.EncodingJSON)

	states := srv.Sessions()
	if len(states) != 2 {
		t.Fatalf("Sessions() length = %d, want 2", len(states))
	}
	if states[0].ID >= states[1].ID {
		t.Errorf("snapshot not ordered by id: %d then %d", states[0].ID, states[1].ID)
	}

	if !states[0].Identified {
		t.Error("first session should be identified")
	}
	if states[0].IncomingMessages < 1 {
		t.Errorf("first session IncomingMessages = %d, want >= 1", states[0].IncomingMessages)
	}
	if states[0].OutgoingMessages < 1 {
		t.Errorf("first session OutgoingMessages = %d, want >= 1", states[0].OutgoingMessages)
	}

	if states[1].Identified {
		t.Error("second session should not be identified")
	}
	for _, state := range states {
		if state.RemoteAddress == "" {
			t.Errorf("session %d has no remote address", state.ID)
		}
		if state.ConnectedAt == 0 {
			t.Errorf("session %d has no connection timestamp", state.ID)
		}
	}
}

func TestConnectString(t *testing.T) {
	t.Run("without authentication", func(t *testing.T) {
		srv, port := startTestServer(t, nil)

		cs := srv.ConnectString()
		parts := strings.Split(cs, "|")
		if len(parts) != 2 {
			t.Fatalf("ConnectString() = %q, want 2 segments", cs)
		}
		if parts[0] != "obswebsocket" {
			t.Errorf("scheme = %q, want obswebsocket", parts[0])
		}
		if !strings.HasSuffix(parts[1], fmt.Sprintf(":%d", port)) {
			t.Errorf("host segment %q does not end with :%d", parts[1], port)
		}
	})

	t.Run("with authentication", func(t *testing.T) {
		srv, _ := startTestServer(t, func(cfg *config.Config) {
			cfg.Server.AuthRequired = true
			cfg.Server.Password = "hunter2"
		})

		parts := strings.Split(srv.ConnectString(), "|")
		if len(parts) != 3 {
			t.Fatalf("ConnectString() = %q, want 3 segments", srv.ConnectString())
		}
		if parts[2] != "hunter2" {
			t.Errorf("password segment = %q, want hunter2", parts[2])
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	_, port := startTestServer(t, func(cfg *config.Config) {
		cfg.Server.Metrics = true
	})

	conn := dialServer(t, port, "")
	readHello(t, conn, protocol.EncodingJSON)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}

	for _, metric := range []string{
		"obsws_server_active_sessions",
		"obsws_server_connections_total",
	} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("metrics output is missing %s", metric)
		}
	}
}

func TestMetricsEndpointDisabledByDefault(t *testing.T) {
	_, port := startTestServer(t, nil)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	// Without the metrics flag the path falls through to the upgrader,
	// which refuses a plain GET.
	if resp.StatusCode == http.StatusOK {
		t.Error("GET /metrics succeeded with metrics disabled")
	}
}
