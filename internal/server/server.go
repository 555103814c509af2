package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/obsws/internal/auth"
	"github.com/muurk/obsws/internal/config"
	"github.com/muurk/obsws/internal/discovery"
	"github.com/muurk/obsws/internal/logging"
	"github.com/muurk/obsws/internal/protocol"
)

// drainPollInterval is how often Stop re-checks the session table while
// waiting for read loops to finish deregistering.
const drainPollInterval = 10 * time.Millisecond

// MessageHandler processes envelopes beyond the built-in handshake types.
// It runs on the session's read goroutine after the client has identified.
// Returning ErrUnknownMessageType (or leaving no handler registered) closes
// the session with CloseUnknownMessageType; any other error is logged and
// the session stays up.
type MessageHandler func(sess *Session, messageType string, data []byte) error

// Server is the WebSocket RPC/event server. It owns the session table, the
// broadcast worker pool, and the listener lifecycle. A Server can be
// started and stopped repeatedly; authentication material is rederived on
// every Start.
type Server struct {
	cfg *config.Config

	// Snapshot of the config taken at Start. Fixed while listening, so
	// config edits never bleed into a running server.
	port         int
	password     string
	authRequired bool
	salt         string
	secret       string

	table    *sessionTable
	pool     *taskPool
	registry *prometheus.Registry
	metrics  *metrics

	nextSessionID atomic.Uint64

	mu         sync.Mutex
	running    bool
	stopping   bool
	httpServer *http.Server
	serveDone  chan struct{}
	handler    MessageHandler

	// OnClientDisconnected is called after any session is removed from the
	// table. Set before Start; runs on the session's read goroutine.
	OnClientDisconnected func(state SessionState, closeCode int)

	// OnIdentifiedClientDisconnected is called after OnClientDisconnected
	// for sessions that had completed the Identify handshake.
	OnIdentifiedClientDisconnected func(state SessionState, closeCode int)
}

// New creates a Server from a validated configuration.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigError("invalid configuration", err)
	}

	if err := logging.Initialize(cfg.LogLevel()); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	registry := prometheus.NewRegistry()

	return &Server{
		cfg:          cfg,
		port:         cfg.Server.Port,
		password:     cfg.Server.Password,
		authRequired: cfg.Server.AuthRequired,
		table:        newSessionTable(),
		pool:         newTaskPool(defaultPoolWorkers),
		registry:     registry,
		metrics:      newMetrics(registry),
	}, nil
}

// SetMessageHandler registers the handler for non-handshake envelopes.
// Pass nil to remove it; unhandled types then close their session.
func (s *Server) SetMessageHandler(h MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) messageHandler() MessageHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

// isStopping reports whether Stop has begun since the last Start. Sessions
// that finish their upgrade while the server is tearing down check this so
// none of them outlive the drain.
func (s *Server) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// authMaterial returns this run's authentication parameters. Sessions read
// them through here so a restart never races their goroutines.
func (s *Server) authMaterial() (required bool, salt, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authRequired, s.salt, s.secret
}

// Start snapshots the configuration, derives this run's authentication
// material, binds the listen socket, and begins serving upgrades on a
// background goroutine. Calling Start on a listening server is a logged
// no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logging.Warn("Start called while the server is already listening")
		return nil
	}

	s.port = s.cfg.Server.Port
	s.password = s.cfg.Server.Password
	s.authRequired = s.cfg.Server.AuthRequired
	s.salt = ""
	s.secret = ""

	if s.authRequired {
		salt, err := auth.GenerateSalt()
		if err != nil {
			return NewCryptoError("failed to generate authentication salt", err)
		}
		s.salt = salt
		s.secret = auth.GenerateSecret(s.password, salt)
	}

	mux := http.NewServeMux()
	mux.Handle("/", s)
	if s.cfg.Server.Metrics {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		logging.Error("Failed to bind WebSocket server",
			zap.Int("port", s.port),
			zap.Error(err),
		)
		return NewBindError(s.port, err)
	}

	s.httpServer = &http.Server{Handler: mux}
	s.serveDone = make(chan struct{})

	srv := s.httpServer
	done := s.serveDone
	go func() {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("WebSocket server terminated", zap.Error(err))
		}
	}()

	s.running = true
	s.stopping = false
	logging.Info("WebSocket server started",
		zap.Int("port", s.port),
		zap.Bool("auth_required", s.authRequired),
		zap.Bool("metrics", s.cfg.Server.Metrics),
	)
	return nil
}

// Stop closes the listener, says goodbye to every session, and blocks until
// the broadcast queue has drained and every session has deregistered.
// Calling Stop on a stopped server is a logged no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		logging.Warn("Stop called while the server is not listening")
		return nil
	}
	s.running = false
	s.stopping = true
	httpServer := s.httpServer
	serveDone := s.serveDone
	s.httpServer = nil
	s.serveDone = nil
	s.mu.Unlock()

	logging.Info("Stopping the WebSocket server")

	// Closing the http.Server stops the listener; upgraded connections are
	// hijacked and stay up until their sessions are kicked below.
	if err := httpServer.Close(); err != nil {
		logging.Error("Failed to close listener", zap.Error(err))
	}

	s.table.ForEach(func(sess *Session) {
		if err := sess.kick(websocket.CloseGoingAway, "Server stopping."); err != nil {
			logging.Warn("Failed to send close to session",
				zap.Uint64("session_id", sess.ID()),
				zap.Error(err),
			)
		}
	})

	// In-flight broadcasts still hold session references; let them finish
	// before waiting out the read loops.
	s.pool.WaitForIdle()

	for s.table.Count() > 0 {
		time.Sleep(drainPollInterval)
	}

	<-serveDone

	logging.Info("WebSocket server stopped")
	logging.Sync()
	return nil
}

// InvalidateSession force-closes one session, used when an operator revokes
// a client from the session list. The disconnect notifications fire from
// the session's own read loop like any other close.
func (s *Server) InvalidateSession(id uint64) error {
	sess, ok := s.table.Get(id)
	if !ok {
		return NewSessionNotFoundError(id)
	}

	s.kickSession(sess, int(protocol.CloseSessionInvalidated),
		"Your session has been invalidated.")
	return nil
}

// Sessions returns a snapshot of every connected session, ordered by id.
func (s *Server) Sessions() []SessionState {
	return s.table.Snapshot()
}

// ConnectString builds the string clients paste into their tool to connect:
// "obswebsocket|<ip>:<port>" with the password appended as a third segment
// when authentication is required.
func (s *Server) ConnectString() string {
	s.mu.Lock()
	port := s.port
	password := s.password
	authRequired := s.authRequired
	s.mu.Unlock()

	parts := []string{
		"obswebsocket",
		fmt.Sprintf("%s:%d", discovery.LocalAddress(), port),
	}
	if authRequired && password != "" {
		parts = append(parts, password)
	}
	return strings.Join(parts, "|")
}
