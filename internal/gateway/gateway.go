// Package gateway accepts client WebSocket connections, authenticates them at
// handshake, subscribes each connection to its recipient channel, forwards
// published payloads, and detects dead links with a sync-token heartbeat.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/togetherapp/relay/internal/broker"
	"github.com/togetherapp/relay/internal/directory"
)

// DefaultHeartbeatInterval is the period between liveness probes.
const DefaultHeartbeatInterval = 5 * time.Second

// Server is the WebSocket listening endpoint. Each accepted connection gets
// its own subscription and heartbeat; connections share no mutable state
// beyond the broker.
type Server struct {
	addr     string
	dir      directory.Directory
	sub      broker.Subscriber
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a gateway server listening on addr.
func New(addr string, dir directory.Directory, sub broker.Subscriber, interval time.Duration, logger *slog.Logger) *Server {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		dir:      dir,
		sub:      sub,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Credential check happens against the handshake token, not
			// the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Name identifies the gateway worker for supervision and lock naming.
func (s *Server) Name() string { return "gateway" }

// Handler returns the HTTP handler serving the /ws endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run serves the listening endpoint until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("gateway: listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleWS is the accept/reject decision point: the handshake token must
// resolve to a known member or the connection is refused.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-User-Token")
	member, err := s.dir.ResolveToken(r.Context(), token)
	if err != nil {
		s.logger.Warn("gateway: handshake refused", "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("gateway: upgrade failed", "member", member.Phone, "err", err)
		return
	}

	ch, cancel, err := s.sub.Subscribe(broker.UserChannel(member.Phone))
	if err != nil {
		s.logger.Error("gateway: subscribe failed", "member", member.Phone, "err", err)
		_ = ws.Close()
		return
	}

	if err := s.dir.SetConnected(r.Context(), member.Phone, true); err != nil {
		s.logger.Warn("gateway: setting connected flag", "member", member.Phone, "err", err)
	}
	s.logger.Debug("gateway: client subscribed", "member", member.Phone)

	conn := newConnection(ws, member, s.dir, cancel, s.interval, s.logger)
	conn.run(ch)
}
