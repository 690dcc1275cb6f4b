// Package transport binds the dispatcher to the connections clients speak over:
// WebSocket sessions and, optionally, a NATS request/reply subject.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matejonnet/dependency-analysis/pkg/dispatcher"
)

const logPrefix = "transport:websocket"

// WebSocketOptions tune the WebSocket endpoint.
type WebSocketOptions struct {
	// ReadLimit is the largest accepted inbound message in bytes. Zero keeps gorilla's default (no limit).
	ReadLimit int64
	// WriteTimeout bounds a single response write. Zero means no deadline.
	WriteTimeout time.Duration
}

// WebSocketHandler upgrades HTTP requests to WebSocket sessions and serves JSON-RPC on them.
// Each session runs its own read loop, so one session handles one message at a time
// while sessions proceed independently.
type WebSocketHandler struct {
	dispatcher *dispatcher.Dispatcher
	upgrader   websocket.Upgrader
	opts       WebSocketOptions

	mu       sync.Mutex
	sessions map[string]*wsSession
	closed   bool
	wg       sync.WaitGroup
}

// NewWebSocketHandler creates a handler dispatching every inbound message through d.
func NewWebSocketHandler(d *dispatcher.Dispatcher, opts WebSocketOptions) *WebSocketHandler {
	return &WebSocketHandler{
		dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		opts:     opts,
		sessions: make(map[string]*wsSession),
	}
}

// ServeHTTP implements http.Handler.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Warn(fmt.Sprintf("%s - upgrade failed from %s: %v", logPrefix, r.RemoteAddr, err))
		return
	}

	s := &wsSession{
		id:           uuid.NewString(),
		conn:         conn,
		open:         true,
		writeTimeout: h.opts.WriteTimeout,
	}
	if !h.track(s) {
		s.close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.untrack(s)

	if h.opts.ReadLimit > 0 {
		conn.SetReadLimit(h.opts.ReadLimit)
	}

	slog.Info(fmt.Sprintf("%s - session %s opened from %s", logPrefix, s.id, r.RemoteAddr))
	h.serve(r.Context(), s)
	slog.Info(fmt.Sprintf("%s - session %s closed", logPrefix, s.id))
}

func (h *WebSocketHandler) serve(ctx context.Context, s *wsSession) {
	defer s.close(websocket.CloseNormalClosure, "")

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Warn(fmt.Sprintf("%s - session %s read error: %v", logPrefix, s.id, err))
			}
			s.markClosed()
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		// Send failures are logged by the dispatcher; the read loop keeps going until the peer is gone.
		_ = h.dispatcher.Dispatch(ctx, s, data)
	}
}

// Len returns the number of open sessions.
func (h *WebSocketHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close sends a going-away close frame to every open session, refuses new ones,
// and waits for the read loops to finish or ctx to expire.
func (h *WebSocketHandler) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*wsSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s - waiting for sessions: %w", logPrefix, ctx.Err())
	}
}

func (h *WebSocketHandler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *WebSocketHandler) track(s *wsSession) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.id] = s
	h.wg.Add(1)
	return true
}

func (h *WebSocketHandler) untrack(s *wsSession) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	h.wg.Done()
}

// wsSession is the dispatcher.Session of one WebSocket connection.
type wsSession struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu   sync.Mutex
	open bool
}

func (s *wsSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *wsSession) SendText(ctx context.Context, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return dispatcher.ErrSessionClosed
	}

	var deadline time.Time
	if s.writeTimeout > 0 {
		deadline = time.Now().Add(s.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *wsSession) markClosed() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// close sends a close frame if the session is still open and releases the connection.
// It is safe to call more than once.
func (s *wsSession) close(code int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
		s.open = false
	}
	_ = s.conn.Close()
}
