package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"abrsqol/internal/infrastructure"
	"abrsqol/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum size of the invert request read from the peer
	maxMessageSize = 8 << 20

	sendBufferSize = 256
)

var (
	// ErrSessionClosed is returned when a message is offered after Close or
	// after the write pump has stopped.
	ErrSessionClosed = errors.New("websocket: session closed")

	// ErrMalformedRequest wraps a request message that is not valid JSON for
	// the expected type.
	ErrMalformedRequest = errors.New("websocket: malformed request")
)

type outbound struct {
	msgType events.MessageType
	data    []byte
}

// SessionStats summarizes what a session has written.
type SessionStats struct {
	MessagesSent int64
	BytesSent    int64
	Dropped      int64
}

// Session is one request/response stream over a websocket connection: the
// peer sends a single request, the server streams messages back and then
// closes. Publish and Deliver are safe for concurrent use.
type Session struct {
	conn Connection
	send chan outbound
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger  *slog.Logger
	metrics *Metrics

	messagesSent atomic.Int64
	bytesSent    atomic.Int64
	dropped      atomic.Int64
}

// NewSession creates a session on conn. A nil logger uses the global logger
// and a nil metrics records nothing.
func NewSession(conn Connection, traceID string, logger *slog.Logger, metrics *Metrics) *Session {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	logger = logger.With(
		slog.String("component", "websocket.session"),
		slog.String("session_id", id),
	)
	if traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}

	s := &Session{
		conn:        conn,
		send:        make(chan outbound, sendBufferSize),
		done:        make(chan struct{}),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger,
		metrics:     metrics,
	}
	metrics.sessionOpened(context.Background())
	logger.Info("stream session opened", slog.String("remote_addr", s.remoteAddr))
	return s
}

// ID returns the session's unique ID.
func (s *Session) ID() string { return s.id }

// TraceID returns the trace ID the session was opened with.
func (s *Session) TraceID() string { return s.traceID }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// ReadJSON reads the next message and decodes it into v. Decoding failures
// match ErrMalformedRequest.
func (s *Session) ReadJSON(v any) error {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return nil
}

// Watch reads until the peer goes away and then calls cancel. Messages
// arriving after the request are discarded.
func (s *Session) Watch(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// Publish queues msg without blocking. When the send buffer is full the
// message is dropped and Publish reports false.
func (s *Session) Publish(ctx context.Context, msg events.WebSocketMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode stream message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.stopped() {
		return false
	}

	select {
	case s.send <- outbound{msgType: msg.Type, data: data}:
		return true
	default:
		s.dropped.Add(1)
		s.metrics.messageDropped(ctx, string(msg.Type))
		return false
	}
}

// Deliver queues msg, waiting for buffer space until ctx is done or the
// write pump stops.
func (s *Session) Deliver(ctx context.Context, msg events.WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.stopped() {
		return ErrSessionClosed
	}

	select {
	case s.send <- outbound{msgType: msg.Type, data: data}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream once the queued messages are written. It is safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *Session) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when the write pump has stopped and the connection is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stats returns the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		MessagesSent: s.messagesSent.Load(),
		BytesSent:    s.bytesSent.Load(),
		Dropped:      s.dropped.Load(),
	}
}

// WritePump writes queued messages to the connection and pings the peer
// until Close is called or a write fails. It closes the connection on exit.
func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		close(s.done)

		s.metrics.sessionClosed(ctx, time.Since(s.connectedAt))
		s.logger.InfoContext(ctx, "stream session closed",
			slog.Duration("connection_duration", time.Since(s.connectedAt)),
			slog.Int64("messages_sent", s.messagesSent.Load()),
			slog.Int64("bytes_sent", s.bytesSent.Load()),
			slog.Int64("dropped", s.dropped.Load()))
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				s.logger.ErrorContext(ctx, "error writing message to websocket",
					slog.String("type", string(msg.msgType)),
					slog.String("error", err.Error()))
				return
			}
			s.messagesSent.Add(1)
			s.bytesSent.Add(int64(len(msg.data)))
			s.metrics.messageSent(ctx, string(msg.msgType), len(msg.data))

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(ctx, "failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
