package websocket

import (
	"allchat/domain"
	"allchat/runtime"
	"context"
	"log/slog"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
)

type Settings struct {
	ConnectionBufferSize int
	DeliveryTimeout      time.Duration
	WriteTimeout         time.Duration
	PongWait             time.Duration
	PingInterval         time.Duration
	MaxMessageSize       int64
	AllowedOrigins       []string
}

// Session is the task owning one websocket connection.
// Its read loop turns frames into connection events, its write loop drains the sink.
type Session struct {
	log      *slog.Logger
	conn     *gorilla.Conn
	userID   domain.UserID
	sink     *Sink
	settings Settings
}

func NewSession(log *slog.Logger, conn *gorilla.Conn, userID domain.UserID, settings Settings) *Session {
	return &Session{
		log:      log.With("user_id", userID),
		conn:     conn,
		userID:   userID,
		sink:     NewSink(settings.ConnectionBufferSize, settings.DeliveryTimeout),
		settings: settings,
	}
}

// Run reports Connected, every inbound text frame, then Disconnected, in that order,
// and returns once the connection is fully closed.
func (s *Session) Run(ctx context.Context, handle func(context.Context, runtime.ConnectionEvent)) {
	events := make(chan runtime.ConnectionEvent, s.settings.ConnectionBufferSize)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(events)
	}()
	go func() {
		defer wg.Done()
		s.writeLoop(ctx)
	}()

	handle(ctx, runtime.ConnectionEvent{Kind: runtime.Connected, UserID: s.userID, Outbound: s.sink})
	for e := range events {
		handle(ctx, e)
	}

	_ = s.sink.Close()
	wg.Wait()
}

func (s *Session) readLoop(events chan<- runtime.ConnectionEvent) {
	defer close(events)
	defer func() {
		events <- runtime.ConnectionEvent{Kind: runtime.Disconnected, UserID: s.userID, Outbound: s.sink}
	}()

	if s.settings.MaxMessageSize > 0 {
		s.conn.SetReadLimit(s.settings.MaxMessageSize)
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	})

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway, gorilla.CloseNoStatusReceived) {
				s.log.Warn("Connection closed unexpectedly", "error", err)
			} else {
				s.log.Debug("Connection closed", "error", err)
			}
			return
		}
		if messageType != gorilla.TextMessage {
			s.log.Debug("Ignoring non text frame", "frame_type", messageType)
			continue
		}
		events <- runtime.ConnectionEvent{Kind: runtime.Message, UserID: s.userID, Outbound: s.sink, Payload: payload}
	}
}

// writeLoop is the only writer of the connection. It closes the connection when
// the sink is closed, the context is done or a write fails, which ends the read loop.
func (s *Session) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.settings.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload := <-s.sink.Outgoing():
			if err := s.write(gorilla.TextMessage, payload); err != nil {
				s.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := s.write(gorilla.PingMessage, nil); err != nil {
				s.log.Debug("Ping failed", "error", err)
				return
			}
		case <-s.sink.Done():
			s.flush()
			s.closeFrame(gorilla.CloseNormalClosure, "session closed")
			return
		case <-ctx.Done():
			s.closeFrame(gorilla.CloseGoingAway, "server shutting down")
			return
		}
	}
}

// flush writes what is still buffered, best effort.
func (s *Session) flush() {
	for {
		select {
		case payload := <-s.sink.Outgoing():
			if err := s.write(gorilla.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(messageType int, payload []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
	return s.conn.WriteMessage(messageType, payload)
}

func (s *Session) closeFrame(code int, text string) {
	_ = s.conn.WriteControl(gorilla.CloseMessage,
		gorilla.FormatCloseMessage(code, text),
		time.Now().Add(s.settings.WriteTimeout))
}
