package websocket

import (
	"allchat/domain"
	"allchat/domain/event"
	"allchat/runtime"
	"allchat/runtime/workers"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var testSettings = Settings{
	ConnectionBufferSize: 16,
	DeliveryTimeout:      time.Second,
	WriteTimeout:         time.Second,
	PongWait:             5 * time.Second,
	PingInterval:         time.Second,
	MaxMessageSize:       4096,
	AllowedOrigins:       []string{"*"},
}

func newTestServer(t *testing.T, policy domain.ReconnectPolicy) *httptest.Server {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetryChan := make(chan event.Event, 256)
	orchestrator := runtime.NewOrchestrator(log,
		workers.NewSupervisor(log, telemetryChan, 10*time.Millisecond),
		telemetryChan, runtime.Settings{
			ShardCount:      4,
			RequeuePolicy:   domain.RequeueNone,
			ReconnectPolicy: policy,
		})
	ctx, cancel := context.WithCancel(context.Background())
	server := NewServer(ctx, log, orchestrator, QueryIdentity, testSettings)
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		cancel()
		httpServer.Close()
		server.Wait()
	})
	return httpServer
}

func dial(t *testing.T, server *httptest.Server, userID string) *gorilla.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?userId=" + userID
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *gorilla.Conn) (domain.Envelope, []byte) {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var envelope domain.Envelope
	require.NoError(t, json.Unmarshal(payload, &envelope))
	return envelope, payload
}

func write(t *testing.T, conn *gorilla.Conn, payload string) {
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(payload)))
}

func TestServer_Rejects_Missing_Identity(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, domain.ReconnectEvict)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)

	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_Match_Chat_And_Leave(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, domain.ReconnectEvict)
	alice, bob := dial(t, server, "alice"), dial(t, server, "bob")

	// Given both look for a match
	write(t, alice, `{"type":"looking-for-match"}`)
	time.Sleep(50 * time.Millisecond)
	write(t, bob, `{"type":"looking-for-match"}`)

	// Then both get match-found, alice first in the member list
	for _, conn := range []*gorilla.Conn{alice, bob} {
		envelope, _ := read(t, conn)
		req.Equal(domain.MatchFound, envelope.Type)
		req.Equal([]domain.UserID{"alice", "bob"}, envelope.Users)
	}

	// When alice chats, bob gets the same bytes
	chat := `{"type":"chat","message":"hello","emoji":"👋"}`
	write(t, alice, chat)
	_, payload := read(t, bob)
	req.Equal(chat, string(payload))

	// When alice leaves
	req.NoError(alice.Close())

	// Then bob is told, in order
	envelope, _ := read(t, bob)
	req.Equal(domain.UserLeftMatch, envelope.Type)
	req.Equal(domain.UserID("alice"), envelope.UserID)
	envelope, _ = read(t, bob)
	req.Equal(domain.ChatEnded, envelope.Type)
}

func TestServer_Reconnect_Evicts_Prior_Connection(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, domain.ReconnectEvict)
	first := dial(t, server, "alice")
	time.Sleep(50 * time.Millisecond)

	// When alice connects a second time
	second := dial(t, server, "alice")

	// Then the first connection is closed by the server
	req.NoError(first.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := first.ReadMessage()
	req.True(gorilla.IsCloseError(err, gorilla.CloseNormalClosure), "unexpected error %v", err)

	// And the second one is served
	write(t, second, `{"type":"cancel-match"}`)
	envelope, _ := read(t, second)
	req.Equal(domain.MatchCancelled, envelope.Type)
}
