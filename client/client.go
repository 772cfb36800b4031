package main

import (
	"allchat/domain"
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws/chat"`
	UserID    string `env:"CHAT_USER_ID,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

type chatMessage struct {
	Type    domain.MessageType `json:"type"`
	Message string             `json:"message"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects as CHAT_USER_ID, looks for a match and relays stdin lines as chat.
// "/next" leaves the current chat and looks again, "/cancel" stops searching.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := domain.ValidateUserID(config.UserID); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoint, err := url.Parse(config.ServerURL)
	if err != nil {
		return exitConfig, fmt.Errorf("invalid server url: %w", err)
	}
	query := endpoint.Query()
	query.Set("userId", config.UserID)
	endpoint.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	c := &client{conn: conn, log: log}
	if err := c.send(domain.Envelope{Type: domain.LookingForMatch}); err != nil {
		return exitRuntime, err
	}
	log.Info("Connected, looking for a match (Ctrl+C to quit)", "user_id", config.UserID)

	go c.readStdin(ctx)

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop() }()

	select {
	case <-ctx.Done():
		_ = c.write(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		return exitOK, nil
	case err := <-readErr:
		if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

type client struct {
	conn    *websocket.Conn
	log     *slog.Logger
	writeMu sync.Mutex
}

func (c *client) write(messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(messageType, payload)
}

func (c *client) send(envelope domain.Envelope) error {
	payload, err := envelope.Encode()
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *client) readStdin(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() && ctx.Err() == nil {
		line := strings.TrimSpace(scanner.Text())
		var err error
		switch line {
		case "":
			continue
		case "/next":
			if err = c.send(domain.Envelope{Type: domain.EndChat}); err == nil {
				err = c.send(domain.Envelope{Type: domain.LookingForMatch})
			}
		case "/cancel":
			err = c.send(domain.Envelope{Type: domain.CancelMatch})
		default:
			var payload []byte
			if payload, err = json.Marshal(chatMessage{Type: domain.Chat, Message: line}); err == nil {
				err = c.write(websocket.TextMessage, payload)
			}
		}
		if err != nil {
			c.log.Warn("Unable to send", "error", err)
		}
	}
}

func (c *client) readLoop() error {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.display(raw)
	}
}

func (c *client) display(raw []byte) {
	var envelope domain.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.log.Debug("Unreadable message", "error", err)
		return
	}
	switch envelope.Type {
	case domain.MatchFound:
		c.log.Info(">>> Matched, say hello", "session_id", envelope.SessionID)
	case domain.MatchCancelled:
		c.log.Info(">>> Search cancelled")
	case domain.UserLeftMatch:
		c.log.Info(">>> Stranger left")
	case domain.ChatEnded:
		c.log.Info(">>> Chat ended, type /next to look again")
	case domain.Chat:
		var message chatMessage
		if err := json.Unmarshal(raw, &message); err == nil {
			fmt.Printf("[%s] stranger: %s\n", time.Now().Format(time.TimeOnly), message.Message)
		}
	default:
		c.log.Debug("Ignored message", "type", envelope.Type)
	}
}
