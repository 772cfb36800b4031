package e2e

import (
	"allchat/domain"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config      Config
	readTimeout time.Duration
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR is not set")
	}
	s.readTimeout, err = time.ParseDuration(s.Config.ReadTimeout)
	s.Require().NoError(err)
}

// Peer is one user connected to the server under test.
type Peer struct {
	s      *BaseWsSuite
	UserID domain.UserID
	Conn   *websocket.Conn
}

// Connect opens a websocket as userID, with a colorized step header in the logs.
func (s *BaseWsSuite) Connect(name string, userID domain.UserID) *Peer {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	endpoint, err := url.Parse(s.Config.ServerAddr)
	s.Require().NoError(err)
	query := endpoint.Query()
	query.Set("userId", string(userID))
	endpoint.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	s.Require().NoError(err, "Failed to connect to "+endpoint.String())
	s.T().Cleanup(func() { _ = conn.Close() })
	return &Peer{s: s, UserID: userID, Conn: conn}
}

func (p *Peer) Send(payload string) {
	if p.s.Config.DebugJSON {
		p.s.T().Logf("%s >>> %s", p.UserID, payload)
	}
	p.s.Require().NoError(p.Conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

// Expect reads the next frame and checks its type.
func (p *Peer) Expect(messageType domain.MessageType) (domain.Envelope, []byte) {
	p.s.Require().NoError(p.Conn.SetReadDeadline(time.Now().Add(p.s.readTimeout)))
	_, raw, err := p.Conn.ReadMessage()
	p.s.Require().NoError(err, "%s expected %s", p.UserID, messageType)
	if p.s.Config.DebugJSON {
		p.s.T().Logf("%s <<< %s", p.UserID, raw)
	}
	var envelope domain.Envelope
	p.s.Require().NoError(json.Unmarshal(raw, &envelope))
	p.s.Require().Equal(messageType, envelope.Type)
	return envelope, raw
}

// ExpectSilence checks nothing arrives within wait.
func (p *Peer) ExpectSilence(wait time.Duration) {
	p.s.Require().NoError(p.Conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := p.Conn.ReadMessage()
	p.s.Require().Error(err, "%s got an unexpected frame: %s", p.UserID, raw)
}
