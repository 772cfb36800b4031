package internal

import (
	"allchat/domain"
	"allchat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("LOG_LEVEL", "DEBUG")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(8080, config.Port)
	req.Equal("/ws/chat", config.WebSocketPath)
	req.Equal(2*time.Second, config.DeliveryTimeout)
	req.Zero(config.MatchTimeout)
	req.Equal(domain.RequeueNone, config.Requeue())
	req.Equal(domain.ReconnectEvict, config.Reconnect())
	req.Equal([]string{"*"}, config.Origins())
	req.Empty(config.BadgerFilepath)
}

func TestLoadConfig_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MATCH_TIMEOUT", "90s")
	t.Setenv("REQUEUE_POLICY", "all")
	t.Setenv("RECONNECT_POLICY", "replace")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("0.0.0.0:9000", config.Address())
	req.Equal(90*time.Second, config.MatchTimeout)
	req.Equal(domain.RequeueAll, config.Requeue())
	req.Equal(domain.ReconnectReplace, config.Reconnect())
	req.Equal([]string{"https://a.example", "https://b.example"}, config.Origins())
}

func TestLoadConfig_Rejects_Unknown_Policy(t *testing.T) {
	req := require.New(t)
	t.Setenv("RECONNECT_POLICY", "kick")

	_, err := LoadConfig()

	req.ErrorIs(err, errors.ErrInvalidPolicy)
}

func TestLoadConfig_Rejects_Ping_Slower_Than_Pong(t *testing.T) {
	req := require.New(t)
	t.Setenv("PING_INTERVAL", "2m")

	_, err := LoadConfig()

	req.Error(err)
}
