package internal

import (
	"allchat/domain"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	WebSocketPath        string        `env:"WS_PATH,default=/ws/chat" validate:"startswith=/"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1"`
	TelemetryBufferSize  int           `env:"TELEMETRY_BUFFER_SIZE,default=1024" validate:"min=1"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=50s" validate:"gt=0,ltfield=PongWait"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=65536" validate:"min=512"`
	MatchTimeout         time.Duration `env:"MATCH_TIMEOUT,default=0s" validate:"gte=0"`
	JanitorInterval      time.Duration `env:"JANITOR_INTERVAL,default=5s" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=16" validate:"min=0"`
	RequeuePolicy        string        `env:"REQUEUE_POLICY,default=none"`
	ReconnectPolicy      string        `env:"RECONNECT_POLICY,default=evict"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,default=*"`
	ShardCount           int           `env:"SHARD_COUNT,default=32" validate:"min=1,max=4096"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH"`
	DebugPort            int           `env:"DEBUG_PORT,default=0" validate:"min=0,max=65535"`
}

// LoadConfig reads the environment, applies defaults and validates the result.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := domain.ParseRequeuePolicy(c.RequeuePolicy); err != nil {
		return err
	}
	if _, err := domain.ParseReconnectPolicy(c.ReconnectPolicy); err != nil {
		return err
	}
	return nil
}

func (c Config) Requeue() domain.RequeuePolicy {
	p, _ := domain.ParseRequeuePolicy(c.RequeuePolicy)
	return p
}

func (c Config) Reconnect() domain.ReconnectPolicy {
	p, _ := domain.ParseReconnectPolicy(c.ReconnectPolicy)
	return p
}

func (c Config) Origins() []string {
	return lo.Compact(lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
