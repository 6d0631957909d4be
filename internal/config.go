package internal

import (
	"fmt"
	"time"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=8080"`
	AdminPort      int    `env:"ADMIN_PORT,default=9090"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=16"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=10s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`

	MembershipCacheTTL time.Duration `env:"MEMBERSHIP_CACHE_TTL,default=5s"`
	HistoryLimit       int           `env:"HISTORY_LIMIT,default=50"`
	MaxHistoryLimit    int           `env:"MAX_HISTORY_LIMIT,default=200"`
	MaxContentLength   int           `env:"MAX_CONTENT_LENGTH,default=4000"`

	HeartbeatTimeout  time.Duration `env:"HEARTBEAT_TIMEOUT,default=60s"`
	ReapInterval      time.Duration `env:"REAP_INTERVAL,default=15s"`
	ReconnectAttempts int           `env:"RECONNECT_ATTEMPTS,default=5"`
	ReconnectBackoff  time.Duration `env:"RECONNECT_BACKOFF,default=100ms"`
	CloseTimeout      time.Duration `env:"CLOSE_TIMEOUT,default=2s"`
}

// Validate rejects values the environment parser accepts but the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.BufferSize <= 0 || c.ConnectionBufferSize <= 0:
		return fmt.Errorf("BUFFER_SIZE and CONNECTION_BUFFER_SIZE must be positive")
	case c.HistoryLimit <= 0 || c.MaxHistoryLimit < c.HistoryLimit:
		return fmt.Errorf("HISTORY_LIMIT must be positive and not above MAX_HISTORY_LIMIT")
	case c.MaxContentLength <= 0:
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive")
	case len(c.JWTSecret) < 32:
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	case c.ReconnectBackoff <= 0 || c.MetricInterval <= 0 || c.ReapInterval <= 0:
		return fmt.Errorf("RECONNECT_BACKOFF, METRIC_INTERVAL and REAP_INTERVAL must be positive")
	}
	return nil
}
