package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/tchen/chat-notify/internal/liveness"
	"github.com/tchen/chat-notify/internal/registry"
)

const (
	// DefaultHeartbeatInterval is how often an application-level Heartbeat
	// event is emitted on every open stream.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultKeepAliveInterval is how often an SSE comment frame is emitted
	// as a transport-level keep-alive.
	DefaultKeepAliveInterval = time.Second
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string

	// ChannelBuffer is the per-subscription event buffer capacity. When a
	// subscriber falls this many events behind, the oldest unread event is
	// dropped.
	ChannelBuffer int

	LivenessTTL       time.Duration
	SweepInterval     time.Duration
	HeartbeatInterval time.Duration
	KeepAliveInterval time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:        serverAddr,
		DatabaseDSN:       databaseDSN,
		SigningKey:        signingKey,
		AllowedOrigins:    allowedOrigins,
		ChannelBuffer:     registry.DefaultChannelBuffer,
		LivenessTTL:       liveness.DefaultTTL,
		SweepInterval:     liveness.DefaultSweepInterval,
		HeartbeatInterval: DefaultHeartbeatInterval,
		KeepAliveInterval: DefaultKeepAliveInterval,
	}, nil
}
