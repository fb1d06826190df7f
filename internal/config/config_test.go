package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "dGVzdC1zaWduaW5nLWtleQ==" // base64 of "test-signing-key"

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig("localhost:6687", "host=localhost dbname=chat", testSecret, []string{"http://localhost:3000"})
	require.NoError(t, err)

	assert.Equal(t, "localhost:6687", cfg.ServerAddr)
	assert.Equal(t, "host=localhost dbname=chat", cfg.DatabaseDSN)
	assert.Equal(t, []byte("test-signing-key"), cfg.SigningKey)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)

	assert.Equal(t, 100, cfg.ChannelBuffer)
	assert.Equal(t, 5*time.Second, cfg.LivenessTTL)
	assert.Equal(t, time.Second, cfg.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, time.Second, cfg.KeepAliveInterval)
}

func TestNewConfigValidation(t *testing.T) {
	tt := []struct {
		name   string
		addr   string
		dsn    string
		secret string
	}{
		{"empty address", "", "dsn", testSecret},
		{"empty dsn", "localhost:6687", "", testSecret},
		{"empty secret", "localhost:6687", "dsn", ""},
		{"invalid base64 secret", "localhost:6687", "dsn", "not base64!!!"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.dsn, tc.secret, nil)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
