package internal

import (
	"testing"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults_From_Environ(t *testing.T) {
	req := require.New(t)
	environ := env.EnvSet{
		"BADGER_FILEPATH": "/tmp/chat-relay",
		"JWT_SECRET":      "0123456789abcdef0123456789abcdef",
	}

	var config Config
	err := env.Unmarshal(environ, &config)
	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal("localhost:8080", config.Address())
	req.Equal(4, config.NumberOfWorkers)
	req.Nil(config.LimitMessages)
	req.Empty(config.CensoredWords)
	req.Equal('*', config.MaskRune())
}

func TestConfig_Required_Fields(t *testing.T) {
	req := require.New(t)
	var config Config
	err := env.Unmarshal(env.EnvSet{}, &config)
	req.Error(err)
}

func TestConfig_Validate(t *testing.T) {
	limit := 1000
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"no workers", func(c *Config) { c.NumberOfWorkers = 0 }},
		{"no connection buffer", func(c *Config) { c.ConnectionBufferSize = 0 }},
		{"history limit above cap", func(c *Config) { c.LimitMessages = &limit }},
		{"mask of two characters", func(c *Config) { c.CensoredChar = "**" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Config{
				Port: 8080, JWTSecret: "0123456789abcdef0123456789abcdef", AuthTokenDuration: 1,
				ConnectionBufferSize: 1, SinkTimeout: 1, MaxFramesPerSecond: 1, FrameBurst: 1,
				NumberOfWorkers: 1, MetricInterval: 1, CensoredChar: "*",
			}
			require.NoError(t, config.Validate())
			tt.modify(&config)
			require.Error(t, config.Validate())
		})
	}
}
