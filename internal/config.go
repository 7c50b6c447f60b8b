package internal

import (
	"fmt"
	"time"
	"unicode/utf8"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LimitMessages  *int   `env:"LIMIT_MESSAGES"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	MaxFramesPerSecond   float64       `env:"MAX_FRAMES_PER_SECOND,default=20"`
	FrameBurst           int           `env:"FRAME_BURST,default=40"`
	ProcessingTimeout    time.Duration `env:"PROCESSING_TIMEOUT,default=5s"`

	// Comma separated words masked in message text, empty disables the filter
	CensoredWords string `env:"CENSORED_WORDS"`
	CensoredChar  string `env:"CENSORED_CHAR,default=*"`

	BufferSize      int           `env:"BUFFER_SIZE,default=256"`
	NumberOfWorkers int           `env:"NUMBER_OF_WORKERS,default=4"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	case len(c.JWTSecret) < 32:
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	case c.AuthTokenDuration <= 0:
		return fmt.Errorf("AUTH_TOKEN_DURATION must be positive")
	case c.ConnectionBufferSize <= 0:
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	case c.SinkTimeout <= 0:
		return fmt.Errorf("SINK_TIMEOUT must be positive")
	case c.MaxFramesPerSecond <= 0 || c.FrameBurst <= 0:
		return fmt.Errorf("MAX_FRAMES_PER_SECOND and FRAME_BURST must be positive")
	case c.BufferSize < 0:
		return fmt.Errorf("BUFFER_SIZE cannot be negative, got %d", c.BufferSize)
	case c.NumberOfWorkers <= 0:
		return fmt.Errorf("NUMBER_OF_WORKERS must be positive, got %d", c.NumberOfWorkers)
	case c.MetricInterval <= 0:
		return fmt.Errorf("METRIC_INTERVAL must be positive")
	case utf8.RuneCountInString(c.CensoredChar) != 1:
		return fmt.Errorf("CENSORED_CHAR must be a single character, got %q", c.CensoredChar)
	case c.LimitMessages != nil && (*c.LimitMessages <= 0 || *c.LimitMessages > 500):
		return fmt.Errorf("LIMIT_MESSAGES must be between 1 and 500, got %d", *c.LimitMessages)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaskRune is the rune used to mask censored words.
func (c Config) MaskRune() rune {
	r, _ := utf8.DecodeRuneInString(c.CensoredChar)
	return r
}
