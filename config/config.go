// Package config loads framechat settings from a .env file and the
// environment.
//
// Values already present in the environment win over the .env file, and
// command-line flags applied by the caller win over both.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/wricardo/framechat/transport/frame"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every setting of the chat server and client.
type Config struct {
	// Server and Port locate the framed TCP listener.
	Server string `env:"SERVER" envDefault:"localhost"`
	Port   int    `env:"PORT" envDefault:"5050"`

	// HTTPAddr enables the admin API, /ws and /mcp when set.
	HTTPAddr string `env:"HTTP_ADDR"`

	HeaderSize      int           `env:"HEADER_SIZE" envDefault:"33"`
	AcceptTimeout   time.Duration `env:"ACCEPT_TIMEOUT" envDefault:"500ms"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// MaxPayload caps frame payloads in bytes. 0 leaves only the header width.
	MaxPayload int `env:"MAX_PAYLOAD" envDefault:"0"`

	// OTelEndpoint is an OTLP/HTTP URL. Tracing is off when empty.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	Ngrok Ngrok `envPrefix:"NGROK_"`
}

// Ngrok configures the optional public TCP endpoint.
type Ngrok struct {
	Enabled   bool   `env:"ENABLED"`
	AuthToken string `env:"AUTHTOKEN"`
	Domain    string `env:"DOMAIN"`
}

// Load reads the given .env files (".env" when none are named) into the
// environment and then parses it. Missing files are skipped.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that the environment parser cannot.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.HeaderSize < frame.MinHeaderSize {
		return fmt.Errorf("%w: header size %d below %d", ErrInvalidConfig, c.HeaderSize, frame.MinHeaderSize)
	}
	if c.MaxPayload < 0 {
		return fmt.Errorf("%w: max payload %d is negative", ErrInvalidConfig, c.MaxPayload)
	}
	if c.AcceptTimeout <= 0 {
		return fmt.Errorf("%w: accept timeout must be positive", ErrInvalidConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		return fmt.Errorf("%w: ngrok enabled without NGROK_AUTHTOKEN", ErrInvalidConfig)
	}
	return nil
}

// Addr is the host:port of the framed TCP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

// Codec returns a frame codec for the configured header size and payload cap.
func (c *Config) Codec() (*frame.Codec, error) {
	return frame.NewCodec(c.HeaderSize, frame.WithMaxPayload(c.MaxPayload))
}
