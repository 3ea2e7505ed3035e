package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mcdev12/tempo/go/internal/livesync"
	"github.com/mcdev12/tempo/go/internal/web"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables read from the optional YAML file
type Config struct {
	LiveSync struct {
		TickInterval   time.Duration `yaml:"tick_interval"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		PongTimeout    time.Duration `yaml:"pong_timeout"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		SendBufferSize int           `yaml:"send_buffer_size"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"live_sync"`

	Cookies struct {
		Secure   bool   `yaml:"secure"`
		SameSite string `yaml:"same_site"`
		Domain   string `yaml:"domain"`
	} `yaml:"cookies"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Telemetry struct {
		ExportInterval time.Duration `yaml:"export_interval"`
	} `yaml:"telemetry"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func defaultConfig() *Config {
	conn := livesync.DefaultConnectionConfig()

	cfg := &Config{}
	cfg.LiveSync.TickInterval = livesync.DefaultTickInterval
	cfg.LiveSync.WriteTimeout = conn.WriteTimeout
	cfg.LiveSync.PongTimeout = conn.PongTimeout
	cfg.LiveSync.PingInterval = conn.PingInterval
	cfg.LiveSync.MaxMessageSize = conn.MaxMessageSize
	cfg.LiveSync.SendBufferSize = conn.SendBufferSize
	cfg.Cookies.SameSite = "lax"
	cfg.Telemetry.ExportInterval = 10 * time.Second
	cfg.ShutdownTimeout = 10 * time.Second
	return cfg
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"live_sync.tick_interval", c.LiveSync.TickInterval},
		{"live_sync.write_timeout", c.LiveSync.WriteTimeout},
		{"live_sync.pong_timeout", c.LiveSync.PongTimeout},
		{"live_sync.ping_interval", c.LiveSync.PingInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("invalid %s %s: must be positive", d.key, d.value)
		}
	}

	if c.LiveSync.PingInterval >= c.LiveSync.PongTimeout {
		return fmt.Errorf("invalid live_sync.ping_interval %s: must be shorter than pong_timeout %s",
			c.LiveSync.PingInterval, c.LiveSync.PongTimeout)
	}
	if c.LiveSync.SendBufferSize < 1 {
		return fmt.Errorf("invalid live_sync.send_buffer_size %d: must be at least 1", c.LiveSync.SendBufferSize)
	}
	if c.LiveSync.MaxMessageSize < 0 {
		return fmt.Errorf("invalid live_sync.max_message_size %d: must not be negative", c.LiveSync.MaxMessageSize)
	}

	if _, err := parseSameSite(c.Cookies.SameSite); err != nil {
		return err
	}
	return nil
}

func (c *Config) liveSyncConfig() livesync.Config {
	conn := livesync.DefaultConnectionConfig()
	conn.WriteTimeout = c.LiveSync.WriteTimeout
	conn.PongTimeout = c.LiveSync.PongTimeout
	conn.PingInterval = c.LiveSync.PingInterval
	conn.MaxMessageSize = c.LiveSync.MaxMessageSize
	conn.SendBufferSize = c.LiveSync.SendBufferSize
	conn.AllowedOrigins = c.LiveSync.AllowedOrigins

	return livesync.Config{
		ConnectionConfig: conn,
		TickInterval:     c.LiveSync.TickInterval,
	}
}

func (c *Config) cookieConfig() web.CookieConfig {
	sameSite, _ := parseSameSite(c.Cookies.SameSite)
	return web.CookieConfig{
		Secure:   c.Cookies.Secure,
		SameSite: sameSite,
		Domain:   c.Cookies.Domain,
	}
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(value) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("invalid cookies.same_site %q", value)
	}
}
