// Package config loads guardian settings from an optional TOML file and
// GUARDIAN_* environment variables. Environment values override the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/guardian/internal/classify"
	"github.com/alfredjeanlab/guardian/internal/events"
)

const (
	DefaultHTTPAddr      = ":8080"
	DefaultGRPCAddr      = ":9090"
	DefaultServerURL     = "http://localhost:8080"
	DefaultLogCap        = 10
	DefaultAgentInterval = 2 * time.Second
)

type Config struct {
	NATSURL      string `toml:"nats_url"`      // GUARDIAN_NATS_URL (empty = HTTP ingestion only, unless embedded)
	EmbeddedNATS bool   `toml:"embedded_nats"` // GUARDIAN_EMBEDDED_NATS
	Topic        string `toml:"topic"`         // GUARDIAN_TOPIC (default "sidecar-data")
	HTTPAddr     string `toml:"http_addr"`     // GUARDIAN_HTTP_ADDR (default ":8080")
	GRPCAddr     string `toml:"grpc_addr"`     // GUARDIAN_GRPC_ADDR (default ":9090")
	ServerURL    string `toml:"server_url"`    // GUARDIAN_SERVER (server that logs/health query)
	AuthToken    string `toml:"auth_token,omitempty"`
	LogLevel     string `toml:"log_level"`  // GUARDIAN_LOG_LEVEL (default "info")
	LogFormat    string `toml:"log_format"` // GUARDIAN_LOG_FORMAT ("text" or "json")

	LogCap   int             `toml:"log_cap"`          // GUARDIAN_LOG_CAP (default 10)
	Contract events.Contract `toml:"payload_contract"` // GUARDIAN_PAYLOAD_CONTRACT (default "v1")

	// History agent
	ChromeHistory string   `toml:"chrome_history,omitempty"` // GUARDIAN_CHROME_HISTORY (empty = platform default)
	AgentInterval Duration `toml:"agent_interval"`           // GUARDIAN_AGENT_INTERVAL (default 2s)

	Classify classify.Markers `toml:"classify"`
}

// Duration is a time.Duration written as "2s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when neither a file nor the
// environment sets anything.
func Default() *Config {
	return &Config{
		Topic:         events.TopicSidecarData,
		HTTPAddr:      DefaultHTTPAddr,
		GRPCAddr:      DefaultGRPCAddr,
		ServerURL:     DefaultServerURL,
		LogLevel:      "info",
		LogFormat:     "text",
		LogCap:        DefaultLogCap,
		Contract:      events.DefaultContract,
		AgentInterval: Duration{DefaultAgentInterval},
		Classify:      classify.Default(),
	}
}

// Path returns the config file location: $GUARDIAN_CONFIG, or
// ~/.config/guardian/config.toml.
func Path() (string, error) {
	if p := os.Getenv("GUARDIAN_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "guardian", "config.toml"), nil
}

// Load builds the effective configuration: defaults, then the config file
// if one exists, then the environment.
func Load() (*Config, error) {
	c := Default()

	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("locating config file: %w", err)
	}
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile overlays the values present in a TOML file onto c. A missing
// file is not an error.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.NATSURL = envOrDefault("GUARDIAN_NATS_URL", c.NATSURL)
	c.Topic = envOrDefault("GUARDIAN_TOPIC", c.Topic)
	c.HTTPAddr = envOrDefault("GUARDIAN_HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = envOrDefault("GUARDIAN_GRPC_ADDR", c.GRPCAddr)
	c.ServerURL = envOrDefault("GUARDIAN_SERVER", c.ServerURL)
	c.AuthToken = envOrDefault("GUARDIAN_AUTH_TOKEN", c.AuthToken)
	c.LogLevel = envOrDefault("GUARDIAN_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("GUARDIAN_LOG_FORMAT", c.LogFormat)
	c.ChromeHistory = envOrDefault("GUARDIAN_CHROME_HISTORY", c.ChromeHistory)

	if v := os.Getenv("GUARDIAN_EMBEDDED_NATS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GUARDIAN_EMBEDDED_NATS: %w", err)
		}
		c.EmbeddedNATS = b
	}
	if v := os.Getenv("GUARDIAN_LOG_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GUARDIAN_LOG_CAP: %w", err)
		}
		c.LogCap = n
	}
	if v := os.Getenv("GUARDIAN_PAYLOAD_CONTRACT"); v != "" {
		ct, err := events.ParseContract(v)
		if err != nil {
			return fmt.Errorf("GUARDIAN_PAYLOAD_CONTRACT: %w", err)
		}
		c.Contract = ct
	}
	if v := os.Getenv("GUARDIAN_AGENT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GUARDIAN_AGENT_INTERVAL: %w", err)
		}
		c.AgentInterval = Duration{d}
	}
	if v := os.Getenv("GUARDIAN_ANALYSIS_MARKERS"); v != "" {
		c.Classify.AnalysisMarkers = splitList(v)
	}
	if v := os.Getenv("GUARDIAN_URL_MARKERS"); v != "" {
		c.Classify.URLMarkers = splitList(v)
	}
	return nil
}

// Validate checks that the configuration is usable and normalizes the
// classification vocabulary.
func (c *Config) Validate() error {
	if c.LogCap <= 0 {
		return fmt.Errorf("log_cap must be positive, got %d", c.LogCap)
	}
	ct, err := events.ParseContract(string(c.Contract))
	if err != nil {
		return err
	}
	c.Contract = ct
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.AgentInterval.Duration <= 0 {
		return fmt.Errorf("agent_interval must be positive, got %s", c.AgentInterval)
	}
	c.Classify = c.Classify.Normalize()
	return nil
}

// Encode writes c as TOML. The auth token is never written.
func (c *Config) Encode(w io.Writer) error {
	out := *c
	out.AuthToken = ""
	return toml.NewEncoder(w).Encode(out)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
