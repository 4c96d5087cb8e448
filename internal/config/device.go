// Package config loads device connection settings for WITS0 links.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/banshee-data/wits0/internal/transport"
)

// Link kinds.
const (
	LinkSerial = "serial"
	LinkSocket = "socket"
)

const (
	DefaultPollInterval = 10 * time.Second
	maxFileSize         = 1 * 1024 * 1024 // 1MB
)

// DeviceConfig describes how to reach one device and how often to poll it.
// Durations are strings like "250ms" so the same file reads naturally in JSON
// and TOML.
type DeviceConfig struct {
	Name string `json:"name" toml:"name"`
	Link string `json:"link" toml:"link"`

	// serial link
	Port   string                `json:"port,omitempty" toml:"port"`
	Serial transport.PortOptions `json:"serial" toml:"serial"`

	// socket link
	Address     string `json:"address,omitempty" toml:"address"`
	DialTimeout string `json:"dial_timeout,omitempty" toml:"dial_timeout"`

	ReadTimeout  string `json:"read_timeout,omitempty" toml:"read_timeout"`
	PollInterval string `json:"poll_interval,omitempty" toml:"poll_interval"`
	DatabasePath string `json:"database_path,omitempty" toml:"database_path"`
}

// Load reads a DeviceConfig from a .json or .toml file and validates it.
func Load(path string) (*DeviceConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &DeviceConfig{}
	switch ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the link settings and duration fields.
func (c *DeviceConfig) Validate() error {
	switch c.Link {
	case LinkSerial:
		if c.Port == "" {
			return fmt.Errorf("serial link requires port")
		}
		if _, err := c.Serial.Normalise(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	case LinkSocket:
		if c.Address == "" {
			return fmt.Errorf("socket link requires address")
		}
	default:
		return fmt.Errorf("link must be %q or %q, got %q", LinkSerial, LinkSocket, c.Link)
	}

	for name, v := range map[string]string{
		"read_timeout":  c.ReadTimeout,
		"dial_timeout":  c.DialTimeout,
		"poll_interval": c.PollInterval,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := parseDuration(s)
	if err != nil || d == 0 {
		return def
	}
	return d
}

// GetReadTimeout returns the read timeout, defaulting per link kind.
func (c *DeviceConfig) GetReadTimeout() time.Duration {
	if c.Link == LinkSocket {
		return durationOr(c.ReadTimeout, transport.DefaultSocketReadTimeout)
	}
	return durationOr(c.ReadTimeout, transport.DefaultSerialReadTimeout)
}

// GetDialTimeout returns the socket dial timeout.
func (c *DeviceConfig) GetDialTimeout() time.Duration {
	return durationOr(c.DialTimeout, transport.DefaultDialTimeout)
}

// GetPollInterval returns the delay between polls.
func (c *DeviceConfig) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, DefaultPollInterval)
}
