package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/graalreborn/graalclient/internal/constants"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "GRAAL_CONFIG"

// DefaultPath is used when EnvPath is not set.
const DefaultPath = "config/graalclient.yaml"

// Client holds all configuration for the game client.
type Client struct {
	// Server
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Account
	Account  string `yaml:"account"`
	Password string `yaml:"password"`
	Identity string `yaml:"identity"` // optional machine identity sent at login

	// Protocol
	Version       string `yaml:"version"`
	ClientType    int    `yaml:"client_type"`
	EncryptionKey int    `yaml:"encryption_key"` // 0 picks a random key per connection
	Compression   string `yaml:"compression"`    // auto, none, zlib, bz2

	// Timeouts
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"` // 0 disables the read deadline
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Outbound
	SendQueueSize   int           `yaml:"send_queue_size"`
	MinSendInterval time.Duration `yaml:"min_send_interval"`

	// Movement
	PredictionTimeout time.Duration `yaml:"prediction_timeout"`
	MaxCoordinateJump float64       `yaml:"max_coordinate_jump"` // tiles
	ScaleHint         string        `yaml:"scale_hint"`          // auto, tiles, pixels, double, half

	// Level files
	GMapDir          string `yaml:"gmap_dir"`
	PrefetchWorkers  int    `yaml:"prefetch_workers"`
	PrefetchNeighbor bool   `yaml:"prefetch_neighbors"`

	// Logging
	Log LogConfig `yaml:"log"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`  // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Addr returns host:port of the server.
func (c Client) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks values that would otherwise fail deep inside the session.
func (c Client) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if len(c.Version) != constants.ProtocolVersionSize {
		return fmt.Errorf("version %q must be %d bytes", c.Version, constants.ProtocolVersionSize)
	}
	if c.EncryptionKey < 0 || c.EncryptionKey > constants.MaxByteValue {
		return fmt.Errorf("encryption_key %d out of range 0..%d", c.EncryptionKey, constants.MaxByteValue)
	}
	if c.SendQueueSize < 1 {
		return fmt.Errorf("send_queue_size must be positive")
	}
	if c.MinSendInterval < 0 {
		return fmt.Errorf("min_send_interval must not be negative")
	}
	return nil
}

// DefaultClient returns Client config with sensible defaults.
func DefaultClient() Client {
	return Client{
		Host:              "127.0.0.1",
		Port:              14900,
		Version:           constants.DefaultProtocolVersion,
		ClientType:        constants.DefaultClientType,
		Compression:       "auto",
		DialTimeout:       10 * time.Second,
		ReadTimeout:       0,
		WriteTimeout:      10 * time.Second,
		SendQueueSize:     constants.DefaultSendQueueSize,
		MinSendInterval:   constants.MinSendInterval,
		PredictionTimeout: constants.PredictionTimeout,
		MaxCoordinateJump: constants.MaxCoordinateJump,
		ScaleHint:         "auto",
		GMapDir:           "levels",
		PrefetchWorkers:   4,
		PrefetchNeighbor:  true,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// LoadClient loads client config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Path returns the config path from EnvPath or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}
