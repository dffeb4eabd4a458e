// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/lobby/internal/logger"
	"github.com/woozymasta/lobby/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"LOBBY"`
	Registry  Registry      `group:"Registry Options" namespace:"registry" env-namespace:"LOBBY_REGISTRY"`
	Storage   Storage       `group:"History Storage Options" namespace:"db" env-namespace:"LOBBY_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"LOBBY_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"LOBBY_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"LOBBY_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address     string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken   string `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token, admin API is disabled when empty"`
	MaxBodySize int64  `long:"max-body-size" env:"MAX_BODY_SIZE" description:"Max body size for incoming requests" default:"4096"`
	TrustProxy  bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust CF-Connecting-IP and X-Forwarded-For headers"`
}

// Registry holds registry admission and expiry configuration.
type Registry struct {
	// betteralign:ignore

	MaxNameLength   int           `long:"max-name-length" env:"MAX_NAME_LENGTH" description:"Max server name length in characters" default:"25"`
	MaxInfoLength   int           `long:"max-info-length" env:"MAX_INFO_LENGTH" description:"Max server info length in bytes" default:"500"`
	AllowedVersions []string      `long:"allowed-version" env:"ALLOWED_VERSIONS" env-delim:"," description:"Accepted multiplayer versions, any when empty"`
	StaleAfter      time.Duration `long:"stale-after" env:"STALE_AFTER" description:"Remove servers without heartbeat for this long, 0 disables expiry" default:"0"`
	SweepInterval   time.Duration `long:"sweep-interval" env:"SWEEP_INTERVAL" description:"How often stale servers are looked for" default:"1m"`
	GenerateCount   int           `long:"gen-fake-servers" hidden:"true"`
}

// Storage holds session history database configuration.
type Storage struct {
	// betteralign:ignore

	Path          string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite history database, history is disabled when empty"`
	TouchInterval time.Duration `long:"touch-interval" env:"TOUCH_INTERVAL" description:"Persist at most one heartbeat per server within this interval" default:"5m"`
	QueueSize     int           `long:"queue-size" env:"QUEUE_SIZE" description:"History queue size per worker" default:"256"`
	Workers       int           `long:"workers" env:"WORKERS" description:"History writer workers" default:"4"`
	PruneOlder    time.Duration `long:"prune-older" description:"Delete ended sessions older than duration and exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, country detection is disabled when empty"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Per IP limit: requests count, 0 disables" default:"30"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Per IP limit: window duration" default:"1m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args and the environment into a validated Config.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks option combinations that flags cannot express.
func (c *Config) Validate() error {
	if c.Registry.StaleAfter < 0 {
		return errors.New("registry stale-after must not be negative")
	}
	if c.Registry.StaleAfter > 0 && c.Registry.SweepInterval <= 0 {
		return errors.New("registry sweep-interval must be positive when stale-after is set")
	}
	if c.RateLimit.HardLimitCount > 0 && c.RateLimit.HardLimitWin <= 0 {
		return errors.New("rate-limit hard-window must be positive")
	}
	if c.Storage.PruneOlder != 0 && c.Storage.Path == "" {
		return errors.New("db prune-older requires db path")
	}
	if c.Server.MaxBodySize <= 0 {
		return errors.New("max-body-size must be positive")
	}

	return nil
}
