// Package config loads the friendlypipe TOML configuration file.
//
// Every key is optional; a missing file yields [Default]. Example:
//
//	debug = true
//	max_depth = 50
//
//	[resync]
//	attempts = 3
//	delay = "200ms"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[server]
//	addr = "127.0.0.1:8189"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalid is wrapped by every error caused by a malformed config value.
var ErrInvalid = errors.New("invalid config")

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// MaxSlots is the bundle slot ceiling shared with the backend nodes.
const MaxSlots = 80

// Config is the decoded configuration file.
type Config struct {
	Debug                bool `toml:"debug"`
	MaxDepth             int  `toml:"max_depth"`
	MaxSlots             int  `toml:"max_slots"`
	ContainerSearchDepth int  `toml:"container_search_depth"`

	Resync Resync `toml:"resync"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`

	// Undecoded lists keys present in the file that no field consumed.
	Undecoded []string `toml:"-"`
}

// Resync controls the post-configure retries of bundle consumers.
type Resync struct {
	Attempts int      `toml:"attempts"`
	Delay    Duration `toml:"delay"`
}

// Cache selects and configures the artifact cache.
type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// Server configures `friendlypipe serve`.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string ("200ms").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalid, text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MaxDepth:             50,
		MaxSlots:             MaxSlots,
		ContainerSearchDepth: 10,
		Resync: Resync{
			Attempts: 3,
			Delay:    Duration{200 * time.Millisecond},
		},
		Cache: Cache{
			Backend:   BackendFile,
			Dir:       defaultCacheDir(),
			RedisAddr: "localhost:6379",
			TTL:       Duration{24 * time.Hour},
		},
		Server: Server{Addr: "127.0.0.1:8189"},
	}
}

// Load reads the config at path over the defaults. A missing file is not an
// error. An empty path loads [Path].
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	for _, k := range md.Undecoded() {
		cfg.Undecoded = append(cfg.Undecoded, k.String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.MaxSlots < 1 || c.MaxSlots > MaxSlots:
		return fmt.Errorf("%w: max_slots must be between 1 and %d, got %d", ErrInvalid, MaxSlots, c.MaxSlots)
	case c.MaxDepth < 1:
		return fmt.Errorf("%w: max_depth must be at least 1, got %d", ErrInvalid, c.MaxDepth)
	case c.ContainerSearchDepth < 1:
		return fmt.Errorf("%w: container_search_depth must be at least 1, got %d", ErrInvalid, c.ContainerSearchDepth)
	case c.Resync.Attempts < 0:
		return fmt.Errorf("%w: resync.attempts must not be negative, got %d", ErrInvalid, c.Resync.Attempts)
	case c.Resync.Delay.Duration < 0:
		return fmt.Errorf("%w: resync.delay must not be negative", ErrInvalid)
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalid, c.Cache.Backend)
	}
	return nil
}

// Path returns the default config file location:
// $XDG_CONFIG_HOME/friendlypipe/config.toml, else ~/.config/friendlypipe/config.toml.
func Path() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "friendlypipe", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".friendlypipe", "config.toml")
	}
	return filepath.Join(home, ".config", "friendlypipe", "config.toml")
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "friendlypipe")
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "friendlypipe")
	}
	return filepath.Join(os.TempDir(), "friendlypipe-cache")
}
