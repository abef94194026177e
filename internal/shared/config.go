package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config is ytplay's config.toml. Each table maps to one struct below.
type Config struct {
	Player    PlayerConfig    `toml:"player"`
	Providers ProvidersConfig `toml:"providers"`
	Cast      CastConfig      `toml:"cast"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
}

// PlayerConfig contains player-wide playback settings.
type PlayerConfig struct {
	Autostart           bool    `toml:"autostart"`
	DefaultPlaybackRate float64 `toml:"default_playback_rate"`
	AutoplayBlocked     bool    `toml:"autoplay_blocked"`
	Mute                bool    `toml:"mute"`
	Volume              int     `toml:"volume"`
	ContainerID         string  `toml:"container_id"`
}

// ProvidersConfig contains timings for the built-in providers, in seconds.
type ProvidersConfig struct {
	LoadDelay    float64 `toml:"load_delay"`
	SetupDelay   float64 `toml:"setup_delay"`
	StartLatency float64 `toml:"start_latency"`
	TickInterval float64 `toml:"tick_interval"`
}

// CastConfig contains remote cast receiver settings.
type CastConfig struct {
	ReceiverURL string `toml:"receiver_url"`
}

// DatabaseConfig locates the playback history database and sizes its connection pool.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig is where `ytplay serve` listens.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port the control API listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadDelayDuration returns [ProvidersConfig.LoadDelay] as a [time.Duration].
func (p ProvidersConfig) LoadDelayDuration() time.Duration {
	return time.Duration(p.LoadDelay * float64(time.Second))
}

// Validate checks values the player cannot run with.
func (c *Config) Validate() error {
	if c.Player.DefaultPlaybackRate <= 0 {
		return fmt.Errorf("%w: default_playback_rate must be positive", ErrInvalidConfig)
	}
	if c.Player.Volume < 0 || c.Player.Volume > 100 {
		return fmt.Errorf("%w: volume must be between 0 and 100", ErrInvalidConfig)
	}
	if c.Providers.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig decodes the TOML file at path over [DefaultConfig], so keys missing from the file keep
// their defaults. Unknown keys are rejected to catch typos such as "autostrat".
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig parses the embedded config.example.toml. The same file is what [CreateConfigFile]
// writes, so a fresh config file and no config file behave the same.
func DefaultConfig() *Config {
	var config Config
	if _, err := toml.Decode(string(exampleConf), &config); err != nil {
		panic(fmt.Sprintf("embedded config.example.toml is invalid: %v", err))
	}
	return &config
}

// CreateConfigFile writes the example config to path, creating its directory. It never overwrites
// an existing file.
func CreateConfigFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(exampleConf); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}
