package depot

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/TheBitDrifter/depot/internal/arena"
)

// Config sizes a World. Capacities are hints: every structure grows past
// them on demand.
type Config struct {
	Capacity CapacityConfig `toml:"capacity"`
	Arena    ArenaConfig    `toml:"arena"`
	Logging  LoggingConfig  `toml:"logging"`
}

type CapacityConfig struct {
	Entities   int `toml:"entities"`
	Components int `toml:"components"`
	Resources  int `toml:"resources"`
}

type ArenaConfig struct {
	BlockBytes int `toml:"block_bytes"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// DefaultConfig returns the configuration NewWorld uses when none is given.
func DefaultConfig() Config {
	return Config{
		Capacity: CapacityConfig{
			Entities:   512,
			Components: 32,
			Resources:  4,
		},
		Arena: ArenaConfig{
			BlockBytes: arena.DefaultBlockBytes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "read config %s", path)
	}
	cfg, err := DecodeConfig(string(data))
	if err != nil {
		return Config{}, eris.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// DecodeConfig parses TOML text over the defaults and validates the result.
func DecodeConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return Config{}, eris.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects negative capacities and unknown logging settings.
func (c Config) Validate() error {
	switch {
	case c.Capacity.Entities < 0:
		return InvalidConfigError{"capacity.entities", "must not be negative"}
	case c.Capacity.Components < 0:
		return InvalidConfigError{"capacity.components", "must not be negative"}
	case c.Capacity.Resources < 0:
		return InvalidConfigError{"capacity.resources", "must not be negative"}
	case c.Arena.BlockBytes < 0:
		return InvalidConfigError{"arena.block_bytes", "must not be negative"}
	}
	if _, err := c.Logging.ParseLevel(); err != nil {
		return InvalidConfigError{"logging.level", err.Error()}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return InvalidConfigError{"logging.format", "must be console or json"}
	}
	return nil
}

// ParseLevel maps the configured level name to a zerolog level. An empty
// name means info.
func (l LoggingConfig) ParseLevel() (zerolog.Level, error) {
	if l.Level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(l.Level))
}

// NewLogger builds a zerolog logger writing to out at the configured level,
// as JSON or through a console writer.
func NewLogger(cfg LoggingConfig, out io.Writer) (zerolog.Logger, error) {
	level, err := cfg.ParseLevel()
	if err != nil {
		return zerolog.Nop(), InvalidConfigError{"logging.level", err.Error()}
	}
	if strings.ToLower(cfg.Format) != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: true}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// Option configures a World at construction.
type Option func(*World)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(w *World) { w.cfg = cfg }
}

// WithCapacity overrides the capacity hints.
func WithCapacity(entities, components, resources int) Option {
	return func(w *World) {
		w.cfg.Capacity = CapacityConfig{
			Entities:   entities,
			Components: components,
			Resources:  resources,
		}
	}
}

// WithLogger sets the logger for world lifecycle events. Worlds log nothing
// by default.
func WithLogger(l zerolog.Logger) Option {
	return func(w *World) {
		w.log = l
		w.logOut = nil
	}
}

// WithLogOutput builds the world's logger from the configured logging level
// and format, writing to out. It applies whichever config the world ends up
// with, regardless of option order.
func WithLogOutput(out io.Writer) Option {
	return func(w *World) { w.logOut = out }
}
