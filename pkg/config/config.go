package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the optional config file read from the working directory.
const FileName = "wordgraph.toml"

// EnvPrefix prefixes environment overrides, e.g. WORDGRAPH_RANK_DAMPING.
const EnvPrefix = "WORDGRAPH_"

// Config holds all configuration for the application
type Config struct {
	Input       string        `koanf:"input"`
	WebMode     bool          `koanf:"web"`
	Port        int           `koanf:"port"`
	Watch       bool          `koanf:"watch"`
	Debounce    time.Duration `koanf:"debounce"`
	OpenBrowser bool          `koanf:"open"`
	Verbosity   string        `koanf:"verbosity"`
	VerboseCnt  int           `koanf:"verbose"`
	Log         LogConfig     `koanf:"log"`
	Rank        RankConfig    `koanf:"rank"`
	Walk        WalkConfig    `koanf:"walk"`
}

// LogConfig selects the log format.
type LogConfig struct {
	JSON bool `koanf:"json"`
}

// RankConfig holds the PageRank parameters.
type RankConfig struct {
	Damping    float64 `koanf:"damping"`
	Iterations int     `koanf:"iterations"`
	Tolerance  float64 `koanf:"tolerance"`
	Boost      float64 `koanf:"boost"`
}

// WalkConfig holds random walk settings.
type WalkConfig struct {
	Delay time.Duration `koanf:"delay"`
	Seed  uint64        `koanf:"seed"` // 0 picks a random seed
	Out   string        `koanf:"out"`  // file receiving the visited words
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"input":           "",
		"web":             false,
		"port":            8080,
		"watch":           false,
		"debounce":        500 * time.Millisecond,
		"open":            false,
		"verbosity":       "",
		"verbose":         0,
		"log.json":        false,
		"rank.damping":    0.85,
		"rank.iterations": 100,
		"rank.tolerance":  1e-6,
		"rank.boost":      1.2,
		"walk.delay":      time.Duration(0),
		"walk.seed":       uint64(0),
		"walk.out":        "",
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - wordgraph.toml
	if _, err := os.Stat(FileName); err == nil {
		if err := k.Load(file.Provider(FileName), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", FileName, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", FileName, err)
	}

	// 3. Environment Variables
	// Prefix: WORDGRAPH_ (e.g., WORDGRAPH_PORT=9090, WORDGRAPH_WALK_DELAY=200ms)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, where "walk-delay" sets walk.delay
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, any) {
			return strings.ReplaceAll(fl.Name, "-", "."), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce %v must not be negative", c.Debounce))
	}
	if !(c.Rank.Damping > 0 && c.Rank.Damping < 1) {
		errs = append(errs, fmt.Errorf("rank.damping %v not in (0, 1)", c.Rank.Damping))
	}
	if c.Rank.Iterations <= 0 {
		errs = append(errs, fmt.Errorf("rank.iterations %d must be positive", c.Rank.Iterations))
	}
	if c.Rank.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("rank.tolerance %v must not be negative", c.Rank.Tolerance))
	}
	if c.Rank.Boost <= 0 {
		errs = append(errs, fmt.Errorf("rank.boost %v must be positive", c.Rank.Boost))
	}
	if c.Walk.Delay < 0 {
		errs = append(errs, fmt.Errorf("walk.delay %v must not be negative", c.Walk.Delay))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
