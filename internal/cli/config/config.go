// Package config loads CLI configuration from file, environment and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/frameless-media/datatables/internal/settings"
)

// envPrefix is the environment variable prefix, e.g. DATATABLES_DATABASE.
const envPrefix = "DATATABLES_"

// Default configuration values.
const (
	DefaultDatabase = ".datatables/data.db"
	DefaultStubsDir = "stubs"
	DefaultAddr     = ":8710"
	DefaultPerPage  = 25
)

// Config holds all CLI configuration options.
type Config struct {
	Database    string            `koanf:"database"`
	StubsDir    string            `koanf:"stubs_dir"`
	Addr        string            `koanf:"addr"`
	PerPage     int               `koanf:"per_page"`
	Concurrency int               `koanf:"concurrency"`
	Verbose     bool              `koanf:"verbose"`
	Settings    settings.Settings `koanf:"settings"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database:    DefaultDatabase,
		StubsDir:    DefaultStubsDir,
		Addr:        DefaultAddr,
		PerPage:     DefaultPerPage,
		Concurrency: 8,
		Settings:    settings.Default(),
	}
}

// findConfigFile returns the config file to use.
// Priority: explicit path > datatables.yaml > datatables.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"datatables.yaml", "datatables.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load loads configuration. cfgFile may be empty to search the working
// directory; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]any{
		"database":    defaults.Database,
		"stubs_dir":   defaults.StubsDir,
		"addr":        defaults.Addr,
		"per_page":    defaults.PerPage,
		"concurrency": defaults.Concurrency,
		"verbose":     defaults.Verbose,
		"settings":    map[string]any(defaults.Settings.Map()),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// DATATABLES_STUBS_DIR -> stubs_dir, DATATABLES_SETTINGS_NUMBERDECIMALS
	// -> settings.numberDecimals.
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func envTransform(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	if rest, ok := strings.CutPrefix(s, "SETTINGS_"); ok {
		return "settings." + settingsKey(rest)
	}
	return strings.ToLower(s)
}

// settingsKey maps an upper-cased env suffix to the camelCase settings key.
func settingsKey(upper string) string {
	for key := range settings.Default().Map() {
		if strings.EqualFold(key, upper) {
			return key
		}
	}
	return strings.ToLower(upper)
}
