// Package config provides configuration management for the ctfc compiler
// using Viper for flexible loading from files, environment variables, and
// command-line flags.
//
// Configuration sources, highest priority first: command-line flags, CTFC_
// environment variables (CTFC_SERVER_PORT, CTFC_OUTPUT, ...), and a
// .ctfc.yml file in the working directory.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full compiler configuration.
type Config struct {
	// Source is the challenge source root for discovery (compile-all).
	Source string `mapstructure:"source"`
	// Output is the root directory the compiled site is written to.
	Output string `mapstructure:"output"`
	// Ignore lists extra root directories excluded from discovery, in
	// addition to the built-in set (.git, dist, node_modules, ...).
	Ignore []string `mapstructure:"ignore"`

	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Assets AssetsConfig `mapstructure:"assets"`
}

// ServerConfig configures the dev server.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	LiveReload bool   `mapstructure:"live_reload"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AssetsConfig configures template asset loading.
type AssetsConfig struct {
	// Dir overrides the embedded templates and shared assets with files
	// from this directory. Empty means embedded defaults only.
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers default values with viper. Called once from the CLI
// before flags are bound so flag and env overrides win.
func SetDefaults() {
	viper.SetDefault("source", ".")
	viper.SetDefault("output", "dist")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.live_reload", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("assets.dir", "")
}

// Load unmarshals the current viper state into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the compiler cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d: must be between 1 and 65535", c.Server.Port)
	}
	if c.Output == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return nil
}
