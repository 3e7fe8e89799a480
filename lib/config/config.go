// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Constellation
// components.
//
// Configuration is read from a single YAML file named by:
//   - the CONSTELLATION_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// When neither is given the built-in defaults apply, so a bare
// `constellation-server` works on a fresh machine. When a file is
// named it must exist and parse; there is no search path and no hidden
// override. The only expansion performed is ${VAR} and ${VAR:-default}
// in path values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/constellation-live/constellation/lib/state"
)

// Config is the master configuration for Constellation.
type Config struct {
	// Server configures the listening sockets.
	Server ServerConfig `yaml:"server"`

	// Paths configures filesystem locations.
	Paths PathsConfig `yaml:"paths"`

	// Lifecycle configures the session state machine timings.
	Lifecycle LifecycleConfig `yaml:"lifecycle"`

	// Tokens configures token accounting.
	Tokens TokensConfig `yaml:"tokens"`

	// Machines configures machine presentation.
	Machines MachinesConfig `yaml:"machines"`
}

// ServerConfig configures the listening sockets.
type ServerConfig struct {
	// Listen is the HTTP/WebSocket listen address.
	// Default: :3333
	Listen string `yaml:"listen"`

	// FeedListen is the native TCP feed listen address. Empty
	// disables the feed.
	// Default: 127.0.0.1:3334
	FeedListen string `yaml:"feed_listen"`

	// FeedHeartbeat is how often the feed writes a keepalive frame.
	// Default: 15s
	FeedHeartbeat string `yaml:"feed_heartbeat"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// Base is the prefix stripped from file paths when a session has
	// no working directory of its own.
	// Default: ${HOME}
	Base string `yaml:"base"`

	// History is the agent history log tailed for events.
	// Default: ${HOME}/.claude/history.jsonl
	History string `yaml:"history"`

	// Projects is the directory watched for activity pulses. Empty
	// disables the watcher.
	// Default: ${HOME}/.claude/projects
	Projects string `yaml:"projects"`
}

// LifecycleConfig configures the session state machine timings. All
// values are Go duration strings.
type LifecycleConfig struct {
	// InactiveAfter is the idle time before a session is marked
	// inactive. Default: 30s
	InactiveAfter string `yaml:"inactive_after"`

	// RemoveAfter is the idle time before a session is removed.
	// Default: 5m
	RemoveAfter string `yaml:"remove_after"`

	// ThinkingPulse is how long the thinking flag stays lit after an
	// event. Default: 3s
	ThinkingPulse string `yaml:"thinking_pulse"`

	// SweepInterval is the lifecycle sweep period. Default: 5s
	SweepInterval string `yaml:"sweep_interval"`
}

// TokensConfig configures token accounting.
type TokensConfig struct {
	// MaxContext is the context window size used for usage
	// percentages. Default: 200000
	MaxContext int64 `yaml:"max_context"`
}

// MachinesConfig configures machine presentation.
type MachinesConfig struct {
	// Palette is the color rotation for new machines. Empty uses the
	// built-in palette.
	Palette []string `yaml:"palette"`

	// ColorOverrides pins specific machine names to colors,
	// bypassing the palette.
	ColorOverrides map[string]string `yaml:"color_overrides"`
}

// Default returns the built-in configuration. Every field carries a
// working value so the server runs without a config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Listen:        ":3333",
			FeedListen:    "127.0.0.1:3334",
			FeedHeartbeat: "15s",
		},
		Paths: PathsConfig{
			Base:     homeDir,
			History:  filepath.Join(homeDir, ".claude", "history.jsonl"),
			Projects: filepath.Join(homeDir, ".claude", "projects"),
		},
		Lifecycle: LifecycleConfig{
			InactiveAfter: "30s",
			RemoveAfter:   "5m",
			ThinkingPulse: "3s",
			SweepInterval: "5s",
		},
		Tokens: TokensConfig{
			MaxContext: state.DefaultMaxContext,
		},
		Machines: MachinesConfig{
			ColorOverrides: map[string]string{
				"agentvps": "#fbbf24",
			},
		},
	}
}

// Load loads configuration from the CONSTELLATION_CONFIG environment
// variable, falling back to the built-in defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("CONSTELLATION_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The file is
// merged over the defaults; a missing or malformed file is an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// values.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Base = expandVars(c.Paths.Base, vars)
	c.Paths.History = expandVars(c.Paths.History, vars)
	c.Paths.Projects = expandVars(c.Paths.Projects, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if _, err := c.FeedHeartbeat(); err != nil {
		errs = append(errs, fmt.Errorf("server.feed_heartbeat: %w", err))
	}
	if c.Paths.Base == "" {
		errs = append(errs, fmt.Errorf("paths.base is required"))
	}
	if c.Tokens.MaxContext <= 0 {
		errs = append(errs, fmt.Errorf("tokens.max_context must be positive"))
	}

	durations := []struct {
		name  string
		value string
	}{
		{"lifecycle.inactive_after", c.Lifecycle.InactiveAfter},
		{"lifecycle.remove_after", c.Lifecycle.RemoveAfter},
		{"lifecycle.thinking_pulse", c.Lifecycle.ThinkingPulse},
		{"lifecycle.sweep_interval", c.Lifecycle.SweepInterval},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		if parsed <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}

	for name, color := range c.Machines.ColorOverrides {
		if !validColor(color) {
			errs = append(errs, fmt.Errorf("machines.color_overrides[%s]: invalid color %q", name, color))
		}
	}
	for _, color := range c.Machines.Palette {
		if !validColor(color) {
			errs = append(errs, fmt.Errorf("machines.palette: invalid color %q", color))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func validColor(s string) bool {
	return colorPattern.MatchString(s)
}

// FeedHeartbeat returns the parsed feed heartbeat interval.
func (c *Config) FeedHeartbeat() (time.Duration, error) {
	return time.ParseDuration(c.Server.FeedHeartbeat)
}

// StoreOptions converts the validated configuration into state store
// options. Call Validate first; parse errors here fall back to the
// store's own defaults.
func (c *Config) StoreOptions() state.Options {
	opts := state.Options{
		BasePath:       c.Paths.Base,
		MaxContext:     c.Tokens.MaxContext,
		Palette:        c.Machines.Palette,
		ColorOverrides: c.Machines.ColorOverrides,
	}
	if d, err := time.ParseDuration(c.Lifecycle.InactiveAfter); err == nil {
		opts.InactiveAfter = d
	}
	if d, err := time.ParseDuration(c.Lifecycle.RemoveAfter); err == nil {
		opts.RemoveAfter = d
	}
	if d, err := time.ParseDuration(c.Lifecycle.ThinkingPulse); err == nil {
		opts.ThinkingPulse = d
	}
	if d, err := time.ParseDuration(c.Lifecycle.SweepInterval); err == nil {
		opts.SweepInterval = d
	}
	return opts
}
