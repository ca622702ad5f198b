// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "LEDGER_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the ledger service and CLI.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	Paths    PathsConfig    `yaml:"paths"`
	Transfer TransferConfig `yaml:"transfer"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Display  DisplayConfig  `yaml:"display"`

	// Per-environment overrides, applied after the base config is
	// loaded when Environment matches.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Zero values leave the base value in place.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Transfer *TransferConfig `yaml:"transfer,omitempty"`
	Session  *SessionConfig  `yaml:"session,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// PathsConfig configures file locations. Every path may reference
// ${LEDGER_ROOT}, ${HOME}, or ${VAR:-default}.
type PathsConfig struct {
	// Root is the base directory for ledger data.
	Root string `yaml:"root"`

	// State holds the session signing keypair.
	State string `yaml:"state"`

	// Database is the SQLite file holding accounts, users, and
	// revoked sessions.
	Database string `yaml:"database"`

	// Socket is the service's Unix socket.
	Socket string `yaml:"socket"`
}

// TransferConfig configures the transfer engine.
type TransferConfig struct {
	// Ceiling is the largest amount, in minor units, one transfer may
	// move. Amounts equal to the ceiling are allowed.
	Ceiling int64 `yaml:"ceiling"`

	// Timeout bounds one transfer end to end.
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig configures login sessions.
type SessionConfig struct {
	// TTL is how long a session token stays valid.
	TTL time.Duration `yaml:"ttl"`

	// LoginDelay is the minimum time every login attempt takes.
	LoginDelay time.Duration `yaml:"login_delay"`
}

// DatabaseConfig configures the SQLite connection pool.
type DatabaseConfig struct {
	PoolSize int `yaml:"pool_size"`

	// Synchronous is FULL or NORMAL.
	Synchronous string `yaml:"synchronous"`
}

// DisplayConfig affects only how the CLI renders amounts.
type DisplayConfig struct {
	// Scale is the number of minor-unit digits in one major unit (2
	// for cents).
	Scale int32 `yaml:"scale"`
}

// Default returns the default configuration. Paths are relative to
// ${LEDGER_ROOT} and are expanded by LoadFile and Resolve.
func Default() *Config {
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:     "${HOME}/.local/share/ledger",
			State:    "${LEDGER_ROOT}/state",
			Database: "${LEDGER_ROOT}/ledger.db",
			Socket:   "${LEDGER_ROOT}/ledger.sock",
		},
		Transfer: TransferConfig{
			Ceiling: 1000,
			Timeout: 5 * time.Second,
		},
		Session: SessionConfig{
			TTL:        60 * time.Minute,
			LoginDelay: time.Second,
		},
		Database: DatabaseConfig{
			PoolSize:    8,
			Synchronous: "FULL",
		},
		Display: DisplayConfig{
			Scale: 2,
		},
	}
}

// Load loads configuration from the file named by LEDGER_CONFIG. It
// fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your ledger.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// Resolve loads the file at path, or the file named by LEDGER_CONFIG
// when path is empty. With neither, it returns the expanded defaults.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvVar) != "" {
		return Load()
	}
	cfg := Default()
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is of
// ${VAR} patterns inside paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if paths := overrides.Paths; paths != nil {
		override(&c.Paths.Root, paths.Root)
		override(&c.Paths.State, paths.State)
		override(&c.Paths.Database, paths.Database)
		override(&c.Paths.Socket, paths.Socket)
	}
	if transfer := overrides.Transfer; transfer != nil {
		override(&c.Transfer.Ceiling, transfer.Ceiling)
		override(&c.Transfer.Timeout, transfer.Timeout)
	}
	if session := overrides.Session; session != nil {
		override(&c.Session.TTL, session.TTL)
		override(&c.Session.LoginDelay, session.LoginDelay)
	}
	if database := overrides.Database; database != nil {
		override(&c.Database.PoolSize, database.PoolSize)
		override(&c.Database.Synchronous, database.Synchronous)
	}
}

func override[T comparable](target *T, value T) {
	var zero T
	if value != zero {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["LEDGER_ROOT"] = c.Paths.Root

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Database = expandVars(c.Paths.Database, vars)
	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, looking in
// vars first and then the process environment.
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

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	for name, path := range map[string]string{
		"paths.root":     c.Paths.Root,
		"paths.state":    c.Paths.State,
		"paths.database": c.Paths.Database,
		"paths.socket":   c.Paths.Socket,
	} {
		if path == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	if c.Transfer.Ceiling <= 0 {
		errs = append(errs, fmt.Errorf("transfer.ceiling must be positive, got %d", c.Transfer.Ceiling))
	}
	if c.Transfer.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("transfer.timeout must be positive, got %s", c.Transfer.Timeout))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL))
	}
	if c.Session.LoginDelay < 0 {
		errs = append(errs, fmt.Errorf("session.login_delay must not be negative, got %s", c.Session.LoginDelay))
	}
	if c.Database.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("database.pool_size must be at least 1, got %d", c.Database.PoolSize))
	}
	if !slices.Contains([]string{"FULL", "NORMAL"}, c.Database.Synchronous) {
		errs = append(errs, fmt.Errorf("database.synchronous must be FULL or NORMAL, got %q", c.Database.Synchronous))
	}
	if c.Display.Scale < 0 || c.Display.Scale > 18 {
		errs = append(errs, fmt.Errorf("display.scale must be between 0 and 18, got %d", c.Display.Scale))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the directories the configured paths live in.
// The state directory holds the signing key and is private to the
// owner.
func (c *Config) EnsurePaths() error {
	directories := []struct {
		path string
		mode os.FileMode
	}{
		{c.Paths.Root, 0o755},
		{c.Paths.State, 0o700},
		{filepath.Dir(c.Paths.Database), 0o755},
		{filepath.Dir(c.Paths.Socket), 0o755},
	}
	for _, directory := range directories {
		if directory.path == "" {
			continue
		}
		if err := os.MkdirAll(directory.path, directory.mode); err != nil {
			return fmt.Errorf("creating %s: %w", directory.path, err)
		}
	}
	return nil
}
