// Package config loads the service configuration from the config file and
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	fileName  = "extensiond"
	fileType  = "yaml"
	envPrefix = "NIMBUSD"
)

// Config is the service configuration.
type Config struct {
	// AppRoot is the host application's installation root.
	AppRoot string `mapstructure:"app_root"`

	// BuiltinRoot is the fixed root holding factory extensions. Defaults
	// to <app_root>/extensions.
	BuiltinRoot string `mapstructure:"builtin_root"`

	// HostVersion is the host application version used for engine
	// compatibility checks.
	HostVersion string `mapstructure:"host_version"`

	// TargetPlatform tags produced local extensions. Defaults to the
	// build platform.
	TargetPlatform string `mapstructure:"target_platform"`

	// RestrictedExecutionContext marks hosts that cannot run native
	// extension code.
	RestrictedExecutionContext bool `mapstructure:"restricted_execution_context"`

	// ConnectionToken is the session token returned in environment data.
	// A fresh token is minted when empty.
	ConnectionToken string `mapstructure:"connection_token"`

	// DevelopmentMode enables the builtin override resolver.
	DevelopmentMode bool `mapstructure:"development_mode"`

	// DevOverridesFile is the builtin override control file used in
	// development mode.
	DevOverridesFile string `mapstructure:"dev_overrides_file"`

	// RemoteScheme is the resource scheme substituted for "file" in
	// contribution when-expressions.
	RemoteScheme string `mapstructure:"remote_scheme"`

	LogLevel string `mapstructure:"log_level"`
}

// Dir returns the service config directory (~/.nimbusd).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".nimbusd")
}

// FilePath returns the default config file path.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// Load reads the configuration from the given file (the default path when
// empty) layered under NIMBUSD_* environment overrides. A missing config
// file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = FilePath()
	}
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("host_version", "1.0.0")
	v.SetDefault("target_platform", runtime.GOOS+"-"+runtime.GOARCH)
	v.SetDefault("remote_scheme", "nimbus-remote")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.BuiltinRoot == "" && cfg.AppRoot != "" {
		cfg.BuiltinRoot = filepath.Join(cfg.AppRoot, "extensions")
	}
	if cfg.DevOverridesFile == "" {
		cfg.DevOverridesFile = filepath.Join(Dir(), "dev.extensions.yaml")
	}
	return &cfg, nil
}
