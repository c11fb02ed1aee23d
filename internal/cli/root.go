// Package cli wires the cobra command tree for the extensiond binary.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimbusedit/extensiond/internal/config"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "extensiond",
	Short: "Nimbus extension management service",
	Long: `extensiond manages the lifecycle of Nimbus extensions on this host:
it discovers builtin, installed, and in-development extensions, installs and
uninstalls them, and serves the extension and environment commands used by a
remote Nimbus client.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the service config file (default "+config.FilePath()+")")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		return err
	}
	return nil
}

// loadConfig loads the service config selected by the --config flag and
// installs the configured log level as the process default.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	return cfg, nil
}
