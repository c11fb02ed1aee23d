package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nimbusedit/extensiond/internal/config"
	"github.com/nimbusedit/extensiond/internal/diagnostics"
	"github.com/nimbusedit/extensiond/internal/environment"
	"github.com/nimbusedit/extensiond/internal/extension"
	"github.com/nimbusedit/extensiond/internal/scanner"
	"github.com/nimbusedit/extensiond/internal/server"
	"github.com/nimbusedit/extensiond/internal/telemetry"
	"github.com/nimbusedit/extensiond/internal/whenclause"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the remote command channel on stdin/stdout",
	Long: `Serve reads newline-delimited JSON command frames from stdin and writes
one response per line to stdout. The channel carries the remote client's
environment, scan, diagnostics, and telemetry commands.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := environment.Resolve(cfg.AppRoot)
	if err != nil {
		return err
	}

	log := slog.Default()
	dispatcher := server.New(server.Deps{
		Scanner:         buildScanner(cfg, paths, log),
		Gatherer:        diagnostics.NewGatherer(nil, nil, log),
		Telemetry:       telemetry.NewController(nil, log),
		Paths:           paths,
		ConnectionToken: cfg.ConnectionToken,
		Log:             log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("serving remote command channel",
		"commands", dispatcher.Commands(), "extensionsRoot", paths.ExtensionsRoot)

	channel := server.NewChannel(dispatcher, log)
	if err := channel.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("channel terminated: %w", err)
	}
	return nil
}

// buildScanner assembles the scan pipeline from the service config.
func buildScanner(cfg *config.Config, paths environment.Paths, log *slog.Logger) *scanner.Scanner {
	var overrides *scanner.OverrideResolver
	if cfg.DevelopmentMode {
		overrides = &scanner.OverrideResolver{ControlFile: cfg.DevOverridesFile}
	}
	return scanner.New(scanner.Deps{
		BuiltinRoot:   cfg.BuiltinRoot,
		InstalledRoot: paths.ExtensionsRoot,
		Overrides:     overrides,
		Reader:        extension.NewFSReader(),
		Rewriter:      whenclause.NewRewriter("file", cfg.RemoteScheme, log),
		Log:           log,
	})
}
