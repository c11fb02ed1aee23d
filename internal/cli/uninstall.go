package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nimbusedit/extensiond/internal/environment"
	"github.com/nimbusedit/extensiond/internal/extension"
	"github.com/nimbusedit/extensiond/internal/installer"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <publisher.name>",
	Short: "Remove an installed extension",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	id, err := extension.ParseIdentifier(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := environment.Resolve(cfg.AppRoot)
	if err != nil {
		return err
	}

	store := installer.NewFSStore(paths.ExtensionsRoot, extension.NewFSReader(), nil, slog.Default())
	task := installer.NewUninstallTask(store, id, slog.Default())
	if err := task.Run(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
	return nil
}
