package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nimbusedit/extensiond/internal/environment"
	"github.com/nimbusedit/extensiond/internal/extension"
	"github.com/nimbusedit/extensiond/internal/installer"
)

var (
	installMachineScoped bool
	installPreRelease    bool
)

var installCmd = &cobra.Command{
	Use:   "install <extension-dir>",
	Short: "Install an extension from a local directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installMachineScoped, "machine-scoped", false,
		"Mark the installation as machine-scoped")
	installCmd.Flags().BoolVar(&installPreRelease, "pre-release", false,
		"Opt in to pre-release versions for this extension")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	location, err := filepath.Abs(args[0])
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

	reader := extension.NewFSReader()
	store := installer.NewFSStore(paths.ExtensionsRoot, reader, nil, slog.Default())

	opts := installer.InstallOptions{IsMachineScoped: installMachineScoped}
	if cmd.Flags().Changed("pre-release") {
		opts.InstallPreReleaseVersion = &installPreRelease
	}

	task := installer.NewInstallTask(installer.TaskDeps{
		Store:          store,
		Reader:         reader,
		TargetPlatform: cfg.TargetPlatform,
	}, installer.InstallSource{Location: location}, opts)

	result, err := task.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s\n",
		result.Operation, result.Local.Identifier(), result.Local.Location)
	return nil
}
