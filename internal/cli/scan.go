package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nimbusedit/extensiond/internal/environment"
	"github.com/nimbusedit/extensiond/internal/scanner"
)

var (
	scanLanguage string
	scanDevPaths []string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan extension sources once and print the merged set",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanLanguage, "language", "en", "Host UI language")
	scanCmd.Flags().StringArrayVar(&scanDevPaths, "dev-path", nil,
		"Extension root under development (repeatable)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := environment.Resolve(cfg.AppRoot)
	if err != nil {
		return err
	}

	s := buildScanner(cfg, paths, slog.Default())
	descriptors, err := s.Scan(cmd.Context(), scanner.Options{
		Language:         scanLanguage,
		DevelopmentPaths: scanDevPaths,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling scan result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
