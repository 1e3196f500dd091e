package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	var sources bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build trees and cached downloads",
		Long: `Remove left-over build trees. With --sources the downloaded source
archives are removed as well, so the next install fetches them again.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runClean(sources)
		},
	}

	cmd.Flags().BoolVar(&sources, "sources", false, "Also remove cached source archives")

	return cmd
}

func runClean(sources bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dirs := []string{cfg.BuildDir()}
	if sources {
		dirs = append(dirs, cfg.SourceCacheDir())
	}
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
		fmt.Printf("Removed %s\n", dir)
	}
	return nil
}
