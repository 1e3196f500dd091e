package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cowmonk/tinypkg/pkg/catalog"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search the catalogs for packages",
		Long:  "Search package names and descriptions in the synced catalogs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSearch(args[0])
		},
	}
	return cmd
}

func runSearch(term string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat := catalog.NewManager(catalogSources(cfg))
	matches := cat.Search(term)
	if len(matches) == 0 {
		fmt.Printf("No packages matching %q\n", term)
		return nil
	}
	for _, pkg := range matches {
		fmt.Printf("%s %s\n", pkg.Name, pkg.Version)
		if pkg.Description != "" {
			fmt.Printf("    %s\n", pkg.Description)
		}
	}
	return nil
}
