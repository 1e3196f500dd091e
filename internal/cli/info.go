package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowmonk/tinypkg/pkg/catalog"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "info PACKAGE",
		Aliases: []string{"show", "query"},
		Short:   "Show detailed information about a package",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
	return cmd
}

func runInfo(name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat := catalog.NewManager(catalogSources(cfg))
	pkg, err := cat.Resolve(name)
	if err != nil {
		return err
	}

	fmt.Printf("Name:         %s\n", pkg.Name)
	fmt.Printf("Version:      %s\n", pkg.Version)
	if pkg.Description != "" {
		fmt.Printf("Description:  %s\n", pkg.Description)
	}
	fmt.Printf("Source:       %s\n", pkg.Source)
	if pkg.BuildSystem != "" {
		fmt.Printf("Build system: %s\n", pkg.BuildSystem)
	}
	if len(pkg.Dependencies) > 0 {
		fmt.Printf("Depends:      %s\n", strings.Join(pkg.Dependencies, ", "))
	}
	if len(pkg.BuildDependencies) > 0 {
		fmt.Printf("Build deps:   %s\n", strings.Join(pkg.BuildDependencies, ", "))
	}
	if len(pkg.Conflicts) > 0 {
		fmt.Printf("Conflicts:    %s\n", strings.Join(pkg.Conflicts, ", "))
	}
	if len(pkg.Provides) > 0 {
		fmt.Printf("Provides:     %s\n", strings.Join(pkg.Provides, ", "))
	}

	db, err := loadDatabase(cfg)
	if err != nil {
		return err
	}
	if rec := db.Find(pkg.Name); rec != nil {
		fmt.Printf("Status:       %s (version %s, %s)\n", rec.State, rec.Version, formatSize(rec.InstalledSize))
	} else {
		fmt.Println("Status:       not installed")
	}
	return nil
}
