package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowmonk/tinypkg/pkg/catalog"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var (
		available  bool
		nameFilter string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long: `List installed packages from the local database.

With --available, list every package in the synced catalogs instead.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if available {
				return runListAvailable(nameFilter)
			}
			return runListInstalled(nameFilter)
		},
	}

	cmd.Flags().BoolVarP(&available, "available", "a", false, "List packages available in the catalogs")
	cmd.Flags().StringVar(&nameFilter, "name", "", "Filter packages by name (partial match)")

	return cmd
}

func runListInstalled(nameFilter string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := loadDatabase(cfg)
	if err != nil {
		return err
	}

	rows := 0
	for _, rec := range db.All() {
		if nameFilter != "" && !strings.Contains(rec.Name, nameFilter) {
			continue
		}
		if rows == 0 {
			fmt.Printf("%-30s %-15s %-10s %s\n", "PACKAGE", "VERSION", "SIZE", "STATE")
			fmt.Println(strings.Repeat("-", 70))
		}
		rows++
		fmt.Printf("%-30s %-15s %-10s %s\n", rec.Name, rec.Version, formatSize(rec.InstalledSize), rec.State)
	}
	if rows == 0 {
		fmt.Println("No packages installed")
	}
	return nil
}

func runListAvailable(nameFilter string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat := catalog.NewManager(catalogSources(cfg))

	pkgs := cat.All()
	rows := 0
	for _, pkg := range pkgs {
		if nameFilter != "" && !strings.Contains(pkg.Name, nameFilter) {
			continue
		}
		if rows == 0 {
			fmt.Printf("%-30s %-15s %s\n", "PACKAGE", "VERSION", "DESCRIPTION")
			fmt.Println(strings.Repeat("-", 70))
		}
		rows++
		fmt.Printf("%-30s %-15s %s\n", pkg.Name, pkg.Version, pkg.Description)
	}
	if rows == 0 {
		fmt.Println("No packages available; run 'tinypkg sync' first")
	}
	return nil
}

// formatSize renders a byte count in a compact human-readable form.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(size)/float64(div), "KMGT"[exp])
}
