package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowmonk/tinypkg/pkg/orchestrator"
)

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	var (
		force bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:     "remove PACKAGE...",
		Aliases: []string{"uninstall", "rm"},
		Short:   "Remove installed packages",
		Long: `Remove one or more installed packages, deleting their files and
database records. Removal is refused while other installed packages
depend on the target unless --force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd.Context(), args, force, yes)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove even if other packages depend on it")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runRemove(ctx context.Context, packages []string, force, yes bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !yes && !force {
		prompt := fmt.Sprintf("The following packages will be removed: %s\nProceed?", strings.Join(packages, ", "))
		if !confirm(prompt) {
			fmt.Println("Aborted")
			return nil
		}
	}

	orch := newOrchestrator(cfg, 0)
	return orch.RemoveMany(ctx, packages, orchestrator.Options{Force: force})
}
