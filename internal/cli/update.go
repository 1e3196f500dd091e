package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cowmonk/tinypkg/pkg/orchestrator"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	var (
		force bool
		jobs  int
	)

	cmd := &cobra.Command{
		Use:     "update [PACKAGE...]",
		Aliases: []string{"upgrade"},
		Short:   "Update installed packages to their catalog versions",
		Long: `Update the named packages to the versions in the synced catalogs.
Without arguments every installed package is checked and updated.
Config files are preserved across updates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), args, force, jobs)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild even when the installed version is current")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Number of parallel compile jobs (0=auto)")

	return cmd
}

func runUpdate(ctx context.Context, packages []string, force bool, jobs int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch := newOrchestrator(cfg, jobs)
	opts := orchestrator.Options{Force: force}

	if len(packages) == 0 {
		return orch.UpdateAll(ctx, opts)
	}
	for _, name := range packages {
		if err := orch.Update(ctx, name, opts); err != nil {
			return err
		}
	}
	return nil
}
