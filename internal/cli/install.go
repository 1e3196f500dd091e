package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cowmonk/tinypkg/pkg/orchestrator"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var (
		force    bool
		skipDeps bool
		jobs     int
	)

	cmd := &cobra.Command{
		Use:   "install PACKAGE...",
		Short: "Build and install packages",
		Long: `Build one or more packages from source and install them.
Dependencies are resolved and installed first unless --skip-deps is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), args, force, skipDeps, jobs)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinstall even if already installed")
	cmd.Flags().BoolVarP(&skipDeps, "skip-deps", "n", false, "Install the named packages only")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Number of parallel compile jobs (0=auto)")

	return cmd
}

func runInstall(ctx context.Context, packages []string, force, skipDeps bool, jobs int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch := newOrchestrator(cfg, jobs)
	return orch.InstallMany(ctx, packages, orchestrator.Options{
		Force:            force,
		SkipDependencies: skipDeps,
	})
}
