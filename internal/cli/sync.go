package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [REPOSITORY...]",
		Short: "Sync package repositories",
		Long: `Bring the local repository checkouts up to date with their remotes.
Without arguments every enabled repository is synced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), args)
		},
	}
	return cmd
}

func runSync(ctx context.Context, names []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Repositories) == 0 {
		fmt.Println("No repositories configured")
		return nil
	}

	mgr := newRepositoryManager(cfg)
	if len(names) == 0 {
		if err := mgr.SyncAll(ctx); err != nil {
			return err
		}
	} else {
		for _, name := range names {
			fmt.Printf("Syncing %s\n", name)
			if err := mgr.Sync(ctx, name); err != nil {
				return err
			}
		}
	}

	for _, repo := range cfg.EnabledRepositories() {
		if rev, err := mgr.Revision(repo.Name); err == nil {
			fmt.Printf("%s at %s\n", repo.Name, rev)
		}
	}
	return nil
}
