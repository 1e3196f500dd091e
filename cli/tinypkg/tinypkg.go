package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cowmonk/tinypkg/internal/cli"
	tinypkgerrors "github.com/cowmonk/tinypkg/pkg/errors"
)

const exitInterrupted = 130

var (
	configPath string
	rootDir    string
	verbose    bool
	debug      bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, tinypkgerrors.ErrInterrupted) || errors.Is(err, context.Canceled) {
			os.Exit(exitInterrupted)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tinypkg",
		Short: "A small source-based package manager",
		Long: `tinypkg builds packages from source and manages their lifecycle:
- resolve dependencies and build in the right order
- install, remove and update packages under an installation root
- keep package catalogs in sync with git repositories`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "installation root (overrides config)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.RootDir = &rootDir
	cli.Verbose = &verbose
	cli.Debug = &debug

	// Add subcommands
	cmd.AddCommand(
		cli.NewSyncCmd(),
		cli.NewInstallCmd(),
		cli.NewRemoveCmd(),
		cli.NewUpdateCmd(),
		cli.NewSearchCmd(),
		cli.NewListCmd(),
		cli.NewInfoCmd(),
		cli.NewCleanCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
