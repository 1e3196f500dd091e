// Package cli implements the tinypkg command set on top of the
// orchestrator and the supporting managers.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cowmonk/tinypkg/internal/logger"
	"github.com/cowmonk/tinypkg/pkg/build"
	"github.com/cowmonk/tinypkg/pkg/catalog"
	"github.com/cowmonk/tinypkg/pkg/config"
	"github.com/cowmonk/tinypkg/pkg/database"
	"github.com/cowmonk/tinypkg/pkg/download"
	"github.com/cowmonk/tinypkg/pkg/hooks"
	tinypkghttp "github.com/cowmonk/tinypkg/pkg/http"
	"github.com/cowmonk/tinypkg/pkg/orchestrator"
	"github.com/cowmonk/tinypkg/pkg/repository"
	"github.com/cowmonk/tinypkg/pkg/resolve"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	RootDir    *string
	Verbose    *bool
	Debug      *bool
)

// loadConfig loads the configuration file and applies the global CLI flag
// overrides.
func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		path = defaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if RootDir != nil && *RootDir != "" {
		cfg.Settings.RootDir = *RootDir
	}

	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "info"
	}
	if Debug != nil && *Debug {
		level = "debug"
	}
	logger.InitLogger(level, logger.FormatText)

	return cfg, nil
}

// newOrchestrator wires catalog, resolver, builder and database from the
// configuration. A positive jobs value overrides the configured parallel
// job count for this invocation.
func newOrchestrator(cfg *config.Config, jobs int) *orchestrator.Orchestrator {
	client := tinypkghttp.NewClient(cfg.Settings.HTTPTimeout, cfg.ToHostAuthMap())
	dl := download.NewManager(client)

	if jobs <= 0 {
		jobs = cfg.Settings.ParallelJobs
	}
	builder := build.NewManager(dl, nil, build.Options{
		BuildDir:        cfg.BuildDir(),
		SourceCacheDir:  cfg.SourceCacheDir(),
		RootDir:         cfg.Settings.RootDir,
		InstallPrefix:   cfg.Settings.InstallPrefix,
		Jobs:            jobs,
		KeepBuildDir:    cfg.Settings.KeepBuildDir,
		VerifyChecksums: cfg.Settings.VerifyChecksums,
	})

	cat := catalog.NewManager(catalogSources(cfg))
	orch := orchestrator.New(cat, resolve.New(cat), builder,
		database.NewManager(cfg.DatabasePath()), hooks.ScriptRunner{},
		orchestrator.Hooks{OnEvent: printEvent})
	orch.RootDir = cfg.Settings.RootDir
	orch.BackupDir = cfg.BackupDir()
	return orch
}

// catalogSources maps the enabled repositories to their local checkouts,
// in priority order.
func catalogSources(cfg *config.Config) []catalog.Source {
	repos := cfg.EnabledRepositories()
	sources := make([]catalog.Source, 0, len(repos))
	for _, repo := range repos {
		sources = append(sources, catalog.Source{Name: repo.Name, Dir: cfg.RepoDir(repo.Name)})
	}
	return sources
}

func newRepositoryManager(cfg *config.Config) *repository.ManagerImpl {
	return repository.NewManager(cfg.Repositories, cfg.ReposDir(), cfg.Settings.SyncConcurrency, nil)
}

func loadDatabase(cfg *config.Config) (*database.ManagerImpl, error) {
	db := database.NewManager(cfg.DatabasePath())
	if err := db.Load(); err != nil {
		return nil, fmt.Errorf("failed to load installed database: %w", err)
	}
	return db, nil
}

func printEvent(e orchestrator.Event) {
	switch e.Phase {
	case "resolving":
		fmt.Printf("Resolving dependencies for %s\n", e.Package)
	case "fetching":
		fmt.Printf("Fetching sources for %s\n", e.Package)
	case "building":
		fmt.Printf("Building %s %s\n", e.Package, e.Msg)
	case "installing":
		fmt.Printf("Installing %s %s\n", e.Package, e.Msg)
	case "removing":
		fmt.Printf("Removing %s %s\n", e.Package, e.Msg)
	case "updating":
		fmt.Printf("Updating %s (%s)\n", e.Package, e.Msg)
	case "done":
		if e.Msg != "" {
			fmt.Printf("%s: %s\n", e.Package, e.Msg)
		}
	}
}

// confirm prints a prompt and reads a yes/no answer from stdin. Anything
// other than an explicit yes declines.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
