// Package config provides configuration management for tinypkg. It handles
// loading, validating, and saving the YAML configuration file that declares
// package repositories and general settings, and provides sensible defaults
// for everything the file leaves out.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Repository configuration
	Repositories []*RepositoryConfig `yaml:"repositories"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// RepositoryConfig represents a single package repository.
type RepositoryConfig struct {
	Name     string      `yaml:"name"`
	URL      string      `yaml:"url"`
	Branch   string      `yaml:"branch,omitempty"`
	Enabled  bool        `yaml:"enabled"`
	Priority uint        `yaml:"priority"`
	Auth     *AuthConfig `yaml:"auth,omitempty"`
}

// ParsedURL returns the repository URL parsed, or nil when it does not parse.
func (r *RepositoryConfig) ParsedURL() *url.URL {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil
	}
	return u
}

// Settings represents general application settings.
type Settings struct {
	// Installation settings
	RootDir       string `yaml:"root_dir,omitempty"`
	InstallPrefix string `yaml:"install_prefix,omitempty"`
	DatabasePath  string `yaml:"database_path,omitempty"`

	// Build settings
	CacheDir     string `yaml:"cache_dir,omitempty"`
	BuildDir     string `yaml:"build_dir,omitempty"`
	ParallelJobs int    `yaml:"parallel_jobs"`
	KeepBuildDir bool   `yaml:"keep_build_dir"`

	// Security settings
	VerifyChecksums bool `yaml:"verify_checksums"`

	// Network settings
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	SyncConcurrency int           `yaml:"sync_concurrency"`

	// Output settings
	LogLevel string `yaml:"log_level"` // error, warn, info, debug
}

// Default configuration values.
const (
	// DefaultRootDir is the default installation root.
	DefaultRootDir = "/"

	// DefaultInstallPrefix is the default prefix passed to build systems.
	DefaultInstallPrefix = "/usr/local"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultSyncConcurrency is the default number of concurrent repository syncs.
	DefaultSyncConcurrency = 4

	// DefaultBranch is the git branch synced when a repository declares none.
	DefaultBranch = "main"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.DefaultCacheDir()
	if err != nil {
		// Fallback to a temp directory if the user cache dir is unknown.
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName)
	}

	return &Config{
		Repositories: []*RepositoryConfig{},
		Settings: Settings{
			RootDir:         DefaultRootDir,
			InstallPrefix:   DefaultInstallPrefix,
			CacheDir:        cacheDir,
			BuildDir:        filepath.Join(cacheDir, "build"),
			ParallelJobs:    0, // 0 = runtime.NumCPU() at build time
			VerifyChecksums: true,
			HTTPTimeout:     DefaultHTTPTimeout,
			SyncConcurrency: DefaultSyncConcurrency,
			LogLevel:        "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration, not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config path %s", path)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves configuration to a file atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "invalid config path %s", path)
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(err, "failed to create temp config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to replace config file")
	}

	// The config may carry repository credentials.
	if err := os.Chmod(absPath, fsutil.FileModeSecure); err != nil {
		return errors.Wrap(err, "failed to set config file permissions")
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateRepositories(c.Repositories); err != nil {
		return err
	}
	if err := validateSettings(c.Settings); err != nil {
		return err
	}
	return nil
}

func validateRepositories(repos []*RepositoryConfig) error {
	repoNames := make(map[string]bool)
	for i, repo := range repos {
		if repo.Name == "" {
			return errors.Wrapf(errors.ErrConfigValidation, "repository %d has no name", i)
		}
		if repo.URL == "" {
			return errors.Wrapf(errors.ErrConfigValidation, "repository %s has no URL", repo.Name)
		}
		if _, err := url.Parse(repo.URL); err != nil {
			return errors.Wrapf(errors.ErrConfigValidation, "repository %s has invalid URL %s", repo.Name, repo.URL)
		}
		if repoNames[repo.Name] {
			return errors.Wrapf(errors.ErrConfigValidation, "duplicate repository name %s", repo.Name)
		}
		repoNames[repo.Name] = true
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return errors.Wrap(errors.ErrConfigValidation, "http_timeout cannot be negative")
	}
	if s.ParallelJobs < 0 {
		return errors.Wrap(errors.ErrConfigValidation, "parallel_jobs cannot be negative")
	}
	if s.SyncConcurrency < 1 {
		return errors.Wrap(errors.ErrConfigValidation, "sync_concurrency must be at least 1")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.Wrapf(errors.ErrConfigValidation, "invalid log level %q", s.LogLevel)
	}
	return nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.RootDir == "" {
		c.Settings.RootDir = defaults.Settings.RootDir
	}
	if c.Settings.InstallPrefix == "" {
		c.Settings.InstallPrefix = defaults.Settings.InstallPrefix
	}
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.BuildDir == "" {
		c.Settings.BuildDir = filepath.Join(c.Settings.CacheDir, "build")
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.SyncConcurrency == 0 {
		c.Settings.SyncConcurrency = defaults.Settings.SyncConcurrency
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}

	for _, repo := range c.Repositories {
		if repo.Branch == "" {
			repo.Branch = DefaultBranch
		}
	}
}

// DatabasePath returns the path of the installed-package database file.
func (c *Config) DatabasePath() string {
	if c.Settings.DatabasePath != "" {
		return c.Settings.DatabasePath
	}
	return filepath.Join(c.Settings.RootDir, "var", "lib", fsutil.AppName, "installed.db")
}

// BuildDir returns the directory package build trees are created under.
func (c *Config) BuildDir() string {
	return c.Settings.BuildDir
}

// SourceCacheDir returns the directory downloaded source archives are kept in.
func (c *Config) SourceCacheDir() string {
	return filepath.Join(c.Settings.CacheDir, "sources")
}

// ReposDir returns the directory repository checkouts live under.
func (c *Config) ReposDir() string {
	return filepath.Join(c.Settings.CacheDir, "repos")
}

// RepoDir returns the checkout directory of a named repository.
func (c *Config) RepoDir(name string) string {
	return filepath.Join(c.ReposDir(), name)
}

// BackupDir returns the directory configuration files are backed up to
// during updates.
func (c *Config) BackupDir() string {
	return filepath.Join(c.Settings.CacheDir, "backup")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	path, err := fsutil.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return path, nil
}

// AddRepository adds a repository to the configuration. Returns an error if
// a repository with the same name already exists.
func (c *Config) AddRepository(name, url string, enabled bool) error {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return errors.Wrapf(errors.ErrConfigValidation, "repository %s already exists", name)
		}
	}

	c.Repositories = append(c.Repositories, &RepositoryConfig{
		Name:     name,
		URL:      url,
		Branch:   DefaultBranch,
		Enabled:  enabled,
		Priority: 0,
	})

	return nil
}

// RemoveRepository removes a repository from the configuration.
func (c *Config) RemoveRepository(name string) bool {
	for i, repo := range c.Repositories {
		if repo.Name == name {
			c.Repositories = append(c.Repositories[:i], c.Repositories[i+1:]...)
			return true
		}
	}
	return false
}

// GetRepository gets a repository configuration by name.
func (c *Config) GetRepository(name string) *RepositoryConfig {
	for i, repo := range c.Repositories {
		if repo.Name == name {
			return c.Repositories[i]
		}
	}
	return nil
}

// EnableRepository enables or disables a repository.
func (c *Config) EnableRepository(name string, enabled bool) bool {
	for i, repo := range c.Repositories {
		if repo.Name == name {
			c.Repositories[i].Enabled = enabled
			return true
		}
	}
	return false
}

// EnabledRepositories returns the enabled repositories ordered by priority
// (lower values first), ties broken by configuration order.
func (c *Config) EnabledRepositories() []*RepositoryConfig {
	enabled := make([]*RepositoryConfig, 0, len(c.Repositories))
	for _, repo := range c.Repositories {
		if repo.Enabled {
			enabled = append(enabled, repo)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})
	return enabled
}
