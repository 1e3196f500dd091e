package errors

import "fmt"

// Common error types.
var (
	// Resolution errors.
	ErrPackageNotFound     = fmt.Errorf("package not found")
	ErrUnknownDependency   = fmt.Errorf("unknown dependency")
	ErrCircularDependency  = fmt.Errorf("circular dependency detected")
	ErrPlatformUnsupported = fmt.Errorf("package does not support this platform")

	// Package validation errors.
	ErrInvalidPackage = fmt.Errorf("invalid package definition")
	ErrInvalidVersion = fmt.Errorf("invalid package version")

	// Lifecycle errors.
	ErrConflictDetected = fmt.Errorf("conflicting package installed")
	ErrDependentsExist  = fmt.Errorf("installed packages depend on this package")
	ErrBuildFailed      = fmt.Errorf("build failed")
	ErrInterrupted      = fmt.Errorf("operation interrupted")

	// Database errors.
	ErrDatabase = fmt.Errorf("package database error")

	// Download errors.
	ErrDownloadFailed    = fmt.Errorf("download failed")
	ErrHTTPStatus        = fmt.Errorf("unexpected HTTP status")
	ErrChecksumMismatch  = fmt.Errorf("checksum verification failed")
	ErrUnknownChecksum   = fmt.Errorf("unrecognized checksum format")
	ErrEmptyURL          = fmt.Errorf("url cannot be empty")
	ErrDestinationExists = fmt.Errorf("destination already exists")

	// Repository errors.
	ErrRepositoryNotFound = fmt.Errorf("repository not found")
	ErrRepositorySync     = fmt.Errorf("repository sync failed")

	// Config errors.
	ErrEmptyConfigPath  = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrConfigValidation = fmt.Errorf("invalid configuration")
	ErrConfigEncode     = fmt.Errorf("failed to encode config")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
