// Package fsutil provides filesystem helpers shared by the build,
// database, and lifecycle components.
package fsutil

// File and directory permission constants. These follow standard Unix
// permission conventions and are used consistently throughout the
// application.
const (
	// Default file modes.
	FileModeDefault = 0o644 // -rw-r--r--
	FileModeSecure  = 0o600 // -rw-------: for files containing credentials
	FileModeExec    = 0o755 // -rwxr-xr-x

	// Directory modes.
	DirModeDefault = 0o755 // drwxr-xr-x
	DirModePrivate = 0o700 // drwx------
)
