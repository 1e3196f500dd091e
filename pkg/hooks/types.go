package hooks

// HookType identifies a lifecycle point a package can attach a script to.
type HookType string

// Supported hook types.
const (
	PreInstall  HookType = "pre-install"
	PostInstall HookType = "post-install"
	PreRemove   HookType = "pre-remove"
	PostRemove  HookType = "post-remove"
)

// Context carries the package information exposed to a hook script.
type Context struct {
	PackageName    string
	PackageVersion string
	SourceDir      string
	InstallRoot    string
	Vars           map[string]interface{}
}

// Executor runs hook scripts for the lifecycle points of one package.
type Executor interface {
	// Execute runs the script attached to hookType, if any.
	Execute(hookType HookType, ctx Context) error

	// HasScript reports whether a script is attached to hookType.
	HasScript(hookType HookType) bool
}
