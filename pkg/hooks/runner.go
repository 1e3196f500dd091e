package hooks

import "github.com/cowmonk/tinypkg/pkg/model"

// ScriptRunner executes the hook a package declares for one lifecycle
// point. It builds a fresh executor per call so packages never see each
// other's scripts.
type ScriptRunner struct{}

// Run executes pkg's script for hookType, if it declares one.
func (ScriptRunner) Run(hookType HookType, pkg *model.Package, ctx Context) error {
	return NewExecutorForPackage(pkg).Execute(hookType, ctx)
}
