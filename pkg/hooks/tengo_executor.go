// Package hooks runs package lifecycle scripts written in Tengo. A script
// signals failure by assigning a non-empty string or an error to the `err`
// variable.
package hooks

import (
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/model"
)

// TengoExecutor executes Tengo hook scripts.
type TengoExecutor struct {
	scripts map[HookType]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates an executor with no scripts attached.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[HookType]string),
	}
}

// NewExecutorForPackage creates an executor preloaded with the hook
// scripts a package declares.
func NewExecutorForPackage(pkg *model.Package) *TengoExecutor {
	e := NewTengoExecutor()
	for _, hookType := range []HookType{PreInstall, PostInstall, PreRemove, PostRemove} {
		if script, ok := pkg.HookScript(string(hookType)); ok {
			e.AddScript(hookType, script)
		}
	}
	return e
}

// Execute runs the script attached to hookType. Missing scripts are not
// an error.
func (e *TengoExecutor) Execute(hookType HookType, ctx Context) error {
	e.mutex.RLock()
	script, exists := e.scripts[hookType]
	e.mutex.RUnlock()
	if !exists {
		return nil
	}

	instance := tengo.NewScript([]byte(script))
	instance.SetImports(stdlib.GetModuleMap("fmt", "os", "strings", "times"))

	globals := map[string]interface{}{
		"packageName":    ctx.PackageName,
		"packageVersion": ctx.PackageVersion,
		"sourceDir":      ctx.SourceDir,
		"installRoot":    ctx.InstallRoot,
	}
	for k, v := range ctx.Vars {
		globals[k] = v
	}
	for k, v := range globals {
		if err := instance.Add(k, v); err != nil {
			return fmt.Errorf("%s: adding variable %q: %w", hookType, k, err)
		}
	}

	compiled, err := instance.Run()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", hookType, errors.ErrHookExecution, err)
	}

	if errVar := compiled.Get("err"); errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return fmt.Errorf("%s: %w: %w", hookType, errors.ErrHookScript, v)
		case string:
			if v != "" {
				return fmt.Errorf("%s: %w: %s", hookType, errors.ErrHookScript, v)
			}
		}
	}
	return nil
}

// AddScript attaches or replaces the script for hookType.
func (e *TengoExecutor) AddScript(hookType HookType, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[hookType] = script
}

// RemoveScript detaches the script for hookType.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, hookType)
}

// HasScript reports whether a script is attached to hookType.
func (e *TengoExecutor) HasScript(hookType HookType) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[hookType]
	return exists
}
