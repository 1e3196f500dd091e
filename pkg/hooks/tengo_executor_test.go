package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/model"
)

func TestExecuteMissingScriptIsNoop(t *testing.T) {
	e := NewTengoExecutor()
	require.NoError(t, e.Execute(PreInstall, Context{}))
}

func TestExecuteExposesPackageGlobals(t *testing.T) {
	e := NewTengoExecutor()
	e.AddScript(PostInstall, `
err := ""
if packageName != "hello" {
	err = "wrong name: " + packageName
}
if packageVersion != "1.2.0" {
	err = "wrong version"
}
if installRoot == "" {
	err = "missing install root"
}
`)

	require.NoError(t, e.Execute(PostInstall, Context{
		PackageName:    "hello",
		PackageVersion: "1.2.0",
		SourceDir:      "/tmp/src",
		InstallRoot:    "/",
	}))
}

func TestExecuteCustomVars(t *testing.T) {
	e := NewTengoExecutor()
	e.AddScript(PreRemove, `
err := ""
if force != true {
	err = "expected force"
}
`)

	require.NoError(t, e.Execute(PreRemove, Context{
		Vars: map[string]interface{}{"force": true},
	}))
}

func TestExecuteScriptErrString(t *testing.T) {
	e := NewTengoExecutor()
	e.AddScript(PreInstall, `err := "disk is full"`)

	err := e.Execute(PreInstall, Context{})
	require.ErrorIs(t, err, errors.ErrHookScript)
	assert.Contains(t, err.Error(), "disk is full")
}

func TestExecuteCompileFailure(t *testing.T) {
	e := NewTengoExecutor()
	e.AddScript(PreInstall, `if {`)

	err := e.Execute(PreInstall, Context{})
	require.ErrorIs(t, err, errors.ErrHookExecution)
}

func TestExecuteStdlibImports(t *testing.T) {
	e := NewTengoExecutor()
	e.AddScript(PostRemove, `
strings := import("strings")
err := ""
if !strings.has_prefix(packageName, "he") {
	err = "prefix check failed"
}
`)

	require.NoError(t, e.Execute(PostRemove, Context{PackageName: "hello"}))
}

func TestNewExecutorForPackage(t *testing.T) {
	pkg := &model.Package{
		Name:    "hello",
		Version: "1.0",
		Hooks: map[string]string{
			"pre-install": `err := ""`,
			"post-remove": `err := ""`,
		},
	}

	e := NewExecutorForPackage(pkg)
	assert.True(t, e.HasScript(PreInstall))
	assert.True(t, e.HasScript(PostRemove))
	assert.False(t, e.HasScript(PostInstall))
	assert.False(t, e.HasScript(PreRemove))
}

func TestAddRemoveScript(t *testing.T) {
	e := NewTengoExecutor()
	e.AddScript(PreInstall, `err := ""`)
	require.True(t, e.HasScript(PreInstall))

	e.RemoveScript(PreInstall)
	assert.False(t, e.HasScript(PreInstall))
}
