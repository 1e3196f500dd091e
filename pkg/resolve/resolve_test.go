package resolve

import (
	"testing"

	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog resolves packages from an in-memory map.
type fakeCatalog map[string]*model.Package

func (c fakeCatalog) Resolve(name string) (*model.Package, error) {
	pkg, ok := c[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrPackageNotFound, "%s", name)
	}
	return pkg, nil
}

// pkg builds a minimal package definition with the given dependencies.
func pkg(name string, deps ...string) *model.Package {
	return &model.Package{
		Name:         name,
		Version:      "1.0.0",
		Source:       "https://example.org/" + name + ".tar.gz",
		Dependencies: deps,
	}
}

// assertDependencyFirst checks that every package appears after all of its
// dependencies.
func assertDependencyFirst(t *testing.T, catalog fakeCatalog, order InstallOrder) {
	t.Helper()
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	for _, name := range order {
		for _, dep := range catalog[name].AllDependencies() {
			assert.Less(t, position[dep], position[name], "%s must precede %s", dep, name)
		}
	}
}

func TestResolve_SingleNode(t *testing.T) {
	catalog := fakeCatalog{"solo": pkg("solo")}

	order, err := New(catalog).Resolve("solo")
	require.NoError(t, err)
	assert.Equal(t, InstallOrder{"solo"}, order)
}

func TestResolve_Chain(t *testing.T) {
	catalog := fakeCatalog{
		"a": pkg("a", "b"),
		"b": pkg("b", "c"),
		"c": pkg("c"),
	}

	order, err := New(catalog).Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, InstallOrder{"c", "b", "a"}, order)
}

func TestResolve_Diamond(t *testing.T) {
	catalog := fakeCatalog{
		"a": pkg("a", "b", "c"),
		"b": pkg("b", "c"),
		"c": pkg("c"),
	}

	order, err := New(catalog).Resolve("a")
	require.NoError(t, err)

	require.Len(t, order, 3, "c must appear exactly once")
	assert.Equal(t, "a", order[len(order)-1])
	assertDependencyFirst(t, catalog, order)
}

func TestResolve_Deterministic(t *testing.T) {
	catalog := fakeCatalog{
		"a": pkg("a", "b", "c", "d"),
		"b": pkg("b"),
		"c": pkg("c"),
		"d": pkg("d"),
	}

	first, err := New(catalog).Resolve("a")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := New(catalog).Resolve("a")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assertDependencyFirst(t, catalog, first)
}

func TestResolve_BuildDependenciesAreEdges(t *testing.T) {
	catalog := fakeCatalog{
		"app": {
			Name:              "app",
			Version:           "1.0.0",
			Source:            "https://example.org/app.tar.gz",
			Dependencies:      []string{"lib"},
			BuildDependencies: []string{"toolchain"},
		},
		"lib":       pkg("lib"),
		"toolchain": pkg("toolchain"),
	}

	order, err := New(catalog).Resolve("app")
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, "app", order[2])
}

func TestResolve_TwoNodeCycle(t *testing.T) {
	catalog := fakeCatalog{
		"a": pkg("a", "b"),
		"b": pkg("b", "a"),
	}

	order, err := New(catalog).Resolve("a")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCircularDependency)
	assert.Nil(t, order, "no partial order on cycle")
}

func TestResolve_SelfCycle(t *testing.T) {
	catalog := fakeCatalog{"a": pkg("a", "a")}

	_, err := New(catalog).Resolve("a")
	assert.ErrorIs(t, err, errors.ErrCircularDependency)
}

func TestResolve_CycleBelowRoot(t *testing.T) {
	// The cycle does not involve the root; detection still has to find it.
	catalog := fakeCatalog{
		"root": pkg("root", "x", "y"),
		"x":    pkg("x"),
		"y":    pkg("y", "z"),
		"z":    pkg("z", "y"),
	}

	_, err := New(catalog).Resolve("root")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCircularDependency)
	assert.Contains(t, err.Error(), "y -> z -> y")
}

func TestResolve_UnknownRoot(t *testing.T) {
	_, err := New(fakeCatalog{}).Resolve("ghost")
	assert.ErrorIs(t, err, errors.ErrPackageNotFound)
}

func TestResolve_UnknownDependency(t *testing.T) {
	catalog := fakeCatalog{"a": pkg("a", "ghost")}

	_, err := New(catalog).Resolve("a")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownDependency)
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, err.Error(), "required by a")
}

func TestResolve_SharedSubtree(t *testing.T) {
	// Larger DAG with several shared dependencies.
	catalog := fakeCatalog{
		"top":   pkg("top", "mid1", "mid2"),
		"mid1":  pkg("mid1", "leaf1", "leaf2"),
		"mid2":  pkg("mid2", "leaf2", "leaf3"),
		"leaf1": pkg("leaf1"),
		"leaf2": pkg("leaf2"),
		"leaf3": pkg("leaf3"),
	}

	order, err := New(catalog).Resolve("top")
	require.NoError(t, err)
	require.Len(t, order, 6)
	assertDependencyFirst(t, catalog, order)
}
