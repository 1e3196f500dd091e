// Package catalog resolves package names to their definitions. Definitions
// are JSON files inside synced repository checkouts, consulted in repository
// priority order; the first repository that knows a name wins.
package catalog

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cowmonk/tinypkg/internal/logger"
	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/model"
	"github.com/cowmonk/tinypkg/pkg/platform"
	version "github.com/hashicorp/go-version"
)

// Source is one repository checkout the catalog reads definitions from.
// Sources are consulted in slice order; callers pass them pre-sorted by
// priority.
type Source struct {
	Name string
	Dir  string
}

// ManagerImpl implements Manager over a list of repository checkouts.
type ManagerImpl struct {
	sources  []Source
	platform platform.Platform
}

// NewManager creates a catalog over the given sources, filtering definitions
// against the current platform.
func NewManager(sources []Source) *ManagerImpl {
	return &ManagerImpl{
		sources:  sources,
		platform: platform.CurrentPlatform(),
	}
}

// Lookup returns the definition for the exactly named package.
func (m *ManagerImpl) Lookup(name string) (*model.Package, error) {
	for _, src := range m.sources {
		path, ok := m.definitionPath(src, name)
		if !ok {
			continue
		}
		pkg, err := parseDefinitionFile(path)
		if err != nil {
			return nil, err
		}
		if !pkg.SupportsPlatform(m.platform) {
			return nil, errors.Wrapf(errors.ErrPlatformUnsupported, "%s does not support %s", name, m.platform)
		}
		return pkg, nil
	}
	return nil, errors.Wrapf(errors.ErrPackageNotFound, "%s", name)
}

// Resolve looks up name, falling back to the first definition that declares
// the name in its Provides list.
func (m *ManagerImpl) Resolve(name string) (*model.Package, error) {
	pkg, err := m.Lookup(name)
	if err == nil || !stderrors.Is(err, errors.ErrPackageNotFound) {
		return pkg, err
	}

	for _, candidate := range m.All() {
		for _, capability := range candidate.Provides {
			if capability == name {
				logger.Debugf("Resolved %s via provider %s", name, candidate.Name)
				return candidate, nil
			}
		}
	}
	return nil, errors.Wrapf(errors.ErrPackageNotFound, "%s", name)
}

// Search returns definitions whose name or description contains the term.
func (m *ManagerImpl) Search(term string) []*model.Package {
	term = strings.ToLower(term)
	var matches []*model.Package
	for _, pkg := range m.All() {
		if strings.Contains(strings.ToLower(pkg.Name), term) ||
			strings.Contains(strings.ToLower(pkg.Description), term) {
			matches = append(matches, pkg)
		}
	}
	return matches
}

// All returns every resolvable definition across all sources, deduplicated
// so that higher-priority repositories shadow lower ones, sorted by name.
func (m *ManagerImpl) All() []*model.Package {
	seen := make(map[string]struct{})
	var packages []*model.Package
	for _, src := range m.sources {
		for _, path := range m.listDefinitions(src) {
			name := strings.TrimSuffix(filepath.Base(path), ".json")
			if _, ok := seen[name]; ok {
				continue
			}
			pkg, err := parseDefinitionFile(path)
			if err != nil {
				logger.WarnfWithFields(logger.Fields{"repo": src.Name}, "Skipping definition %s: %v", path, err)
				continue
			}
			if !pkg.SupportsPlatform(m.platform) {
				continue
			}
			seen[name] = struct{}{}
			packages = append(packages, pkg)
		}
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })
	return packages
}

// definitionPath locates the definition file for name inside one source.
// The canonical location is <dir>/packages/<name>.json with <dir>/<name>.json
// kept as a fallback for flat repositories.
func (m *ManagerImpl) definitionPath(src Source, name string) (string, bool) {
	for _, candidate := range []string{
		filepath.Join(src.Dir, "packages", name+".json"),
		filepath.Join(src.Dir, name+".json"),
	} {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

func (m *ManagerImpl) listDefinitions(src Source) []string {
	var paths []string
	for _, dir := range []string{filepath.Join(src.Dir, "packages"), src.Dir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), ".json") {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
		// A repository with a packages/ directory is canonical; do not
		// also pick up stray JSON at its root.
		if len(paths) > 0 {
			break
		}
	}
	return paths
}

// parseDefinitionFile reads and validates one package definition. Validation
// happens here, at the boundary, so everything downstream can trust the
// loaded Package.
func parseDefinitionFile(path string) (*model.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read definition %s", path)
	}

	var pkg model.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidPackage, "%s: %v", path, err)
	}

	if err := validateDefinition(&pkg); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	pkg.Dependencies = dedupe(pkg.Dependencies)
	pkg.BuildDependencies = dedupe(pkg.BuildDependencies)
	pkg.Conflicts = dedupe(pkg.Conflicts)
	pkg.Provides = dedupe(pkg.Provides)
	return &pkg, nil
}

func validateDefinition(pkg *model.Package) error {
	switch {
	case pkg.Name == "":
		return errors.Wrap(errors.ErrInvalidPackage, "missing required field name")
	case pkg.Version == "":
		return errors.Wrapf(errors.ErrInvalidPackage, "package %s: missing required field version", pkg.Name)
	case pkg.Source == "":
		return errors.Wrapf(errors.ErrInvalidPackage, "package %s: missing required field source", pkg.Name)
	}
	if _, err := version.NewVersion(pkg.Version); err != nil {
		return errors.Wrapf(errors.ErrInvalidVersion, "package %s: %q", pkg.Name, pkg.Version)
	}
	switch pkg.BuildSystem {
	case "", model.BuildSystemCMake, model.BuildSystemAutotools, model.BuildSystemMake:
	default:
		return errors.Wrapf(errors.ErrInvalidPackage, "package %s: unknown build system %q", pkg.Name, pkg.BuildSystem)
	}
	return nil
}

// dedupe removes duplicate names preserving first-seen order.
func dedupe(names []string) []string {
	if len(names) < 2 {
		return names
	}
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
