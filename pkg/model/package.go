// Package model provides the data structures shared across tinypkg:
// package definitions, installed-package records, and lifecycle states.
package model

import (
	"net/url"

	"github.com/cowmonk/tinypkg/pkg/platform"
	version "github.com/hashicorp/go-version"
)

// Build system kinds a package definition may declare. An empty
// BuildSystem means the builder autodetects from the source tree.
const (
	BuildSystemCMake     = "cmake"
	BuildSystemAutotools = "autotools"
	BuildSystemMake      = "make"
)

// Package is an immutable snapshot of one package definition as loaded from
// a repository catalog. It is never mutated after load; every resolve or
// lifecycle call works on its own copy.
type Package struct {
	Name              string              `json:"name"`
	Version           string              `json:"version"`
	Description       string              `json:"description,omitempty"`
	Source            string              `json:"source"`
	Checksum          string              `json:"checksum,omitempty"`
	BuildSystem       string              `json:"build_system,omitempty"`
	Dependencies      []string            `json:"dependencies,omitempty"`
	BuildDependencies []string            `json:"build_dependencies,omitempty"`
	Conflicts         []string            `json:"conflicts,omitempty"`
	Provides          []string            `json:"provides,omitempty"`
	Files             []string            `json:"files,omitempty"`
	ConfigFiles       []string            `json:"config_files,omitempty"`
	Platforms         []platform.Platform `json:"platforms,omitempty"`
	Hooks             map[string]string   `json:"hooks,omitempty"`
}

// GetVersion returns the parsed version of this package, or nil if the
// version string does not parse.
func (p *Package) GetVersion() *version.Version {
	v, err := version.NewVersion(p.Version)
	if err != nil {
		return nil
	}
	return v
}

// GetSourceURL returns the parsed source locator, or nil if it does not
// parse as a URL.
func (p *Package) GetSourceURL() *url.URL {
	u, err := url.Parse(p.Source)
	if err != nil {
		return nil
	}
	return u
}

// SupportsPlatform reports whether the package can be built for the given
// platform. An empty Platforms list matches everything.
func (p *Package) SupportsPlatform(target platform.Platform) bool {
	if len(p.Platforms) == 0 {
		return true
	}
	for _, pl := range p.Platforms {
		if pl.Matches(target) {
			return true
		}
	}
	return false
}

// AllDependencies returns runtime dependencies followed by build
// dependencies, with duplicates removed. This is the edge list the
// dependency resolver walks: a source build needs both kinds present.
func (p *Package) AllDependencies() []string {
	seen := make(map[string]struct{}, len(p.Dependencies)+len(p.BuildDependencies))
	deps := make([]string, 0, len(p.Dependencies)+len(p.BuildDependencies))
	for _, lists := range [][]string{p.Dependencies, p.BuildDependencies} {
		for _, name := range lists {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			deps = append(deps, name)
		}
	}
	return deps
}

// DependsOn reports whether name appears in either dependency list.
func (p *Package) DependsOn(name string) bool {
	for _, dep := range p.Dependencies {
		if dep == name {
			return true
		}
	}
	for _, dep := range p.BuildDependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// HookScript returns the hook script declared for the given hook type, if any.
func (p *Package) HookScript(hookType string) (string, bool) {
	if p.Hooks == nil {
		return "", false
	}
	script, ok := p.Hooks[hookType]
	return script, ok
}
