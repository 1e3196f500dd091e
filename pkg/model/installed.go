package model

import (
	"fmt"
	"time"

	version "github.com/hashicorp/go-version"
)

// InstallState is the lifecycle state of a package as recorded in the
// package database. The integer values are part of the on-disk format and
// must not be reordered.
type InstallState int

// Lifecycle states.
const (
	StateRequested InstallState = iota
	StateResolvingDeps
	StateBuilding
	StateInstalling
	StateInstalled
	StateFailed
)

var stateNames = map[InstallState]string{
	StateRequested:     "requested",
	StateResolvingDeps: "resolving-deps",
	StateBuilding:      "building",
	StateInstalling:    "installing",
	StateInstalled:     "installed",
	StateFailed:        "failed",
}

// String returns the human-readable name of the state.
func (s InstallState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Terminal reports whether the state is one of the two terminal states.
func (s InstallState) Terminal() bool {
	return s == StateInstalled || s == StateFailed
}

// ParseInstallState converts a raw database value into an InstallState,
// rejecting values outside the known range.
func ParseInstallState(v int) (InstallState, error) {
	s := InstallState(v)
	if _, ok := stateNames[s]; !ok {
		return 0, fmt.Errorf("invalid install state %d", v)
	}
	return s, nil
}

// InstalledPackage is one row of the package database: the durable record
// of an installed package. A record exists if and only if the package is
// considered installed; there is at most one record per name.
type InstalledPackage struct {
	Name          string
	Version       string
	Description   string
	InstalledAt   time.Time
	InstalledSize int64
	State         InstallState
}

// IsInstalled reports whether the record is in the installed terminal state.
func (p *InstalledPackage) IsInstalled() bool {
	return p.State == StateInstalled
}

// GetVersion returns the parsed installed version, or nil if it does not parse.
func (p *InstalledPackage) GetVersion() *version.Version {
	v, err := version.NewVersion(p.Version)
	if err != nil {
		return nil
	}
	return v
}
