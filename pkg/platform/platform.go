package platform

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Platform represents a target platform with OS and Architecture.
// Both OS and Arch can be "any" to match any platform
// or a specific value like "linux" or "amd64".
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// CurrentPlatform returns the platform tinypkg is running on.
func CurrentPlatform() Platform {
	return Platform{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// Matches checks if this platform matches the target platform.
// "any" (or an empty value) is a wildcard that matches any value.
func (p Platform) Matches(target Platform) bool {
	return wildcardEqual(p.OS, target.OS) && wildcardEqual(p.Arch, target.Arch)
}

func wildcardEqual(a, b string) bool {
	return a == "" || b == "" || a == "any" || b == "any" || a == b
}

// String returns a string representation of the platform.
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// Validate checks that the platform names one of the supported OS and
// architecture values, allowing wildcards and empty values.
func (p Platform) Validate() error {
	if p.OS != "" && p.OS != AnyOS && !slices.Contains(ValidOS(), NormalizeOS(p.OS)) {
		return fmt.Errorf("unsupported os %q", p.OS)
	}
	if p.Arch != "" && p.Arch != AnyArch && !slices.Contains(ValidArch(), NormalizeArch(p.Arch)) {
		return fmt.Errorf("unsupported arch %q", p.Arch)
	}
	return nil
}

// NormalizeOS normalizes OS names to a common format.
func NormalizeOS(os string) string {
	os = strings.ToLower(os)
	switch os {
	case "macos", "osx":
		return OSDarwin
	default:
		return os
	}
}

// NormalizeArch normalizes architecture names to a common format.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(arch)
	switch arch {
	case "x86_64", "x64":
		return ArchAMD64
	case "x86", "i386", "i686":
		return Arch386
	case "aarch64":
		return ArchARM64
	default:
		return arch
	}
}
