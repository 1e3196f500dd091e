package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentPlatform(t *testing.T) {
	p := CurrentPlatform()

	assert.NotEmpty(t, p.OS)
	assert.NotEmpty(t, p.Arch)
	assert.Equal(t, NormalizeOS(runtime.GOOS), p.OS)
	assert.Equal(t, NormalizeArch(runtime.GOARCH), p.Arch)
}

func TestPlatformMatches(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		target   Platform
		expected bool
	}{
		{
			name:     "exact match",
			platform: Platform{OS: OSLinux, Arch: ArchAMD64},
			target:   Platform{OS: OSLinux, Arch: ArchAMD64},
			expected: true,
		},
		{
			name:     "any OS matches",
			platform: Platform{OS: AnyOS, Arch: ArchAMD64},
			target:   Platform{OS: OSDarwin, Arch: ArchAMD64},
			expected: true,
		},
		{
			name:     "any arch matches",
			platform: Platform{OS: OSLinux, Arch: AnyArch},
			target:   Platform{OS: OSLinux, Arch: ArchARM64},
			expected: true,
		},
		{
			name:     "empty values are wildcards",
			platform: Platform{},
			target:   Platform{OS: OSLinux, Arch: ArchAMD64},
			expected: true,
		},
		{
			name:     "OS mismatch",
			platform: Platform{OS: OSDarwin, Arch: ArchAMD64},
			target:   Platform{OS: OSLinux, Arch: ArchAMD64},
			expected: false,
		},
		{
			name:     "arch mismatch",
			platform: Platform{OS: OSLinux, Arch: Arch386},
			target:   Platform{OS: OSLinux, Arch: ArchAMD64},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.platform.Matches(tt.target))
		})
	}
}

func TestPlatformString(t *testing.T) {
	p := Platform{OS: OSLinux, Arch: ArchAMD64}
	assert.Equal(t, "linux/amd64", p.String())
}

func TestPlatformValidate(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		wantErr  bool
	}{
		{"valid", Platform{OS: OSLinux, Arch: ArchAMD64}, false},
		{"wildcards", Platform{OS: AnyOS, Arch: AnyArch}, false},
		{"empty", Platform{}, false},
		{"aliases normalize", Platform{OS: "macos", Arch: "x86_64"}, false},
		{"bad OS", Platform{OS: "plan10", Arch: ArchAMD64}, true},
		{"bad arch", Platform{OS: OSLinux, Arch: "vax"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.platform.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeOS(t *testing.T) {
	assert.Equal(t, OSDarwin, NormalizeOS("macOS"))
	assert.Equal(t, OSDarwin, NormalizeOS("osx"))
	assert.Equal(t, OSLinux, NormalizeOS("Linux"))
	assert.Equal(t, "plan9", NormalizeOS("plan9"))
}

func TestNormalizeArch(t *testing.T) {
	assert.Equal(t, ArchAMD64, NormalizeArch("x86_64"))
	assert.Equal(t, ArchAMD64, NormalizeArch("X64"))
	assert.Equal(t, Arch386, NormalizeArch("i686"))
	assert.Equal(t, ArchARM64, NormalizeArch("aarch64"))
	assert.Equal(t, ArchARM, NormalizeArch("arm"))
}
