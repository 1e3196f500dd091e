package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowmonk/tinypkg/pkg/errors"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectAlgorithm(t *testing.T) {
	tests := []struct {
		name     string
		checksum string
		want     Algorithm
		wantErr  bool
	}{
		{"md5", strings.Repeat("ab", 16), MD5, false},
		{"sha1", strings.Repeat("ab", 20), SHA1, false},
		{"sha256", strings.Repeat("ab", 32), SHA256, false},
		{"uppercase hex", strings.Repeat("AB", 32), SHA256, false},
		{"odd length", strings.Repeat("a", 33), "", true},
		{"not hex", strings.Repeat("zz", 16), "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectAlgorithm(tt.checksum)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrUnknownChecksum)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashFile(t *testing.T) {
	path := writeTempFile(t, "hello world\n")

	sum := sha256.Sum256([]byte("hello world\n"))
	want := hex.EncodeToString(sum[:])

	got, err := HashFile(path, SHA256)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "missing"), SHA256)
	assert.Error(t, err)
}

func TestHashFileUnsupportedAlgorithm(t *testing.T) {
	path := writeTempFile(t, "data")
	_, err := HashFile(path, Algorithm("crc32"))
	assert.ErrorIs(t, err, errors.ErrUnknownChecksum)
}

func TestVerify(t *testing.T) {
	content := "release tarball contents"
	path := writeTempFile(t, content)

	sum := sha256.Sum256([]byte(content))
	good := hex.EncodeToString(sum[:])

	assert.NoError(t, Verify(path, good))
	assert.NoError(t, Verify(path, strings.ToUpper(good)))
	assert.NoError(t, Verify(path, "  "+good+"  "))

	bad := strings.Repeat("0", 64)
	err := Verify(path, bad)
	require.ErrorIs(t, err, errors.ErrChecksumMismatch)
	assert.Contains(t, err.Error(), "sha256")
}

func TestVerifyEmptyChecksumIsAccepted(t *testing.T) {
	path := writeTempFile(t, "unverified upstream")
	assert.NoError(t, Verify(path, ""))
	assert.NoError(t, Verify(path, "   "))
}
