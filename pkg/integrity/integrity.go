// Package integrity verifies downloaded source archives against the
// checksums declared in package definitions.
package integrity

import (
	"crypto/md5"  //nolint:gosec // legacy package definitions still declare md5 sums
	"crypto/sha1" //nolint:gosec // legacy package definitions still declare sha1 sums
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cowmonk/tinypkg/pkg/errors"
)

// Algorithm is a supported checksum algorithm.
type Algorithm string

// Supported algorithms.
const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

// hex digest lengths per algorithm
const (
	md5HexLen    = 32
	sha1HexLen   = 40
	sha256HexLen = 64
)

// DetectAlgorithm infers the checksum algorithm from the length of the hex
// digest. Package definitions carry bare digests with no algorithm prefix.
func DetectAlgorithm(checksum string) (Algorithm, error) {
	checksum = strings.TrimSpace(checksum)
	if !isHex(checksum) {
		return "", errors.Wrapf(errors.ErrUnknownChecksum, "checksum %q is not a hex digest", checksum)
	}
	switch len(checksum) {
	case md5HexLen:
		return MD5, nil
	case sha1HexLen:
		return SHA1, nil
	case sha256HexLen:
		return SHA256, nil
	default:
		return "", errors.Wrapf(errors.ErrUnknownChecksum, "no algorithm with %d-character digests", len(checksum))
	}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func newHasher(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case MD5:
		return md5.New(), nil //nolint:gosec
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, errors.Wrapf(errors.ErrUnknownChecksum, "unsupported algorithm %q", algo)
	}
}

// HashFile computes the hex digest of the file at path using the given
// algorithm.
func HashFile(path string, algo Algorithm) (string, error) {
	hasher, err := newHasher(algo)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify checks the file at path against the expected checksum, detecting
// the algorithm from the digest length. An empty checksum is accepted
// without reading the file; callers decide whether to warn about it.
func Verify(path, checksum string) error {
	checksum = strings.TrimSpace(checksum)
	if checksum == "" {
		return nil
	}

	algo, err := DetectAlgorithm(checksum)
	if err != nil {
		return err
	}

	actual, err := HashFile(path, algo)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, checksum) {
		return errors.Wrapf(errors.ErrChecksumMismatch, "%s: expected %s %s, got %s", path, algo, checksum, actual)
	}
	return nil
}
