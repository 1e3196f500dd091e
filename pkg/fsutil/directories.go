package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnsureDir creates a directory and all necessary parents with default
// permissions if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't
// exist.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// DirSize returns the total size in bytes of all regular files under root.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// SortByDepth orders paths deepest-first so files can be removed before
// the directories that contain them.
func SortByDepth(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		di := strings.Count(filepath.Clean(paths[i]), string(filepath.Separator))
		dj := strings.Count(filepath.Clean(paths[j]), string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return paths[i] > paths[j]
	})
}

// PruneEmptyDirs removes the given directories when they are empty,
// deepest-first, never ascending above root. Non-empty directories are
// left alone.
func PruneEmptyDirs(root string, dirs []string) {
	root = filepath.Clean(root)
	sorted := make([]string, 0, len(dirs))
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		for dir != root && strings.HasPrefix(dir, root+string(filepath.Separator)) {
			if _, ok := seen[dir]; !ok {
				seen[dir] = struct{}{}
				sorted = append(sorted, dir)
			}
			dir = filepath.Dir(dir)
		}
	}
	SortByDepth(sorted)
	for _, dir := range sorted {
		// os.Remove fails on non-empty directories, which is exactly
		// the check needed here.
		_ = os.Remove(dir)
	}
}
