package build

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/fsutil"
	"github.com/mholt/archives"
)

// extractArchive unpacks a source archive into destDir. When the archive
// wraps everything in a single top-level directory (the usual tarball
// layout), that directory is collapsed so destDir is the source root.
func extractArchive(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return errors.Wrapf(err, "unsupported archive %s", archivePath)
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return err
	}

	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		target := filepath.Join(destDir, filepath.FromSlash(path))
		if d.IsDir() {
			return fsutil.EnsureDir(target)
		}
		return copyArchiveFile(fsys, path, target, d)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to extract %s", archivePath)
	}

	return collapseSingleDir(destDir)
}

func copyArchiveFile(fsys fs.FS, path, target string, d fs.DirEntry) error {
	src, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	info, err := d.Info()
	if err != nil {
		return err
	}
	perm := info.Mode().Perm()
	if perm == 0 {
		perm = fsutil.FileModeDefault
	}

	if err := fsutil.EnsureFileDir(target); err != nil {
		return err
	}
	dst, err := fsutil.CreateFilePerm(target, perm)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	_, err = io.Copy(dst, src)
	return err
}

// collapseSingleDir hoists the contents of a lone top-level directory up
// into dir, the equivalent of tar --strip-components=1.
func collapseSingleDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	inner := filepath.Join(dir, entries[0].Name())
	innerEntries, err := os.ReadDir(inner)
	if err != nil {
		return err
	}
	for _, entry := range innerEntries {
		if err := fsutil.Move(filepath.Join(inner, entry.Name()), filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return os.Remove(inner)
}
