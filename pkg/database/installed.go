// Package database provides the durable record of installed packages: a
// single flat file, one tab-separated line per package, loaded once per
// process and rewritten wholesale on every mutation.
//
// There is no cross-process locking. Two concurrent tinypkg processes
// mutating the same database file are unsupported; the last writer wins.
package database

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cowmonk/tinypkg/internal/logger"
	"github.com/cowmonk/tinypkg/pkg/errors"
	"github.com/cowmonk/tinypkg/pkg/fsutil"
	"github.com/cowmonk/tinypkg/pkg/model"
)

// Manager defines the interface for the installed-package database.
type Manager interface {
	Load() error
	Find(name string) *model.InstalledPackage
	IsInstalled(name string) bool
	AddOrReplace(pkg *model.InstalledPackage) error
	SetState(name string, state model.InstallState) error
	Remove(name string) error
	All() []*model.InstalledPackage
	Save() error
}

// fieldCount is the number of tab-separated fields per record line.
const fieldCount = 6

// ManagerImpl is the file-backed implementation of Manager. Records are kept
// in file order; AddOrReplace removes any same-name record before appending,
// so at most one record exists per name.
type ManagerImpl struct {
	path    string
	rwMutex sync.RWMutex
	loaded  bool
	records []*model.InstalledPackage
}

// NewManager creates a database manager over the file at path. The file is
// not read until Load is called.
func NewManager(path string) *ManagerImpl {
	return &ManagerImpl{path: path}
}

// Load reads the database file into memory. It is memoized: once the table
// is populated, subsequent calls are no-ops. A missing file yields an empty
// database; malformed lines are skipped with a warning.
func (db *ManagerImpl) Load() error {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	if db.loaded {
		return nil
	}

	file, err := os.Open(db.path)
	if err != nil {
		if os.IsNotExist(err) {
			db.loaded = true
			return nil
		}
		return errors.Wrapf(errors.ErrDatabase, "failed to open %s: %v", db.path, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		record, err := parseRecord(line)
		if err != nil {
			logger.Warnf("Skipping malformed database line %d: %v", lineNo, err)
			continue
		}
		db.records = append(db.records, record)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "failed to read %s: %v", db.path, err)
	}

	db.loaded = true
	return nil
}

// Find returns the record for name, or nil when the package is not installed.
func (db *ManagerImpl) Find(name string) *model.InstalledPackage {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	for _, record := range db.records {
		if record.Name == name {
			return record
		}
	}
	return nil
}

// IsInstalled reports whether a record exists for name.
func (db *ManagerImpl) IsInstalled(name string) bool {
	return db.Find(name) != nil
}

// AddOrReplace inserts a record, replacing any existing record with the same
// name, and persists the table.
func (db *ManagerImpl) AddOrReplace(pkg *model.InstalledPackage) error {
	db.rwMutex.Lock()
	if pkg.InstalledAt.IsZero() {
		pkg.InstalledAt = time.Now()
	}
	for i, existing := range db.records {
		if existing.Name == pkg.Name {
			db.records = append(db.records[:i], db.records[i+1:]...)
			break
		}
	}
	db.records = append(db.records, pkg)
	db.rwMutex.Unlock()

	return db.Save()
}

// SetState updates the lifecycle state of an existing record and persists
// the table.
func (db *ManagerImpl) SetState(name string, state model.InstallState) error {
	db.rwMutex.Lock()
	var found bool
	for _, record := range db.records {
		if record.Name == name {
			record.State = state
			found = true
			break
		}
	}
	db.rwMutex.Unlock()

	if !found {
		return errors.Wrapf(errors.ErrDatabase, "no record for %s", name)
	}
	return db.Save()
}

// Remove deletes the record for name and persists the table. Removing an
// absent record is a no-op.
func (db *ManagerImpl) Remove(name string) error {
	db.rwMutex.Lock()
	var found bool
	for i, record := range db.records {
		if record.Name == name {
			db.records = append(db.records[:i], db.records[i+1:]...)
			found = true
			break
		}
	}
	db.rwMutex.Unlock()

	if !found {
		return nil
	}
	return db.Save()
}

// All returns a copy of every record in file order.
func (db *ManagerImpl) All() []*model.InstalledPackage {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	records := make([]*model.InstalledPackage, len(db.records))
	copy(records, db.records)
	return records
}

// Save writes the whole table to disk atomically: temp file in the target
// directory, sync, close, rename.
func (db *ManagerImpl) Save() (err error) {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	if err := fsutil.EnsureFileDir(db.path); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "failed to create database directory: %v", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(db.path), "tinypkg-db-*.tmp")
	if err != nil {
		return errors.Wrapf(errors.ErrDatabase, "failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	writer := bufio.NewWriter(tmpFile)
	fmt.Fprintln(writer, "# tinypkg installed package database")
	fmt.Fprintln(writer, "# name\tversion\tdescription\tinstall_time\tinstalled_size\tstate")
	for _, record := range db.records {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%d\n",
			record.Name,
			record.Version,
			sanitizeField(record.Description),
			record.InstalledAt.Unix(),
			record.InstalledSize,
			int(record.State),
		)
	}
	if err := writer.Flush(); err != nil {
		_ = tmpFile.Close()
		return errors.Wrapf(errors.ErrDatabase, "failed to write database: %v", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return errors.Wrapf(errors.ErrDatabase, "failed to sync database: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "failed to close database: %v", err)
	}

	if err := os.Rename(tmpPath, db.path); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "failed to replace %s: %v", db.path, err)
	}
	return nil
}

// parseRecord parses one tab-separated database line.
func parseRecord(line string) (*model.InstalledPackage, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != fieldCount {
		return nil, fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}
	if fields[0] == "" {
		return nil, fmt.Errorf("empty package name")
	}

	installTime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad install_time %q: %w", fields[3], err)
	}
	size, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad installed_size %q: %w", fields[4], err)
	}
	rawState, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("bad state %q: %w", fields[5], err)
	}
	state, err := model.ParseInstallState(rawState)
	if err != nil {
		return nil, err
	}

	return &model.InstalledPackage{
		Name:          fields[0],
		Version:       fields[1],
		Description:   fields[2],
		InstalledAt:   time.Unix(installTime, 0),
		InstalledSize: size,
		State:         state,
	}, nil
}

// sanitizeField keeps descriptions from breaking the line-oriented format.
func sanitizeField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
