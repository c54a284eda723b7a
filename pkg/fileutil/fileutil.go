// Package fileutil provides file helpers with tmp+mv write semantics, so an
// interrupted unpack or pack never leaves a half-written output behind.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TmpSuffix is appended to files while they are being written.
const TmpSuffix = ".tmp"

// Exists returns true if the file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsNonEmpty returns true if the file exists and has non-zero size.
func IsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// WriteTmpThenMove writes to a temporary file then atomically moves it to the final path.
// The writeFunc receives the temporary path and should write the complete file.
// On success, the file is moved to outPath atomically.
func WriteTmpThenMove(tmpDir, outPath string, writeFunc func(tmpPath string) error) error {
	if tmpDir == "" {
		tmpDir = filepath.Dir(outPath)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("create tmp dir: %w", err)
	}

	tmpPath := filepath.Join(tmpDir, filepath.Base(outPath)+TmpSuffix)

	if err := writeFunc(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := syncFile(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}

	return nil
}

// WriteFile writes data to outPath through a temporary file in tmpDir.
func WriteFile(tmpDir, outPath string, data []byte) error {
	return WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(outPath), err)
		}
		return nil
	})
}

// syncFile opens, syncs, and closes a file.
func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	err = f.Sync()
	f.Close()
	return err
}

// RemoveTmpFiles removes the leftover temporary files of the named outputs
// directly under dir. Other files, including unrelated .tmp files and
// anything in subdirectories, are left alone. It returns how many files
// were removed.
func RemoveTmpFiles(dir string, names ...string) (int, error) {
	var removed int
	for _, name := range names {
		if name != filepath.Base(name) {
			return removed, fmt.Errorf("tmp file name %q is not a plain file name", name)
		}
		err := os.Remove(filepath.Join(dir, name+TmpSuffix))
		switch {
		case err == nil:
			removed++
		case !errors.Is(err, os.ErrNotExist):
			return removed, fmt.Errorf("remove stale %s%s: %w", name, TmpSuffix, err)
		}
	}
	return removed, nil
}
