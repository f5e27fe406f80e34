package fileutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrTooLarge is returned by SaveUpload when the content exceeds the limit.
var ErrTooLarge = errors.New("file exceeds the size limit")

// SaveUpload writes r to dir/name, creating dir if needed. The file is
// written under a temporary name and only moved into place once complete, so
// a half-written upload is never visible. Content beyond maxBytes aborts the
// write with ErrTooLarge.
func SaveUpload(dir, name string, r io.Reader, maxBytes int64) (string, int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, errors.WithStack(err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", 0, errors.WithStack(err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, io.LimitReader(r, maxBytes+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", 0, errors.WithStack(err)
	}
	if n > maxBytes {
		os.Remove(tmpPath)
		return "", n, ErrTooLarge
	}

	target := generateUniqueFilepath(filepath.Join(dir, name))
	if err := moveFile(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", 0, err
	}
	return target, n, nil
}

// CopyInto copies src into dir under name and returns the new path.
func CopyInto(src, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.WithStack(err)
	}
	target := generateUniqueFilepath(filepath.Join(dir, name))
	if err := copyFile(src, target); err != nil {
		os.Remove(target)
		return "", err
	}
	return target, nil
}

// RemoveQuietly deletes path, ignoring a file that is already gone.
func RemoveQuietly(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// moveFile safely moves a file from source to destination.
func moveFile(src, dst string) error {
	// Try a simple rename first (fastest, works if src and dst are on same filesystem)
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	// If rename failed, do a copy + delete
	err = copyFile(src, dst)
	if err != nil {
		return errors.WithStack(err)
	}

	// Remove the source file only after successful copy
	err = os.Remove(src)
	if err != nil {
		// If we can't remove the source, try to clean up the destination
		os.Remove(dst)
		return errors.WithStack(err)
	}

	return nil
}

// copyFile copies a file from source to destination.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// generateUniqueFilepath creates a unique filepath by appending a number if needed.
func generateUniqueFilepath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := filepath.Base(path)
	nameWithoutExt := base[:len(base)-len(ext)]

	for i := 1; i < 1000; i++ {
		newName := fmt.Sprintf("%s (%d)%s", nameWithoutExt, i, ext)
		newPath := filepath.Join(dir, newName)
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}

	// Fallback - this should rarely happen
	return path
}
