package utils

import (
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// FileExists returns if the given path exists.
func FileExists(filePath string) (bool, fs.FileInfo) {
	stat, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}
	return true, stat
}

// IsWritable checks if the directory at the given path is writable.
// Important: This function uses the unix package, which only works on unix systems.
func IsWritable(path string) (bool, error) {
	if err := unix.Access(path, unix.W_OK); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureWritableDir creates the directory if needed and checks that it is a
// writable directory.
func EnsureWritableDir(path string, perm fs.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	exists, info := FileExists(path)
	if !exists || info == nil || !info.IsDir() {
		return fmt.Errorf("given file path is not a directory: %s", path)
	}
	if _, err := IsWritable(path); err != nil {
		return fmt.Errorf("given file path is not writable: %w", err)
	}
	return nil
}
