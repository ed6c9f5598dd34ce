package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"amdmon/internal/logging"
)

const (
	// DefaultDataDirPermissions is the default permission for data directories
	DefaultDataDirPermissions = 0o750
	// DefaultFilePermissions is the default permission for data files
	DefaultFilePermissions = 0o644
)

// ResolveDataDir returns the data directory from the environment or the
// provided default, as an absolute path when possible. Record streams and
// session reports land here.
func ResolveDataDir(defaultDir string) string {
	if env := os.Getenv("AMDMON_DATA_DIR"); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
		return env
	}
	return defaultDir
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir(path string) error {
	if err := os.MkdirAll(path, DefaultDataDirPermissions); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// AtomicWriteFile writes data to a file atomically by first writing to a temp
// file and then renaming it to the target path. Session reports use this so a
// crash mid-write never leaves a truncated report behind.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, logger *logging.Logger) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			if logger != nil {
				logger.Warn("fsutil.cleanup.failed", "Failed to remove temp file", map[string]interface{}{
					"path":  tmpPath,
					"error": removeErr.Error(),
				})
			}
		}
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
