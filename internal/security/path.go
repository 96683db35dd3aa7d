// Package security holds small filesystem safety checks.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath rejects empty paths and directory traversal attempts.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}
	return nil
}

// ValidateWithinBase ensures path resolves inside baseDir. Staged attachment
// paths recorded in reminders are checked against the staging dir before any
// read or delete.
func ValidateWithinBase(path, baseDir string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	cleanBase := filepath.Clean(baseDir)
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		cleanPath = filepath.Join(cleanBase, cleanPath)
	}
	if cleanPath != cleanBase && !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", path)
	}
	return nil
}
