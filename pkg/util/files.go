package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// JobDir returns the working directory for a job started at t
func JobDir(workDir, jobID string, t time.Time) string {
	return filepath.Join(workDir, fmt.Sprintf("%s_%s", t.Format("20060102_150405"), jobID))
}
