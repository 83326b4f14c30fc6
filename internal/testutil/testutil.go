// Package testutil generates barcode fixtures and locates the module root
// for tests.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	rootOnce sync.Once
	root     string
	rootErr  error
)

// GetProjectRoot returns the directory holding go.mod, found by walking up
// from this source file. The result is cached.
func GetProjectRoot() (string, error) {
	rootOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			rootErr = errors.New("failed to get caller information")
			return
		}
		for dir := filepath.Dir(filename); ; dir = filepath.Dir(dir) {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				root = dir
				return
			}
			if filepath.Dir(dir) == dir {
				rootErr = fmt.Errorf("could not find go.mod above %s", filepath.Dir(filename))
				return
			}
		}
	})
	return root, rootErr
}

// GetProjectRootValidated returns the project root after checking that the
// cmd/qrscan entry point exists below it.
func GetProjectRootValidated() (string, error) {
	dir, err := GetProjectRoot()
	if err != nil {
		return "", err
	}
	main := filepath.Join(dir, "cmd", "qrscan", "main.go")
	if _, err := os.Stat(main); err != nil {
		return "", fmt.Errorf("invalid project root %s: %w", dir, err)
	}
	return dir, nil
}

// CreateTempDir returns a per-test directory removed after the test.
func CreateTempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}
