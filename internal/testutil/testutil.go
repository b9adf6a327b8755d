// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the helpers used by the parser, associator and
// analysis tests to stage input files on disk or in memory.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/voeval/internal/fsutil"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertErrorIs fails the test unless err wraps target.
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// WriteTempFile writes content to dir/name and returns the full path.
func WriteTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// NewMemFS returns an in-memory filesystem populated with files, keyed by path.
func NewMemFS(t *testing.T, files map[string]string) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	for name, content := range files {
		if err := mfs.WriteFile(name, []byte(content), 0644); err != nil {
			t.Fatalf("failed to stage %s: %v", name, err)
		}
	}
	return mfs
}
