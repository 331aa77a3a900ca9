// Package helpers holds fixtures shared by package tests.
package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// FileAssertions checks files below a base directory.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

// AssertFileExists fails the test unless the file exists.
func (fa *FileAssertions) AssertFileExists(relativePath string) *FileAssertions {
	fa.t.Helper()
	require.FileExists(fa.t, filepath.Join(fa.baseDir, relativePath))
	return fa
}

// AssertNoFile fails the test if the path exists.
func (fa *FileAssertions) AssertNoFile(relativePath string) *FileAssertions {
	fa.t.Helper()
	require.NoFileExists(fa.t, filepath.Join(fa.baseDir, relativePath))
	return fa
}

// AssertFileContains fails the test unless the file contains expected.
func (fa *FileAssertions) AssertFileContains(relativePath, expected string) *FileAssertions {
	fa.t.Helper()
	require.Contains(fa.t, fa.Read(relativePath), expected)
	return fa
}

// Read returns the file content.
func (fa *FileAssertions) Read(relativePath string) string {
	fa.t.Helper()
	// #nosec G304 - test helper, paths are controlled by test code
	content, err := os.ReadFile(filepath.Join(fa.baseDir, relativePath))
	require.NoError(fa.t, err)
	return string(content)
}

// WriteFile creates a file and its parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
