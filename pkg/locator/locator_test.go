//go:build !windows

package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-searchd/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode))
	return path
}

func TestLocate_BinDirIsTrusted(t *testing.T) {
	l := &Locator{BinDir: "/opt/sphinx/bin", SearchPath: []string{t.TempDir()}}

	path, err := l.Locate("searchd")

	require.NoError(t, err)
	assert.Equal(t, "/opt/sphinx/bin/searchd", path)
}

func TestLocate_FirstExecutableWins(t *testing.T) {
	first, second, third := t.TempDir(), t.TempDir(), t.TempDir()
	writeFile(t, first, "searchd", 0644) // not executable
	want := writeFile(t, second, "searchd", 0755)
	writeFile(t, third, "searchd", 0755)
	require.NoError(t, os.Mkdir(filepath.Join(first, "indexer"), 0755))

	l := &Locator{SearchPath: []string{"", first, second, third}}

	path, err := l.Locate("searchd")
	require.NoError(t, err)
	assert.Equal(t, want, path)
}

func TestLocate_NotFoundNamesSearchedLocations(t *testing.T) {
	dir := t.TempDir()
	l := &Locator{SearchPath: []string{dir, "/nonexistent"}}

	_, err := l.Locate("indexer")

	require.Error(t, err)
	assert.True(t, errors.IsExecutableNotFoundError(err))
	assert.Contains(t, err.Error(), dir)
	assert.Contains(t, err.Error(), "/nonexistent")
}

func TestLocate_EmptyName(t *testing.T) {
	_, err := NewLocator("").Locate("")
	assert.True(t, errors.IsValidationError(err))
}

func TestIsExecutable(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, IsExecutable(writeFile(t, dir, "run", 0755)))
	assert.False(t, IsExecutable(writeFile(t, dir, "data", 0644)))
	assert.False(t, IsExecutable(dir))
	assert.False(t, IsExecutable(filepath.Join(dir, "missing")))
}
