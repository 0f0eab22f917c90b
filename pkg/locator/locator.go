package locator

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/core-tools/hsu-searchd/pkg/errors"
)

// Locator resolves daemon and indexer binaries.
type Locator struct {
	// BinDir, when set, is trusted without an existence check.
	BinDir string
	// SearchPath is scanned in order when BinDir is empty.
	SearchPath []string
}

// NewLocator searches the PATH environment variable unless binDir is set.
func NewLocator(binDir string) *Locator {
	return &Locator{
		BinDir:     binDir,
		SearchPath: filepath.SplitList(os.Getenv("PATH")),
	}
}

// Locate returns the path of the named executable.
func (l *Locator) Locate(name string) (string, error) {
	if name == "" {
		return "", errors.NewValidationError("executable name cannot be empty", nil)
	}
	if l.BinDir != "" {
		return filepath.Join(l.BinDir, name), nil
	}

	for _, dir := range l.SearchPath {
		if dir == "" {
			continue
		}
		for _, candidate := range candidates(dir, name) {
			if IsExecutable(candidate) {
				return candidate, nil
			}
		}
	}

	return "", errors.NewExecutableNotFoundError(
		"cannot find "+name+" in "+strings.Join(l.SearchPath, string(filepath.ListSeparator)), nil,
	).WithContext("name", name).WithContext("searched", l.SearchPath)
}

func candidates(dir, name string) []string {
	path := filepath.Join(dir, name)
	if runtime.GOOS != "windows" || filepath.Ext(name) != "" {
		return []string{path}
	}
	return []string{path + ".exe", path + ".bat", path + ".cmd", path}
}

// IsExecutable reports whether path is a regular file the OS would run.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	// On Windows, executability is decided by extension
	if runtime.GOOS == "windows" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".exe", ".bat", ".cmd", ".com":
			return true
		}
		return false
	}

	return info.Mode()&0111 != 0
}
