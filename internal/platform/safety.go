package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDevRun reports whether the binary was started by go run or go test.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	// go run builds into the temp dir
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolveDataDir returns the directory the databases live in. With sandbox
// set, a path outside the temp dir is moved under <tmp>/glossa-dev so
// development runs never touch real study notes.
func ResolveDataDir(dataDir string, sandbox bool) string {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if !sandbox {
		return dataDir
	}

	clean := filepath.Clean(dataDir)
	rel, err := filepath.Rel(os.TempDir(), clean)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return clean
	}

	name := filepath.Base(clean)
	if name == "." || name == string(os.PathSeparator) {
		name = "default"
	}
	return filepath.Join(os.TempDir(), "glossa-dev", name)
}
