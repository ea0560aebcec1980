package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// CacheDirEnv is the environment variable that overrides the snapshot cache root.
const CacheDirEnv = "AKB_CACHE_DIR"

// CacheDir resolves the root directory of the on-disk snapshot cache.
// Resolution order: AKB_CACHE_DIR env var, then <user-cache-dir>/akb.
func CacheDir() (string, error) {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir, nil
	}

	base, err := os.UserCacheDir()
	if err != nil {
		// Fall back to the home directory if the platform cache dir is unknown
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", err
		}
		return filepath.Join(home, ".cache", "akb"), nil
	}
	return filepath.Join(base, "akb"), nil
}

// ConfigDir resolves the directory holding config.json and analyzer.toml.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".akb"), nil
}

// ProjectID derives the canonical short project identifier from a project
// root path: the final path segment, with trailing separators ignored.
// Returns "" for blank input.
func ProjectID(projectRoot string) string {
	trimmed := strings.TrimSpace(projectRoot)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.TrimRight(filepath.ToSlash(trimmed), "/")
	if trimmed == "" {
		// Input was all separators (e.g. "/")
		return ""
	}
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

// ProjectDir returns the cache subdirectory for a project.
func ProjectDir(cacheDir, projectID string) string {
	return filepath.Join(cacheDir, projectID)
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
