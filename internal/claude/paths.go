package claude

import "path/filepath"

// NormalizePath cleans a tool's file path so the same file is counted once
// however it was spelled. Relative paths are resolved against cwd when cwd
// is absolute. Returns an empty string for empty input.
func NormalizePath(path, cwd string) string {
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) && filepath.IsAbs(cwd) {
		path = filepath.Join(cwd, path)
	}
	return filepath.Clean(path)
}
