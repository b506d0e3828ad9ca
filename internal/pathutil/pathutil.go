// Package pathutil provides small path helpers used by plan discovery:
// tilde expansion, colon-separated list parsing, and best-effort symlink
// resolution.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ExpandTilde expands a leading "~" or "~/" in path against home. Other
// users' homes ("~bob/x") are not expanded; nobody writes those into agent
// path lists in practice.
func ExpandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// SplitList splits a colon-separated path list, dropping empty elements.
// It is the parsing half of the extra-paths configuration; expansion and
// existence checks happen later, during plan assembly.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ":") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolve follows symlinks and cleans the path, falling back to the cleaned
// input when resolution fails. Dotfiles are commonly symlinks into a
// dotfiles repository; binding the link instead of its target would silently
// expose nothing useful inside the sandbox.
func Resolve(path string) string {
	if resolved, err := evalSymlinks(path); err == nil {
		return filepath.Clean(resolved)
	}
	return filepath.Clean(path)
}

// evalSymlinks is overridden in tests.
var evalSymlinks = filepath.EvalSymlinks

// Under reports whether path equals root or lies beneath it.
func Under(root, path string) bool {
	if root == "" {
		return false
	}
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	if root == "/" {
		return strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
