// Package gitconfig extracts include directives from git configuration
// files. The launcher binds each included file read-only so that
// conditional-include setups (per-directory identities and the like) keep
// working inside the sandbox.
package gitconfig

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
)

// IncludePaths returns the raw path values of every [include] and
// [includeIf "..."] section in a git config file, in file order. Values are
// returned as written; use Resolve to expand them.
//
// The parser is deliberately minimal: section headers and "path = value"
// lines. git's own quoting rules beyond surrounding double quotes are not
// reproduced; nobody escapes bytes in include paths.
func IncludePaths(data []byte) []string {
	var paths []string
	inInclude := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			section := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			lower := strings.ToLower(section)
			inInclude = lower == "include" || strings.HasPrefix(lower, `includeif `)
			continue
		}

		if !inInclude {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(strings.ToLower(key)) != "path" {
			continue
		}
		v := strings.TrimSpace(value)
		v = strings.Trim(v, `"`)
		if v != "" {
			paths = append(paths, v)
		}
	}
	return paths
}

// Resolve expands an include path the way git does: "~" against home,
// relative paths against the directory of the including file.
func Resolve(path, baseDir, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(baseDir, path)
	}
	return filepath.Clean(path)
}
