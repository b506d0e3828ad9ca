// Package envutil manipulates environ-style "KEY=value" slices. Settings
// parsing works over a slice rather than the live process environment so it
// stays a pure function.
package envutil

import (
	"strings"
)

// Get looks up a value in an env slice. It returns the value and true if
// found, or empty string and false if not.
func Get(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return e[len(prefix):], true
		}
	}
	return "", false
}

// Bool reports whether key is set to a truthy value ("1", "true", "yes",
// case-insensitive) in an env slice.
func Bool(env []string, key string) bool {
	v, ok := Get(env, key)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// RemovePrefix removes all variables whose key starts with prefix.
// Used to strip DYLD_* and LD_* variables, which can inject dynamic
// libraries into the sandboxed process.
func RemovePrefix(env []string, prefix string) []string {
	result := make([]string, 0, len(env))
	for _, e := range env {
		key := e
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			key = e[:idx]
		}
		if !strings.HasPrefix(key, prefix) {
			result = append(result, e)
		}
	}
	return result
}
