package state

import "strings"

// Path is a dot-separated address into the state tree, e.g. "user.name".
type Path = string

// splitPath splits a path into its segments.
func splitPath(path Path) []string {
	return strings.Split(path, ".")
}

// validPath reports whether a path is well formed. A path is rejected if it
// is empty, starts or ends with a separator, contains an empty segment, or
// contains the parent-escape segment "..".
func validPath(path Path) bool {
	if path == "" {
		return false
	}
	if strings.Contains(path, "..") {
		return false
	}
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return false
	}
	return true
}

// isAncestor reports whether a is a strict prefix-ancestor of b
// ("user" is an ancestor of "user.name" but not of "username").
func isAncestor(a, b Path) bool {
	return len(b) > len(a) && strings.HasPrefix(b, a) && b[len(a)] == '.'
}

// isDescendant reports whether a is a strict descendant of b.
func isDescendant(a, b Path) bool {
	return isAncestor(b, a)
}

// ancestors returns the strict-prefix ancestors of path, nearest first.
// For "a.b.c" it returns ["a.b", "a"].
func ancestors(path Path) []Path {
	var out []Path
	for {
		i := strings.LastIndexByte(path, '.')
		if i < 0 {
			return out
		}
		path = path[:i]
		out = append(out, path)
	}
}
