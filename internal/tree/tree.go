package tree

import "strings"

// Split breaks a dot-delimited path into its segments.
//
// An empty path yields nil rather than a single empty segment, so invalid
// reads resolve to "not found" instead of addressing a phantom "" key.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Parent returns the path one level above p, and whether such a level exists.
//
// A single-segment path has the empty parent "" (the tree root), reported
// with ok=true so that root-level wildcard scopes can be addressed. An empty
// path has no parent.
func Parent(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	idx := strings.LastIndexByte(p, '.')
	if idx < 0 {
		return "", true
	}
	return p[:idx], true
}

// Lookup descends root segment by segment and returns the value at the end
// of the path.
//
// Missing segments and non-container intermediates yield (nil, false); Lookup
// never panics. An empty segment list addresses the root itself.
func Lookup(root map[string]any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return root, root != nil
	}

	node := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}

	value, ok := node[segments[len(segments)-1]]
	return value, ok
}

// Assign writes value at the location named by segments, creating
// intermediate object nodes as needed.
//
// An intermediate segment that currently holds a non-container value (a
// scalar or a slice) is overwritten with a fresh object node: last write
// wins, Assign never fails. An empty segment list is a no-op; the root
// cannot be replaced through Assign.
func Assign(root map[string]any, segments []string, value any) {
	if len(segments) == 0 {
		return
	}

	node := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}

	node[segments[len(segments)-1]] = value
}

// Clone returns a deep copy of a JSON-like value.
//
// Maps and slices are copied recursively; scalars (and any other value type)
// are returned as-is. Mutating the copy never affects the original tree.
func Clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = Clone(child)
		}
		return out
	default:
		return value
	}
}
