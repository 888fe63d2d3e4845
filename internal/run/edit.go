package run

import (
	"fmt"
	"strings"
)

// setPath assigns value at a dot-separated path, creating missing objects.
func setPath(root map[string]any, path string, value any) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty field path")
	}
	parts := strings.Split(path, ".")
	node := root
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("invalid field path %q", path)
		}
		if i == len(parts)-1 {
			node[part] = value
			return nil
		}
		next, ok := node[part]
		if !ok || next == nil {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("field %q is not an object", strings.Join(parts[:i+1], "."))
		}
		node = child
	}
	return nil
}

// lookupPath reads a dot-separated path.
func lookupPath(root map[string]any, path string) (any, bool) {
	var node any = root
	for _, part := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// containsFold reports whether s contains substr, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Field reads an extract field, preferring the edited copy.
func (s State) Field(path string) (any, bool) {
	if s.EditableExtract != nil {
		return lookupPath(s.EditableExtract, path)
	}
	if s.Result != nil && s.Result.Extract != nil {
		return lookupPath(s.Result.Extract, path)
	}
	return nil, false
}
