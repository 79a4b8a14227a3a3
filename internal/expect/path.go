package expect

import (
	"fmt"
	"strconv"
	"strings"
)

// Walk follows a dot path with optional array indexes through a decoded JSON
// value. Examples: "status", "data.name", "users[0].email", "[1]".
func Walk(root any, path string) (any, error) {
	current := root
	for _, part := range splitPath(path) {
		key, indexes, err := parsePathPart(part)
		if err != nil {
			return nil, err
		}

		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %s", key)
			}
			val, exists := obj[key]
			if !exists {
				return nil, fmt.Errorf("key %s not found", key)
			}
			current = val
		}

		for _, idx := range indexes {
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("expected array at index %d", idx)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("index %d out of range (len=%d)", idx, len(arr))
			}
			current = arr[idx]
		}
	}
	return current, nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// parsePathPart splits "name[0][1]" into ("name", [0 1]).
func parsePathPart(part string) (string, []int, error) {
	open := strings.Index(part, "[")
	if open == -1 {
		return part, nil, nil
	}
	key := part[:open]
	rest := part[open:]

	var indexes []int
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("malformed path segment %q", part)
		}
		end := strings.Index(rest, "]")
		if end == -1 {
			return "", nil, fmt.Errorf("malformed path segment %q", part)
		}
		idx, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, fmt.Errorf("malformed index in %q", part)
		}
		indexes = append(indexes, idx)
		rest = rest[end+1:]
	}
	return key, indexes, nil
}
