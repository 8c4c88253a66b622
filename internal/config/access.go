package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetPath looks up a value by its YAML key path. Segments are separated by
// dots; a numeric segment indexes a list, as in "api.tokens.0.scopes".
func (c *Config) GetPath(path string) (any, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	node := tree
	walked := make([]string, 0, 4)
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		switch cur := node.(type) {
		case map[string]any:
			next, ok := cur[seg]
			if !ok {
				return nil, fmt.Errorf("path %q: key %q not found", path, seg)
			}
			node = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(cur) {
				return nil, fmt.Errorf("path %q: %s has %d entries, %q is not an index", path, strings.Join(walked, "."), len(cur), seg)
			}
			node = cur[i]
		default:
			return nil, fmt.Errorf("path %q: %q is a scalar", path, strings.Join(walked, "."))
		}
		walked = append(walked, seg)
	}
	return node, nil
}
