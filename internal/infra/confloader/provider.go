package confloader

import (
	"errors"
	"strings"
)

var errReadBytes = errors.New("confloader: override provider has no byte form")

// overrideProvider is a koanf provider over dotted-key string values.
type overrideProvider map[string]string

func (p overrideProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

// Read expands "a.b.c" keys into nested maps.
func (p overrideProvider) Read() (map[string]any, error) {
	out := make(map[string]any)
	for key, value := range p {
		parts := strings.Split(key, ".")
		m := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := m[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[part] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = value
	}
	return out, nil
}
