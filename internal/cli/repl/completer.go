package repl

import (
	"sort"
	"strings"
)

// Completer suggests command lines by prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over commands. The REPL's own words
// are always included.
func NewCompleter(commands []string) *Completer {
	all := append([]string{"exit", "quit", "history"}, commands...)
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the commands starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
