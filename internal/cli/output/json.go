package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes indented JSON. Offer messages and item names are
// written as-is, without HTML escaping.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
