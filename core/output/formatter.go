// Package output provides output formatting interfaces.
// This package renders resolution results in human and machine-readable forms.
package output

import (
	"fmt"
	"io"

	"github.com/rut31337/cloudforge/core/engine"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given result
	Render(w io.Writer, result *engine.Result) error
}

// ForFormat returns the formatter for a format name
func ForFormat(name string) (Formatter, error) {
	switch Format(name) {
	case FormatCLI, "":
		return NewCLIFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	}
	return nil, fmt.Errorf("unknown output format: %q", name)
}
