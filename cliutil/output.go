// Package cliutil holds small formatting and signal-handling helpers
// shared by biscuitctl's subcommands.
package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat selects how a command renders its result.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Formatter renders a result value to a writer.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter renders with fmt's default verb, for human-readable
// terminal output.
type TextFormatter struct{}

func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter renders as indented JSON, for scripting.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// NewFormatter resolves format to a Formatter, defaulting to text for
// anything unrecognized.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}
