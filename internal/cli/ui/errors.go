package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	✗ UNKNOWN RESOURCE: pst
//
//	   Did you mean: post?
//
//	   → List resources: conduit-serializer describe --schema schema.yml
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	header := newColor(opts.NoColor, color.FgRed, color.Bold)
	symbol := "✗"
	if opts.Level == ErrorLevelWarning {
		header = newColor(opts.NoColor, color.FgYellow, color.Bold)
		symbol = "!"
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		newColor(opts.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := newColor(opts.NoColor, color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// UnknownResourceError reports a resource name missing from the schema
func UnknownResourceError(name string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:      "unknown resource",
		Problem:      name,
		Suggestions:  FindSimilar(name, known, nil),
		HelpCommands: []string{"List resources: conduit-serializer describe --schema <file>"},
		NoColor:      noColor,
	})
}

// UnknownAdapterError reports an adapter name that does not resolve
func UnknownAdapterError(name string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:      "unknown adapter",
		Problem:      name,
		Suggestions:  FindSimilar(name, known, nil),
		HelpCommands: []string{fmt.Sprintf("Adapters: %s", strings.Join(known, ", "))},
		NoColor:      noColor,
	})
}

// ConfigError reports a configuration file that could not be used
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "configuration error",
		Problem: message,
		HelpCommands: []string{
			"Check serializer.yml or the SERIALIZER_* environment variables",
			"Get help: conduit-serializer --help",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}
