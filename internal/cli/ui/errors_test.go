package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
		excludes []string
	}{
		{
			name:     "basic error",
			opts:     ErrorOptions{Context: "unknown resource", Problem: "pst", NoColor: true},
			contains: []string{"✗ UNKNOWN RESOURCE: pst"},
			excludes: []string{"Did you mean"},
		},
		{
			name:     "without context",
			opts:     ErrorOptions{Problem: "render failed", NoColor: true},
			contains: []string{"✗ render failed"},
		},
		{
			name:     "suggestions",
			opts:     ErrorOptions{Problem: "x", Suggestions: []string{"post", "person"}, NoColor: true},
			contains: []string{"Did you mean: post, person?"},
		},
		{
			name:     "help commands",
			opts:     ErrorOptions{Problem: "x", HelpCommands: []string{"Get help: conduit-serializer --help"}, NoColor: true},
			contains: []string{"→ Get help: conduit-serializer --help"},
		},
		{
			name:     "warning",
			opts:     ErrorOptions{Level: ErrorLevelWarning, Problem: "cache disabled", NoColor: true},
			contains: []string{"! cache disabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatError(tt.opts)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestUnknownAdapterError(t *testing.T) {
	out := UnknownAdapterError("jsonapi", []string{"attributes", "json", "json_api"}, true)
	assert.Contains(t, out, "UNKNOWN ADAPTER: jsonapi")
	assert.Contains(t, out, "Did you mean: json_api, json?")
	assert.Contains(t, out, "Adapters: attributes, json, json_api")
}

func TestUnknownResourceError(t *testing.T) {
	out := UnknownResourceError("coment", []string{"comment", "post"}, true)
	assert.Contains(t, out, "UNKNOWN RESOURCE: coment")
	assert.Contains(t, out, "Did you mean: comment?")
}

func TestConfigErrorAndWarning(t *testing.T) {
	assert.Contains(t, ConfigError("bad adapter", true), "CONFIGURATION ERROR: bad adapter")
	assert.Contains(t, Warning("slow", true), "! slow")
}
